// Package sqlite provides a SQLite-backed implementation of storage.Store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"vfms/internal/core"
	"vfms/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New opens the database at dbPath, creating parent directories and applying
// migrations.
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; sqlite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %w", core.ErrStoreRead, err)
	}
	if err := runMigrations(dbPath, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Households() storage.Repository[core.Household] { return householdRepo{s} }
func (s *Store) Funds() storage.Repository[core.Fund]           { return fundRepo{s} }
func (s *Store) Payments() storage.PaymentLog                   { return paymentRepo{s} }
func (s *Store) Expenses() storage.Repository[core.Expense]     { return expenseRepo{s} }
func (s *Store) Cashiers() storage.Repository[core.Cashier]     { return cashierRepo{s} }

func readErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrStoreRead, op, err)
}

func writeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", core.ErrStoreWrite, op, err)
}

func nullDate(d core.Date) any {
	if d.IsEmpty() {
		return nil
	}
	return d.String()
}

func scanDate(ns sql.NullString) (core.Date, error) {
	if !ns.Valid {
		return core.Date{}, nil
	}
	return core.ParseDate(ns.String)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// skipRow logs a row that cannot be decoded. Such rows are left out of the
// result instead of failing the whole read.
func (s *Store) skipRow(ctx context.Context, table, id string, err error) {
	s.logger.WarnContext(ctx, "Skipping unreadable row", "table", table, "id", id, "error", err)
}

type householdRepo struct{ s *Store }

func (r householdRepo) GetAll(ctx context.Context) ([]core.Household, error) {
	rows, err := r.s.db.QueryContext(ctx, `SELECT id, head_name, members_json FROM households ORDER BY rowid`)
	if err != nil {
		return nil, readErr("list households", err)
	}
	defer rows.Close()

	out := []core.Household{}
	for rows.Next() {
		var h core.Household
		var members string
		if err := rows.Scan(&h.ID, &h.HeadName, &members); err != nil {
			return nil, readErr("scan household", err)
		}
		if err := json.Unmarshal([]byte(members), &h.Members); err != nil {
			r.s.skipRow(ctx, "households", h.ID, err)
			continue
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr("iterate households", err)
	}
	return out, nil
}

func (r householdRepo) Put(ctx context.Context, h core.Household) error {
	if err := h.Validate(); err != nil {
		return err
	}
	members := h.Members
	if members == nil {
		members = []core.Member{}
	}
	data, err := json.Marshal(members)
	if err != nil {
		return fmt.Errorf("encode members: %w", err)
	}
	_, err = r.s.db.ExecContext(ctx, `
		INSERT INTO households (id, head_name, members_json) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET head_name = excluded.head_name, members_json = excluded.members_json`,
		h.ID, h.HeadName, string(data))
	if err != nil {
		return writeErr("put household", err)
	}
	return nil
}

func (r householdRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.s.db.ExecContext(ctx, `DELETE FROM households WHERE id = ?`, id); err != nil {
		return writeErr("delete household", err)
	}
	return nil
}

type fundRepo struct{ s *Store }

func (r fundRepo) GetAll(ctx context.Context) ([]core.Fund, error) {
	rows, err := r.s.db.QueryContext(ctx, `
		SELECT id, title, description, amount_cents, type, classification, is_mandatory,
		       priority, deadline, created_date, is_public, affected_family_id,
		       group_id, month_index, year
		FROM funds ORDER BY rowid`)
	if err != nil {
		return nil, readErr("list funds", err)
	}
	defer rows.Close()

	out := []core.Fund{}
	for rows.Next() {
		var (
			f                 core.Fund
			classification    string
			priority          string
			mandatory, public int
			deadline, created sql.NullString
			groupID           sql.NullString
			monthIndex, year  sql.NullInt64
		)
		if err := rows.Scan(&f.ID, &f.Title, &f.Description, &f.Amount.Cents, &f.Type, &classification,
			&mandatory, &priority, &deadline, &created, &public, &f.AffectedFamilyID,
			&groupID, &monthIndex, &year); err != nil {
			return nil, readErr("scan fund", err)
		}
		f.Classification = core.Classification(classification)
		f.Priority = core.Priority(priority)
		f.IsMandatory = mandatory != 0
		f.IsPublic = public != 0
		if f.Deadline, err = scanDate(deadline); err != nil {
			r.s.skipRow(ctx, "funds", f.ID, err)
			continue
		}
		if f.CreatedDate, err = scanDate(created); err != nil {
			r.s.skipRow(ctx, "funds", f.ID, err)
			continue
		}
		if groupID.Valid && groupID.String != "" {
			f.Recurrence = &core.Recurrence{
				GroupID:    groupID.String,
				MonthIndex: int(monthIndex.Int64),
				Year:       int(year.Int64),
			}
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr("iterate funds", err)
	}
	return out, nil
}

func (r fundRepo) Put(ctx context.Context, f core.Fund) error {
	if err := f.Validate(); err != nil {
		return err
	}
	var groupID, monthIndex, year any
	if f.Recurrence != nil {
		groupID, monthIndex, year = f.Recurrence.GroupID, f.Recurrence.MonthIndex, f.Recurrence.Year
	}
	_, err := r.s.db.ExecContext(ctx, `
		INSERT INTO funds (id, title, description, amount_cents, type, classification, is_mandatory,
		                   priority, deadline, created_date, is_public, affected_family_id,
		                   group_id, month_index, year)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			amount_cents = excluded.amount_cents,
			type = excluded.type,
			classification = excluded.classification,
			is_mandatory = excluded.is_mandatory,
			priority = excluded.priority,
			deadline = excluded.deadline,
			created_date = excluded.created_date,
			is_public = excluded.is_public,
			affected_family_id = excluded.affected_family_id,
			group_id = excluded.group_id,
			month_index = excluded.month_index,
			year = excluded.year`,
		f.ID, f.Title, f.Description, f.Amount.Cents, f.Type, string(f.Classification), boolInt(f.IsMandatory),
		string(f.Priority), nullDate(f.Deadline), nullDate(f.CreatedDate), boolInt(f.IsPublic), f.AffectedFamilyID,
		groupID, monthIndex, year)
	if err != nil {
		return writeErr("put fund", err)
	}
	return nil
}

func (r fundRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.s.db.ExecContext(ctx, `DELETE FROM funds WHERE id = ?`, id); err != nil {
		return writeErr("delete fund", err)
	}
	return nil
}

type paymentRepo struct{ s *Store }

func (r paymentRepo) GetAll(ctx context.Context) ([]core.Payment, error) {
	rows, err := r.s.db.QueryContext(ctx, `
		SELECT id, family_id, fund_id, amount_cents, paid_at, method, details, created_at
		FROM payments ORDER BY rowid`)
	if err != nil {
		return nil, readErr("list payments", err)
	}
	defer rows.Close()

	out := []core.Payment{}
	for rows.Next() {
		var (
			p               core.Payment
			method          string
			paidAt, created string
		)
		if err := rows.Scan(&p.ID, &p.FamilyID, &p.FundID, &p.Amount.Cents, &paidAt, &method, &p.Details, &created); err != nil {
			return nil, readErr("scan payment", err)
		}
		p.Method = core.PaymentMethod(method)
		if p.Date, err = time.Parse(time.RFC3339Nano, paidAt); err != nil {
			r.s.skipRow(ctx, "payments", p.ID, err)
			continue
		}
		if p.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			r.s.skipRow(ctx, "payments", p.ID, err)
			continue
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr("iterate payments", err)
	}
	return out, nil
}

func (r paymentRepo) Put(ctx context.Context, p core.Payment) error {
	_, err := r.Append(ctx, p)
	return err
}

func (r paymentRepo) Delete(context.Context, string) error {
	return core.ErrPaymentImmutable
}

func (r paymentRepo) Append(ctx context.Context, payments ...core.Payment) ([]core.Payment, error) {
	stored := make([]core.Payment, 0, len(payments))
	now := time.Now().UTC()
	for _, p := range payments {
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		if p.Date.IsZero() {
			p.Date = p.CreatedAt
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		stored = append(stored, p)
	}

	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, writeErr("begin payment batch", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO payments (id, family_id, fund_id, amount_cents, paid_at, method, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, writeErr("prepare payment insert", err)
	}
	defer stmt.Close()

	for _, p := range stored {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM payments WHERE id = ?`, p.ID).Scan(&exists)
		if err != nil {
			return nil, readErr("check payment id", err)
		}
		if exists > 0 {
			return nil, fmt.Errorf("%w: payment %s already recorded", core.ErrPaymentImmutable, p.ID)
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.FamilyID, p.FundID, p.Amount.Cents,
			formatTime(p.Date), string(p.Method), p.Details, formatTime(p.CreatedAt)); err != nil {
			return nil, writeErr("insert payment", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, writeErr("commit payment batch", err)
	}
	return stored, nil
}

type expenseRepo struct{ s *Store }

func (r expenseRepo) GetAll(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.s.db.QueryContext(ctx, `
		SELECT id, fund_id, cashier_id, amount_cents, purpose, status, is_public, spent_at
		FROM expenses ORDER BY rowid`)
	if err != nil {
		return nil, readErr("list expenses", err)
	}
	defer rows.Close()

	out := []core.Expense{}
	for rows.Next() {
		var (
			e       core.Expense
			status  string
			public  int
			spentAt string
		)
		if err := rows.Scan(&e.ID, &e.FundID, &e.CashierID, &e.Amount.Cents, &e.Purpose, &status, &public, &spentAt); err != nil {
			return nil, readErr("scan expense", err)
		}
		e.Status = core.ExpenseStatus(status)
		e.IsPublic = public != 0
		if e.Date, err = time.Parse(time.RFC3339Nano, spentAt); err != nil {
			r.s.skipRow(ctx, "expenses", e.ID, err)
			continue
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr("iterate expenses", err)
	}
	return out, nil
}

func (r expenseRepo) Put(ctx context.Context, e core.Expense) error {
	if e.ID == "" {
		return core.ErrEmptyID
	}
	if err := e.Validate(); err != nil {
		return err
	}
	_, err := r.s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, fund_id, cashier_id, amount_cents, purpose, status, is_public, spent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			fund_id = excluded.fund_id,
			cashier_id = excluded.cashier_id,
			amount_cents = excluded.amount_cents,
			purpose = excluded.purpose,
			status = excluded.status,
			is_public = excluded.is_public,
			spent_at = excluded.spent_at`,
		e.ID, e.FundID, e.CashierID, e.Amount.Cents, e.Purpose, string(e.Status), boolInt(e.IsPublic), formatTime(e.Date))
	if err != nil {
		return writeErr("put expense", err)
	}
	return nil
}

func (r expenseRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id); err != nil {
		return writeErr("delete expense", err)
	}
	return nil
}

type cashierRepo struct{ s *Store }

func (r cashierRepo) GetAll(ctx context.Context) ([]core.Cashier, error) {
	rows, err := r.s.db.QueryContext(ctx, `SELECT id, name, mobile FROM cashiers ORDER BY rowid`)
	if err != nil {
		return nil, readErr("list cashiers", err)
	}
	defer rows.Close()

	out := []core.Cashier{}
	for rows.Next() {
		var c core.Cashier
		if err := rows.Scan(&c.ID, &c.Name, &c.Mobile); err != nil {
			return nil, readErr("scan cashier", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr("iterate cashiers", err)
	}
	return out, nil
}

func (r cashierRepo) Put(ctx context.Context, c core.Cashier) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := r.s.db.ExecContext(ctx, `
		INSERT INTO cashiers (id, name, mobile) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, mobile = excluded.mobile`,
		c.ID, c.Name, c.Mobile)
	if err != nil {
		return writeErr("put cashier", err)
	}
	return nil
}

func (r cashierRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.s.db.ExecContext(ctx, `DELETE FROM cashiers WHERE id = ?`, id); err != nil {
		return writeErr("delete cashier", err)
	}
	return nil
}
