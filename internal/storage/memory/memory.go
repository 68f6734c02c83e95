// Package memory keeps the record store in process memory, optionally backed
// by a JSON snapshot file that is rewritten after every change.
//
// Several processes may open the same file. Each write takes a lock file,
// reloads whatever the others wrote and only then applies its change. Reads
// reload when the file changed since this process last saw it.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"vfms/internal/core"
	"vfms/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	snap   storage.Snapshot
	path   string
	logger *slog.Logger
	seen   fileStamp
}

// New returns a store holding a copy of snap. Nothing is written to disk.
func New(snap storage.Snapshot) *Store {
	return &Store{snap: cloneSnapshot(snap), logger: slog.Default()}
}

// Open loads the snapshot file at path. A missing file starts from the
// default dataset and is created; unreadable collections fall back to their
// defaults.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: path, logger: logger}

	release, err := lockFile(context.Background(), path)
	if err != nil {
		return nil, err
	}
	defer release()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.snap = storage.DefaultSnapshot()
		logger.Info("Snapshot file not found, starting from defaults", "path", path)
		if err := s.flushLocked(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("%w: read snapshot: %w", core.ErrStoreRead, err)
	default:
		s.snap = storage.DecodeSnapshot(data, storage.DefaultSnapshot(), logger)
		if info, err := os.Stat(path); err == nil {
			s.seen = stampOf(info)
		}
	}
	return s, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) Households() storage.Repository[core.Household] {
	return &collection[core.Household]{
		s:        s,
		items:    func(sn *storage.Snapshot) *[]core.Household { return &sn.Households },
		id:       func(h core.Household) string { return h.ID },
		validate: core.Household.Validate,
	}
}

func (s *Store) Funds() storage.Repository[core.Fund] {
	return &collection[core.Fund]{
		s:        s,
		items:    func(sn *storage.Snapshot) *[]core.Fund { return &sn.Funds },
		id:       func(f core.Fund) string { return f.ID },
		validate: core.Fund.Validate,
	}
}

func (s *Store) Expenses() storage.Repository[core.Expense] {
	return &collection[core.Expense]{
		s:     s,
		items: func(sn *storage.Snapshot) *[]core.Expense { return &sn.Expenses },
		id:    func(e core.Expense) string { return e.ID },
		validate: func(e core.Expense) error {
			if e.ID == "" {
				return core.ErrEmptyID
			}
			return e.Validate()
		},
	}
}

func (s *Store) Cashiers() storage.Repository[core.Cashier] {
	return &collection[core.Cashier]{
		s:        s,
		items:    func(sn *storage.Snapshot) *[]core.Cashier { return &sn.Cashiers },
		id:       func(c core.Cashier) string { return c.ID },
		validate: core.Cashier.Validate,
	}
}

func (s *Store) Payments() storage.PaymentLog {
	return &paymentLog{s: s}
}

func (s *Store) withRead(ctx context.Context, fn func(*storage.Snapshot) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.path == "" {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return fn(&s.snap)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reloadLocked(false); err != nil {
		return err
	}
	return fn(&s.snap)
}

func (s *Store) withWrite(ctx context.Context, fn func(*storage.Snapshot) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != "" {
		release, err := lockFile(ctx, s.path)
		if err != nil {
			return err
		}
		defer release()
		if err := s.reloadLocked(true); err != nil {
			return err
		}
	}

	before := cloneSnapshot(s.snap)
	if err := fn(&s.snap); err != nil {
		s.snap = before
		return err
	}
	if err := s.flushLocked(); err != nil {
		s.snap = before
		return err
	}
	return nil
}

// reloadLocked replaces the in-memory snapshot with the file's contents when
// another process has rewritten it. force skips the change check.
func (s *Store) reloadLocked(force bool) error {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: stat snapshot: %w", core.ErrStoreRead, err)
	}
	stamp := stampOf(info)
	if !force && stamp == s.seen {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("%w: read snapshot: %w", core.ErrStoreRead, err)
	}
	s.snap = storage.DecodeSnapshot(data, s.snap, s.logger)
	s.seen = stamp
	return nil
}

func (s *Store) flushLocked() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("%w: create snapshot dir: %w", core.ErrStoreWrite, err)
	}
	data, err := json.MarshalIndent(s.snap, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %w", core.ErrStoreWrite, err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("%w: write snapshot: %w", core.ErrStoreWrite, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: replace snapshot: %w", core.ErrStoreWrite, err)
	}
	if info, err := os.Stat(s.path); err == nil {
		s.seen = stampOf(info)
	}
	return nil
}

type collection[T any] struct {
	s        *Store
	items    func(*storage.Snapshot) *[]T
	id       func(T) string
	validate func(T) error
}

func (c *collection[T]) GetAll(ctx context.Context) ([]T, error) {
	var out []T
	err := c.s.withRead(ctx, func(sn *storage.Snapshot) error {
		out = slices.Clone(*c.items(sn))
		return nil
	})
	if out == nil {
		out = []T{}
	}
	return out, err
}

func (c *collection[T]) Put(ctx context.Context, v T) error {
	if err := c.validate(v); err != nil {
		return err
	}
	return c.s.withWrite(ctx, func(sn *storage.Snapshot) error {
		items := c.items(sn)
		key := c.id(v)
		for i := range *items {
			if c.id((*items)[i]) == key {
				(*items)[i] = v
				return nil
			}
		}
		*items = append(*items, v)
		return nil
	})
}

func (c *collection[T]) Delete(ctx context.Context, id string) error {
	return c.s.withWrite(ctx, func(sn *storage.Snapshot) error {
		items := c.items(sn)
		*items = slices.DeleteFunc(*items, func(v T) bool { return c.id(v) == id })
		return nil
	})
}

type paymentLog struct {
	s *Store
}

func (p *paymentLog) GetAll(ctx context.Context) ([]core.Payment, error) {
	var out []core.Payment
	err := p.s.withRead(ctx, func(sn *storage.Snapshot) error {
		out = slices.Clone(sn.Payments)
		return nil
	})
	if out == nil {
		out = []core.Payment{}
	}
	return out, err
}

func (p *paymentLog) Put(ctx context.Context, v core.Payment) error {
	_, err := p.Append(ctx, v)
	return err
}

func (p *paymentLog) Delete(context.Context, string) error {
	return core.ErrPaymentImmutable
}

func (p *paymentLog) Append(ctx context.Context, payments ...core.Payment) ([]core.Payment, error) {
	stored := make([]core.Payment, 0, len(payments))
	now := time.Now().UTC()
	for _, pay := range payments {
		if pay.ID == "" {
			pay.ID = uuid.New().String()
		}
		if pay.CreatedAt.IsZero() {
			pay.CreatedAt = now
		}
		if pay.Date.IsZero() {
			pay.Date = pay.CreatedAt
		}
		if err := pay.Validate(); err != nil {
			return nil, err
		}
		stored = append(stored, pay)
	}
	err := p.s.withWrite(ctx, func(sn *storage.Snapshot) error {
		seen := make(map[string]struct{}, len(sn.Payments)+len(stored))
		for _, existing := range sn.Payments {
			seen[existing.ID] = struct{}{}
		}
		for _, pay := range stored {
			if _, dup := seen[pay.ID]; dup {
				return fmt.Errorf("%w: payment %s already recorded", core.ErrPaymentImmutable, pay.ID)
			}
			seen[pay.ID] = struct{}{}
		}
		sn.Payments = append(sn.Payments, stored...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func cloneSnapshot(s storage.Snapshot) storage.Snapshot {
	out := storage.Snapshot{
		Households: make([]core.Household, len(s.Households)),
		Funds:      make([]core.Fund, len(s.Funds)),
		Payments:   slices.Clone(s.Payments),
		Expenses:   slices.Clone(s.Expenses),
		Cashiers:   slices.Clone(s.Cashiers),
	}
	for i, h := range s.Households {
		h.Members = slices.Clone(h.Members)
		out.Households[i] = h
	}
	for i, f := range s.Funds {
		if f.Recurrence != nil {
			r := *f.Recurrence
			f.Recurrence = &r
		}
		out.Funds[i] = f
	}
	if out.Payments == nil {
		out.Payments = []core.Payment{}
	}
	if out.Expenses == nil {
		out.Expenses = []core.Expense{}
	}
	if out.Cashiers == nil {
		out.Cashiers = []core.Cashier{}
	}
	return out
}
