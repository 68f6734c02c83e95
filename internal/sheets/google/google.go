package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"vfms/internal/cache"
	"vfms/internal/core"
	"vfms/internal/ledger"
	ports "vfms/internal/sheets"
)

var (
	ErrNotInitialized = errors.New("sheets service not initialized")
	ErrCircuitOpen    = errors.New("sheets circuit breaker is open")
)

var _ ports.Exporter = (*Client)(nil)

type Options struct {
	SpreadsheetID string
	// PaymentsSheet is a base name; payments go to "<year> <base>".
	PaymentsSheet string
	SummarySheet  string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	paymentsBase  string
	summarySheet  string

	breaker *gobreaker.CircuitBreaker
	// ready remembers sheets known to exist with the expected header.
	ready *cache.LRU[bool]
}

// New creates a Sheets client authenticated with a service account taken
// from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, opts), nil
}

func newClient(svc *gsheet.Service, opts Options) *Client {
	payments := strings.TrimSpace(opts.PaymentsSheet)
	if payments == "" {
		payments = "Payments"
	}
	summary := strings.TrimSpace(opts.SummarySheet)
	if summary == "" {
		summary = "Summary"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(opts.SpreadsheetID),
		paymentsBase:  payments,
		summarySheet:  summary,
		ready:         cache.NewLRU[bool](32, 10*time.Minute),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "google-sheets",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 5 && failureRatio >= 0.6
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", serviceAccountFile)
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// call runs one API request through the circuit breaker.
func (c *Client) call(fn func() error) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	return err
}

// AppendPayments adds one row per payment to the yearly payments sheet of
// the payment date. The returned reference lists the updated ranges.
func (c *Client) AppendPayments(ctx context.Context, payments []core.Payment) (string, error) {
	if c.svc == nil {
		return "", ErrNotInitialized
	}
	if len(payments) == 0 {
		return "", nil
	}

	years, groups := paymentsByYear(payments)
	refs := make([]string, 0, len(years))
	for _, year := range years {
		sheet := yearPrefixedName(c.paymentsBase, year)
		if err := c.ensureSheet(ctx, sheet, paymentHeader); err != nil {
			return strings.Join(refs, ","), err
		}

		rows := make([][]any, 0, len(groups[year]))
		for _, p := range groups[year] {
			rows = append(rows, paymentRow(p))
		}
		vr := &gsheet.ValueRange{Values: rows}
		var resp *gsheet.AppendValuesResponse
		err := c.call(func() error {
			var err error
			resp, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, sheet+"!A:H", vr).
				ValueInputOption("USER_ENTERED").
				InsertDataOption("INSERT_ROWS").
				Context(ctx).Do()
			return err
		})
		if err != nil {
			c.ready.Delete(sheet)
			return strings.Join(refs, ","), fmt.Errorf("append payments to %s: %w", sheet, err)
		}
		if resp != nil && resp.Updates != nil {
			refs = append(refs, resp.Updates.UpdatedRange)
		}
	}

	ref := strings.Join(refs, ",")
	slog.InfoContext(ctx, "Payments appended to sheet", "count", len(payments), "sheets_ref", ref)
	return ref, nil
}

// WriteSummary clears the summary sheet and writes the current totals.
func (c *Client) WriteSummary(ctx context.Context, rows []ledger.HouseholdSummary, generatedAt time.Time) error {
	if c.svc == nil {
		return ErrNotInitialized
	}
	if err := c.ensureSheet(ctx, c.summarySheet, nil); err != nil {
		return err
	}

	err := c.call(func() error {
		_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.summarySheet+"!A:Z", &gsheet.ClearValuesRequest{}).
			Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("clear %s: %w", c.summarySheet, err)
	}

	vr := &gsheet.ValueRange{Values: summaryValues(rows, generatedAt)}
	err = c.call(func() error {
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.summarySheet+"!A1", vr).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		return err
	})
	if err != nil {
		c.ready.Delete(c.summarySheet)
		return fmt.Errorf("write %s: %w", c.summarySheet, err)
	}

	slog.InfoContext(ctx, "Compliance summary written", "sheet", c.summarySheet, "households", len(rows))
	return nil
}

// ensureSheet creates the sheet when missing and writes header into an
// empty first row.
func (c *Client) ensureSheet(ctx context.Context, sheet string, header []any) error {
	if ok, _ := c.ready.Get(sheet); ok {
		return nil
	}

	var titles []string
	err := c.call(func() error {
		ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
		if err != nil {
			return err
		}
		for _, s := range ss.Sheets {
			if s.Properties != nil {
				titles = append(titles, s.Properties.Title)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("list sheets: %w", err)
	}

	exists := false
	for _, t := range titles {
		if t == sheet {
			exists = true
			break
		}
	}
	if !exists {
		req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: sheet}},
		}}}
		err := c.call(func() error {
			_, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
			return err
		})
		if err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
		slog.InfoContext(ctx, "Created sheet", "sheet", sheet)
	}

	if len(header) > 0 {
		var first []any
		err := c.call(func() error {
			resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, sheet+"!A1:H1").Context(ctx).Do()
			if err != nil {
				return err
			}
			if len(resp.Values) > 0 {
				first = resp.Values[0]
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("read header of %s: %w", sheet, err)
		}
		switch {
		case len(first) == 0:
			vr := &gsheet.ValueRange{Values: [][]any{header}}
			err := c.call(func() error {
				_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, sheet+"!A1", vr).
					ValueInputOption("RAW").Context(ctx).Do()
				return err
			})
			if err != nil {
				return fmt.Errorf("write header of %s: %w", sheet, err)
			}
		case !headerMatches(first, header):
			slog.WarnContext(ctx, "Unexpected sheet header, appending anyway", "sheet", sheet, "header", toStrings(first))
		}
	}

	c.ready.Set(sheet, true)
	return nil
}
