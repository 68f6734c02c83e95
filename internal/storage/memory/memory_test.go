package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vfms/internal/core"
	"vfms/internal/storage"
)

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := New(storage.DefaultSnapshot())

	funds, err := s.Funds().GetAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(funds) != 4 {
		t.Fatalf("expected 4 seed funds, got %d", len(funds))
	}

	updated := funds[0]
	updated.Amount = core.Rupees(750)
	if err := s.Funds().Put(ctx, updated); err != nil {
		t.Fatal(err)
	}
	funds, _ = s.Funds().GetAll(ctx)
	if funds[0].Amount != core.Rupees(750) || len(funds) != 4 {
		t.Fatalf("put should replace in place, got %+v", funds[0])
	}

	if err := s.Households().Delete(ctx, "FAM001"); err != nil {
		t.Fatal(err)
	}
	hs, _ := s.Households().GetAll(ctx)
	if len(hs) != 1 || hs[0].ID != "FAM002" {
		t.Fatalf("unexpected households after delete: %+v", hs)
	}

	if err := s.Funds().Put(ctx, core.Fund{ID: "BAD"}); !errors.Is(err, core.ErrEmptyTitle) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPaymentsAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := New(storage.Snapshot{})

	stored, err := s.Payments().Append(ctx,
		core.Payment{FamilyID: "FAM001", FundID: "FUND001", Amount: core.Rupees(100), Method: core.MethodCash},
		core.Payment{FamilyID: "FAM001", FundID: "FUND003", Amount: core.Rupees(50), Method: core.MethodCash},
	)
	if err != nil {
		t.Fatal(err)
	}
	if stored[0].ID == "" || stored[0].CreatedAt.IsZero() {
		t.Fatalf("expected generated id and timestamp: %+v", stored[0])
	}

	if err := s.Payments().Delete(ctx, stored[0].ID); !errors.Is(err, core.ErrPaymentImmutable) {
		t.Fatalf("expected ErrPaymentImmutable, got %v", err)
	}
	if err := s.Payments().Put(ctx, stored[0]); !errors.Is(err, core.ErrPaymentImmutable) {
		t.Fatalf("re-putting a payment should fail, got %v", err)
	}

	_, err = s.Payments().Append(ctx,
		core.Payment{FamilyID: "FAM002", FundID: "FUND001", Amount: core.Rupees(10), Method: core.MethodCash},
		core.Payment{FamilyID: "FAM002", FundID: "FUND001", Amount: core.Money{}, Method: core.MethodCash},
	)
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	all, _ := s.Payments().GetAll(ctx)
	if len(all) != 2 {
		t.Fatalf("failed batch must write nothing, have %d payments", len(all))
	}
}

func TestOpenPersistsSnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vfms.json")

	s, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot file should be created: %v", err)
	}
	if err := s.Cashiers().Put(ctx, core.Cashier{ID: "CASH003", Name: "Ganesh"}); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	cs, _ := reopened.Cashiers().GetAll(ctx)
	if len(cs) != 3 || cs[2].ID != "CASH003" {
		t.Fatalf("expected persisted cashier, got %+v", cs)
	}
}

func TestOpenCorruptCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vfms.json")
	if err := os.WriteFile(path, []byte(`{"families": 42, "funds": []}`), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	hs, _ := s.Households().GetAll(context.Background())
	if len(hs) != 2 {
		t.Fatalf("corrupt families should fall back to defaults, got %d", len(hs))
	}
	fs, _ := s.Funds().GetAll(context.Background())
	if len(fs) != 0 {
		t.Fatalf("an empty funds list is valid data, got %d", len(fs))
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(storage.DefaultSnapshot())
	if _, err := s.Funds().GetAll(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOpenSamePathTwice(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "seed.json")

	server, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	worker, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	paid, err := server.Payments().Append(ctx,
		core.Payment{FamilyID: "FAM001", FundID: "FUND001", Amount: core.Rupees(100), Method: core.MethodCash})
	if err != nil {
		t.Fatal(err)
	}
	if err := worker.Funds().Put(ctx, core.Fund{ID: "FUND100", Title: "Well Repair", Amount: core.Rupees(50)}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		store *Store
	}{
		{"first handle", server},
		{"second handle", worker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps, err := tt.store.Payments().GetAll(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(ps) != 1 || ps[0].ID != paid[0].ID {
				t.Fatalf("payments = %+v", ps)
			}
			fs, err := tt.store.Funds().GetAll(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(fs) != 5 || fs[4].ID != "FUND100" {
				t.Fatalf("funds = %+v", fs)
			}
		})
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	ps, _ := reopened.Payments().GetAll(ctx)
	fs, _ := reopened.Funds().GetAll(ctx)
	if len(ps) != 1 || len(fs) != 5 {
		t.Fatalf("file lost a write: %d payments, %d funds", len(ps), len(fs))
	}
	if _, err := os.Stat(path + ".lock"); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("lock file left behind: %v", err)
	}
}

func TestConcurrentAppendsAcrossHandles(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "seed.json")

	handles := make([]*Store, 3)
	for i := range handles {
		s, err := Open(path, nil)
		if err != nil {
			t.Fatal(err)
		}
		handles[i] = s
	}

	const perHandle = 10
	var wg sync.WaitGroup
	errs := make(chan error, len(handles)*perHandle)
	for _, s := range handles {
		wg.Add(1)
		go func(s *Store) {
			defer wg.Done()
			for range perHandle {
				_, err := s.Payments().Append(ctx,
					core.Payment{FamilyID: "FAM002", FundID: "FUND003", Amount: core.Rupees(5), Method: core.MethodUPI})
				if err != nil {
					errs <- err
				}
			}
		}(s)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	ps, _ := reopened.Payments().GetAll(ctx)
	if want := len(handles) * perHandle; len(ps) != want {
		t.Fatalf("want %d payments on disk, got %d", want, len(ps))
	}
}

func TestLockFile(t *testing.T) {
	tests := []struct {
		name    string
		age     time.Duration
		cancel  bool
		wantErr error
	}{
		{"stale lock is taken over", 2 * lockStale, false, nil},
		{"held lock waits for the caller", 0, true, context.Canceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "seed.json")
			if err := os.WriteFile(path+".lock", []byte("1\n"), 0o600); err != nil {
				t.Fatal(err)
			}
			stamp := time.Now().Add(-tt.age)
			if err := os.Chtimes(path+".lock", stamp, stamp); err != nil {
				t.Fatal(err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			if tt.cancel {
				cancel()
			} else {
				defer cancel()
			}
			release, err := lockFile(ctx, path)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("lockFile() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil {
				release()
			}
		})
	}
}
