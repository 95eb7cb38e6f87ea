package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"conti/internal/core"
	"conti/internal/ledger"
)

func TestMemoryStoreAccountsAndTransactions(t *testing.T) {
	ctx := context.Background()
	s := New()

	accID, err := s.CreateAccount(ctx, core.Account{Name: " Cash ", Kind: core.KindStandard})
	if err != nil || accID != 1 {
		t.Fatalf("unexpected create: id=%d err=%v", accID, err)
	}
	if _, err := s.AddTransaction(ctx, core.Transaction{AccountID: 99, Date: core.MustDate("2024-01-01")}); !errors.Is(err, core.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	missing := int64(42)
	if _, err := s.AddTransaction(ctx, core.Transaction{AccountID: accID, Date: core.MustDate("2024-01-01"), CategoryID: &missing}); !errors.Is(err, core.ErrCategoryMissing) {
		t.Fatalf("expected ErrCategoryMissing, got %v", err)
	}

	catID, _ := s.GetOrCreateCategory(ctx, "Food")
	txID, err := s.AddTransaction(ctx, core.Transaction{
		AccountID:  accID,
		Date:       core.MustDate("2024-01-02"),
		CategoryID: &catID,
		Amount:     core.Money{Cents: -1250},
	})
	if err != nil || txID != 1 {
		t.Fatalf("unexpected add: id=%d err=%v", txID, err)
	}

	err = s.Snapshot(ctx, func(r ledger.Reader) error {
		rows, err := r.FindTransactions(ctx, nil, ledger.Chronological, ledger.NoLimit, 0)
		if err != nil {
			return err
		}
		if len(rows) != 1 || rows[0].AccountName != "Cash" || rows[0].CategoryName == nil || *rows[0].CategoryName != "Food" {
			t.Fatalf("unexpected rows: %+v", rows)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	if err := s.DeleteAccount(ctx, accID); !errors.Is(err, core.ErrAccountInUse) {
		t.Fatalf("expected ErrAccountInUse, got %v", err)
	}
}

func TestGetOrCreateCategoryIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, _ := s.GetOrCreateCategory(ctx, "Transfer")
	b, _ := s.GetOrCreateCategory(ctx, "  TRANSFER ")
	if a != b {
		t.Fatalf("expected same id, got %d and %d", a, b)
	}
	if _, err := s.GetOrCreateCategory(ctx, "  "); !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
}

func TestNewFromFilesSeedsCategories(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte("# header\nFood\nfood\n\ninit\n"), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s := NewFromFiles(dir)
	if len(s.cats) != 2 {
		t.Fatalf("expected 2 seeded categories, got %+v", s.cats)
	}
}

func TestClosedStoreRefusesReads(t *testing.T) {
	s := New()
	_ = s.Close()
	err := s.Snapshot(context.Background(), func(ledger.Reader) error { return nil })
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
