package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"2025-03-04", "2025-03-04", true},
		{"04.03.2025", "2025-03-04", true},
		{"4.3.2025", "2025-03-04", true},
		{"04/03/2025", "2025-03-04", true},
		{" 2025-12-31 ", "2025-12-31", true},
		{"2025-13-01", "", false},
		{"yesterday", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil || got.ISO() != tc.want {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.want, got.ISO(), err)
			}
		} else if !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
		}
	}
}

func TestDateCompareIsCalendarOrder(t *testing.T) {
	// "10.01.2025" sorts before "09.02.2025" lexically but not by calendar.
	a := MustDate("10.01.2025")
	b := MustDate("09.02.2025")
	if a.Compare(b) >= 0 {
		t.Fatalf("expected %s before %s", a.ISO(), b.ISO())
	}
}

func TestClassifyCategory(t *testing.T) {
	cases := map[string]CategoryClass{
		"transfer":   ClassTransfer,
		"Transfer":   ClassTransfer,
		" TRANSFER ": ClassTransfer,
		"init":       ClassInit,
		"INIT":       ClassInit,
		"food":       ClassRegular,
		"":           ClassRegular,
		"transfers":  ClassRegular,
	}
	for name, want := range cases {
		if got := ClassifyCategory(name); got != want {
			t.Errorf("ClassifyCategory(%q) = %d, want %d", name, got, want)
		}
	}

	row := TransactionRow{}
	if row.CategoryClass() != ClassRegular {
		t.Fatalf("uncategorized row should be regular")
	}
}

func TestParseAccountKind(t *testing.T) {
	if k, err := ParseAccountKind(""); err != nil || k != KindStandard {
		t.Fatalf("empty kind: %v %v", k, err)
	}
	if k, err := ParseAccountKind("Reimbursable"); err != nil || k != KindReimbursable {
		t.Fatalf("reimbursable kind: %v %v", k, err)
	}
	if _, err := ParseAccountKind("savings"); !errors.Is(err, ErrInvalidKind) {
		t.Fatalf("expected ErrInvalidKind, got %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{AccountID: 1, Date: NewDate(2025, 1, 1), Amount: Money{Cents: 0}}
	if err := good.Validate(); err != nil {
		t.Fatalf("zero amount must be legal: %v", err)
	}
	long := string(make([]byte, 501))
	bads := []Transaction{
		{AccountID: 0, Date: NewDate(2025, 1, 1)},
		{AccountID: 1},
		{AccountID: 1, Date: NewDate(2025, 1, 1), Note: &long},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestWrapStore(t *testing.T) {
	if WrapStore("count", nil) != nil {
		t.Fatal("nil must stay nil")
	}
	if err := WrapStore("find", ErrAccountNotFound); !errors.Is(err, ErrAccountNotFound) || IsStoreError(err) {
		t.Fatalf("domain error must pass through, got %v", err)
	}
	io := errors.New("disk I/O error")
	err := WrapStore("count", io)
	if !IsStoreError(err) || !errors.Is(err, io) {
		t.Fatalf("expected store error wrapping io, got %v", err)
	}
	if again := WrapStore("page", err); again != err {
		t.Fatalf("store error must not be double wrapped")
	}
}
