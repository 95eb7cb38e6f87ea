package sheets

import (
	"context"
	"strings"
	"testing"
	"time"

	"conti/internal/export"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || !strings.Contains(err.Error(), "GOOGLE_SPREADSHEET_ID") {
		t.Fatalf("expected missing spreadsheet error, got %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "sheet"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "sheet", ServiceAccountFile: "/nonexistent/sa.json"})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestSheetValuesLayout(t *testing.T) {
	doc := export.Document{
		Columns: export.ParseColumns([]string{"date", "amount"}),
		Rows:    [][]string{{"2024-01-01", "-12.50"}},
		Meta:    []export.Meta{{Label: "Saldo", Value: "-12,50 €"}},
	}
	got := sheetValues(doc)
	if len(got) != 4 {
		t.Fatalf("expected header, row, blank and summary, got %v", got)
	}
	if got[0][0] != "Date" || got[1][1] != "-12.50" || len(got[2]) != 0 || got[3][0] != "Saldo" {
		t.Fatalf("unexpected layout: %v", got)
	}
}

func TestTabTitle(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	tests := []struct{ in, want string }{
		{"transactions", "transactions 2024-05-06 070809"},
		{"  ", "export 2024-05-06 070809"},
		{"a/b:c", "a_b_c 2024-05-06 070809"},
		{strings.Repeat("x", 120), strings.Repeat("x", 82) + " 2024-05-06 070809"},
	}
	for _, tt := range tests {
		if got := tabTitle(tt.in, now); got != tt.want {
			t.Errorf("tabTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
