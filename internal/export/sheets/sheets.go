// Package sheets writes export documents into a Google Sheets spreadsheet,
// one new tab per document.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"conti/internal/export"
)

type Config struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	now           func() time.Time
}

var _ export.Writer = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: cfg.SpreadsheetID, now: time.Now}, nil
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Write adds a tab named after the document and fills it with the header,
// the rows and the summary block.
func (c *Client) Write(ctx context.Context, name string, doc export.Document) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	title := tabTitle(name, c.now())

	add := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, add).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("add sheet %s: %w", title, err)
	}

	values := sheetValues(doc)
	rng := fmt.Sprintf("'%s'!A1", title)
	vr := &gsheet.ValueRange{Values: values}
	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Export written to Google Sheets",
		"sheet", title,
		"rows", len(doc.Rows),
		"updated_cells", resp.UpdatedCells)
	return resp.UpdatedRange, nil
}

// sheetValues lays out a document as a grid of cells.
func sheetValues(doc export.Document) [][]any {
	out := make([][]any, 0, len(doc.Rows)+len(doc.Meta)+2)
	out = append(out, toAny(doc.Header()))
	for _, r := range doc.Rows {
		out = append(out, toAny(r))
	}
	if len(doc.Meta) > 0 {
		out = append(out, []any{})
		for _, m := range doc.Meta {
			out = append(out, []any{m.Label, m.Value})
		}
	}
	return out
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// tabTitle makes a sheet title unique per export. Sheets titles cannot
// contain some punctuation and are capped at 100 characters.
func tabTitle(name string, now time.Time) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '\'', '[', ']', '*', '?', '/', '\\', ':':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = "export"
	}
	suffix := " " + now.UTC().Format("2006-01-02 150405")
	if len(name)+len(suffix) > 100 {
		name = name[:100-len(suffix)]
	}
	return name + suffix
}
