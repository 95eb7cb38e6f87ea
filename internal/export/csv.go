package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
)

// WriteCSV writes the header, the rows, a blank line and the summary block.
func WriteCSV(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(doc.Header()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(doc.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	if len(doc.Meta) > 0 {
		if err := cw.Write(nil); err != nil {
			return fmt.Errorf("write separator: %w", err)
		}
		for _, m := range doc.Meta {
			if err := cw.Write([]string{m.Label, m.Value}); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// DirWriter writes CSV files into a directory.
type DirWriter struct {
	Dir string
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (d DirWriter) Write(_ context.Context, name string, doc Document) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(d.Dir, unsafeName.ReplaceAllString(name, "_")+".csv")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := WriteCSV(f, doc); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}
