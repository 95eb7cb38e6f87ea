package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"conti/internal/ledger"
)

type ExportKind string

const (
	ExportSearch         ExportKind = "search"
	ExportReconciliation ExportKind = "reconciliation"
)

type ExportFormat string

const (
	FormatCSV    ExportFormat = "csv"
	FormatSheets ExportFormat = "sheets"
)

// ExportRequestMessage asks the worker to render a document. It carries the
// request, not the data: the worker computes the result itself.
type ExportRequestMessage struct {
	JobID     string              `json:"job_id"`
	Kind      ExportKind          `json:"kind"`
	Filter    ledger.SearchParams `json:"filter"`
	AccountID int64               `json:"account_id,omitempty"`
	Columns   []string            `json:"columns,omitempty"`
	Format    ExportFormat        `json:"format"`
	Timestamp time.Time           `json:"timestamp"`
}

var ErrInvalidExport = errors.New("invalid export request")

// NewExportRequestMessage creates a request with a fresh job id.
func NewExportRequestMessage(kind ExportKind, format ExportFormat) *ExportRequestMessage {
	if format == "" {
		format = FormatCSV
	}
	return &ExportRequestMessage{
		JobID:     uuid.NewString(),
		Kind:      kind,
		Format:    format,
		Timestamp: time.Now(),
	}
}

func (m *ExportRequestMessage) Validate() error {
	if _, err := uuid.Parse(m.JobID); err != nil {
		return fmt.Errorf("%w: job id: %v", ErrInvalidExport, err)
	}
	switch m.Kind {
	case ExportSearch:
	case ExportReconciliation:
		if m.AccountID <= 0 {
			return fmt.Errorf("%w: reconciliation needs an account id", ErrInvalidExport)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidExport, m.Kind)
	}
	switch m.Format {
	case FormatCSV, FormatSheets:
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidExport, m.Format)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *ExportRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExportRequestMessageFromJSON decodes and validates a message.
func ExportRequestMessageFromJSON(data []byte) (*ExportRequestMessage, error) {
	var msg ExportRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
