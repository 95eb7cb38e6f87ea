package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conti/internal/amqp"
	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"
	"conti/internal/middleware/ratelimit"
	"conti/internal/services"
	"conti/internal/session"
	"conti/internal/storage/memory"
)

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.ExportRequestMessage
	err  error
}

func (f *fakePublisher) PublishExportRequest(_ context.Context, msg *amqp.ExportRequestMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

type fixture struct {
	server *Server
	std    int64
	reimb  int64
}

func quietLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil), Component: "test"})
}

// newFixture serves a memory ledger with a standard account holding one
// income and a reimbursable account holding two expenses.
func newFixture(t *testing.T, pub ExportPublisher, cfg Config) fixture {
	t.Helper()
	ctx := context.Background()
	st := memory.New()

	std, err := st.CreateAccount(ctx, core.Account{Name: "Main", Kind: core.KindStandard})
	require.NoError(t, err)
	reimb, err := st.CreateAccount(ctx, core.Account{Name: "Work card", Kind: core.KindReimbursable})
	require.NoError(t, err)
	lunch := "team lunch"
	for i, tx := range []core.Transaction{
		{AccountID: std, Date: core.NewDate(2024, 3, 1), Amount: core.Money{Cents: 250000}},
		{AccountID: reimb, Date: core.NewDate(2024, 3, 2), Amount: core.Money{Cents: -1000}, Note: &lunch},
		{AccountID: reimb, Date: core.NewDate(2024, 3, 3), Amount: core.Money{Cents: -500}},
	} {
		_, err := st.AddTransaction(ctx, tx)
		require.NoError(t, err, "transaction %d", i)
	}

	svc := services.NewLedgerService(session.NewManager[ledger.Store](st, "test"), nil, quietLogger())
	if cfg.DefaultPageSize == 0 {
		cfg.DefaultPageSize = 5
	}
	s := NewServer(cfg, svc, pub, quietLogger())
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return fixture{server: s, std: std, reimb: reimb}
}

func (f fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.RemoteAddr = "203.0.113.9:4000"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.server.Handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

func TestHealthAndMiddleware(t *testing.T) {
	f := newFixture(t, nil, Config{})

	w := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "ok", decode[map[string]any](t, w)["status"])

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	f.server.Handler.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestReady(t *testing.T) {
	f := newFixture(t, nil, Config{})

	w := f.do(t, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "not_configured", checks["exports"])
}

func TestReady_NoLedger(t *testing.T) {
	svc := services.NewLedgerService(session.NewManager[ledger.Store](memory.New(), "closed"), nil, quietLogger())
	require.NoError(t, svc.Close())
	s := NewServer(Config{}, svc, nil, quietLogger())
	defer s.Shutdown(context.Background())

	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	s.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/accounts", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAccounts(t *testing.T) {
	f := newFixture(t, nil, Config{})

	w := f.do(t, http.MethodGet, "/api/accounts", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Accounts []core.Account `json:"accounts"`
	}](t, w)
	require.Len(t, body.Accounts, 2)
	assert.Equal(t, "Main", body.Accounts[0].Name)
}

func TestTransactions(t *testing.T) {
	f := newFixture(t, nil, Config{})

	t.Run("configured page size", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/transactions", "")
		require.Equal(t, http.StatusOK, w.Code)
		res := decode[ledger.SearchResult](t, w)
		assert.Equal(t, 3, res.Total)
		assert.Equal(t, 5, res.Limit)
		assert.Equal(t, int64(250000), res.Sums.Income.Cents)
		assert.Equal(t, int64(-1500), res.Sums.Expense.Cents)
	})

	t.Run("last page", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/transactions?limit=2&offset=-1", "")
		require.Equal(t, http.StatusOK, w.Code)
		res := decode[ledger.SearchResult](t, w)
		assert.Equal(t, 2, res.Offset)
		require.Len(t, res.Items, 1)
	})

	t.Run("filters", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/transactions?q=LUNCH&type=expense&sort_by=bogus", "")
		require.Equal(t, http.StatusOK, w.Code)
		res := decode[ledger.SearchResult](t, w)
		require.Equal(t, 1, res.Total)
		assert.Equal(t, int64(-1000), res.Items[0].Amount.Cents)
	})

	t.Run("wrong method", func(t *testing.T) {
		w := f.do(t, http.MethodDelete, "/api/transactions", "")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("unknown endpoint", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/budgets", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "no such endpoint")
	})
}

func TestReconciliation(t *testing.T) {
	f := newFixture(t, nil, Config{})

	w := f.do(t, http.MethodGet, "/api/reconciliation?account_id="+strconv.FormatInt(f.reimb, 10), "")
	require.Equal(t, http.StatusOK, w.Code)
	rep := decode[ledger.Report](t, w)
	assert.Equal(t, "Work card", rep.AccountName)
	assert.Len(t, rep.Rows, 2)
	assert.Equal(t, int64(-1500), rep.TotalOutstanding.Cents)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"missing account", "", http.StatusBadRequest},
		{"malformed account", "?account_id=x", http.StatusBadRequest},
		{"unknown account", "?account_id=999", http.StatusNotFound},
		{"standard account", "?account_id=" + strconv.FormatInt(f.std, 10), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, "/api/reconciliation"+tt.query, "")
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, decode[errorBody](t, w).Error)
		})
	}
}

func TestCSVExports(t *testing.T) {
	f := newFixture(t, nil, Config{})

	w := f.do(t, http.MethodGet, "/api/exports/transactions.csv?columns=date,amount&limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="transactions.csv"`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "Date,Amount\n"), w.Body.String())
	// Every matching row is exported regardless of limit.
	assert.Contains(t, w.Body.String(), "Rows,3")

	id := strconv.FormatInt(f.reimb, 10)
	w = f.do(t, http.MethodGet, "/api/exports/reconciliation.csv?account_id="+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="reconciliation-`+id+`.csv"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "Work card")

	w = f.do(t, http.MethodGet, "/api/exports/reconciliation.csv?account_id="+strconv.FormatInt(f.std, 10), "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestEnqueueExport(t *testing.T) {
	t.Run("queue not configured", func(t *testing.T) {
		f := newFixture(t, nil, Config{})
		w := f.do(t, http.MethodPost, "/api/exports", `{"kind":"search"}`)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("accepted", func(t *testing.T) {
		pub := &fakePublisher{}
		f := newFixture(t, pub, Config{})
		w := f.do(t, http.MethodPost, "/api/exports",
			`{"kind":"reconciliation","format":"csv","account_id":`+strconv.FormatInt(f.reimb, 10)+`,"columns":["date","amount"]}`)
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

		body := decode[map[string]any](t, w)
		require.Len(t, pub.msgs, 1)
		assert.Equal(t, pub.msgs[0].JobID, body["job_id"])
		assert.Equal(t, amqp.ExportReconciliation, pub.msgs[0].Kind)
		assert.Equal(t, []string{"date", "amount"}, pub.msgs[0].Columns)
	})

	t.Run("defaults to search", func(t *testing.T) {
		pub := &fakePublisher{}
		f := newFixture(t, pub, Config{})
		w := f.do(t, http.MethodPost, "/api/exports", `{"filter":{"q":"lunch"}}`)
		require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
		require.Len(t, pub.msgs, 1)
		assert.Equal(t, amqp.ExportSearch, pub.msgs[0].Kind)
		assert.Equal(t, amqp.FormatCSV, pub.msgs[0].Format)
		require.NotNil(t, pub.msgs[0].Filter.Query)
		assert.Equal(t, "lunch", *pub.msgs[0].Filter.Query)
	})

	tests := []struct {
		name   string
		body   string
		pubErr error
		status int
	}{
		{"unknown kind", `{"kind":"pdf"}`, nil, http.StatusBadRequest},
		{"unknown format", `{"format":"xlsx"}`, nil, http.StatusBadRequest},
		{"reconciliation without account", `{"kind":"reconciliation"}`, nil, http.StatusBadRequest},
		{"unknown field", `{"kind":"search","bogus":true}`, nil, http.StatusBadRequest},
		{"broker down", `{"kind":"search"}`, amqp.ErrCircuitOpen, http.StatusServiceUnavailable},
		{"publish failed", `{"kind":"search"}`, errors.New("channel closed"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, &fakePublisher{err: tt.pubErr}, Config{})
			w := f.do(t, http.MethodPost, "/api/exports", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestCategories(t *testing.T) {
	f := newFixture(t, nil, Config{})

	w := f.do(t, http.MethodPost, "/api/categories", `{"name":"Food"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[map[string]any](t, w)["id"]

	// Names compare case-insensitively.
	w = f.do(t, http.MethodPost, "/api/categories", `{"name":"food"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, first, decode[map[string]any](t, w)["id"])

	w = f.do(t, http.MethodPost, "/api/categories", `{"name":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[struct {
		Categories []core.Category `json:"categories"`
	}](t, w)
	assert.Len(t, body.Categories, 1)
}

func TestSession(t *testing.T) {
	f := newFixture(t, nil, Config{})

	w := f.do(t, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[sessionBody](t, w)
	assert.True(t, body.Open)
	assert.Equal(t, "test", body.Ledger)

	w = f.do(t, http.MethodPost, "/api/session", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// The memory backend cannot swap ledgers.
	w = f.do(t, http.MethodPost, "/api/session", `{"path":"other.db"}`)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestRateLimitAppliesToPOSTOnly(t *testing.T) {
	f := newFixture(t, nil, Config{RateLimit: ratelimit.Config{
		RequestsPerMinute: 1,
		Methods:           []string{http.MethodPost},
	}})

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/categories", `{"name":"Food"}`).Code)
	w := f.do(t, http.MethodPost, "/api/categories", `{"name":"Rent"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	for range 3 {
		assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/accounts", "").Code)
	}
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, nil, Config{})
	f.do(t, http.MethodGet, "/api/transactions", "")
	f.do(t, http.MethodGet, "/api/reconciliation", "")

	w := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "http_requests_total 2\n")
	assert.Contains(t, body, "ledger_searches_total 1\n")
	assert.Contains(t, body, "ledger_failures_total 1\n")
	assert.Contains(t, body, "ledger_generation 1\n")
}
