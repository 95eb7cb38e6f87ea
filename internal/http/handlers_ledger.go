package http

import (
	"net/http"
	"sync/atomic"

	"conti/internal/log"
)

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.ledger.Accounts(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"accounts": accounts}).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.ledger.Categories(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"categories": cats}).Write(w)
}

// handleCreateCategory returns the id of the named category, creating it
// when missing. Accepts {"name": "..."} or a form body.
func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	body := NewRequestBodyParser(w, r)
	if err := body.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	name := body.Get("name")

	id, err := s.ledger.EnsureCategory(r.Context(), name)
	if err != nil {
		s.fail(w, err)
		return
	}
	NewJSONResponse().Body(map[string]any{"id": id, "name": name}).Write(w)
}

// handleTransactions runs a search. Without an explicit limit the
// configured page size applies.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	params := ParseSearchParams(r.URL.Query())
	if params.Limit == nil && s.pageSize > 0 {
		limit := s.pageSize
		params.Limit = &limit
	}

	res, err := s.ledger.Search(r.Context(), params)
	if err != nil {
		s.fail(w, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.searches, 1)
	NewJSONResponse().Body(res).Write(w)
}

func (s *Server) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	rep, err := s.ledger.Reconcile(r.Context(), parseAccountID(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.reconciliations, 1)
	NewJSONResponse().Body(rep).Write(w)
}

type sessionBody struct {
	Open       bool   `json:"open"`
	Ledger     string `json:"ledger,omitempty"`
	Generation uint64 `json:"generation"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	gen, label, open := s.ledger.Current()
	NewJSONResponse().Body(sessionBody{Open: open, Ledger: label, Generation: gen}).Write(w)
}

// handleOpenLedger swaps the session to another ledger file. Requests
// already running finish against the previous ledger.
func (s *Server) handleOpenLedger(w http.ResponseWriter, r *http.Request) {
	body := NewRequestBodyParser(w, r)
	if err := body.Parse(); err != nil {
		BadRequestError("invalid request body").Write(w)
		return
	}
	path := body.Get("path")
	if path == "" {
		BadRequestError("path is required").Write(w)
		return
	}

	gen, err := s.ledger.OpenLedger(r.Context(), path)
	if err != nil {
		s.fail(w, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Ledger session swapped",
		log.FieldLedger, path,
		log.FieldGeneration, gen)

	_, label, open := s.ledger.Current()
	NewJSONResponse().Body(sessionBody{Open: open, Ledger: label, Generation: gen}).Write(w)
}
