package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseAccountID reads account_id from the query. Missing or malformed ids
// come back as 0, which the ledger rejects as a missing account.
func parseAccountID(r *http.Request) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("account_id")), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// attachment sets the headers of a downloadable file response.
func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}

func timestamp() string {
	return time.Now().Format(time.RFC3339)
}
