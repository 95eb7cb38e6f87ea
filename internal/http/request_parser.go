package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"conti/internal/ledger"
)

// maxBodyBytes bounds every request body the API reads.
const maxBodyBytes = 1 << 20

// ParseSearchParams reads search options from a query string. Absent keys
// stay nil; values that do not parse are dropped so the filter falls back
// to its default for them.
func ParseSearchParams(query url.Values) ledger.SearchParams {
	return ledger.SearchParams{
		Query:     optString(query, "q"),
		AccountID: optInt64(query, "account_id"),
		DateFrom:  optString(query, "date_from"),
		DateTo:    optString(query, "date_to"),
		Type:      optString(query, "type"),
		SortBy:    optString(query, "sort_by"),
		SortDir:   optString(query, "sort_dir"),
		Limit:     optInt(query, "limit"),
		Offset:    optInt(query, "offset"),
	}
}

// ParseColumns accepts both columns=a,b and repeated columns keys.
func ParseColumns(query url.Values) []string {
	var cols []string
	for _, v := range query["columns"] {
		for _, c := range strings.Split(v, ",") {
			if c = strings.TrimSpace(c); c != "" {
				cols = append(cols, c)
			}
		}
	}
	return cols
}

func optString(query url.Values, key string) *string {
	if !query.Has(key) {
		return nil
	}
	v := sanitizeInput(query.Get(key))
	return &v
}

func optInt(query url.Values, key string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(query.Get(key)))
	if err != nil {
		return nil
	}
	return &n
}

func optInt64(query url.Values, key string) *int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(query.Get(key)), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// decodeJSON decodes a JSON body into v, rejecting unknown fields and
// trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	if dec.More() {
		return errors.New("decode request body: trailing data")
	}
	return nil
}
