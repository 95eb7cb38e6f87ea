// This file implements the Builder Pattern for JSON responses and the
// mapping from ledger errors to status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"conti/internal/amqp"
	"conti/internal/backend"
	"conti/internal/core"
	"conti/internal/services"
	"conti/internal/session"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response. A body that cannot be encoded turns the
// response into a 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	data, err := json.Marshal(b.body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"encoding response failed"}`))
		return
	}
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(data, '\n'))
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func ServiceUnavailableError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, message)
}

// StatusFor maps an operation error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNoSession), errors.Is(err, amqp.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrSwapUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, core.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNotReimbursable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrAccountInUse):
		return http.StatusConflict
	case core.IsValidationError(err),
		errors.Is(err, backend.ErrInvalidLedgerPath),
		errors.Is(err, amqp.ErrInvalidExport):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ErrorFor builds the response for an operation error. Server-side
// failures are reported without their details.
func ErrorFor(err error) *JSONResponseBuilder {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable && status != http.StatusNotImplemented {
		return ErrorResponse(status, http.StatusText(status))
	}
	return ErrorResponse(status, err.Error())
}
