package core

import (
	"errors"
	"fmt"
)

// Domain errors are reported verbatim to the caller and never retried.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrNotReimbursable = errors.New("account is not reimbursable")
)

// ErrAccountRequired is the validation error raised by reconciliation entry
// points when no account scope is supplied.
var ErrAccountRequired = errors.New("account id is required")

// StoreError wraps an I/O or connection failure from the record store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// WrapStore returns err wrapped as a StoreError, or nil. Domain and
// validation errors pass through untouched.
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsDomainError(err) || IsValidationError(err) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func IsDomainError(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrNotReimbursable) || errors.Is(err, ErrAccountInUse)
}

func IsValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrAccountRequired),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrInvalidDay),
		errors.Is(err, ErrInvalidMonth),
		errors.Is(err, ErrEmptyName),
		errors.Is(err, ErrEmptyCategory),
		errors.Is(err, ErrInvalidKind),
		errors.Is(err, ErrInvalidAccount),
		errors.Is(err, ErrNoteTooLong),
		errors.Is(err, ErrCategoryMissing):
		return true
	}
	return false
}

func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
