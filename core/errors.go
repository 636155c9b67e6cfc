package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

// StoreErrorCode classifies operational failures reported by a storage backend.
type StoreErrorCode string

const (
	// CodeMissingIndex is returned when an ordered or filtered query needs an index the backend does not have.
	CodeMissingIndex StoreErrorCode = "missing-index"
	// CodeUnavailable is returned when the backend cannot be reached.
	CodeUnavailable StoreErrorCode = "unavailable"
)

// StoreError is the structured error storage backends return for conditions callers can act on.
type StoreError struct {
	Code StoreErrorCode
	Op   string
	Err  error
}

func NewStoreError(code StoreErrorCode, op string, err error) error {
	return &StoreError{Code: code, Op: op, Err: err}
}

func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsMissingIndex reports whether err (or any error it wraps) is a CodeMissingIndex StoreError.
func IsMissingIndex(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Code == CodeMissingIndex
}
