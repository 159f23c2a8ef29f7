package repository

import (
	"errors"
	"fmt"
)

// Store error codes the application reacts to. Other codes are passed
// through untouched.
const (
	CodeUniqueViolation       = "23505"
	CodeForeignKeyViolation   = "23503"
	CodeCheckViolation        = "23514"
	CodeInsufficientPrivilege = "42501"
	// CodeNoRows means a single-row statement matched no row, either
	// because the row does not exist or because a policy hides it.
	CodeNoRows = "PGRST116"
	// CodeInvalidTextRepresentation is raised for malformed input such as
	// an id that is not a UUID.
	CodeInvalidTextRepresentation = "22P02"
)

// StoreError is a failure reported by the data store
type StoreError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s (code %s)", e.Op, e.Message, e.Code)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NoRows returns the error for a single-row statement that matched nothing
func NoRows(op string) *StoreError {
	return &StoreError{
		Op:      op,
		Code:    CodeNoRows,
		Message: "JSON object requested, multiple (or no) rows returned",
	}
}

// CodeOf returns the store error code carried by err, or "".
func CodeOf(err error) string {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// MessageOf returns the store message carried by err, or err.Error().
func MessageOf(err error) string {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
