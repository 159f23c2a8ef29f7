package service

import (
	"errors"
	"fmt"

	"github.com/Kerhoff/chcemmat/internal/repository"
)

// Kind classifies a service failure
type Kind string

const (
	// KindStore is any data store failure not covered by a narrower kind
	KindStore Kind = "store"
	// KindAlreadyReserved means the item already carries a reservation
	KindAlreadyReserved Kind = "already_reserved"
	// KindForbidden means a row-level policy rejected the write
	KindForbidden Kind = "forbidden"
	// KindReservationIncomplete means the reservation was rolled back after
	// the item status could not be updated
	KindReservationIncomplete Kind = "reservation_incomplete"
	// KindInconsistentState means the rollback itself failed and the item
	// needs reconciliation
	KindInconsistentState Kind = "inconsistent_state"
	KindInvalid           Kind = "invalid"
	KindNotFound          Kind = "not_found"
	KindUnauthorized      Kind = "unauthorized"
)

// Error is returned by every service operation that fails
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a service error, or "" for anything else
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// storeError forwards a repository failure keeping its code and message
func storeError(op string, err error) error {
	return &Error{
		Kind:    KindStore,
		Code:    repository.CodeOf(err),
		Message: repository.MessageOf(err),
		Err:     fmt.Errorf("failed to %s: %w", op, err),
	}
}

func invalid(format string, args ...any) error {
	return &Error{Kind: KindInvalid, Message: fmt.Sprintf(format, args...)}
}

func notFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func unauthorized(message string) error {
	return &Error{Kind: KindUnauthorized, Message: message}
}
