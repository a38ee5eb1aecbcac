package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ValidationError reports malformed admin input. Nothing was mutated.
type ValidationError struct {
	Field  string
	Input  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Input, e.Reason)
}

// NotFoundError reports a reference to a user, channel or proposal that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError reports a duplicate insert or a state that forbids the operation.
type ConflictError struct {
	Entity string
	Value  string
	Reason string
}

func (e *ConflictError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s %s: %s", e.Entity, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s %s already exists", e.Entity, e.Value)
}

// StoreError wraps a persistence failure. The operation was rolled back and may be retried.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Retryable is always true for store failures
func (e *StoreError) Retryable() bool { return true }

// TransportError reports a failed message delivery. Callers log and continue.
type TransportError struct {
	UserID int64
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("delivery to %d failed: %v", e.UserID, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	// Typed domain errors raised inside a transaction pass through untouched
	var (
		nf *NotFoundError
		ve *ValidationError
		ce *ConflictError
		se *StoreError
	)
	if errors.As(err, &nf) || errors.As(err, &ve) || errors.As(err, &ce) || errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func userNotFound(userID int64) error {
	return &NotFoundError{Entity: "user", ID: fmt.Sprintf("%d", userID)}
}
