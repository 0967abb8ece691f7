package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNegativeValue indicates that a monetary amount or a computed balance would be negative.
	ErrNegativeValue = errors.New("negative value not allowed")
	// ErrUserNotFound indicates that the referenced customer does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountNotFound indicates that the customer does not own an account with the given id.
	ErrAccountNotFound = errors.New("account not found")
	// ErrIntegrity indicates that a persistence round-trip did not return the expected entity.
	ErrIntegrity = errors.New("operation integrity failure")

	// ErrRecordNotFound is returned by repositories when no record has the given id.
	ErrRecordNotFound = errors.New("record not found")
	// ErrVersionConflict is returned by repositories when a save carries a stale version.
	ErrVersionConflict = errors.New("version conflict")

	// ErrInternal replaces storage and driver failures at the repository
	// boundary. Clients see only its text, never the driver error.
	ErrInternal = errors.New("internal")
)

// NegativeValueError reports the offending amount or the context in which a
// negative value was produced, e.g. "transfer result".
type NegativeValueError struct {
	Value string
}

func (e *NegativeValueError) Error() string {
	return fmt.Sprintf("Negative value %s not allowed here", e.Value)
}

func (e *NegativeValueError) Unwrap() error { return ErrNegativeValue }

// UserNotFoundError reports an unknown customer id.
type UserNotFoundError struct {
	UserID string
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("User %s not found", e.UserID)
}

func (e *UserNotFoundError) Unwrap() error { return ErrUserNotFound }

// AccountNotFoundError reports that UserID does not own AccountID.
//
// It is returned even when the account exists under another customer.
type AccountNotFoundError struct {
	AccountID string
	UserID    string
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("Account %s not found for user %s", e.AccountID, e.UserID)
}

func (e *AccountNotFoundError) Unwrap() error { return ErrAccountNotFound }

// IntegrityError signals storage misbehaviour detected after a save.
type IntegrityError struct {
	Op     string
	Reason string
}

func (e *IntegrityError) Error() string {
	return e.Op + ": " + e.Reason
}

func (e *IntegrityError) Unwrap() error { return ErrIntegrity }
