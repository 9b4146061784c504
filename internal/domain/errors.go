package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy for the advisory core. Each failure class gets a typed
// error so callers can branch with errors.As without string matching.

// ConfigurationError indicates a bad policy document or invalid settings.
// Policy loading fails closed: the previous snapshot stays active.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NewConfigurationError creates a ConfigurationError
func NewConfigurationError(reason string, err error) *ConfigurationError {
	return &ConfigurationError{Reason: reason, Err: err}
}

// ValidationError indicates a malformed TradeIntent, rejected before any
// rule runs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid trade intent: %s %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ConflictError indicates an attempted transition out of a terminal
// transaction state. The status is never mutated on conflict.
type ConflictError struct {
	TransactionID string
	From          TransactionStatus
	To            TransactionStatus
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("transaction %s: cannot transition from terminal state %s to %s",
		e.TransactionID, e.From, e.To)
}

// NewConflictError creates a ConflictError
func NewConflictError(transactionID string, from, to TransactionStatus) *ConflictError {
	return &ConflictError{TransactionID: transactionID, From: from, To: to}
}

// IsConflict reports whether err is a transition conflict
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// BrokerError wraps a brokerage call failure. Transient errors (network,
// timeout, 5xx) are retried with backoff; permanent errors (invalid order,
// 4xx) move the transaction to failed without retry.
type BrokerError struct {
	Op        string
	Code      string
	Transient bool
	Err       error
}

func (e *BrokerError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("broker %s error in %s (%s): %v", kind, e.Op, e.Code, e.Err)
}

func (e *BrokerError) Unwrap() error { return e.Err }

// NewBrokerTransientError creates a retryable BrokerError
func NewBrokerTransientError(op, code string, err error) *BrokerError {
	return &BrokerError{Op: op, Code: code, Transient: true, Err: err}
}

// NewBrokerPermanentError creates a non-retryable BrokerError
func NewBrokerPermanentError(op, code string, err error) *BrokerError {
	return &BrokerError{Op: op, Code: code, Transient: false, Err: err}
}

// IsBrokerTransient reports whether err is a retryable brokerage failure
func IsBrokerTransient(err error) bool {
	var be *BrokerError
	return errors.As(err, &be) && be.Transient
}

// IsBrokerPermanent reports whether err is a non-retryable brokerage failure
func IsBrokerPermanent(err error) bool {
	var be *BrokerError
	return errors.As(err, &be) && !be.Transient
}

// PersistenceError indicates the relational store was unavailable or a
// write failed. Reviews abort and surface this to the caller; no partial
// ComplianceCheckResult is ever persisted.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NewPersistenceError creates a PersistenceError
func NewPersistenceError(op string, err error) *PersistenceError {
	return &PersistenceError{Op: op, Err: err}
}
