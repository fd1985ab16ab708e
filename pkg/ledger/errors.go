package ledger

import (
	"errors"
	"fmt"
)

// Sentinel errors. The typed errors below match them with errors.Is.
var (
	ErrNotFound        = errors.New("entry not found")
	ErrDuplicateKey    = errors.New("duplicate key")
	ErrDeserialization = errors.New("deserialization failed")
	ErrConflict        = errors.New("transaction conflict")
	ErrInvalidKey      = errors.New("invalid key")
	ErrScanUnsupported = errors.New("key range scans not supported by this ledger")
)

// NotFoundError reports that no entry exists at Key.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no entry at key %q", FormatKey(e.Key))
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// DuplicateKeyError reports that Add found an existing entry at Key.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("entry already exists at key %q", FormatKey(e.Key))
}

func (e *DuplicateKeyError) Is(target error) bool { return target == ErrDuplicateKey }

// DeserializationError reports a stored payload that could not be turned back
// into an entity: malformed data, a missing or mistyped field, or a class that
// does not match the collection's namespace.
type DeserializationError struct {
	Class  string
	Reason string
	Err    error
}

func (e *DeserializationError) Error() string {
	msg := fmt.Sprintf("cannot deserialize %s: %s", e.Class, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DeserializationError) Is(target error) bool { return target == ErrDeserialization }

func (e *DeserializationError) Unwrap() error { return e.Err }

// ConflictError reports that the ledger aborted a transaction because a key it
// read was changed by another transaction before commit.
type ConflictError struct {
	TxID string
	Err  error
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("transaction %s aborted by a concurrent write", e.TxID)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func (e *ConflictError) Unwrap() error { return e.Err }

// IsNotFound returns true if err is or wraps a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
