package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Ledger errors
	ErrEntryNotFound  = errors.New("ledger entry not found")
	ErrEntityNotFound = errors.New("entity not found")

	// Offline queue errors
	ErrActionNotFound    = errors.New("offline action not found")
	ErrReplayInProgress  = errors.New("a replay pass is already running")
	ErrUnknownActionType = errors.New("unknown offline action type")
)

// LockedError rejects a write on or before the company lock date.
// Non-retryable: the write must surface to the user and never be queued.
type LockedError struct {
	Date     time.Time
	LockDate time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("ledger locked: %s is on or before lock date %s",
		e.Date.Format("2006-01-02"), e.LockDate.Format("2006-01-02"))
}

// RetryableError wraps a transient failure (repository or network
// unavailable). Callers may queue the mutation offline and retry later.
type RetryableError struct {
	Cause error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Cause)
}

func (e *RetryableError) Unwrap() error {
	return e.Cause
}

// Retryable wraps err as a RetryableError, preserving nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Cause: err}
}

// IsRetryable reports whether err may succeed on a later attempt.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// IsLocked reports whether err is a lock-date rejection.
func IsLocked(err error) bool {
	var le *LockedError
	return errors.As(err, &le)
}

// PermanentFailureError marks an offline action that exhausted its retries
// and was moved to the dead-letter store.
type PermanentFailureError struct {
	ActionID   string
	RetryCount int
	LastError  string
}

func (e *PermanentFailureError) Error() string {
	return fmt.Sprintf("action %s permanently failed after %d retries: %s",
		e.ActionID, e.RetryCount, e.LastError)
}
