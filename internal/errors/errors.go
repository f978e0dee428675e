package errors

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Common error types
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrSelfReport      = errors.New("cannot report yourself")
	ErrCooldownActive  = errors.New("report cooldown active")
	ErrStorageFailed   = errors.New("storage failed")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyResolved = errors.New("already resolved")
)

// CooldownError carries the time left before the submitter may report again.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: %ds remaining", ErrCooldownActive, e.RemainingSeconds())
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}

// RemainingSeconds rounds up so a sub-second wait never shows as zero.
func (e *CooldownError) RemainingSeconds() int64 {
	return CeilSeconds(e.Remaining)
}

// AlreadyResolvedError reports the terminal status that blocked a resolution.
type AlreadyResolvedError struct {
	ID     int64
	Status string
}

func (e *AlreadyResolvedError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("report %d %s", e.ID, ErrAlreadyResolved)
	}
	return fmt.Sprintf("report %d %s as %s", e.ID, ErrAlreadyResolved, e.Status)
}

func (e *AlreadyResolvedError) Is(target error) bool {
	return target == ErrAlreadyResolved
}

// StorageError keeps the cause of a failed storage round-trip for logs.
// Callers only need to match ErrStorageFailed.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorageFailed, e.Op, e.Err)
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageFailed
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func CeilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}
