package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("requested item not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrProvider     = errors.New("provider error")
	ErrPersistence  = errors.New("persistence error")
)

// InputError is returned for requests the caller has to fix, such as an
// unresolvable location or a query that is too short. Never retried.
type InputError struct {
	Message string
	Err     error
}

func NewInputError(msg string) *InputError {
	return &InputError{Message: msg}
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *InputError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidInput}
	}
	return []error{ErrInvalidInput, e.Err}
}

// ProviderError wraps a transport or provider-reported failure of an
// external service (places search, geocoding, LLM).
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed with status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() []error {
	return []error{ErrProvider, e.Err}
}

// PersistenceError wraps a storage failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error {
	return []error{ErrPersistence, e.Err}
}
