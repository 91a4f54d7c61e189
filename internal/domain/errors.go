package domain

import (
	"errors"
	"fmt"
)

// ValidationError reports user-correctable bad input, naming the offending
// field. Mapped to 400.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// TransitionError reports an action attempted against a negotiation in a state
// that does not permit it. Mapped to 409.
type TransitionError struct {
	Status string
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a %s negotiation", e.Action, e.Status)
}

// PreconditionError reports an operation invoked before its prerequisite held
// (e.g. finalize on a non-accepted negotiation). Mapped to 412.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return e.Reason
}

// ProviderError wraps a failure from an external collaborator (model, billing,
// memory, catalog backing store). Handlers log the cause and return a generic
// message so provider internals never reach the end user. Mapped to 502.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTransition reports whether err is (or wraps) a TransitionError.
func IsTransition(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}
