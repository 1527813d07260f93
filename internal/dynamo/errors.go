package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for model evaluation.
var (
	// ErrInvalidArgument indicates a dimension mismatch, an unknown
	// accumulation mode or a Hessian that failed the PSD gate.
	ErrInvalidArgument = errors.New("dynamo: invalid argument")

	// ErrUnstable indicates a rollout produced NaN or Inf values.
	ErrUnstable = errors.New("dynamo: trajectory diverged (NaN or Inf detected)")
)

// ArgumentError names the offending argument and what was expected of it.
type ArgumentError struct {
	Arg    string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidArgument, e.Arg, e.Reason)
}

func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

// Invalid builds an ArgumentError with a formatted reason.
func Invalid(arg, format string, args ...any) error {
	return &ArgumentError{Arg: arg, Reason: fmt.Sprintf(format, args...)}
}

// StepError wraps an error with the trajectory node it occurred at.
type StepError struct {
	Node    int
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("node %d: %v", e.Node, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
