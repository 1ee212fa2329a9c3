package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrProvider     = errors.New("provider failure")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// CircuitOpenError signals that a wrapped dependency is failing and calls are
// being rejected without execution. RetryAfter is a suggested wait, not a
// guarantee that the breaker will admit the next call.
type CircuitOpenError struct {
	Operation  string
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("%s: circuit breaker open, retry in %s", e.Operation, e.RetryAfter.Round(time.Second))
}

func IsCircuitOpen(err error) bool {
	var open *CircuitOpenError
	return errors.As(err, &open)
}
