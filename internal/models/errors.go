package models

import (
	"context"
	"errors"
	"fmt"
)

// UpstreamTimeoutError is returned when a text-generation or semantic-index
// call exceeds the caller's deadline. A timeout never degrades to a silent
// empty result.
type UpstreamTimeoutError struct {
	Op  string
	Err error
}

func (e *UpstreamTimeoutError) Error() string {
	return fmt.Sprintf("upstream timeout during %s: %v", e.Op, e.Err)
}

func (e *UpstreamTimeoutError) Unwrap() error {
	return e.Err
}

// WrapTimeout converts a context deadline failure into an
// UpstreamTimeoutError and leaves every other error untouched.
func WrapTimeout(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &UpstreamTimeoutError{Op: op, Err: err}
	}
	return err
}
