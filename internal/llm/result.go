// Package llm wraps calls to model providers (text LLM, vision LLM, embeddings).
//
// Provider calls never panic or leak raw errors to the pipeline. Call returns a
// Result carrying either the value or a *Failure with a typed Reason, and the
// caller decides which fallback to apply.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Reason classifies why a provider call failed
type Reason string

const (
	ReasonUnavailable Reason = "unavailable"
	ReasonTimeout     Reason = "timeout"
	ReasonCanceled    Reason = "canceled"
	ReasonCircuitOpen Reason = "circuit_open"
	ReasonBadResponse Reason = "bad_response"
)

// ErrBadResponse marks a reply that arrived but could not be used
var ErrBadResponse = errors.New("bad provider response")

// Failure describes a failed provider call
type Failure struct {
	Provider string
	Reason   Reason
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s provider %s: %v", f.Provider, f.Reason, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Result is the outcome of a provider call
type Result[T any] struct {
	Value   T
	Failure *Failure
}

// OK reports whether the call succeeded
func (r Result[T]) OK() bool {
	return r.Failure == nil
}

// Or returns the value, or fallback when the call failed
func (r Result[T]) Or(fallback T) T {
	if r.Failure != nil {
		return fallback
	}
	return r.Value
}

// Classify maps an error to a Reason
func Classify(err error) Reason {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.Is(err, errCircuitOpen):
		return ReasonCircuitOpen
	case errors.Is(err, ErrBadResponse):
		return ReasonBadResponse
	case errors.As(err, &netErr) && netErr.Timeout():
		return ReasonTimeout
	default:
		return ReasonUnavailable
	}
}
