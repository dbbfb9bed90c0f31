package core

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is matched by every validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrParse is returned when model output does not have the expected structure
	ErrParse = errors.New("malformed model output")
	// ErrHandler is matched by downstream handler failures
	ErrHandler = errors.New("handler failure")
)

// ValidationError describes why a raw email was rejected
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: field %q %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidInput) match
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// FailureKind classifies a failed completion call
type FailureKind int

const (
	// FailureOther is any transient or unclassified failure. Retried.
	FailureOther FailureKind = iota
	// FailureRateLimited means the provider throttled the request. Retried.
	FailureRateLimited
	// FailureAuth means the credentials were rejected. Never retried.
	FailureAuth
	// FailureBadRequest means the provider rejected the request as malformed. Never retried.
	FailureBadRequest
)

func (k FailureKind) String() string {
	switch k {
	case FailureRateLimited:
		return "rate_limited"
	case FailureAuth:
		return "auth_failed"
	case FailureBadRequest:
		return "bad_request"
	default:
		return "other"
	}
}

// Retryable reports whether a failure of this kind may succeed on a later attempt
func (k FailureKind) Retryable() bool {
	return k == FailureOther || k == FailureRateLimited
}

// ProviderError is returned by LLM adapters so the gateway can classify failures
type ProviderError struct {
	Kind     FailureKind
	Provider string
	Err      error
}

// NewProviderError wraps err with a failure kind
func NewProviderError(provider string, kind FailureKind, err error) *ProviderError {
	return &ProviderError{Kind: kind, Provider: provider, Err: err}
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// GatewayError is the only error the completion gateway returns
type GatewayError struct {
	Kind     FailureKind
	Attempts int
	Err      error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("completion failed (%s) after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// HandlerError records a failed downstream side effect
type HandlerError struct {
	Handler string
	EmailID string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s failed for email %s: %v", e.Handler, e.EmailID, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrHandler) match
func (e *HandlerError) Is(target error) bool {
	return target == ErrHandler
}

// classifyFailure maps any error from an LLM client to a failure kind
func classifyFailure(err error) FailureKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return FailureOther
}
