package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jwebster45206/werewolf-engine/pkg/chat"
)

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, req *chat.GenerateRequest) (string, error)
}

// ErrorKind classifies backend failures for retry decisions.
type ErrorKind int

const (
	Permanent ErrorKind = iota
	RateLimited
	Transient
)

func (k ErrorKind) String() string {
	switch k {
	case RateLimited:
		return "rate_limited"
	case Transient:
		return "transient"
	default:
		return "permanent"
	}
}

// BackendError is a failed generation call.
type BackendError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *BackendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("backend %s error (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend %s error: %s", e.Kind, e.Message)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the call may succeed if repeated.
func (e *BackendError) Retryable() bool {
	return e.Kind == RateLimited || e.Kind == Transient
}

// IsRetryable reports whether err is a retryable backend error.
func IsRetryable(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Retryable()
}

// kindForStatus maps an HTTP status code to an error kind.
func kindForStatus(code int) ErrorKind {
	switch {
	case code == http.StatusTooManyRequests:
		return RateLimited
	case code >= 500:
		return Transient
	default:
		return Permanent
	}
}
