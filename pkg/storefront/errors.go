package storefront

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the typed outcome of a storefront API call. The engine's loop
// decides skip-vs-abort from Retryable(), never from string matching.
type Error struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("storefront %s: status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("storefront %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable reports whether another attempt could succeed: network failures,
// 5xx responses and 429 are retryable; any other 4xx is not.
func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	if e.StatusCode == 0 {
		return true
	}
	if e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return e.StatusCode >= 500
}

// IsRetryable reports whether err is a retryable storefront error.
func IsRetryable(err error) bool {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Retryable()
	}
	return false
}

// IsNotFound reports whether err is a storefront 404.
func IsNotFound(err error) bool {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.StatusCode == http.StatusNotFound
	}
	return false
}
