package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// APIError is a single failed HTTP exchange with the statistics API.
type APIError struct {
	URL        string
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("API %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("API %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// ExhaustedError is the terminal failure of a request after every attempt
// failed. errors.Is(err, ErrRetryExhausted) holds for it.
type ExhaustedError struct {
	URL      string
	Attempts int
	Last     error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("could not fetch %s after %d attempts: %v", e.URL, e.Attempts, e.Last)
}

// Is reports whether target is ErrRetryExhausted.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrRetryExhausted
}

// Unwrap returns the error of the last attempt.
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassRateLimit, ErrorClassNetwork:
		return true
	default:
		// 4xx other than 429 and undecodable bodies repeat identically
		return false
	}
}
