package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyInput is returned when signing zero-length content.
	ErrEmptyInput = errors.New("content is empty")
	// ErrUninitializedState is returned when signing a hash state that was never fed.
	ErrUninitializedState = errors.New("state is not initialized")
	// ErrNotFound covers missing files and expired vault blobs.
	ErrNotFound = errors.New("not found")
	// ErrCreation is returned when the vault reports a create did not happen.
	ErrCreation = errors.New("vault not created")
	// ErrWrite is returned when the vault rejects an event write.
	ErrWrite = errors.New("vault write rejected")
	// ErrRateLimited is returned after 429 retries are exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrBootstrap means no local cursor store could be established.
	ErrBootstrap = errors.New("bootstrap failed")
)

// TransportError is a non-2xx HTTP response.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *TransportError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: http %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: http %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Unwrap maps 404 and 429 onto the matching sentinels.
func (e *TransportError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// StatusCode extracts the HTTP status from err, or 0.
func StatusCode(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.StatusCode
	}
	return 0
}
