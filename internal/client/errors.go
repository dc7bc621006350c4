package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuth marks rejected credentials or an expired session
	ErrAuth = errors.New("authentication failed")
	// ErrOrder marks an order the server refused to create or change
	ErrOrder = errors.New("order rejected")
)

// NetworkError is a request that never produced a response: connection
// failures, timeouts and cancelled contexts.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError is a response with a non-success status. Message is the
// server's error text when it sent one.
type HTTPError struct {
	Op      string
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.Status, msg)
}

// ValidationError is a success response whose payload could not be used.
type ValidationError struct {
	Op     string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: malformed response: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: malformed response: %s", e.Op, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by err, or 0 when err did not
// come from a response.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}

// tagHTTP wraps an HTTP error of one of the given statuses in sentinel.
func tagHTTP(err error, sentinel error, statuses ...int) error {
	status := StatusCode(err)
	for _, s := range statuses {
		if status == s {
			return fmt.Errorf("%w: %w", sentinel, err)
		}
	}
	return err
}
