package dispatch

import (
	"fmt"
	"strings"
)

// ValidationError is returned before any network call when a request is
// incomplete or carries nothing to test.
type ValidationError struct {
	// Missing lists the request fields that were empty, by their JSON names.
	Missing []string
	Reason  string
}

func (e *ValidationError) Error() string {
	if len(e.Missing) > 0 {
		return "missing required fields: " + strings.Join(e.Missing, ", ")
	}
	return e.Reason
}

// UpstreamError is a dispatch the GitHub API did not accept with 204.
type UpstreamError struct {
	StatusCode int
	// Body is the response body, verbatim.
	Body string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("GitHub API returned status %d", e.StatusCode)
}

// TransportError wraps a network failure while dispatching.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "dispatching workflow: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
