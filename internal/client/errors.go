package client

import "fmt"

// NetworkError reports a failure to get any response from a provider:
// connection errors, timeouts, cancellation, or an open circuit breaker.
type NetworkError struct {
	Provider string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// UpstreamStatusError reports a non-2xx response.
type UpstreamStatusError struct {
	Provider string
	Code     int
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d", e.Provider, e.Code)
}

// DecodeError reports a response body that is not the expected JSON structure.
type DecodeError struct {
	Provider string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s response: %v", e.Provider, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
