package client

import (
	"context"
	"errors"
)

// ErrorCategory is a stable label for error classification in metrics.
type ErrorCategory string

// Error category constants used as metric labels (upstreamErrorsTotal, forecastResultsTotal).
const (
	ErrorCategoryTimeout        ErrorCategory = "timeout"
	ErrorCategoryNetwork        ErrorCategory = "network"
	ErrorCategoryUpstreamStatus ErrorCategory = "upstream_status"
	ErrorCategoryDecoding       ErrorCategory = "decoding"
	ErrorCategoryUnknown        ErrorCategory = "unknown"
)

// CategorizeError maps an error to a stable ErrorCategory for metrics.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	var statusErr *UpstreamStatusError
	if errors.As(err, &statusErr) {
		return ErrorCategoryUpstreamStatus
	}

	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return ErrorCategoryDecoding
	}

	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return ErrorCategoryTimeout
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return ErrorCategoryNetwork
	}

	return ErrorCategoryUnknown
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
