package resilience

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/hubfood/ifood-erp-sync/pkg/errors"
)

// StatusError carries the HTTP status of a failed upstream call plus the
// server-provided Retry-After delay when one was present.
type StatusError struct {
	StatusCode int
	RetryAfter time.Duration
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream status %d", e.StatusCode)
}

// Retryable reports whether the call may be attempted again. Throttling and
// server-side failures retry; every other status is terminal.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable classifies an arbitrary error: status errors defer to their
// code, everything else (network failures, timeouts) is assumed transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	// an open breaker fails fast, retrying would just burn the backoff budget
	if apperrors.HasCode(err, apperrors.CodeCircuitOpen) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	return true
}

// retryAfterOf extracts the server-provided delay, zero when absent.
func retryAfterOf(err error) time.Duration {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.RetryAfter
	}
	return 0
}
