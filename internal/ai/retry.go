package ai

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"skillmatch/internal/errors"

	"google.golang.org/api/googleapi"
)

const maxBackoff = 30 * time.Second

// StatusError is returned by the HTTP-based providers for non-2xx responses
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
}

// retrier runs a call with retry logic and exponential backoff
type retrier struct {
	maxRetries int
	baseDelay  time.Duration
	logger     *errors.Logger
}

func newRetrier(maxRetries int, logger *errors.Logger) retrier {
	return retrier{maxRetries: maxRetries, baseDelay: time.Second, logger: logger}
}

// backoff returns the delay before the given retry attempt (1-based)
func (r retrier) backoff(attempt int) time.Duration {
	baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * r.baseDelay
	// Use crypto/rand for secure random jitter
	jitter := time.Duration(0)
	if maxJitter := int64(float64(baseDelay) * 0.1); maxJitter > 0 {
		jitterBig, _ := rand.Int(rand.Reader, big.NewInt(maxJitter))
		jitter = time.Duration(jitterBig.Int64())
	}
	return min(baseDelay+jitter, maxBackoff)
}

// executeWithRetry executes fn with retry logic and exponential backoff
func executeWithRetry[T any](ctx context.Context, r retrier, operation string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			r.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", r.maxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(r.backoff(attempt)):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				r.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err

		// Don't retry on certain errors (auth, invalid input, etc.)
		if !isRetryableError(err) {
			r.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	r.logger.LogError(lastErr, "AI operation failed after all retry attempts",
		"operation", operation,
		"max_attempts", r.maxRetries+1)

	return zero, fmt.Errorf("operation '%s' failed: %w", operation, lastErr)
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// A cancelled or expired caller context is final
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Network errors (timeouts, connection refused) are transient
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	if code, ok := statusCodeOf(err); ok {
		return isRetryableStatus(code)
	}

	return false
}

func statusCodeOf(err error) (int, bool) {
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var statusErr *StatusError
	if stderrors.As(err, &statusErr) {
		return statusErr.StatusCode, true
	}
	return 0, false
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
