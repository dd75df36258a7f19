package client

import (
	"errors"
	"time"

	"github.com/Sternrassler/pokedex-catalog/pkg/retry"
)

// retryJitter spreads backoff delays by ±20%.
const retryJitter = 0.2

// RetryPolicyForErrorClass returns the backoff policy for an error class.
// Client errors are never retried.
func RetryPolicyForErrorClass(errorClass ErrorClass, maxRetries int) retry.Policy {
	switch errorClass {
	case ErrorClassServer:
		return retry.Backoff(1*time.Second, 10*time.Second, 2.0, maxRetries)
	case ErrorClassRateLimit:
		return retry.Backoff(5*time.Second, 60*time.Second, 2.0, maxRetries)
	case ErrorClassNetwork:
		return retry.Backoff(2*time.Second, 30*time.Second, 2.0, maxRetries)
	default:
		return retry.Policy{}
	}
}

// classPolicy picks the backoff of whichever class failed last. The retry
// budget is shared across classes.
func classPolicy(maxRetries int, jitter float64, last *ErrorClass) retry.Policy {
	return retry.Policy{
		MaxRetries: maxRetries,
		Delay: func(n int) time.Duration {
			return RetryPolicyForErrorClass(*last, maxRetries).WithJitter(jitter).DelayFor(n)
		},
	}
}

// retryable reports whether err carries a retryable class.
func retryable(err error) bool {
	var ce *CatalogError
	if errors.As(err, &ce) {
		return shouldRetry(ce.ErrorClass)
	}
	return false
}
