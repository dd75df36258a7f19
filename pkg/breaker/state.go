// Package breaker implements a circuit breaker for catalog API requests.
// Failure counts live in Redis so every client instance sharing the Redis
// sees the same circuit; without Redis the state is kept in process.
package breaker

import (
	"time"
)

// Redis key layout. The breaker name is appended.
const (
	RedisKeyFailures    = "pokedex:breaker:failures:"
	RedisKeyOpenedAt    = "pokedex:breaker:opened_at:"
	RedisKeyLastFailure = "pokedex:breaker:last_failure:"
)

// Defaults.
const (
	// FailureThreshold consecutive failures open the circuit.
	FailureThreshold = 5

	// RecoveryTimeout is how long an open circuit rejects requests before
	// letting a probe through.
	RecoveryTimeout = 30 * time.Second
)

// Phase is the circuit position.
type Phase int

const (
	Closed Phase = iota
	Open
	HalfOpen
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// State is the shared circuit state.
type State struct {
	// Failures counts consecutive failures since the last success.
	Failures int `json:"failures"`

	// OpenedAt is when the circuit last opened. Zero while closed.
	OpenedAt time.Time `json:"opened_at"`

	// LastFailure is the time of the most recent failure.
	LastFailure time.Time `json:"last_failure"`
}

// Phase derives the circuit position at now.
func (s State) Phase(now time.Time, threshold int, recovery time.Duration) Phase {
	if s.Failures < threshold || s.OpenedAt.IsZero() {
		return Closed
	}
	if now.Sub(s.OpenedAt) < recovery {
		return Open
	}
	return HalfOpen
}

// RetryAfter returns how long an open circuit keeps rejecting requests.
func (s State) RetryAfter(now time.Time, recovery time.Duration) time.Duration {
	if s.OpenedAt.IsZero() {
		return 0
	}
	wait := s.OpenedAt.Add(recovery).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}
