package breaker

import (
	"testing"
	"time"
)

func TestState_Phase(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		state State
		want  Phase
	}{
		{"no failures", State{}, Closed},
		{"below threshold", State{Failures: 4}, Closed},
		{"threshold without open marker", State{Failures: 5}, Closed},
		{"open", State{Failures: 5, OpenedAt: now.Add(-10 * time.Second)}, Open},
		{"half open after recovery", State{Failures: 5, OpenedAt: now.Add(-30 * time.Second)}, HalfOpen},
		{"reopened", State{Failures: 6, OpenedAt: now.Add(-time.Second)}, Open},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Phase(now, FailureThreshold, RecoveryTimeout); got != tt.want {
				t.Errorf("Phase() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestState_RetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		state State
		want  time.Duration
	}{
		{"closed", State{}, 0},
		{"just opened", State{OpenedAt: now}, 30 * time.Second},
		{"partway", State{OpenedAt: now.Add(-20 * time.Second)}, 10 * time.Second},
		{"elapsed", State{OpenedAt: now.Add(-time.Minute)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.RetryAfter(now, RecoveryTimeout); got != tt.want {
				t.Errorf("RetryAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPhase_String(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{Closed, "closed"},
		{Open, "open"},
		{HalfOpen, "half_open"},
		{Phase(9), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("String() = %v, want %v", got, tt.want)
		}
	}
}
