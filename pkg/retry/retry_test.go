package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// recordingSleeper captures requested delays without waiting.
type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestEmptyBatchSchedule(t *testing.T) {
	want := []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond}
	got := EmptyBatch.Schedule()

	if len(got) != len(want) {
		t.Fatalf("Schedule() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Schedule()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if EmptyBatch.Allows(4) {
		t.Error("EmptyBatch should not allow a 4th retry")
	}
}

func TestNetworkErrorSchedule(t *testing.T) {
	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	got := NetworkError.Schedule()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Schedule()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestBackoff_Capped(t *testing.T) {
	p := Backoff(time.Second, 3*time.Second, 2.0, 5)
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second, 3 * time.Second}
	got := p.Schedule()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Schedule()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestWithJitter_Bounds(t *testing.T) {
	p := Exponential(100*time.Millisecond, 3).WithJitter(0.2)
	for i := 0; i < 50; i++ {
		d := p.DelayFor(1)
		if d < 160*time.Millisecond || d > 240*time.Millisecond {
			t.Fatalf("DelayFor(1) = %v, want within [160ms, 240ms]", d)
		}
	}
}

func TestDo_SuccessFirstAttempt(t *testing.T) {
	s := &recordingSleeper{}
	calls := 0
	err := Do(context.Background(), NetworkError, func(context.Context) error {
		calls++
		return nil
	}, WithSleeper(s.sleep))

	if err != nil {
		t.Errorf("Do() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(s.delays) != 0 {
		t.Errorf("delays = %v, want none", s.delays)
	}
}

func TestDo_SuccessAfterRetry(t *testing.T) {
	s := &recordingSleeper{}
	calls := 0
	err := Do(context.Background(), EmptyBatch, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}, WithSleeper(s.sleep))

	if err != nil {
		t.Errorf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(s.delays) != 2 || s.delays[0] != 200*time.Millisecond || s.delays[1] != 400*time.Millisecond {
		t.Errorf("delays = %v, want [200ms 400ms]", s.delays)
	}
}

func TestDo_Exhausted(t *testing.T) {
	s := &recordingSleeper{}
	calls := 0
	boom := errors.New("boom")
	var retries []int

	err := Do(context.Background(), EmptyBatch, func(context.Context) error {
		calls++
		return boom
	}, WithSleeper(s.sleep), OnRetry(func(retry int, _ time.Duration, _ error) {
		retries = append(retries, retry)
	}))

	if !errors.Is(err, ErrExhausted) {
		t.Errorf("error = %v, want ErrExhausted", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want wrapped boom", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4 (initial + 3 retries)", calls)
	}
	if len(retries) != 3 || retries[2] != 3 {
		t.Errorf("retries = %v, want [1 2 3]", retries)
	}
}

func TestDo_NonRetryable(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	err := Do(context.Background(), NetworkError, func(context.Context) error {
		calls++
		return permanent
	}, RetryIf(func(err error) bool { return !errors.Is(err, permanent) }))

	if err != permanent {
		t.Errorf("error = %v, want permanent", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, Exponential(time.Hour, 3), func(context.Context) error {
		return errors.New("fail")
	})
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("error = %v, want ErrCancelled", err)
	}
}
