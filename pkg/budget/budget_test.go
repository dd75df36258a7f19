package budget

import (
	"context"
	"sync"
	"testing"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name    string
		signals Signals
		want    int
	}{
		{"no signals", Signals{}, 300},
		{"1 GB", Signals{DeviceMemoryGB: 1}, 150},
		{"0.5 GB", Signals{DeviceMemoryGB: 0.5}, 150},
		{"2 GB", Signals{DeviceMemoryGB: 2}, 220},
		{"4 GB", Signals{DeviceMemoryGB: 4}, 300},
		{"8 GB", Signals{DeviceMemoryGB: 8}, 420},
		{"heap caps bucket", Signals{DeviceMemoryGB: 8, HeapLimitBytes: 512 << 20}, 224},
		{"heap minimum", Signals{DeviceMemoryGB: 8, HeapLimitBytes: 100 << 20}, 120},
		{"heap above bucket", Signals{DeviceMemoryGB: 2, HeapLimitBytes: 4 << 30}, 220},
		{"dpr 2", Signals{DevicePixelRatio: 2}, 255},
		{"dpr 2.5", Signals{DevicePixelRatio: 2.5}, 255},
		{"dpr 3", Signals{DevicePixelRatio: 3}, 210},
		{"smallest combination", Signals{DeviceMemoryGB: 1, HeapLimitBytes: 1 << 20, DevicePixelRatio: 3}, 84},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compute(tt.signals); got != tt.want {
				t.Errorf("Compute(%+v) = %d, want %d", tt.signals, got, tt.want)
			}
		})
	}
}

func TestCompute_PixelRatioMonotonic(t *testing.T) {
	memories := []float64{0, 1, 2, 4, 16}
	heaps := []int64{0, 64 << 20, 512 << 20, 8 << 30}

	for _, m := range memories {
		for _, h := range heaps {
			low := Compute(Signals{DeviceMemoryGB: m, HeapLimitBytes: h, DevicePixelRatio: 1})
			high := Compute(Signals{DeviceMemoryGB: m, HeapLimitBytes: h, DevicePixelRatio: 3})
			if high > low {
				t.Errorf("mem=%v heap=%v: cap at DPR 3 = %d, want <= %d", m, h, high, low)
			}
		}
	}
}

func TestCompute_Floor(t *testing.T) {
	for _, dpr := range []float64{0, 1, 2, 3, 4} {
		if got := Compute(Signals{DeviceMemoryGB: 0.25, HeapLimitBytes: 1, DevicePixelRatio: dpr}); got < Floor {
			t.Errorf("Compute() at DPR %v = %d, want >= %d", dpr, got, Floor)
		}
	}
}

// switchableSignals lets a test change the signals between recomputes.
type switchableSignals struct {
	mu sync.Mutex
	s  Signals
}

func (p *switchableSignals) Signals(context.Context) Signals {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.s
}

func (p *switchableSignals) set(s Signals) {
	p.mu.Lock()
	p.s = s
	p.mu.Unlock()
}

func TestEstimator_Recompute(t *testing.T) {
	ctx := context.Background()
	p := &switchableSignals{s: Signals{DeviceMemoryGB: 8}}
	e := NewEstimator(ctx, p)

	if got := e.Cap(); got != 420 {
		t.Errorf("initial Cap() = %d, want 420", got)
	}

	p.set(Signals{DeviceMemoryGB: 8, DevicePixelRatio: 3})
	if got := e.Recompute(ctx); got != 294 {
		t.Errorf("Recompute() = %d, want 294", got)
	}
	if got := e.Cap(); got != 294 {
		t.Errorf("Cap() = %d, want 294", got)
	}
}

func TestHostSignals(t *testing.T) {
	s := HostSignals{DevicePixelRatio: 2}.Signals(context.Background())
	if s.DevicePixelRatio != 2 {
		t.Errorf("DevicePixelRatio = %v, want 2", s.DevicePixelRatio)
	}
	if s.DeviceMemoryGB < 0 {
		t.Errorf("DeviceMemoryGB = %v, want >= 0", s.DeviceMemoryGB)
	}
	if got := Compute(s); got < Floor {
		t.Errorf("Compute(host) = %d, want >= %d", got, Floor)
	}
}

func TestStaticSignals(t *testing.T) {
	e := NewEstimator(context.Background(), StaticSignals{DeviceMemoryGB: 2})
	if got := e.Cap(); got != 220 {
		t.Errorf("Cap() = %d, want 220", got)
	}
}
