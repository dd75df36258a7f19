package budget

import (
	"context"
	"math"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v4/mem"
)

// HostSignals reads device memory from the host and the heap limit from
// the Go runtime. The pixel ratio comes from configuration.
type HostSignals struct {
	DevicePixelRatio float64
}

// Signals implements SignalProvider.
func (h HostSignals) Signals(ctx context.Context) Signals {
	s := Signals{DevicePixelRatio: h.DevicePixelRatio}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("Device memory unavailable")
	} else if vm.Total > 0 {
		s.DeviceMemoryGB = float64(vm.Total) / (1 << 30)
	}

	// A negative argument reads the limit without changing it. MaxInt64
	// means no limit was configured.
	if limit := debug.SetMemoryLimit(-1); limit > 0 && limit != math.MaxInt64 {
		s.HeapLimitBytes = limit
	}

	return s
}
