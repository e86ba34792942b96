package rotation

import (
	"time"

	"go.uber.org/atomic"
)

// ReedSwitchConfig holds configuration for a reed switch rotation sensor.
type ReedSwitchConfig struct {
	Chip              string `yaml:"chip"`
	Pin               int    `yaml:"pin"`
	PulsesPerRotation int    `yaml:"pulses_per_rotation"` // magnets passing the switch per turn
	DebounceMs        int    `yaml:"debounce_ms"`
}

// ReedSwitch counts falling edges of a reed switch, one fixed step per edge.
type ReedSwitch struct {
	*Counter
	step     float64
	debounce time.Duration
	last     atomic.Duration // timestamp of the last accepted edge
	seen     atomic.Bool
	release  func() error
}

func newReedSwitch(cfg ReedSwitchConfig) *ReedSwitch {
	if cfg.PulsesPerRotation <= 0 {
		cfg.PulsesPerRotation = 1
	}
	if cfg.DebounceMs <= 0 {
		cfg.DebounceMs = 100
	}
	return &ReedSwitch{
		Counter:  NewCounter(),
		step:     360.0 / float64(cfg.PulsesPerRotation),
		debounce: time.Duration(cfg.DebounceMs) * time.Millisecond,
	}
}

// edge handles a falling edge observed at ts (monotonic).
func (r *ReedSwitch) edge(ts time.Duration) {
	if r.seen.Load() && ts-r.last.Load() <= r.debounce {
		return
	}
	r.seen.Store(true)
	r.last.Store(ts)
	r.Update(r.step)
}

// Release releases the GPIO line.
func (r *ReedSwitch) Release() error {
	if r.release == nil {
		return nil
	}
	return r.release()
}
