// Package indicator shows the lock state on LEDs or a neopixel strip.
package indicator

import (
	"golock/lock"
)

// Indicator is the interface for status indicator implementations (LEDs, neopixels, etc).
type Indicator interface {
	// Uninitialized shows that the lock position is not known yet.
	Uninitialized()

	// Locked sets the indicator to the locked state.
	Locked()

	// Unlocked sets the indicator to the unlocked state.
	Unlocked()

	// Working shows that the lock is turning.
	Working()

	// Fault shows that the lock needs attention.
	Fault(flags lock.ErrorFlags)

	// ConnectionLost sets the indicator to connection lost state.
	ConnectionLost()

	// Shutdown sets the indicator to shutdown state.
	Shutdown()

	// Release releases any hardware resources.
	Release() error
}

// Config holds configuration for indicator implementations.
type Config struct {
	// GPIO LED pins (nil = not configured)
	GreenPin  *uint8 `yaml:"green_pin"`
	YellowPin *uint8 `yaml:"yellow_pin"`
	RedPin    *uint8 `yaml:"red_pin"`

	// Neopixel pipe path (empty = not configured)
	NeopixelPipe string `yaml:"neopixel_pipe"`
}

// New creates an Indicator based on the provided configuration.
// Returns a Multi indicator if both GPIO and Neopixel are configured.
func New(cfg Config) (Indicator, error) {
	var indicators []Indicator

	// Add GPIO indicator if any pins configured
	if cfg.GreenPin != nil || cfg.YellowPin != nil || cfg.RedPin != nil {
		gpio, err := NewGPIO(cfg.GreenPin, cfg.YellowPin, cfg.RedPin)
		if err != nil {
			return nil, err
		}
		indicators = append(indicators, gpio)
	}

	// Add Neopixel indicator if pipe configured
	if cfg.NeopixelPipe != "" {
		neo, err := NewNeopixel(cfg.NeopixelPipe)
		if err != nil {
			return nil, err
		}
		indicators = append(indicators, neo)
	}

	if len(indicators) == 0 {
		return &Noop{}, nil
	}
	if len(indicators) == 1 {
		return indicators[0], nil
	}
	return &Multi{indicators: indicators}, nil
}

// Show displays a lock state on ind.
func Show(ind Indicator, state lock.State, flags lock.ErrorFlags) {
	switch state {
	case lock.Locked:
		ind.Locked()
	case lock.Unlocked:
		ind.Unlocked()
	case lock.WorkingLocking, lock.WorkingUnlocking:
		ind.Working()
	case lock.Error:
		ind.Fault(flags)
	default:
		ind.Uninitialized()
	}
}
