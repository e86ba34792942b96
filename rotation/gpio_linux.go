//go:build linux

package rotation

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// NewReedSwitch requests the reed switch line and starts counting edges.
func NewReedSwitch(cfg ReedSwitchConfig) (*ReedSwitch, error) {
	if cfg.Chip == "" {
		cfg.Chip = "gpiochip0"
	}

	r := newReedSwitch(cfg)
	line, err := gpiocdev.RequestLine(cfg.Chip, cfg.Pin,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(r.handleEvent))
	if err != nil {
		return nil, fmt.Errorf("request reed switch line %d: %w", cfg.Pin, err)
	}
	r.release = line.Close
	return r, nil
}

func (r *ReedSwitch) handleEvent(evt gpiocdev.LineEvent) {
	if evt.Type != gpiocdev.LineEventFallingEdge {
		return
	}
	r.edge(evt.Timestamp)
}

// ZeroSensor is the digital input that is active (1) while the lock is away
// from its neutral position.
type ZeroSensor struct {
	line *gpiocdev.Line
}

// ZeroSensorConfig holds configuration for the neutral position input.
type ZeroSensorConfig struct {
	Chip string `yaml:"chip"`
	Pin  int    `yaml:"pin"`
}

// NewZeroSensor requests the neutral position input with a pull-up.
func NewZeroSensor(cfg ZeroSensorConfig) (*ZeroSensor, error) {
	if cfg.Chip == "" {
		cfg.Chip = "gpiochip0"
	}
	line, err := gpiocdev.RequestLine(cfg.Chip, cfg.Pin,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp)
	if err != nil {
		return nil, fmt.Errorf("request zero sensor line %d: %w", cfg.Pin, err)
	}
	return &ZeroSensor{line: line}, nil
}

// Value returns the current level of the input.
func (z *ZeroSensor) Value() (int, error) {
	return z.line.Value()
}

// Release releases the GPIO line.
func (z *ZeroSensor) Release() error {
	return z.line.Close()
}
