// Package actuator contains the motor drivers that turn a lock cylinder.
package actuator

import (
	"fmt"
	"time"

	"golock/lock"
	"golock/scservo"
)

// Actuator is a lock.Actuator holding hardware resources.
type Actuator interface {
	lock.Actuator

	// Release releases any hardware resources.
	Release() error
}

// Config holds configuration for actuator implementations.
type Config struct {
	Type                string             `yaml:"type"` // "gpio", "gpiomem", "scservo", "none"
	ClockwisePin        *int               `yaml:"clockwise_pin"`
	CounterClockwisePin *int               `yaml:"counter_clockwise_pin"`
	DeadTimeMs          int                `yaml:"dead_time_ms"` // both outputs off before reversing
	Serial              scservo.PortConfig `yaml:"serial"`
	ServoID             int                `yaml:"servo_id"`
	Echo                bool               `yaml:"echo"` // serial adapter reads back its own output
	TimeoutMs           int                `yaml:"timeout_ms"`
}

// New creates an Actuator based on the provided configuration.
func New(cfg Config) (Actuator, error) {
	switch cfg.Type {
	case "gpio", "gpiomem":
		if cfg.ClockwisePin == nil || cfg.CounterClockwisePin == nil {
			return nil, fmt.Errorf("actuator %s: clockwise_pin and counter_clockwise_pin are required", cfg.Type)
		}
		open := openVattu
		if cfg.Type == "gpiomem" {
			open = openGPIOMem
		}
		cw, ccw, release, err := open(*cfg.ClockwisePin, *cfg.CounterClockwisePin)
		if err != nil {
			return nil, err
		}
		d := NewDirectDrive(cw, ccw, time.Duration(cfg.DeadTimeMs)*time.Millisecond)
		d.release = release
		return d, nil
	case "scservo":
		port, err := scservo.OpenPort(cfg.Serial)
		if err != nil {
			return nil, err
		}
		id := cfg.ServoID
		if id == 0 {
			id = scservo.DefaultID
		}
		bus := scservo.NewBus(port, byte(id), cfg.Echo)
		if cfg.TimeoutMs > 0 {
			bus.SetTimeout(time.Duration(cfg.TimeoutMs) * time.Millisecond)
		}
		return NewServo(bus), nil
	case "", "none":
		return &Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown actuator type %q", cfg.Type)
	}
}
