// Package simulator provides a simulated lock: a motor turning a cylinder
// between two hard stops, a stepping rotation sensor and a neutral position
// switch. It lets the lock logic run without hardware.
package simulator

import (
	"math"
	"sync"
	"time"

	"golock/lock"
	"golock/rotation"
)

// Config describes the simulated mechanism.
type Config struct {
	Rotations    int            `yaml:"rotations"`     // turns between locked and unlocked
	Direction    lock.Direction `yaml:"direction"`     // rotation sense that locks
	Start        float64        `yaml:"start"`         // turns from locked toward unlocked
	Steps        int            `yaml:"steps"`         // sensor steps per turn
	Speed        float64        `yaml:"speed"`         // degrees per tick
	TickMs       int            `yaml:"tick_ms"`       // motion update interval
	Margin       float64        `yaml:"margin"`        // degrees past each end before the hard stop
	NeutralWidth float64        `yaml:"neutral_width"` // degrees either side of neutral
	ReportStall  bool           `yaml:"report_stall"`  // Stalled reports pushing on a hard stop
}

// Mechanism is a simulated lock. It implements lock.Actuator,
// rotation.Detector and lock.DigitalInput.
type Mechanism struct {
	*rotation.Counter
	cfg  Config
	step float64

	mu       sync.Mutex // guards everything below
	pos      float64    // degrees from locked toward unlocked
	drive    int        // +1 clockwise, -1 counter-clockwise, 0 stopped
	jammed   bool
	blocked  bool
	commands []string

	stop chan struct{}
	done chan struct{}
}

// New creates a mechanism and starts moving it.
func New(cfg Config) *Mechanism {
	if cfg.Rotations <= 0 {
		cfg.Rotations = 2
	}
	if cfg.Direction == 0 {
		cfg.Direction = lock.CounterClockwise
	}
	if cfg.Steps <= 0 {
		cfg.Steps = rotation.DefaultSteps
	}
	if cfg.Speed <= 0 {
		cfg.Speed = 3
	}
	if cfg.TickMs <= 0 {
		cfg.TickMs = 1
	}
	if cfg.Margin <= 0 {
		cfg.Margin = 45
	}
	if cfg.NeutralWidth <= 0 {
		cfg.NeutralWidth = 30
	}
	m := &Mechanism{
		Counter: rotation.NewCounter(),
		cfg:     cfg,
		step:    360.0 / float64(cfg.Steps),
		pos:     cfg.Start * 360,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go m.run(time.Duration(cfg.TickMs) * time.Millisecond)
	return m
}

func (m *Mechanism) run(tick time.Duration) {
	defer close(m.done)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			for n := m.advance(); n > 0; n-- {
				m.Update(m.step)
			}
		}
	}
}

// advance moves the cylinder one tick and returns the number of sensor
// marks passed.
func (m *Mechanism) advance() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blocked = false
	if m.drive == 0 {
		return 0
	}
	if m.jammed {
		m.blocked = true
		return 0
	}

	// Turning clockwise unlocks a lock that locks counter-clockwise.
	delta := -m.cfg.Speed * float64(m.drive) * float64(m.cfg.Direction)
	lo := -m.cfg.Margin
	hi := float64(m.cfg.Rotations)*360 + m.cfg.Margin
	next := m.pos + delta
	if next < lo {
		next, m.blocked = lo, true
	} else if next > hi {
		next, m.blocked = hi, true
	}

	marks := math.Abs(math.Floor(next/m.step) - math.Floor(m.pos/m.step))
	m.pos = next
	return int(marks)
}

func (m *Mechanism) command(name string, drive int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drive = drive
	m.blocked = false
	m.commands = append(m.commands, name)
}

// RotateClockwise implements lock.Actuator.
func (m *Mechanism) RotateClockwise() error {
	m.command("cw", 1)
	return nil
}

// RotateCounterClockwise implements lock.Actuator.
func (m *Mechanism) RotateCounterClockwise() error {
	m.command("ccw", -1)
	return nil
}

// Stop implements lock.Actuator.
func (m *Mechanism) Stop() error {
	m.command("stop", 0)
	return nil
}

// Stalled implements lock.Actuator.
func (m *Mechanism) Stalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.ReportStall && m.drive != 0 && m.blocked
}

// Value implements lock.DigitalInput: 1 away from neutral, 0 at neutral.
func (m *Mechanism) Value() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := math.Mod(m.pos, 360)
	if d < 0 {
		d += 360
	}
	if d > 180 {
		d = 360 - d
	}
	if d > m.cfg.NeutralWidth {
		return 1, nil
	}
	return 0, nil
}

// Position returns the cylinder position in turns from locked.
func (m *Mechanism) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos / 360
}

// Jam stops the cylinder from turning while the motor runs.
func (m *Mechanism) Jam(jammed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jammed = jammed
}

// Running reports whether the motor is driven.
func (m *Mechanism) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drive != 0
}

// Commands returns the motor commands received so far.
func (m *Mechanism) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.commands...)
}

// Close stops the simulation.
func (m *Mechanism) Close() error {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
	<-m.done
	return nil
}
