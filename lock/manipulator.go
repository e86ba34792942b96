// Package lock drives a physical lock between its locked and unlocked
// positions and reports the position state to an observer.
package lock

import (
	"context"
	"fmt"
	"log"

	"go.uber.org/atomic"
)

// Manipulator is the interface exposed to controllers (MQTT, event pipe).
type Manipulator interface {
	// Init validates cfg and establishes the starting state. When
	// cfg.InitialState is Uninitialized the lock is calibrated physically.
	Init(ctx context.Context, cfg Config) error

	// Lock starts locking. It is a no-op if the lock is locked or locking.
	Lock() error

	// Unlock starts unlocking. It is a no-op if the lock is unlocked or unlocking.
	Unlock() error

	// LockState returns the current state.
	LockState() State

	// LockError returns the accumulated error flags.
	LockError() ErrorFlags

	// LastState and LastError return the same values as LockState and
	// LockError without waiting for a running operation. Observers must use
	// these: they are called with the manipulator's lock held.
	LastState() State
	LastError() ErrorFlags

	// SetObserver registers the state change callback, replacing any previous one.
	SetObserver(o Observer)
}

// Observer is called synchronously, in order, on every state transition.
type Observer func(state State, flags ErrorFlags, m Manipulator)

// Config holds the calibrated travel of a lock.
type Config struct {
	Rotations    int       `yaml:"rotations" env:"ROTATIONS"` // full turns between locked and unlocked
	InitialState State     `yaml:"initial_state" env:"INITIAL_STATE"`
	Direction    Direction `yaml:"direction" env:"DIRECTION"` // rotation sense that locks
}

// Validate checks the configuration without touching any lock.
func (c Config) Validate() error {
	if c.Rotations < 1 || c.Rotations > 10 {
		return fmt.Errorf("%w: rotations must be between 1 and 10, got %d", ErrInvalidConfiguration, c.Rotations)
	}
	switch c.InitialState {
	case Uninitialized, Locked, Unlocked:
	default:
		return fmt.Errorf("%w: initial state must be uninitialized, locked or unlocked, got %v", ErrInvalidConfiguration, c.InitialState)
	}
	if c.Direction != Clockwise && c.Direction != CounterClockwise {
		return fmt.Errorf("%w: direction must be cw or ccw, got %v", ErrInvalidConfiguration, c.Direction)
	}
	return nil
}

// Base holds the configuration, state and observer shared by manipulators.
// State and flags are mirrored in atomics so LastState and LastError never
// block; writers must hold the owning manipulator's lock.
type Base struct {
	cfg      Config
	state    atomic.Int32
	flags    atomic.Uint32
	observer atomic.Pointer[Observer]
	self     Manipulator
}

// SetObserver implements Manipulator.SetObserver.
func (b *Base) SetObserver(o Observer) {
	if o == nil {
		b.observer.Store(nil)
		return
	}
	b.observer.Store(&o)
}

// LastState returns the last known state without waiting for a running
// operation.
func (b *Base) LastState() State {
	return State(b.state.Load())
}

// LastError returns the last known error flags without waiting for a
// running operation.
func (b *Base) LastError() ErrorFlags {
	return ErrorFlags(b.flags.Load())
}

// Config returns the configuration accepted by the last Init. Readers must
// hold the owning manipulator's lock.
func (b *Base) Config() Config {
	return b.cfg
}

func (b *Base) setState(s State) {
	b.state.Store(int32(s))
}

func (b *Base) addError(f ErrorFlags) {
	b.flags.Store(b.flags.Load() | uint32(f))
}

func (b *Base) notify() {
	state, flags := b.LastState(), b.LastError()
	if state == Error {
		log.Printf("lock: %v (%v)", state, flags)
	} else {
		log.Printf("lock: %v", state)
	}
	if o := b.observer.Load(); o != nil {
		(*o)(state, flags, b.self)
	}
}

// configure stores a validated configuration and clears the error flags. From
// Uninitialized the observer is told once before calibrate runs.
func (b *Base) configure(cfg Config, calibrate func() error) error {
	b.cfg = cfg
	b.flags.Store(0)
	b.setState(cfg.InitialState)
	if cfg.InitialState != Uninitialized {
		return nil
	}
	b.notify()
	return calibrate()
}
