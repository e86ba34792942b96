// Package rotation tracks how far the lock shaft has turned.
//
// Sensors feed a Counter from their own goroutines (GPIO event handlers,
// samplers); consumers read the cumulative position without locking.
package rotation

import (
	"errors"
	"math"
	"sync"

	"go.uber.org/atomic"
)

// ErrNotSupported is returned by the sensor constructors on platforms without
// GPIO character devices.
var ErrNotSupported = errors.New("rotation sensor not supported on this platform")

// Trigger selects which events are delivered to a Handler.
type Trigger uint8

const (
	// TriggerRotationChange fires on every position update with the new degrees.
	TriggerRotationChange Trigger = 1 << iota
	// TriggerFullRotation fires when the rotation count crosses an integer
	// boundary, with the new rotation count.
	TriggerFullRotation
)

// Handler receives detector events. It is called from the sensor's
// goroutine and must not block.
type Handler func(trigger Trigger, value float64)

// Detector is the interface for all rotation sensors.
type Detector interface {
	// Degrees returns the cumulative signed rotation in degrees.
	Degrees() float64

	// Rotations returns Degrees()/360.
	Rotations() float64

	// Reset sets the position to zero.
	Reset()

	// SetDegrees sets the position.
	SetDegrees(degrees float64)

	// SetDirection sets the sign (+1 or -1) applied to sensed movement.
	SetDirection(direction int)

	// SetHandler registers the event handler, replacing any previous one.
	SetHandler(h Handler, trigger Trigger)
}

// Counter holds the cumulative position shared by all sensor variants.
type Counter struct {
	degrees   atomic.Float64
	direction atomic.Int32

	mu      sync.Mutex // guards handler and trigger
	handler Handler
	trigger Trigger
}

// NewCounter returns a Counter at zero counting in the positive direction.
func NewCounter() *Counter {
	c := &Counter{}
	c.direction.Store(1)
	return c
}

// Degrees implements Detector.Degrees.
func (c *Counter) Degrees() float64 {
	return c.degrees.Load()
}

// Rotations implements Detector.Rotations.
func (c *Counter) Rotations() float64 {
	return c.degrees.Load() / 360.0
}

// Reset implements Detector.Reset.
func (c *Counter) Reset() {
	c.degrees.Store(0)
}

// SetDegrees implements Detector.SetDegrees.
func (c *Counter) SetDegrees(degrees float64) {
	c.degrees.Store(degrees)
}

// SetDirection implements Detector.SetDirection. Any value below zero
// selects the negative direction.
func (c *Counter) SetDirection(direction int) {
	if direction < 0 {
		c.direction.Store(-1)
		return
	}
	c.direction.Store(1)
}

// Direction returns the current sign applied to updates.
func (c *Counter) Direction() int {
	return int(c.direction.Load())
}

// SetHandler implements Detector.SetHandler.
func (c *Counter) SetHandler(h Handler, trigger Trigger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
	c.trigger = trigger
}

// Update moves the position by delta degrees in the current direction and
// delivers the matching events.
func (c *Counter) Update(delta float64) {
	step := delta * float64(c.direction.Load())
	after := c.degrees.Add(step)
	before := after - step

	c.mu.Lock()
	h, trigger := c.handler, c.trigger
	c.mu.Unlock()
	if h == nil {
		return
	}

	if trigger&TriggerRotationChange != 0 {
		h(TriggerRotationChange, after)
	}
	if trigger&TriggerFullRotation != 0 && math.Floor(before/360.0) != math.Floor(after/360.0) {
		h(TriggerFullRotation, after/360.0)
	}
}
