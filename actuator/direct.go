package actuator

import (
	"fmt"
	"sync"
	"time"

	"github.com/hjkoskel/govattu"
	"github.com/warthog618/gpio"

	"golock/gpiomem"
)

// Output is a digital output driving one side of an H-bridge.
type Output interface {
	SetValue(v int) error
}

// DirectDrive implements lock.Actuator with two outputs, one per
// direction. Stalls cannot be sensed.
type DirectDrive struct {
	mu       sync.Mutex
	cw, ccw  Output
	deadTime time.Duration
	release  func() error
}

// NewDirectDrive returns a stopped DirectDrive. Before an output is set the
// opposite one is cleared and deadTime elapses, so the bridge is never
// shorted.
func NewDirectDrive(cw, ccw Output, deadTime time.Duration) *DirectDrive {
	if deadTime <= 0 {
		deadTime = time.Millisecond
	}
	return &DirectDrive{cw: cw, ccw: ccw, deadTime: deadTime}
}

// Init implements lock.Initializer.
func (d *DirectDrive) Init() error {
	return d.Stop()
}

// RotateClockwise implements lock.Actuator.
func (d *DirectDrive) RotateClockwise() error {
	return d.drive(d.ccw, d.cw)
}

// RotateCounterClockwise implements lock.Actuator.
func (d *DirectDrive) RotateCounterClockwise() error {
	return d.drive(d.cw, d.ccw)
}

func (d *DirectDrive) drive(off, on Output) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := off.SetValue(0); err != nil {
		return err
	}
	time.Sleep(d.deadTime)
	return on.SetValue(1)
}

// Stop implements lock.Actuator.
func (d *DirectDrive) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ccw.SetValue(0); err != nil {
		return err
	}
	return d.cw.SetValue(0)
}

// Stalled implements lock.Actuator.
func (d *DirectDrive) Stalled() bool {
	return false
}

// Release implements Actuator.Release.
func (d *DirectDrive) Release() error {
	err := d.Stop()
	if d.release != nil {
		if rerr := d.release(); err == nil {
			err = rerr
		}
	}
	return err
}

// vattuPin is an Output on the BCM2835 registers through govattu.
type vattuPin struct {
	hw  govattu.Vattu
	pin uint8
}

func (p vattuPin) SetValue(v int) error {
	if v != 0 {
		p.hw.PinSet(p.pin)
	} else {
		p.hw.PinClear(p.pin)
	}
	return nil
}

func openVattu(cwPin, ccwPin int) (Output, Output, func() error, error) {
	hw, err := govattu.Open()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open gpio: %w", err)
	}
	cw := vattuPin{hw: hw, pin: uint8(cwPin)}
	ccw := vattuPin{hw: hw, pin: uint8(ccwPin)}
	for _, p := range []vattuPin{cw, ccw} {
		hw.PinMode(p.pin, govattu.ALToutput)
		p.hw.PinClear(p.pin)
	}
	return cw, ccw, hw.Close, nil
}

// memPin is an Output on /dev/gpiomem through warthog618/gpio.
type memPin struct {
	*gpio.Pin
}

func (p memPin) SetValue(v int) error {
	if v != 0 {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

func openGPIOMem(cwPin, ccwPin int) (Output, Output, func() error, error) {
	if err := gpiomem.Open(); err != nil {
		return nil, nil, nil, fmt.Errorf("open gpiomem: %w", err)
	}
	cw := memPin{gpio.NewPin(cwPin)}
	ccw := memPin{gpio.NewPin(ccwPin)}
	for _, p := range []memPin{cw, ccw} {
		p.Output()
		p.Low()
	}
	return cw, ccw, gpiomem.Close, nil
}
