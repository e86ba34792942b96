package indicator

import (
	"fmt"

	"github.com/hjkoskel/govattu"

	"golock/lock"
)

type pinWriter interface {
	PinSet(pin uint8)
	PinClear(pin uint8)
}

type vattuPins struct {
	hw govattu.Vattu
}

func (v *vattuPins) PinSet(pin uint8)   { v.hw.PinSet(pin) }
func (v *vattuPins) PinClear(pin uint8) { v.hw.PinClear(pin) }

// GPIO implements Indicator using discrete GPIO LED pins: red for locked,
// green for unlocked, yellow while turning.
type GPIO struct {
	hw        pinWriter
	close     func() error
	greenPin  *uint8
	yellowPin *uint8
	redPin    *uint8
}

// NewGPIO creates a new GPIO-based indicator.
func NewGPIO(greenPin, yellowPin, redPin *uint8) (*GPIO, error) {
	hw, err := govattu.Open()
	if err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	// Initialize all pins as outputs, start off
	for _, pin := range []*uint8{greenPin, yellowPin, redPin} {
		if pin != nil {
			hw.PinMode(*pin, govattu.ALToutput)
			hw.PinClear(*pin)
		}
	}

	return &GPIO{
		hw:        &vattuPins{hw},
		close:     hw.Close,
		greenPin:  greenPin,
		yellowPin: yellowPin,
		redPin:    redPin,
	}, nil
}

// Uninitialized implements Indicator.Uninitialized.
func (g *GPIO) Uninitialized() {
	g.show(g.yellowPin, g.greenPin)
}

// Locked implements Indicator.Locked.
func (g *GPIO) Locked() {
	g.show(g.redPin)
}

// Unlocked implements Indicator.Unlocked.
func (g *GPIO) Unlocked() {
	g.show(g.greenPin)
}

// Working implements Indicator.Working.
func (g *GPIO) Working() {
	g.show(g.yellowPin)
}

// Fault implements Indicator.Fault.
func (g *GPIO) Fault(flags lock.ErrorFlags) {
	g.show(g.redPin, g.yellowPin, g.greenPin)
}

// ConnectionLost implements Indicator.ConnectionLost.
func (g *GPIO) ConnectionLost() {
	g.show(g.yellowPin, g.redPin)
}

// Shutdown implements Indicator.Shutdown.
func (g *GPIO) Shutdown() {
	g.show()
}

// Release implements Indicator.Release.
func (g *GPIO) Release() error {
	g.show()
	if g.close == nil {
		return nil
	}
	return g.close()
}

// show lights exactly the given pins.
func (g *GPIO) show(on ...*uint8) {
	for _, pin := range []*uint8{g.greenPin, g.yellowPin, g.redPin} {
		if pin != nil {
			g.hw.PinClear(*pin)
		}
	}
	for _, pin := range on {
		if pin != nil {
			g.hw.PinSet(*pin)
		}
	}
}
