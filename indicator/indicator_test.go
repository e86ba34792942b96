package indicator

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"

	"golock/lock"
)

type fakePins struct {
	on map[uint8]bool
}

func (f *fakePins) PinSet(pin uint8)   { f.on[pin] = true }
func (f *fakePins) PinClear(pin uint8) { f.on[pin] = false }

func (f *fakePins) lit() []uint8 {
	var out []uint8
	for pin := uint8(0); pin < 32; pin++ {
		if f.on[pin] {
			out = append(out, pin)
		}
	}
	return out
}

func pin(n uint8) *uint8 { return &n }

func TestGPIOShow(t *testing.T) {
	const green, yellow, red = 17, 27, 22
	for _, test := range []struct {
		state lock.State
		flags lock.ErrorFlags
		want  []uint8
	}{
		{lock.Uninitialized, 0, []uint8{green, yellow}},
		{lock.Locked, 0, []uint8{red}},
		{lock.Unlocked, 0, []uint8{green}},
		{lock.WorkingLocking, 0, []uint8{yellow}},
		{lock.WorkingUnlocking, 0, []uint8{yellow}},
		{lock.Error, lock.Stalled, []uint8{green, red, yellow}},
	} {
		t.Run(test.state.String(), func(t *testing.T) {
			pins := &fakePins{on: map[uint8]bool{}}
			g := &GPIO{hw: pins, greenPin: pin(green), yellowPin: pin(yellow), redPin: pin(red)}
			// Start with everything lit to check that show clears.
			g.Fault(0)
			Show(g, test.state, test.flags)
			if diff := cmp.Diff(test.want, pins.lit()); diff != "" {
				t.Errorf("unexpected LEDs: want(-)/got(+):\n%s", diff)
			}
		})
	}
}

type pipe struct {
	strings.Builder
	closeErr error
}

func (p *pipe) Close() error { return p.closeErr }

func TestNeopixelAndMulti(t *testing.T) {
	a, b := &pipe{}, &pipe{closeErr: errors.New("busy")}
	m := NewMulti(&Neopixel{pipe: a}, &Neopixel{pipe: b}, &Noop{})

	for _, s := range []lock.State{lock.Uninitialized, lock.Locked, lock.WorkingUnlocking, lock.Unlocked} {
		Show(m, s, 0)
	}
	m.Shutdown()

	want := neoUninitialized + neoLocked + neoWorking + neoUnlocked + neoTerminated
	for i, p := range []*pipe{a, b} {
		if got := p.String(); got != want {
			t.Errorf("pipe %d got %q, want %q", i, got, want)
		}
	}

	err := m.Release()
	if n := len(multierr.Errors(err)); n != 1 {
		t.Errorf("Release() = %v, want one error", err)
	}
	if !strings.Contains(fmt.Sprint(err), "busy") {
		t.Errorf("Release() = %v, want the pipe error", err)
	}
}
