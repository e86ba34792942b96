// Package controlpad reads the lock and unlock push buttons mounted on the
// inside of the door.
package controlpad

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/warthog618/gpio"

	"golock/gpiomem"
)

// Config holds the button pins. A nil pin disables that button.
type Config struct {
	LockPin    *int `yaml:"lock_pin"`
	UnlockPin  *int `yaml:"unlock_pin"`
	DebounceMs int  `yaml:"debounce_ms"`
}

// Handlers holds callback functions for button presses.
type Handlers struct {
	OnLock   func()
	OnUnlock func()
}

// Pad watches the buttons. Callbacks run on the gpio watcher goroutine.
type Pad struct {
	handlers Handlers
	debounce time.Duration
	pins     []*gpio.Pin

	mu   sync.Mutex
	last map[int]time.Time
}

// New opens the gpio memory, shared with gpiomem motor outputs, and starts
// watching the configured buttons.
// Returns nil if no button is configured.
func New(cfg Config, handlers Handlers) (*Pad, error) {
	if cfg.LockPin == nil && cfg.UnlockPin == nil {
		return nil, nil
	}

	if err := gpiomem.Open(); err != nil {
		return nil, fmt.Errorf("open gpio: %w", err)
	}

	p := newPad(handlers, time.Duration(cfg.DebounceMs)*time.Millisecond)
	for _, b := range []struct {
		pin    *int
		action func()
	}{
		{cfg.LockPin, handlers.OnLock},
		{cfg.UnlockPin, handlers.OnUnlock},
	} {
		if b.pin == nil {
			continue
		}
		n, action := *b.pin, b.action
		pin := gpio.NewPin(n)
		pin.Input()
		pin.PullUp()
		if err := pin.Watch(gpio.EdgeFalling, func(*gpio.Pin) { p.press(n, action) }); err != nil {
			p.Release()
			return nil, fmt.Errorf("watch button %d: %w", n, err)
		}
		p.pins = append(p.pins, pin)
	}
	return p, nil
}

func newPad(handlers Handlers, debounce time.Duration) *Pad {
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	return &Pad{handlers: handlers, debounce: debounce, last: make(map[int]time.Time)}
}

// press runs action unless pin was pressed within the debounce interval.
func (p *Pad) press(pin int, action func()) {
	p.mu.Lock()
	now := time.Now()
	if t, ok := p.last[pin]; ok && now.Sub(t) < p.debounce {
		p.mu.Unlock()
		return
	}
	p.last[pin] = now
	p.mu.Unlock()

	log.Printf("controlpad: button %d pressed", pin)
	if action != nil {
		action()
	}
}

// Release stops watching the buttons and releases its use of the gpio memory.
func (p *Pad) Release() error {
	for _, pin := range p.pins {
		pin.Unwatch()
	}
	p.pins = nil
	return gpiomem.Close()
}
