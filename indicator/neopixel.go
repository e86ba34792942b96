package indicator

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golock/lock"
)

// Neopixel command strings for the external neopixel tool.
const (
	neoConnectionLost = "@2 !150000 001010"
	neoUninitialized  = "@3 !150000 404000"
	neoLocked         = "@0 400000"
	neoUnlocked       = "@0 004000"
	neoWorking        = "@1 !50000 8000"
	neoFault          = "@2 !10000 ff"
	neoTerminated     = "@0 010101"
)

// Neopixel implements Indicator using an external neopixel tool via named pipe.
type Neopixel struct {
	mu   sync.Mutex
	pipe io.WriteCloser
}

// NewNeopixel creates a new Neopixel indicator.
func NewNeopixel(pipePath string) (*Neopixel, error) {
	f, err := os.OpenFile(pipePath, os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open neopixel pipe %s: %w", pipePath, err)
	}
	return &Neopixel{pipe: f}, nil
}

// Uninitialized implements Indicator.Uninitialized.
func (n *Neopixel) Uninitialized() {
	n.write(neoUninitialized)
}

// Locked implements Indicator.Locked.
func (n *Neopixel) Locked() {
	n.write(neoLocked)
}

// Unlocked implements Indicator.Unlocked.
func (n *Neopixel) Unlocked() {
	n.write(neoUnlocked)
}

// Working implements Indicator.Working.
func (n *Neopixel) Working() {
	n.write(neoWorking)
}

// Fault implements Indicator.Fault.
func (n *Neopixel) Fault(flags lock.ErrorFlags) {
	n.write(neoFault)
}

// ConnectionLost implements Indicator.ConnectionLost.
func (n *Neopixel) ConnectionLost() {
	n.write(neoConnectionLost)
}

// Shutdown implements Indicator.Shutdown.
func (n *Neopixel) Shutdown() {
	n.write(neoTerminated)
}

// Release implements Indicator.Release.
func (n *Neopixel) Release() error {
	if n.pipe == nil {
		return nil
	}
	return n.pipe.Close()
}

func (n *Neopixel) write(s string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pipe != nil {
		n.pipe.Write([]byte(s))
	}
}
