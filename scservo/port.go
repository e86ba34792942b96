package scservo

import (
	"fmt"
	"time"

	tarm "github.com/tarm/serial"
	bugst "go.bug.st/serial"
)

// PortConfig selects and configures the serial port of a servo bus.
type PortConfig struct {
	Device string `yaml:"device"` // e.g. /dev/ttyS0
	Baud   int    `yaml:"baud"`
	Driver string `yaml:"driver"` // "bugst" (default) or "tarm"
}

// OpenPort opens the configured serial port.
func OpenPort(cfg PortConfig) (Port, error) {
	if cfg.Baud == 0 {
		cfg.Baud = 1000000
	}
	switch cfg.Driver {
	case "", "bugst":
		return openBugst(cfg.Device, cfg.Baud)
	case "tarm":
		return openTarm(cfg.Device, cfg.Baud)
	default:
		return nil, fmt.Errorf("unknown serial driver %q", cfg.Driver)
	}
}

type bugstPort struct {
	bugst.Port
}

func openBugst(device string, baud int) (Port, error) {
	mode := &bugst.Mode{
		BaudRate: baud,
		Parity:   bugst.NoParity,
		DataBits: 8,
		StopBits: bugst.OneStopBit,
	}
	p, err := bugst.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	if err := p.SetReadTimeout(time.Millisecond); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", device, err)
	}
	return bugstPort{p}, nil
}

func (p bugstPort) DiscardInput() error {
	return p.ResetInputBuffer()
}

// tarmPort reads with a timeout of at least 100 ms when the line is idle,
// so a missing reply can take longer than the bus timeout to detect.
type tarmPort struct {
	*tarm.Port
}

func openTarm(device string, baud int) (Port, error) {
	c := &tarm.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: time.Millisecond,
	}
	p, err := tarm.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}
	return tarmPort{p}, nil
}

func (p tarmPort) DiscardInput() error {
	return p.Flush()
}
