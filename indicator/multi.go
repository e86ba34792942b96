package indicator

import (
	"go.uber.org/multierr"

	"golock/lock"
)

// Multi combines multiple Indicator implementations.
type Multi struct {
	indicators []Indicator
}

// NewMulti returns an Indicator driving all of indicators.
func NewMulti(indicators ...Indicator) *Multi {
	return &Multi{indicators: indicators}
}

// Uninitialized implements Indicator.Uninitialized.
func (m *Multi) Uninitialized() {
	for _, ind := range m.indicators {
		ind.Uninitialized()
	}
}

// Locked implements Indicator.Locked.
func (m *Multi) Locked() {
	for _, ind := range m.indicators {
		ind.Locked()
	}
}

// Unlocked implements Indicator.Unlocked.
func (m *Multi) Unlocked() {
	for _, ind := range m.indicators {
		ind.Unlocked()
	}
}

// Working implements Indicator.Working.
func (m *Multi) Working() {
	for _, ind := range m.indicators {
		ind.Working()
	}
}

// Fault implements Indicator.Fault.
func (m *Multi) Fault(flags lock.ErrorFlags) {
	for _, ind := range m.indicators {
		ind.Fault(flags)
	}
}

// ConnectionLost implements Indicator.ConnectionLost.
func (m *Multi) ConnectionLost() {
	for _, ind := range m.indicators {
		ind.ConnectionLost()
	}
}

// Shutdown implements Indicator.Shutdown.
func (m *Multi) Shutdown() {
	for _, ind := range m.indicators {
		ind.Shutdown()
	}
}

// Release implements Indicator.Release.
func (m *Multi) Release() error {
	var err error
	for _, ind := range m.indicators {
		err = multierr.Append(err, ind.Release())
	}
	return err
}
