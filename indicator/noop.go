package indicator

import "golock/lock"

// Noop implements Indicator but does nothing.
// Used when no indicators are configured.
type Noop struct{}

// Uninitialized implements Indicator.Uninitialized.
func (n *Noop) Uninitialized() {}

// Locked implements Indicator.Locked.
func (n *Noop) Locked() {}

// Unlocked implements Indicator.Unlocked.
func (n *Noop) Unlocked() {}

// Working implements Indicator.Working.
func (n *Noop) Working() {}

// Fault implements Indicator.Fault.
func (n *Noop) Fault(flags lock.ErrorFlags) {}

// ConnectionLost implements Indicator.ConnectionLost.
func (n *Noop) ConnectionLost() {}

// Shutdown implements Indicator.Shutdown.
func (n *Noop) Shutdown() {}

// Release implements Indicator.Release.
func (n *Noop) Release() error {
	return nil
}
