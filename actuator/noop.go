package actuator

// Noop implements Actuator but does nothing.
// Used when no motor is configured.
type Noop struct{}

// RotateClockwise implements lock.Actuator.
func (n *Noop) RotateClockwise() error {
	return nil
}

// RotateCounterClockwise implements lock.Actuator.
func (n *Noop) RotateCounterClockwise() error {
	return nil
}

// Stop implements lock.Actuator.
func (n *Noop) Stop() error {
	return nil
}

// Stalled implements lock.Actuator.
func (n *Noop) Stalled() bool {
	return false
}

// Release implements Actuator.Release.
func (n *Noop) Release() error {
	return nil
}
