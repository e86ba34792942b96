package lock

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfiguration      = errors.New("invalid lock configuration")
	ErrCannotFindNeutralPosition = errors.New("cannot find neutral position of lock")
	ErrLockInError               = errors.New("lock is in error state")
	ErrNotInitialized            = errors.New("lock is not initialized")
	ErrHardwareFailure           = errors.New("lock hardware failure")
	ErrStalled                   = errors.New("lock stalled")
	ErrOutsideOfBounds           = errors.New("lock rotated outside of bounds")
)

// Err returns the error matching the most severe flag set, or nil.
func (f ErrorFlags) Err() error {
	switch {
	case f&HardwareFailure != 0:
		return ErrHardwareFailure
	case f&OutsideOfBounds != 0:
		return ErrOutsideOfBounds
	case f&Stalled != 0:
		return ErrStalled
	}
	return nil
}

// flagsFor maps an error raised during motion to the flags it sets.
func flagsFor(err error) ErrorFlags {
	var f ErrorFlags
	if errors.Is(err, ErrStalled) {
		f |= Stalled
	}
	if errors.Is(err, ErrOutsideOfBounds) {
		f |= OutsideOfBounds
	}
	if errors.Is(err, ErrHardwareFailure) || f == 0 {
		f |= HardwareFailure
	}
	return f
}

// hardware tags an actuator or sensor error as a hardware failure.
func hardware(op string, err error) error {
	if errors.Is(err, ErrHardwareFailure) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrHardwareFailure, err)
}
