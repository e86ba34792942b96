package lock

import (
	"fmt"
	"strings"
)

// State is the position state of a lock.
type State int

const (
	Uninitialized    State = 0
	Locked           State = 1
	Unlocked         State = 2
	WorkingLocking   State = 3
	WorkingUnlocking State = 4
	Error            State = 100 // sticky until the next Init
)

var stateNames = map[State]string{
	Uninitialized:    "uninitialized",
	Locked:           "locked",
	Unlocked:         "unlocked",
	WorkingLocking:   "locking",
	WorkingUnlocking: "unlocking",
	Error:            "error",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Working reports whether a motion is in progress.
func (s State) Working() bool {
	return s == WorkingLocking || s == WorkingUnlocking
}

// ParseState converts a state name back to a State.
func ParseState(name string) (State, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range stateNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown lock state %q", name)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	v, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ErrorFlags accumulates runtime failures while the lock is in Error.
type ErrorFlags uint8

const (
	Stalled         ErrorFlags = 1 << iota // no movement sensed, or the actuator reported a stall
	OutsideOfBounds                        // rotation passed the target plus tolerance
	HardwareFailure                        // actuator did not accept a command
)

func (f ErrorFlags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	if f&Stalled != 0 {
		parts = append(parts, "stalled")
	}
	if f&OutsideOfBounds != 0 {
		parts = append(parts, "outside-of-bounds")
	}
	if f&HardwareFailure != 0 {
		parts = append(parts, "hardware-failure")
	}
	return strings.Join(parts, "|")
}

// Direction is the rotation sense that locks the lock.
type Direction int

const (
	Clockwise        Direction = 1
	CounterClockwise Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Clockwise:
		return "cw"
	case CounterClockwise:
		return "ccw"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection accepts "cw"/"clockwise" and "ccw"/"counterclockwise".
func ParseDirection(name string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cw", "clockwise":
		return Clockwise, nil
	case "ccw", "counterclockwise", "counter-clockwise", "anticlockwise":
		return CounterClockwise, nil
	}
	return 0, fmt.Errorf("unknown lock direction %q", name)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	v, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
