package lock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"
)

// heldLock stands in for m.mu when the caller already holds it.
type heldLock struct{}

func (heldLock) Lock()   {}
func (heldLock) Unlock() {}

// determineState finds the position of a lock with no known state. It
// sweeps toward locked until the full travel is made or the lock stops
// moving, then back toward unlocked until the neutral sensor is reached.
// If the first sweep made (nearly) the full travel the lock started
// unlocked, and it is returned to unlocked before Init completes.
// Must hold m.mu.
func (m *StartStop) determineState(ctx context.Context) error {
	err := m.calibrate(ctx)
	if err == nil {
		return nil
	}
	if stopErr := m.act.Stop(); stopErr != nil {
		log.Printf("lock: stop motor: %v", stopErr)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if m.LastState() != Uninitialized {
			m.setState(Uninitialized)
			m.notify()
		}
		return err
	}
	if m.LastState() != Error && !errors.Is(err, ErrCannotFindNeutralPosition) {
		m.markError(flagsFor(err))
	}
	return err
}

func (m *StartStop) calibrate(ctx context.Context) error {
	target := float64(m.cfg.Rotations)

	m.det.Reset()
	log.Printf("lock: calibrating, sweeping toward locked")
	if err := m.rotateToLock(); err != nil {
		return hardware("calibrate", err)
	}
	if err := m.sweep(ctx, target, false); err != nil {
		return err
	}
	if err := m.act.Stop(); err != nil {
		return hardware("calibrate", err)
	}
	if err := sleep(ctx, m.timing.Settle); err != nil {
		return err
	}
	made := math.Abs(m.det.Rotations())

	m.det.Reset()
	log.Printf("lock: made %.2f rotations, searching for neutral", made)
	if err := m.rotateToUnlock(); err != nil {
		return hardware("calibrate", err)
	}
	if err := m.sweep(ctx, 1, true); err != nil {
		return err
	}
	if err := m.act.Stop(); err != nil {
		return hardware("calibrate", err)
	}
	if back := math.Abs(m.det.Rotations()); back > 1 {
		return fmt.Errorf("%w: moved %.2f rotations", ErrCannotFindNeutralPosition, back)
	}

	if err := m.recenter(ctx, false); err != nil {
		return err
	}
	m.setState(Locked)
	m.det.Reset()
	m.notify()

	if made < target-m.timing.NearTarget {
		return nil
	}

	m.setState(WorkingUnlocking)
	m.notify()
	if err := m.rotateToUnlock(); err != nil {
		return hardware("calibrate", err)
	}
	return m.watch(ctx, nil, heldLock{}, m.cfg)
}

// sweep drives until the count reaches limit rotations, the lock stops
// moving, or (with untilNeutral) the neutral sensor is reached.
func (m *StartStop) sweep(ctx context.Context, limit float64, untilNeutral bool) error {
	last := m.det.Rotations()
	moved := time.Now()
	for math.Abs(m.det.Rotations()) < limit {
		if m.act.Stalled() || time.Since(moved) > m.timing.StallTimeout {
			return nil
		}
		if untilNeutral {
			neutral, err := m.atNeutral()
			if err != nil {
				return err
			}
			if neutral {
				return nil
			}
		}
		if err := sleep(ctx, m.timing.CalibrationPoll); err != nil {
			return err
		}
		if pos := m.det.Rotations(); pos != last {
			last, moved = pos, time.Now()
		}
	}
	return nil
}
