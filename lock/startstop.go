package lock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"golock/rotation"
)

// Actuator is the interface for motor drivers.
type Actuator interface {
	RotateClockwise() error
	RotateCounterClockwise() error
	Stop() error

	// Stalled reports a stall detected by the driver itself.
	Stalled() bool
}

// Initializer is implemented by actuators and detectors that need
// preparing on every Init.
type Initializer interface {
	Init() error
}

// DigitalInput is the neutral position sensor: 1 while the lock is away
// from neutral, 0 at neutral.
type DigitalInput interface {
	Value() (int, error)
}

// Timing holds the polling intervals and tolerances of a StartStop.
type Timing struct {
	Poll            time.Duration // monitor interval
	CalibrationPoll time.Duration // interval while calibrating
	SensorPoll      time.Duration // neutral sensor interval while recentering
	Settle          time.Duration // wait for the mechanism to come to rest
	StallTimeout    time.Duration // longest time without sensed movement
	Overshoot       float64       // rotations allowed beyond the target
	NearTarget      float64       // calibration sweep short of target still counts as locked
}

// DefaultTiming is tuned for a door lock cylinder turned by a geared motor.
var DefaultTiming = Timing{
	Poll:            10 * time.Millisecond,
	CalibrationPoll: 5 * time.Millisecond,
	SensorPoll:      time.Millisecond,
	Settle:          1500 * time.Millisecond,
	StallTimeout:    2500 * time.Millisecond,
	Overshoot:       0.7,
	NearTarget:      0.5,
}

// Option configures a StartStop.
type Option func(*StartStop)

// WithTiming replaces DefaultTiming. Zero fields keep their default.
func WithTiming(t Timing) Option {
	return func(m *StartStop) {
		if t.Poll > 0 {
			m.timing.Poll = t.Poll
		}
		if t.CalibrationPoll > 0 {
			m.timing.CalibrationPoll = t.CalibrationPoll
		}
		if t.SensorPoll > 0 {
			m.timing.SensorPoll = t.SensorPoll
		}
		if t.Settle > 0 {
			m.timing.Settle = t.Settle
		}
		if t.StallTimeout > 0 {
			m.timing.StallTimeout = t.StallTimeout
		}
		if t.Overshoot > 0 {
			m.timing.Overshoot = t.Overshoot
		}
		if t.NearTarget > 0 {
			m.timing.NearTarget = t.NearTarget
		}
	}
}

// task is the handle of a running monitor goroutine.
type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartStop drives a lock with a motor that can only be started and
// stopped, measuring travel with a rotation detector.
//
// The rotation count is an absolute coordinate: 0 is the locked position
// and Rotations turns in the unlocking sense is the unlocked position.
type StartStop struct {
	Base
	act    Actuator
	det    rotation.Detector
	zero   DigitalInput
	timing Timing

	mu   sync.Mutex // guards state changes, flags, cfg and task
	task *task
}

// NewStartStop creates an uninitialised manipulator. Init must be called
// before Lock or Unlock.
func NewStartStop(act Actuator, det rotation.Detector, zero DigitalInput, opts ...Option) *StartStop {
	m := &StartStop{
		act:    act,
		det:    det,
		zero:   zero,
		timing: DefaultTiming,
	}
	m.self = m
	for _, o := range opts {
		o(m)
	}
	return m
}

// Init implements Manipulator.Init. A motion in progress is abandoned
// without notification.
func (m *StartStop) Init(ctx context.Context, cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := cfg.Validate(); err != nil {
		return err
	}

	if i, ok := m.det.(Initializer); ok {
		if err := i.Init(); err != nil {
			return fmt.Errorf("init rotation detector: %w", err)
		}
	}
	m.det.Reset()
	if m.task != nil {
		m.cancelTask()
		if err := m.act.Stop(); err != nil {
			log.Printf("lock: stop motor: %v", err)
		}
	}

	if i, ok := m.act.(Initializer); ok {
		if err := i.Init(); err != nil {
			m.cfg = cfg
			m.flags.Store(0)
			m.markError(HardwareFailure)
			return hardware("init actuator", err)
		}
	}

	err := m.configure(cfg, func() error { return m.determineState(ctx) })
	if err != nil {
		return err
	}
	if cfg.InitialState == Unlocked {
		m.det.SetDegrees(float64(m.unlockSign()*cfg.Rotations) * 360)
	}
	return nil
}

// LockState implements Manipulator.LockState.
func (m *StartStop) LockState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LastState()
}

// Config returns the configuration accepted by the last Init. It waits for
// a running Init, so observers must not call it.
func (m *StartStop) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// LockError implements Manipulator.LockError.
func (m *StartStop) LockError() ErrorFlags {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LastError()
}

// Lock implements Manipulator.Lock.
func (m *StartStop) Lock() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.LastState() {
	case Error:
		return ErrLockInError
	case Uninitialized:
		return ErrNotInitialized
	case Locked, WorkingLocking:
		return nil
	}
	return m.begin(WorkingLocking)
}

// Unlock implements Manipulator.Unlock.
func (m *StartStop) Unlock() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.LastState() {
	case Error:
		return ErrLockInError
	case Uninitialized:
		return ErrNotInitialized
	case Unlocked, WorkingUnlocking:
		return nil
	}
	return m.begin(WorkingUnlocking)
}

// Wait blocks until no monitor is running or ctx is done.
func (m *StartStop) Wait(ctx context.Context) error {
	for {
		m.mu.Lock()
		t := m.task
		m.mu.Unlock()
		if t == nil {
			return nil
		}
		select {
		case <-t.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close abandons any motion in progress and stops the motor.
func (m *StartStop) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelTask()
	return m.act.Stop()
}

// begin enters a working state and starts the motor. Must hold m.mu.
func (m *StartStop) begin(working State) error {
	m.setState(working)
	m.notify()

	var err error
	if working == WorkingLocking {
		err = m.rotateToLock()
	} else {
		err = m.rotateToUnlock()
	}
	if err != nil {
		m.markError(HardwareFailure)
		return hardware("start motor", err)
	}

	if m.task == nil {
		m.task = m.spawn(m.cfg)
	}
	return nil
}

func (m *StartStop) spawn(cfg Config) *task {
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		if err := m.watch(ctx, t, &m.mu, cfg); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("lock: monitor: %v", err)
		}
	}()
	return t
}

// cancelTask drops the monitor handle. Must hold m.mu.
func (m *StartStop) cancelTask() {
	if m.task != nil {
		m.task.cancel()
		m.task = nil
	}
}

// lockSign is the detector direction while locking.
func (m *StartStop) lockSign() int {
	if m.cfg.Direction == CounterClockwise {
		return -1
	}
	return 1
}

func (m *StartStop) unlockSign() int {
	return -m.lockSign()
}

func (m *StartStop) rotateToLock() error {
	m.det.SetDirection(m.lockSign())
	if m.cfg.Direction == CounterClockwise {
		return m.act.RotateCounterClockwise()
	}
	return m.act.RotateClockwise()
}

func (m *StartStop) rotateToUnlock() error {
	m.det.SetDirection(m.unlockSign())
	if m.cfg.Direction == CounterClockwise {
		return m.act.RotateClockwise()
	}
	return m.act.RotateCounterClockwise()
}

// watch supervises one motion until it completes, stalls or overshoots.
// Sensing runs without mu; mu is taken only to check for completion and to
// change state. A watch whose handle is no longer current exits without
// touching state.
func (m *StartStop) watch(ctx context.Context, t *task, mu sync.Locker, cfg Config) error {
	last := math.NaN()
	moved := time.Now()

	ticker := time.NewTicker(m.timing.Poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if m.act.Stalled() || time.Since(moved) > m.timing.StallTimeout {
			return m.abort(t, mu, Stalled, ErrStalled)
		}

		pos := m.det.Rotations()
		if pos == last {
			continue
		}
		if math.Abs(pos) > float64(cfg.Rotations)+m.timing.Overshoot {
			return m.abort(t, mu, OutsideOfBounds, ErrOutsideOfBounds)
		}
		last, moved = pos, time.Now()

		done, err := m.checkFinished(ctx, t, mu, cfg, pos)
		if done {
			return err
		}
	}
}

func (m *StartStop) checkFinished(ctx context.Context, t *task, mu sync.Locker, cfg Config, pos float64) (bool, error) {
	mu.Lock()
	defer mu.Unlock()
	if m.task != t {
		return true, nil
	}

	var next State
	switch state := m.LastState(); {
	case state == WorkingLocking && pos*float64(m.unlockSign()) <= 0:
		next = Locked
	case state == WorkingUnlocking && math.Abs(pos) >= float64(cfg.Rotations):
		next = Unlocked
	default:
		return false, nil
	}
	return true, m.finish(ctx, next)
}

// finish stops the motor, settles the lock at neutral and enters next.
// Must hold mu.
func (m *StartStop) finish(ctx context.Context, next State) error {
	if err := m.act.Stop(); err != nil {
		m.markError(HardwareFailure)
		return hardware("stop motor", err)
	}
	if err := m.recenter(ctx, next == Locked); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		m.markError(flagsFor(err))
		return err
	}
	m.setState(next)
	m.cancelTask()
	m.notify()
	return nil
}

func (m *StartStop) abort(t *task, mu sync.Locker, f ErrorFlags, err error) error {
	mu.Lock()
	defer mu.Unlock()
	if m.task != t {
		return nil
	}
	m.markError(f)
	return err
}

// markError stops the motor and enters Error. Must hold mu.
func (m *StartStop) markError(f ErrorFlags) {
	if err := m.act.Stop(); err != nil {
		log.Printf("lock: stop motor: %v", err)
		f |= HardwareFailure
	}
	m.setState(Error)
	m.addError(f)
	m.cancelTask()
	m.notify()
}

// atNeutral reads the neutral position sensor.
func (m *StartStop) atNeutral() (bool, error) {
	v, err := m.zero.Value()
	if err != nil {
		return false, hardware("read zero sensor", err)
	}
	return v == 0, nil
}

// recenter lets the lock come to rest, then nudges it back and forth until
// the neutral sensor confirms it sits at neutral. The first nudge is toward
// unlocking after a lock and toward locking after an unlock.
func (m *StartStop) recenter(ctx context.Context, forLocking bool) error {
	if err := sleep(ctx, m.timing.Settle); err != nil {
		return err
	}
	towardLock := forLocking
	for {
		neutral, err := m.atNeutral()
		if err != nil {
			return err
		}
		if neutral {
			break
		}

		towardLock = !towardLock
		if towardLock {
			err = m.rotateToLock()
		} else {
			err = m.rotateToUnlock()
		}
		if err != nil {
			return hardware("recenter", err)
		}

		deadline := time.Now().Add(m.timing.StallTimeout)
		for {
			if neutral, err = m.atNeutral(); err != nil || neutral {
				break
			}
			if time.Now().After(deadline) {
				err = fmt.Errorf("recenter: %w", ErrStalled)
				break
			}
			if err = sleep(ctx, m.timing.SensorPoll); err != nil {
				break
			}
		}
		if stopErr := m.act.Stop(); stopErr != nil {
			return hardware("recenter", stopErr)
		}
		if err != nil {
			return err
		}
		if err := sleep(ctx, m.timing.Settle); err != nil {
			return err
		}
	}
	if err := m.act.Stop(); err != nil {
		return hardware("recenter", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
