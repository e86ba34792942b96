package main

import (
	"context"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"golock/eventpipe"
	"golock/lock"
	"golock/mqtt"
	"golock/simulator"
)

// ledLog records the indicator calls.
type ledLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *ledLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *ledLog) last() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.calls) == 0 {
		return ""
	}
	return l.calls[len(l.calls)-1]
}

func (l *ledLog) Uninitialized() { l.add("uninitialized") }
func (l *ledLog) Locked() { l.add("locked") }
func (l *ledLog) Unlocked() { l.add("unlocked") }
func (l *ledLog) Working() { l.add("working") }
func (l *ledLog) Fault(flags lock.ErrorFlags) { l.add("fault " + flags.String()) }
func (l *ledLog) ConnectionLost() { l.add("connection lost") }
func (l *ledLog) Shutdown() { l.add("shutdown") }
func (l *ledLog) Release() error { return nil }

func newBenchApp(t *testing.T, leds *ledLog) *App {
	cfg := &Config{
		ClientID: "bench",
		Lock: LockConfig{
			Config:            lock.Config{Rotations: 2, InitialState: lock.Locked, Direction: lock.CounterClockwise},
			PollMs:            1,
			CalibrationPollMs: 1,
			SettleMs:          2,
			StallTimeoutMs:    200,
		},
		Simulator: simulator.Config{TickMs: 1},
		PingSecs:  120,
	}
	app := &App{cfg: cfg, ctx: context.Background(), indicator: leds}
	app.hw = simulatedHardware(cfg)
	app.lock = lock.NewStartStop(app.hw.Actuator, app.hw.Detector, app.hw.ZeroSensor,
		lock.WithTiming(cfg.Lock.Timing()))
	app.lock.SetObserver(app.onLockState)

	var err error
	app.mqtt, err = mqtt.New(mqtt.Config{}, cfg.ClientID, mqtt.Handlers{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		app.lock.Close()
		app.hw.Release()
	})
	return app
}

func TestBenchApp(t *testing.T) {
	Convey("Given a simulated lock behind the front ends", t, func() {
		leds := &ledLog{}
		app := newBenchApp(t, leds)
		app.initLock(app.cfg.Lock.Config)

		So(app.lock.LastState(), ShouldEqual, lock.Locked)
		So(leds.last(), ShouldEqual, "locked")

		Convey("An unlock command turns the lock and updates the indicator", func() {
			app.execute(eventpipe.Command{Op: eventpipe.OpUnlock})
			So(leds.last(), ShouldEqual, "working")

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			So(app.lock.Wait(ctx), ShouldBeNil)
			So(app.lock.LastState(), ShouldEqual, lock.Unlocked)
			So(leds.last(), ShouldEqual, "unlocked")

			Convey("and a remote lock command turns it back", func() {
				cmd, err := parseRemoteCommand([]byte(`{"command":"lock"}`))
				So(err, ShouldBeNil)
				app.execute(cmd)
				So(app.lock.Wait(ctx), ShouldBeNil)
				So(app.lock.LastState(), ShouldEqual, lock.Locked)
			})
		})

		Convey("A state query does not change the lock", func() {
			app.execute(eventpipe.Command{Op: eventpipe.OpState})
			So(app.lock.LastState(), ShouldEqual, lock.Locked)
		})

		Convey("Losing the broker shows on the indicator", func() {
			app.onMQTTDisconnect()
			So(leds.last(), ShouldEqual, "connection lost")
			app.onMQTTConnect()
			So(leds.last(), ShouldEqual, "locked")
		})
	})
}
