package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"golock/controlpad"
	"golock/eventpipe"
	"golock/indicator"
	"golock/lock"
	"golock/mqtt"
	"golock/rotation"
)

var myBuild string

// App holds the application state and dependencies.
type App struct {
	cfg       *Config
	hw        *Hardware
	lock      *lock.StartStop
	mqtt      *mqtt.Client
	indicator indicator.Indicator
	pad       *controlpad.Pad
	pipe      *eventpipe.EventPipe
	ctx       context.Context
}

// stateMessage is published retained on the state topic.
type stateMessage struct {
	State     string  `json:"state"`
	Errors    string  `json:"errors"`
	Rotations float64 `json:"rotations"`
}

func main() {
	fmt.Printf("golock build %s\n", myBuild)

	cfgfile := flag.String("cfg", "golock.cfg", "Config file")
	simulate := flag.Bool("simulate", false, "Drive a simulated lock instead of hardware")
	flag.Parse()

	cfg, err := loadConfig(*cfgfile)
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(sigCtx)

	app := &App{cfg: cfg, ctx: ctx}

	// Initialize indicator (LEDs, neopixels)
	app.indicator, err = indicator.New(cfg.Indicator)
	if err != nil {
		log.Fatalf("Init indicator: %v", err)
	}
	app.indicator.ConnectionLost()

	// Open the lock hardware
	if *simulate {
		app.hw = simulatedHardware(cfg)
	} else {
		app.hw, err = openHardware(cfg)
		if err != nil {
			log.Fatalf("Init hardware: %v", err)
		}
	}
	app.hw.Start(ctx)

	app.lock = lock.NewStartStop(app.hw.Actuator, app.hw.Detector, app.hw.ZeroSensor,
		lock.WithTiming(cfg.Lock.Timing()))
	app.lock.SetObserver(app.onLockState)

	// Initialize MQTT
	app.mqtt, err = mqtt.New(cfg.MQTT, cfg.ClientID, mqtt.Handlers{
		OnConnect:    app.onMQTTConnect,
		OnDisconnect: app.onMQTTDisconnect,
	})
	if err != nil {
		log.Fatalf("Init MQTT: %v", err)
	}
	if err := app.mqtt.Subscribe(app.mqtt.ControlTopic("command"), app.onRemoteCommand); err != nil {
		log.Printf("Subscribe error: %v", err)
	}
	app.hw.Detector.SetHandler(app.onRotation, rotation.TriggerFullRotation)

	// Local controls
	app.pad, err = controlpad.New(cfg.ControlPad, controlpad.Handlers{
		OnLock:   func() { app.execute(eventpipe.Command{Op: eventpipe.OpLock}) },
		OnUnlock: func() { app.execute(eventpipe.Command{Op: eventpipe.OpUnlock}) },
	})
	if err != nil {
		log.Fatalf("Init control pad: %v", err)
	}
	app.pipe, err = eventpipe.New(cfg.EventPipe, app.execute)
	if err != nil {
		log.Fatalf("Init event pipe: %v", err)
	}

	// Start background goroutines
	go func() {
		if err := app.mqtt.Connect(); err != nil {
			log.Printf("MQTT connect: %v", err)
		}
	}()
	if app.pipe != nil {
		g.Go(func() error { return app.pipe.Run(ctx) })
	}
	g.Go(func() error {
		app.pingSender(ctx)
		return nil
	})
	go app.initLock(cfg.Lock.Config)

	<-ctx.Done()
	fmt.Println("Shutting down...")

	// Cleanup
	if err := app.lock.Close(); err != nil {
		log.Printf("Stop lock: %v", err)
	}
	app.mqtt.Disconnect()
	if app.pad != nil {
		if err := app.pad.Release(); err != nil {
			log.Printf("Release control pad: %v", err)
		}
	}
	if err := g.Wait(); err != nil {
		log.Printf("Background task: %v", err)
	}
	if app.pipe != nil {
		app.pipe.Close()
	}
	app.indicator.Shutdown()
	if err := app.indicator.Release(); err != nil {
		log.Printf("Release indicator: %v", err)
	}
	if err := app.hw.Release(); err != nil {
		log.Printf("Release hardware: %v", err)
	}

	fmt.Println("Shutdown complete")
}

// initLock initializes or recalibrates the lock. Calibration can take
// several seconds, so callers run it on its own goroutine.
func (app *App) initLock(cfg lock.Config) {
	fmt.Printf("Initializing lock: %d turns, %s, locks %s\n", cfg.Rotations, cfg.InitialState, cfg.Direction)
	if err := app.lock.Init(app.ctx, cfg); err != nil {
		log.Printf("Lock init: %v", err)
		return
	}
	fmt.Printf("Lock initialized: %s\n", app.lock.LastState())
}

// execute runs a command from any front end.
func (app *App) execute(cmd eventpipe.Command) {
	var err error
	switch cmd.Op {
	case eventpipe.OpLock:
		err = app.lock.Lock()
	case eventpipe.OpUnlock:
		err = app.lock.Unlock()
	case eventpipe.OpInit:
		go app.initLock(cmd.Config)
	case eventpipe.OpState:
		state, flags := app.lock.LastState(), app.lock.LastError()
		fmt.Printf("Lock state %s, errors %s, %.2f turns\n", state, flags, app.hw.Detector.Rotations())
		app.publishState(state, flags)
	}
	if err != nil {
		log.Printf("Lock command: %v", err)
	}
}

// onLockState is the lock observer. It runs with the lock's mutex held.
func (app *App) onLockState(state lock.State, flags lock.ErrorFlags, _ lock.Manipulator) {
	log.Printf("Lock %s (errors: %s)", state, flags)
	indicator.Show(app.indicator, state, flags)
	app.publishState(state, flags)
}

func (app *App) publishState(state lock.State, flags lock.ErrorFlags) {
	if app.mqtt == nil {
		return
	}
	msg := stateMessage{
		State:     state.String(),
		Errors:    flags.String(),
		Rotations: app.hw.Detector.Rotations(),
	}
	if err := app.mqtt.PublishJSON(app.mqtt.StatusTopic("state"), msg, true); err != nil {
		log.Printf("Publish state: %v", err)
	}
}

func (app *App) onRotation(_ rotation.Trigger, turns float64) {
	app.mqtt.Publish(app.mqtt.StatusTopic("rotations"), fmt.Sprintf("%.0f", turns))
}

func (app *App) onMQTTConnect() {
	indicator.Show(app.indicator, app.lock.LastState(), app.lock.LastError())
	app.publishState(app.lock.LastState(), app.lock.LastError())
}

func (app *App) onMQTTDisconnect() {
	app.indicator.ConnectionLost()
}

func (app *App) pingSender(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(app.cfg.PingSecs) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.mqtt.Publish(app.mqtt.StatusTopic("ping"), `{"status":"ok"}`)
		}
	}
}
