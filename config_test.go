package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"golock/lock"
)

const testConfig = `
client_id: frontdoor
lock:
  rotations: 2
  initial_state: unlocked
  direction: ccw
  settle_ms: 500
actuator:
  type: gpio
  clockwise_pin: 17
  counter_clockwise_pin: 27
detector:
  type: reed
  reed:
    pin: 22
    pulses_per_rotation: 2
mqtt:
  host: localhost
`

func writeConfig(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "golock.cfg")
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}

	want := lock.Config{Rotations: 2, InitialState: lock.Unlocked, Direction: lock.CounterClockwise}
	if diff := cmp.Diff(want, cfg.Lock.Config); diff != "" {
		t.Errorf("unexpected lock config: want(-)/got(+):\n%s", diff)
	}
	if got := cfg.Lock.Timing(); got.Settle != 500*time.Millisecond || got.Poll != 0 {
		t.Errorf("Timing() = %+v", got)
	}
	if cfg.Actuator.ClockwisePin == nil || *cfg.Actuator.ClockwisePin != 17 {
		t.Errorf("clockwise pin = %v, want 17", cfg.Actuator.ClockwisePin)
	}
	if cfg.Detector.Reed.PulsesPerRotation != 2 {
		t.Errorf("pulses per rotation = %d, want 2", cfg.Detector.Reed.PulsesPerRotation)
	}
	if cfg.PingSecs != 120 {
		t.Errorf("ping_secs default = %d, want 120", cfg.PingSecs)
	}
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("GOLOCK_LOCK_ROTATIONS", "4")
	t.Setenv("GOLOCK_LOCK_DIRECTION", "cw")
	t.Setenv("GOLOCK_MQTT_HOST", "broker.example")
	t.Setenv("GOLOCK_ACTUATOR_TYPE", "none")

	cfg, err := loadConfig(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	want := lock.Config{Rotations: 4, InitialState: lock.Unlocked, Direction: lock.Clockwise}
	if diff := cmp.Diff(want, cfg.Lock.Config); diff != "" {
		t.Errorf("unexpected lock config: want(-)/got(+):\n%s", diff)
	}
	if cfg.MQTT.Host != "broker.example" {
		t.Errorf("mqtt host = %q", cfg.MQTT.Host)
	}
	if cfg.Actuator.Type != "none" {
		t.Errorf("actuator type = %q", cfg.Actuator.Type)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	for name, text := range map[string]string{
		"no client id":  "lock:\n  rotations: 2\n",
		"bad direction": "client_id: x\nlock:\n  direction: up\n",
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := loadConfig(writeConfig(t, text)); err == nil {
				t.Error("loadConfig succeeded")
			}
		})
	}
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.cfg")); err == nil {
		t.Error("loadConfig of a missing file succeeded")
	}
}
