package main

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v2"

	"golock/actuator"
	"golock/controlpad"
	"golock/eventpipe"
	"golock/indicator"
	"golock/lock"
	"golock/mqtt"
	"golock/rotation"
	"golock/simulator"
)

// Config is the main configuration structure for golock.
type Config struct {
	ClientID string `yaml:"client_id"`

	// Lock travel and timing
	Lock LockConfig `yaml:"lock"`

	// Hardware. An actuator of type gpiomem and the control pad share one
	// /dev/gpiomem mapping, which stays open until both are released.
	Actuator   actuator.Config           `yaml:"actuator"`
	Detector   DetectorConfig            `yaml:"detector"`
	ZeroSensor rotation.ZeroSensorConfig `yaml:"zero_sensor"`
	Simulator  simulator.Config          `yaml:"simulator"`

	// Front ends
	MQTT       mqtt.Config       `yaml:"mqtt"`
	Indicator  indicator.Config  `yaml:"indicator"`
	ControlPad controlpad.Config `yaml:"control_pad"`
	EventPipe  eventpipe.Config  `yaml:"event_pipe"`

	PingSecs int `yaml:"ping_secs"`
}

// LockConfig is the lock travel plus optional timing overrides.
type LockConfig struct {
	lock.Config `yaml:",inline"`

	PollMs            int     `yaml:"poll_ms"`
	CalibrationPollMs int     `yaml:"calibration_poll_ms"`
	SettleMs          int     `yaml:"settle_ms"`
	StallTimeoutMs    int     `yaml:"stall_timeout_ms"`
	Overshoot         float64 `yaml:"overshoot"`
	NearTarget        float64 `yaml:"near_target"`
}

// Timing converts the overrides; zero fields keep lock.DefaultTiming.
func (c LockConfig) Timing() lock.Timing {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return lock.Timing{
		Poll:            ms(c.PollMs),
		CalibrationPoll: ms(c.CalibrationPollMs),
		Settle:          ms(c.SettleMs),
		StallTimeout:    ms(c.StallTimeoutMs),
		Overshoot:       c.Overshoot,
		NearTarget:      c.NearTarget,
	}
}

// DetectorConfig selects the rotation detector.
type DetectorConfig struct {
	Type            string                         `yaml:"type"` // "reed" or "phototransistor"
	Reed            rotation.ReedSwitchConfig      `yaml:"reed"`
	Phototransistor rotation.PhototransistorConfig `yaml:"phototransistor"`
}

// envOverrides lists the settings that can be replaced from the
// environment, e.g. GOLOCK_LOCK_ROTATIONS or GOLOCK_MQTT_HOST.
type envOverrides struct {
	ClientID     string      `env:"CLIENT_ID"`
	ActuatorType string      `env:"ACTUATOR_TYPE"`
	Lock         lock.Config `envPrefix:"LOCK_"`
	MQTT         mqtt.Config `envPrefix:"MQTT_"`
}

func applyEnv(cfg *Config) error {
	o := envOverrides{
		ClientID:     cfg.ClientID,
		ActuatorType: cfg.Actuator.Type,
		Lock:         cfg.Lock.Config,
		MQTT:         cfg.MQTT,
	}
	if err := env.Parse(&o, env.Options{Prefix: "GOLOCK_"}); err != nil {
		return err
	}
	cfg.ClientID = o.ClientID
	cfg.Actuator.Type = o.ActuatorType
	cfg.Lock.Config = o.Lock
	cfg.MQTT = o.MQTT
	return nil
}

// loadConfig reads the yaml file and applies GOLOCK_ environment overrides.
func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client_id missing in config file")
	}
	if cfg.PingSecs <= 0 {
		cfg.PingSecs = 120
	}
	return &cfg, nil
}
