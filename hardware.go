package main

import (
	"context"
	"fmt"
	"log"

	"go.uber.org/multierr"

	"golock/actuator"
	"golock/lock"
	"golock/rotation"
	"golock/simulator"
)

// Hardware is the motor, rotation detector and neutral sensor of one lock.
type Hardware struct {
	Actuator   lock.Actuator
	Detector   rotation.Detector
	ZeroSensor lock.DigitalInput

	photo   *rotation.Phototransistor
	release []func() error
}

// openHardware opens the devices named in cfg.
func openHardware(cfg *Config) (_ *Hardware, err error) {
	hw := &Hardware{}
	defer func() {
		if err != nil {
			hw.Release()
		}
	}()

	act, err := actuator.New(cfg.Actuator)
	if err != nil {
		return nil, fmt.Errorf("init actuator: %w", err)
	}
	hw.Actuator = act
	hw.release = append(hw.release, act.Release)

	switch cfg.Detector.Type {
	case "", "reed":
		reed, err := rotation.NewReedSwitch(cfg.Detector.Reed)
		if err != nil {
			return nil, fmt.Errorf("init reed switch: %w", err)
		}
		hw.Detector = reed
		hw.release = append(hw.release, reed.Release)
	case "phototransistor":
		adc, err := rotation.NewADS1x15(cfg.Detector.Phototransistor.ADC)
		if err != nil {
			return nil, fmt.Errorf("init ADC: %w", err)
		}
		hw.release = append(hw.release, adc.Release)
		hw.photo = rotation.NewPhototransistor(adc, cfg.Detector.Phototransistor)
		hw.Detector = hw.photo
		hw.release = append(hw.release, hw.photo.Close)
	default:
		return nil, fmt.Errorf("unknown detector type %q", cfg.Detector.Type)
	}

	zero, err := rotation.NewZeroSensor(cfg.ZeroSensor)
	if err != nil {
		return nil, fmt.Errorf("init zero sensor: %w", err)
	}
	hw.ZeroSensor = zero
	hw.release = append(hw.release, zero.Release)

	return hw, nil
}

// simulatedHardware backs all three devices with one simulated mechanism.
func simulatedHardware(cfg *Config) *Hardware {
	sc := cfg.Simulator
	if sc.Rotations == 0 {
		sc.Rotations = cfg.Lock.Rotations
	}
	if sc.Direction == 0 {
		sc.Direction = cfg.Lock.Direction
	}
	if sc.TickMs == 0 {
		sc.TickMs = 20
	}
	log.Printf("Simulating a %d turn lock", sc.Rotations)
	sim := simulator.New(sc)
	return &Hardware{
		Actuator:   sim,
		Detector:   sim,
		ZeroSensor: sim,
		release:    []func() error{sim.Close},
	}
}

// Start runs the samplers of detectors that poll.
func (hw *Hardware) Start(ctx context.Context) {
	if hw.photo != nil {
		hw.photo.Start(ctx)
	}
}

// Release releases the devices in reverse order of opening.
func (hw *Hardware) Release() error {
	var err error
	for i := len(hw.release) - 1; i >= 0; i-- {
		err = multierr.Append(err, hw.release[i]())
	}
	hw.release = nil
	return err
}
