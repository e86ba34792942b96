package rotation

import (
	"fmt"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

// ADCConfig selects an ADS1115 input.
type ADCConfig struct {
	Bus     string `yaml:"bus"`     // I2C bus name, empty for the first bus
	Address uint16 `yaml:"address"` // 0 for the default 0x48
	Channel int    `yaml:"channel"` // single-ended input 0-3
	RateHz  int    `yaml:"rate_hz"`
}

var channels = []ads1x15.Channel{
	ads1x15.Channel0,
	ads1x15.Channel1,
	ads1x15.Channel2,
	ads1x15.Channel3,
}

// ADS1x15 reads a phototransistor through an ADS1115 converter.
type ADS1x15 struct {
	bus i2c.BusCloser
	pin ads1x15.PinADC
}

// NewADS1x15 initialises the host drivers and opens the converter channel.
func NewADS1x15(cfg ADCConfig) (*ADS1x15, error) {
	if cfg.Channel < 0 || cfg.Channel >= len(channels) {
		return nil, fmt.Errorf("adc channel %d out of range", cfg.Channel)
	}
	if cfg.RateHz <= 0 {
		cfg.RateHz = 475
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}

	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c %q: %w", cfg.Bus, err)
	}

	opts := ads1x15.DefaultOpts
	if cfg.Address != 0 {
		opts.I2cAddress = cfg.Address
	}
	dev, err := ads1x15.NewADS1115(bus, &opts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("open ads1115: %w", err)
	}

	pin, err := dev.PinForChannel(channels[cfg.Channel], 5*physic.Volt,
		physic.Frequency(cfg.RateHz)*physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("adc channel %d: %w", cfg.Channel, err)
	}

	return &ADS1x15{bus: bus, pin: pin}, nil
}

// ReadU16 implements Analog.ReadU16.
func (a *ADS1x15) ReadU16() (uint16, error) {
	s, err := a.pin.Read()
	if err != nil {
		return 0, err
	}
	return scaleSample(s), nil
}

// scaleSample widens a signed 16-bit conversion to the 0-65535 range used by
// the thresholds; negative readings clamp to zero.
func scaleSample(s analog.Sample) uint16 {
	if s.Raw <= 0 {
		return 0
	}
	if s.Raw >= 0x7fff {
		return 0xffff
	}
	return uint16(s.Raw << 1)
}

// Release halts the converter channel and closes the bus.
func (a *ADS1x15) Release() error {
	return multierr.Append(a.pin.Halt(), a.bus.Close())
}
