//go:build !linux

package rotation

// NewReedSwitch returns an error on non-linux platforms.
func NewReedSwitch(cfg ReedSwitchConfig) (*ReedSwitch, error) {
	return nil, ErrNotSupported
}

// ZeroSensor is a stub for non-linux platforms.
type ZeroSensor struct{}

// ZeroSensorConfig holds configuration for the neutral position input.
type ZeroSensorConfig struct {
	Chip string `yaml:"chip"`
	Pin  int    `yaml:"pin"`
}

// NewZeroSensor returns an error on non-linux platforms.
func NewZeroSensor(cfg ZeroSensorConfig) (*ZeroSensor, error) {
	return nil, ErrNotSupported
}

func (z *ZeroSensor) Value() (int, error) { return 0, ErrNotSupported }
func (z *ZeroSensor) Release() error      { return nil }
