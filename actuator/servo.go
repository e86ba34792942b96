package actuator

import (
	"fmt"
	"log"
	"time"

	"golock/scservo"
)

const stopAttempts = 10

// Servo implements lock.Actuator with an SC series servo in motor mode.
type Servo struct {
	bus *scservo.Bus
}

// NewServo returns a Servo on bus. Init must succeed before it is driven.
func NewServo(bus *scservo.Bus) *Servo {
	return &Servo{bus: bus}
}

// Init implements lock.Initializer: it checks that the servo answers and
// puts it into motor mode.
func (s *Servo) Init() error {
	if _, status, err := s.bus.Exchange(scservo.InstrPing); err != nil {
		return err
	} else if status != 0 {
		return fmt.Errorf("%w: servo %d does not respond (status %#02x)", scservo.ErrCommunication, s.bus.ID(), status)
	}
	time.Sleep(time.Millisecond)
	return s.write("set motor mode", scservo.RegMotorMode, 0, 0, 0, 0)
}

// RotateClockwise implements lock.Actuator.
func (s *Servo) RotateClockwise() error {
	return s.write("rotate clockwise", scservo.RegSpeed, scservo.SpeedClockwise, 0)
}

// RotateCounterClockwise implements lock.Actuator.
func (s *Servo) RotateCounterClockwise() error {
	return s.write("rotate counter-clockwise", scservo.RegSpeed, scservo.SpeedCounterClockwise, 0)
}

// Stop implements lock.Actuator. The stop frame is retried on transport
// errors before the reply is checked.
func (s *Servo) Stop() error {
	s.bus.Lock()
	defer s.bus.Unlock()
	var err error
	for i := 0; i < stopAttempts; i++ {
		if err = s.bus.Send(scservo.InstrWrite, scservo.RegSpeed, scservo.SpeedStop, 0); err == nil {
			break
		}
		log.Printf("servo: stop attempt %d: %v", i+1, err)
		time.Sleep(time.Millisecond)
	}
	if err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if _, status := s.bus.Receive(); status != 0 {
		return fmt.Errorf("%w: stop: status %#02x", scservo.ErrCommunication, status)
	}
	return nil
}

// Stalled implements lock.Actuator. Any error reading the moving status,
// including no reply, counts as a stall.
func (s *Servo) Stalled() bool {
	_, status, err := s.bus.Exchange(scservo.InstrRead, scservo.RegMoving, 1)
	return err != nil || status != 0
}

// Release implements Actuator.Release.
func (s *Servo) Release() error {
	return s.bus.Close()
}

func (s *Servo) write(op string, params ...byte) error {
	_, status, err := s.bus.Exchange(scservo.InstrWrite, params...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if status != 0 {
		return fmt.Errorf("%w: %s: status %#02x", scservo.ErrCommunication, op, status)
	}
	return nil
}
