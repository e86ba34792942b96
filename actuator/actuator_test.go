package actuator

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"golock/lock"
	"golock/scservo"
)

var (
	_ Actuator = (*DirectDrive)(nil)
	_ Actuator = (*Servo)(nil)
	_ Actuator = (*Noop)(nil)

	_ lock.Initializer = (*DirectDrive)(nil)
	_ lock.Initializer = (*Servo)(nil)
)

type event struct {
	name string
	at   time.Time
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) add(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{name, time.Now()})
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.name)
	}
	return out
}

type fakeOutput struct {
	name string
	rec  *recorder
}

func (o fakeOutput) SetValue(v int) error {
	o.rec.add(fmt.Sprintf("%s=%d", o.name, v))
	return nil
}

func TestDirectDrive(t *testing.T) {
	for _, test := range []struct {
		name string
		run  func(*DirectDrive) error
		want []string
	}{
		{"clockwise", (*DirectDrive).RotateClockwise, []string{"ccw=0", "cw=1"}},
		{"counter-clockwise", (*DirectDrive).RotateCounterClockwise, []string{"cw=0", "ccw=1"}},
		{"stop", (*DirectDrive).Stop, []string{"ccw=0", "cw=0"}},
	} {
		t.Run(test.name, func(t *testing.T) {
			rec := &recorder{}
			d := NewDirectDrive(fakeOutput{"cw", rec}, fakeOutput{"ccw", rec}, 0)
			if err := test.run(d); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.want, rec.names()); diff != "" {
				t.Errorf("unexpected outputs: want(-)/got(+):\n%s", diff)
			}
			if d.Stalled() {
				t.Error("direct drive reported a stall")
			}
		})
	}
}

func TestDirectDriveDeadTime(t *testing.T) {
	rec := &recorder{}
	d := NewDirectDrive(fakeOutput{"cw", rec}, fakeOutput{"ccw", rec}, 5*time.Millisecond)
	if err := d.RotateCounterClockwise(); err != nil {
		t.Fatal(err)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if gap := rec.events[1].at.Sub(rec.events[0].at); gap < 5*time.Millisecond {
		t.Errorf("outputs switched %v apart, want at least 5ms", gap)
	}
}

// fakeServo answers frames for servo 1 the way an SC servo in motor mode does.
type fakeServo struct {
	mu       sync.Mutex
	in       bytes.Buffer
	frames   [][]byte
	status   byte
	silent   bool
	failSend int
}

func (s *fakeServo) Read(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.in.Len() == 0 {
		return 0, nil
	}
	return s.in.Read(b)
}

func (s *fakeServo) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSend > 0 {
		s.failSend--
		return 0, errors.New("write failed")
	}
	s.frames = append(s.frames, append([]byte(nil), b...))
	if s.silent {
		return len(b), nil
	}
	reply := []byte{0xFF, 0xFF, scservo.DefaultID, 2, s.status}
	s.in.Write(append(reply, scservo.Checksum(reply[2:]...)))
	return len(b), nil
}

func (s *fakeServo) DiscardInput() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.in.Reset()
	return nil
}

func (s *fakeServo) Close() error { return nil }

func (s *fakeServo) sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func newTestServo(port *fakeServo) *Servo {
	bus := scservo.NewBus(port, scservo.DefaultID, false)
	bus.SetTimeout(2 * time.Millisecond)
	return NewServo(bus)
}

func frame(instr byte, params ...byte) []byte {
	return scservo.Encode(scservo.DefaultID, instr, params...)
}

func TestServoCommands(t *testing.T) {
	for _, test := range []struct {
		name string
		run  func(*Servo) error
		want [][]byte
	}{
		{"init", (*Servo).Init, [][]byte{
			frame(scservo.InstrPing),
			frame(scservo.InstrWrite, 9, 0, 0, 0, 0),
		}},
		{"clockwise", (*Servo).RotateClockwise, [][]byte{frame(scservo.InstrWrite, 44, 240, 0)}},
		{"counter-clockwise", (*Servo).RotateCounterClockwise, [][]byte{frame(scservo.InstrWrite, 44, 40, 0)}},
		{"stop", (*Servo).Stop, [][]byte{frame(scservo.InstrWrite, 44, 0, 0)}},
	} {
		t.Run(test.name, func(t *testing.T) {
			port := &fakeServo{}
			if err := test.run(newTestServo(port)); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.want, port.sent()); diff != "" {
				t.Errorf("unexpected frames: want(-)/got(+):\n%s", diff)
			}
		})
	}
}

func TestServoFailures(t *testing.T) {
	t.Run("init without reply", func(t *testing.T) {
		s := newTestServo(&fakeServo{silent: true})
		if err := s.Init(); !errors.Is(err, scservo.ErrCommunication) {
			t.Errorf("Init() = %v, want ErrCommunication", err)
		}
	})
	t.Run("rotate with status error", func(t *testing.T) {
		s := newTestServo(&fakeServo{status: 0x20})
		if err := s.RotateClockwise(); !errors.Is(err, scservo.ErrCommunication) {
			t.Errorf("RotateClockwise() = %v, want ErrCommunication", err)
		}
	})
	t.Run("stop retries", func(t *testing.T) {
		port := &fakeServo{failSend: 3}
		if err := newTestServo(port).Stop(); err != nil {
			t.Fatalf("Stop() = %v", err)
		}
		if n := len(port.sent()); n != 1 {
			t.Errorf("%d frames delivered, want 1", n)
		}
	})
	t.Run("stop gives up", func(t *testing.T) {
		port := &fakeServo{failSend: stopAttempts}
		if err := newTestServo(port).Stop(); !errors.Is(err, scservo.ErrCommunication) {
			t.Errorf("Stop() = %v, want ErrCommunication", err)
		}
	})
}

func TestServoStalled(t *testing.T) {
	for _, test := range []struct {
		name string
		port *fakeServo
		want bool
	}{
		{"moving", &fakeServo{}, false},
		{"error status", &fakeServo{status: 0x20}, true},
		{"no reply", &fakeServo{silent: true}, true},
	} {
		t.Run(test.name, func(t *testing.T) {
			s := newTestServo(test.port)
			if got := s.Stalled(); got != test.want {
				t.Errorf("Stalled() = %v, want %v", got, test.want)
			}
			want := [][]byte{frame(scservo.InstrRead, 66, 1)}
			if diff := cmp.Diff(want, test.port.sent()); diff != "" {
				t.Errorf("unexpected frames: want(-)/got(+):\n%s", diff)
			}
		})
	}
}

func TestNewNoop(t *testing.T) {
	for _, typ := range []string{"", "none"} {
		a, err := New(Config{Type: typ})
		if err != nil {
			t.Fatalf("New(%q): %v", typ, err)
		}
		if _, ok := a.(*Noop); !ok {
			t.Errorf("New(%q) = %T, want *Noop", typ, a)
		}
	}
	if _, err := New(Config{Type: "stepper"}); err == nil {
		t.Error("New accepted an unknown type")
	}
	if _, err := New(Config{Type: "gpio"}); err == nil {
		t.Error("New accepted gpio without pins")
	}
}
