package rotation

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/analog"
)

type event struct {
	Trigger Trigger
	Value   float64
}

func record(c *Counter, trigger Trigger) *[]event {
	var events []event
	c.SetHandler(func(t Trigger, v float64) {
		events = append(events, event{t, v})
	}, trigger)
	return &events
}

func TestCounterDirection(t *testing.T) {
	c := NewCounter()
	c.Update(90)
	c.SetDirection(-1)
	c.Update(30)
	if got, want := c.Degrees(), 60.0; got != want {
		t.Errorf("Degrees() = %v, want %v", got, want)
	}
	if got, want := c.Rotations(), 60.0/360.0; got != want {
		t.Errorf("Rotations() = %v, want %v", got, want)
	}
	c.Reset()
	if got := c.Degrees(); got != 0 {
		t.Errorf("Degrees() after Reset = %v, want 0", got)
	}
}

func TestCounterTriggers(t *testing.T) {
	for _, test := range []struct {
		name      string
		trigger   Trigger
		direction int
		start     float64
		steps     []float64
		want      []event
	}{
		{
			name:    "rotation change only",
			trigger: TriggerRotationChange,
			steps:   []float64{180, 180},
			want: []event{
				{TriggerRotationChange, 180},
				{TriggerRotationChange, 360},
			},
		},
		{
			name:    "full rotation fires once per boundary",
			trigger: TriggerFullRotation,
			steps:   []float64{120, 120, 120, 120},
			want:    []event{{TriggerFullRotation, 1}},
		},
		{
			name:      "negative direction crosses zero",
			trigger:   TriggerFullRotation,
			direction: -1,
			start:     180,
			steps:     []float64{90, 90, 90},
			want:      []event{{TriggerFullRotation, -0.25}},
		},
		{
			name:    "both",
			trigger: TriggerRotationChange | TriggerFullRotation,
			start:   300,
			steps:   []float64{60},
			want: []event{
				{TriggerRotationChange, 360},
				{TriggerFullRotation, 1},
			},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			c := NewCounter()
			c.SetDegrees(test.start)
			if test.direction != 0 {
				c.SetDirection(test.direction)
			}
			events := record(c, test.trigger)
			for _, s := range test.steps {
				c.Update(s)
			}
			if diff := cmp.Diff(test.want, *events); diff != "" {
				t.Errorf("unexpected events: want(-)/got(+):\n%s", diff)
			}
		})
	}
}

func TestReedSwitchDebounce(t *testing.T) {
	r := newReedSwitch(ReedSwitchConfig{PulsesPerRotation: 4, DebounceMs: 100})
	ms := time.Millisecond
	for _, ts := range []time.Duration{
		1000 * ms, // accepted
		1050 * ms, // bounce
		1100 * ms, // still inside the window of the accepted edge
		1150 * ms, // accepted
		1400 * ms, // accepted
	} {
		r.edge(ts)
	}
	if got, want := r.Degrees(), 270.0; got != want {
		t.Errorf("Degrees() = %v, want %v", got, want)
	}
}

func TestReedSwitchDefaults(t *testing.T) {
	r := newReedSwitch(ReedSwitchConfig{})
	r.edge(time.Second)
	if got, want := r.Rotations(), 1.0; got != want {
		t.Errorf("Rotations() = %v, want %v", got, want)
	}
}

func TestPhototransistorHysteresis(t *testing.T) {
	p := NewPhototransistor(nil, PhototransistorConfig{})
	for _, v := range []uint16{
		50000, // primes high, no step
		30000, // between thresholds, stays high
		5000,  // low
		30000, // between thresholds, stays low
		46000, // rising: step
		9000,  // low
		9999,  // still low
		60000, // rising: step
		44000, // stays high
		50000, // already high
	} {
		p.sample(v)
	}
	if got, want := p.Degrees(), 2*360.0/DefaultSteps; got != want {
		t.Errorf("Degrees() = %v, want %v", got, want)
	}

	p.Init()
	p.sample(5000)
	p.sample(50000)
	if got, want := p.Degrees(), 3*360.0/DefaultSteps; got != want {
		t.Errorf("Degrees() after Init = %v, want %v", got, want)
	}
}

type rampADC struct {
	values chan uint16
}

func (r *rampADC) ReadU16() (uint16, error) {
	select {
	case v := <-r.values:
		return v, nil
	default:
		return 0, nil
	}
}

func TestPhototransistorSampler(t *testing.T) {
	src := &rampADC{values: make(chan uint16, 8)}
	for _, v := range []uint16{0, 60000, 0, 60000} {
		src.values <- v
	}
	p := NewPhototransistor(src, PhototransistorConfig{PeriodMs: 1})
	p.Start(context.Background())
	defer p.Close()

	deadline := time.Now().Add(2 * time.Second)
	for p.Degrees() < 2*20.0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got, want := p.Degrees(), 40.0; got != want {
		t.Errorf("Degrees() = %v, want %v", got, want)
	}
}

func TestScaleSample(t *testing.T) {
	for _, test := range []struct {
		raw  int32
		want uint16
	}{
		{-120, 0},
		{0, 0},
		{0x4000, 0x8000},
		{0x7fff, 0xffff},
	} {
		if got := scaleSample(analog.Sample{Raw: test.raw}); got != test.want {
			t.Errorf("scaleSample(%#x) = %#x, want %#x", test.raw, got, test.want)
		}
	}
}
