package rotation

import (
	"context"
	"log"
	"sync"
	"time"
)

// Default thresholds for a 16-bit intensity reading.
const (
	DefaultHighThreshold = 45000
	DefaultLowThreshold  = 10000
	DefaultSteps         = 18
	DefaultSamplePeriod  = 5 * time.Millisecond
)

// Analog is a source of 16-bit intensity samples.
type Analog interface {
	ReadU16() (uint16, error)
}

// PhototransistorConfig holds configuration for the stepping phototransistor sensor.
type PhototransistorConfig struct {
	High     uint16    `yaml:"high"`  // rising threshold
	Low      uint16    `yaml:"low"`   // falling threshold
	Steps    int       `yaml:"steps"` // marks on the encoder wheel
	PeriodMs int       `yaml:"period_ms"`
	ADC      ADCConfig `yaml:"adc"`
}

// Phototransistor samples a reflective or slotted encoder wheel. Each
// low-to-high transition of the intensity counts one step; separate rising
// and falling thresholds keep noise near a single level from chattering.
type Phototransistor struct {
	*Counter
	src    Analog
	step   float64
	high   uint16
	low    uint16
	period time.Duration

	mu      sync.Mutex // guards primed, isHigh and cancel
	primed  bool
	isHigh  bool
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewPhototransistor creates a sensor reading from src. Sampling starts with Start.
func NewPhototransistor(src Analog, cfg PhototransistorConfig) *Phototransistor {
	if cfg.High == 0 {
		cfg.High = DefaultHighThreshold
	}
	if cfg.Low == 0 {
		cfg.Low = DefaultLowThreshold
	}
	if cfg.Steps <= 0 {
		cfg.Steps = DefaultSteps
	}
	period := DefaultSamplePeriod
	if cfg.PeriodMs > 0 {
		period = time.Duration(cfg.PeriodMs) * time.Millisecond
	}
	return &Phototransistor{
		Counter: NewCounter(),
		src:     src,
		step:    360.0 / float64(cfg.Steps),
		high:    cfg.High,
		low:     cfg.Low,
		period:  period,
	}
}

// Init forgets the last high/low state so the next sample primes it again.
func (p *Phototransistor) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.primed = false
	return nil
}

// Start runs the sampler until ctx is done or Close is called.
func (p *Phototransistor) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.stopped = make(chan struct{})
	stopped := p.stopped
	p.mu.Unlock()

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(p.period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				v, err := p.src.ReadU16()
				if err != nil {
					log.Printf("phototransistor: read: %v", err)
					continue
				}
				p.sample(v)
			}
		}
	}()
}

// sample feeds one intensity reading through the hysteresis.
func (p *Phototransistor) sample(v uint16) {
	p.mu.Lock()
	if !p.primed {
		p.primed = true
		p.isHigh = v > p.high
		p.mu.Unlock()
		return
	}
	rising := false
	switch {
	case v > p.high && !p.isHigh:
		p.isHigh = true
		rising = true
	case v < p.low && p.isHigh:
		p.isHigh = false
	}
	p.mu.Unlock()

	if rising {
		p.Update(p.step)
	}
}

// Close stops the sampler and waits for it to exit.
func (p *Phototransistor) Close() error {
	p.mu.Lock()
	cancel, stopped := p.cancel, p.stopped
	p.cancel = nil
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-stopped
	return nil
}
