package scservo

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var ErrCommunication = errors.New("servo communication failure")

// Port is a serial connection to the servo bus.
type Port interface {
	io.ReadWriteCloser

	// DiscardInput drops any unread input.
	DiscardInput() error
}

// drainer is implemented by ports that can wait for queued output to be sent.
type drainer interface {
	Drain() error
}

// Bus exchanges frames with one servo. Send and Receive must be called
// with the Bus locked; Exchange locks it itself.
type Bus struct {
	sync.Mutex
	port    Port
	id      byte
	echo    bool
	timeout time.Duration
}

// NewBus returns a Bus talking to servo id over port. With echo set, the
// bytes of every sent frame are read back and dropped, as a single-wire
// half-duplex adapter returns them.
func NewBus(port Port, id byte, echo bool) *Bus {
	return &Bus{port: port, id: id, echo: echo, timeout: DefaultTimeout}
}

// SetTimeout changes how long Receive waits for a reply.
func (b *Bus) SetTimeout(d time.Duration) {
	b.timeout = d
}

// ID returns the servo id.
func (b *Bus) ID() byte {
	return b.id
}

// Send writes one instruction frame.
func (b *Bus) Send(instr byte, params ...byte) error {
	frame := Encode(b.id, instr, params...)
	if err := b.port.DiscardInput(); err != nil {
		return fmt.Errorf("%w: discard input: %v", ErrCommunication, err)
	}
	if _, err := b.port.Write(frame); err != nil {
		return fmt.Errorf("%w: write: %v", ErrCommunication, err)
	}
	if d, ok := b.port.(drainer); ok {
		if err := d.Drain(); err != nil {
			return fmt.Errorf("%w: drain: %v", ErrCommunication, err)
		}
	}
	if b.echo {
		if _, err := b.read(len(frame), time.Now().Add(b.timeout)); err != nil {
			return fmt.Errorf("%w: read echo: %v", ErrCommunication, err)
		}
	}
	return nil
}

// Receive waits for a reply and returns its payload and status byte. When
// no valid reply arrives in time the status is NoResponse.
func (b *Bus) Receive() ([]byte, byte) {
	deadline := time.Now().Add(b.timeout)
	var buf []byte
	chunk := make([]byte, 64)
	for time.Now().Before(deadline) {
		n, err := b.port.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			payload, status, used := Decode(buf, b.id)
			if used > 0 {
				if status == NoResponse {
					b.port.DiscardInput()
				}
				return payload, status
			}
		}
		if err != nil && err != io.EOF {
			return nil, NoResponse
		}
		if n == 0 {
			time.Sleep(10 * time.Microsecond)
		}
	}
	return nil, NoResponse
}

// Exchange sends an instruction and waits for the reply.
func (b *Bus) Exchange(instr byte, params ...byte) ([]byte, byte, error) {
	b.Lock()
	defer b.Unlock()
	if err := b.Send(instr, params...); err != nil {
		return nil, NoResponse, err
	}
	payload, status := b.Receive()
	return payload, status, nil
}

// Close closes the port.
func (b *Bus) Close() error {
	b.Lock()
	defer b.Unlock()
	return b.port.Close()
}

func (b *Bus) read(n int, deadline time.Time) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	for got < n {
		if time.Now().After(deadline) {
			return buf[:got], fmt.Errorf("timeout after %d of %d bytes", got, n)
		}
		m, err := b.port.Read(buf[got:])
		got += m
		if err != nil && err != io.EOF {
			return buf[:got], err
		}
	}
	return buf, nil
}
