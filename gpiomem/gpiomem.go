// Package gpiomem shares the process-wide /dev/gpiomem mapping of
// warthog618/gpio between the packages driving pins through it.
package gpiomem

import (
	"sync"

	"github.com/warthog618/gpio"
)

var (
	mu    sync.Mutex
	users int

	mapMem   = gpio.Open
	unmapMem = gpio.Close
)

// Open maps the GPIO registers on first use. Every successful Open must be
// paired with a Close.
func Open() error {
	mu.Lock()
	defer mu.Unlock()
	if users == 0 {
		if err := mapMem(); err != nil {
			return err
		}
	}
	users++
	return nil
}

// Close unmaps the registers when the last user closes. Extra calls are
// ignored.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if users == 0 {
		return nil
	}
	users--
	if users > 0 {
		return nil
	}
	return unmapMem()
}
