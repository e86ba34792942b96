// Package eventpipe reads lock commands from a named pipe, for bench
// testing and local scripting.
package eventpipe

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golock/lock"
)

// Config holds configuration for the event pipe.
type Config struct {
	Path string `yaml:"path"` // Path to named pipe (e.g., "/tmp/golock-events")
}

// Op is a pipe command.
type Op int

const (
	OpLock Op = iota + 1
	OpUnlock
	OpState
	OpInit
)

// Command is one parsed line from the pipe.
type Command struct {
	Op     Op
	Config lock.Config // for OpInit
}

// Handler is called for every command received from the pipe.
type Handler func(Command)

// EventPipe listens for commands on a named pipe.
type EventPipe struct {
	path    string
	handler Handler
}

// New creates a new EventPipe. Returns nil if path is empty.
func New(cfg Config, handler Handler) (*EventPipe, error) {
	if cfg.Path == "" {
		return nil, nil
	}

	// Remove existing pipe if it exists
	os.Remove(cfg.Path)

	if err := syscall.Mkfifo(cfg.Path, 0666); err != nil {
		return nil, fmt.Errorf("create named pipe %s: %w", cfg.Path, err)
	}

	return &EventPipe{path: cfg.Path, handler: handler}, nil
}

// Run reads commands until ctx is done, reopening the pipe each time a
// writer closes it.
func (ep *EventPipe) Run(ctx context.Context) error {
	log.Printf("Event pipe listening on %s", ep.path)

	// Opening a FIFO blocks until a writer appears; a throwaway writer
	// releases it on shutdown.
	go func() {
		<-ctx.Done()
		if f, err := os.OpenFile(ep.path, os.O_WRONLY|syscall.O_NONBLOCK, 0); err == nil {
			f.Close()
		}
	}()

	for ctx.Err() == nil {
		file, err := os.OpenFile(ep.path, os.O_RDONLY, 0)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("open event pipe: %w", err)
		}
		ep.read(ctx, file)
		file.Close()
	}
	return nil
}

func (ep *EventPipe) read(ctx context.Context, file *os.File) {
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		cmd, err := parseLine(line)
		if err != nil {
			log.Printf("Event pipe parse error: %v", err)
			continue
		}
		if ep.handler != nil {
			ep.handler(cmd)
		}
	}
}

// Close removes the pipe.
func (ep *EventPipe) Close() error {
	return os.Remove(ep.path)
}

// parseLine parses a command line into a Command.
// Command format:
//
//	lock                               - Start locking
//	unlock                             - Start unlocking
//	state                              - Log the current state
//	init <rotations> <state> <cw|ccw>  - Re-initialize (state: uninitialized, locked, unlocked)
func parseLine(line string) (Command, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}

	switch cmd := strings.ToLower(parts[0]); cmd {
	case "lock":
		return Command{Op: OpLock}, nil
	case "unlock":
		return Command{Op: OpUnlock}, nil
	case "state", "status":
		return Command{Op: OpState}, nil
	case "init":
		if len(parts) != 4 {
			return Command{}, fmt.Errorf("init requires <rotations> <state> <direction>")
		}
		rotations, err := strconv.Atoi(parts[1])
		if err != nil {
			return Command{}, fmt.Errorf("invalid rotations: %s", parts[1])
		}
		state, err := lock.ParseState(parts[2])
		if err != nil {
			return Command{}, err
		}
		dir, err := lock.ParseDirection(parts[3])
		if err != nil {
			return Command{}, err
		}
		return Command{Op: OpInit, Config: lock.Config{Rotations: rotations, InitialState: state, Direction: dir}}, nil
	default:
		return Command{}, fmt.Errorf("unknown command: %s", cmd)
	}
}
