package main

import (
	"encoding/json"
	"fmt"
	"log"

	"golock/eventpipe"
	"golock/lock"
)

// RemoteCommand is the JSON payload of the MQTT command topic.
type RemoteCommand struct {
	Command   string `json:"command"` // lock, unlock, state, init
	Rotations int    `json:"rotations,omitempty"`
	State     string `json:"state,omitempty"`
	Direction string `json:"direction,omitempty"`
}

func (app *App) onRemoteCommand(payload []byte) {
	cmd, err := parseRemoteCommand(payload)
	if err != nil {
		log.Printf("Remote command rejected: %v", err)
		return
	}
	fmt.Printf("Remote command %s\n", payload)
	app.execute(cmd)
}

// parseRemoteCommand decodes payload into a front end command.
func parseRemoteCommand(payload []byte) (eventpipe.Command, error) {
	var req RemoteCommand
	if err := json.Unmarshal(payload, &req); err != nil {
		return eventpipe.Command{}, fmt.Errorf("decode command: %w", err)
	}

	switch req.Command {
	case "lock":
		return eventpipe.Command{Op: eventpipe.OpLock}, nil
	case "unlock":
		return eventpipe.Command{Op: eventpipe.OpUnlock}, nil
	case "state", "status":
		return eventpipe.Command{Op: eventpipe.OpState}, nil
	case "init":
		state, err := lock.ParseState(req.State)
		if err != nil {
			return eventpipe.Command{}, err
		}
		dir, err := lock.ParseDirection(req.Direction)
		if err != nil {
			return eventpipe.Command{}, err
		}
		cfg := lock.Config{Rotations: req.Rotations, InitialState: state, Direction: dir}
		if err := cfg.Validate(); err != nil {
			return eventpipe.Command{}, err
		}
		return eventpipe.Command{Op: eventpipe.OpInit, Config: cfg}, nil
	default:
		return eventpipe.Command{}, fmt.Errorf("unknown command %q", req.Command)
	}
}
