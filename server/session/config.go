// Package session owns per-user watch sessions: their configuration, their
// lifecycle state, and the polling runner that executes fetch cycles.
package session

import (
	"fmt"
)

// State is a session's lifecycle state.
type State string

const (
	// StateIdle means no watch is configured or a previous one was stopped
	// by the user; a new dialog may start.
	StateIdle State = "idle"

	// StateActive means a polling runner is live for this session.
	StateActive State = "active"

	// StateStopped means the runner terminated itself (authentication
	// failure); the user must reconfigure to restart.
	StateStopped State = "stopped"
)

const (
	// MinFrequencyMinutes is the smallest poll cadence a session may use.
	MinFrequencyMinutes = 1

	// EscalationThreshold is the number of consecutive recoverable fetch
	// failures before the user is notified once that retries continue.
	EscalationThreshold = 3
)

// Config is one user's validated watch configuration. It is immutable once
// the session is active; reconfiguring replaces it atomically and restarts
// the runner.
type Config struct {
	// UserID is the opaque session identifier (the Mattermost user id).
	UserID string

	// Category is the provider group chosen in the dialog.
	Category string

	// Country is the mission country to watch.
	Country string

	// City filters center names, case-insensitively.
	City string

	// FrequencyMinutes is the poll cadence.
	FrequencyMinutes int
}

// Validate checks the invariants a config must satisfy before its session
// may become active.
func (c Config) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("missing user id")
	}
	if c.Country == "" {
		return fmt.Errorf("missing country")
	}
	if c.City == "" {
		return fmt.Errorf("missing city")
	}
	if c.FrequencyMinutes < MinFrequencyMinutes {
		return fmt.Errorf("frequency must be at least %d minute (got %d)", MinFrequencyMinutes, c.FrequencyMinutes)
	}
	return nil
}
