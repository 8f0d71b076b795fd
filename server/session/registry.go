package session

import (
	"sync"

	"github.com/pkg/errors"
)

// RunnerFactory builds a runner for a validated session config. The
// registry owns the returned runner's lifecycle.
type RunnerFactory func(config Config) (*Runner, error)

// Registry is the concurrency-safe store of per-user session state. All
// mutating operations for one user id are mutually exclusive; operations on
// different ids proceed independently.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*sessionEntry
	newRunner RunnerFactory
}

type sessionEntry struct {
	mu     sync.Mutex
	state  State
	config Config
	runner *Runner
}

// NewRegistry creates an empty session registry.
func NewRegistry(factory RunnerFactory) *Registry {
	return &Registry{
		sessions:  make(map[string]*sessionEntry),
		newRunner: factory,
	}
}

// entry returns the per-user entry, creating it on first use. The registry
// lock guards only the map; per-user work happens under the entry lock so
// one user's slow stop never blocks another user's start.
func (r *Registry) entry(userID string) *sessionEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[userID]
	if !ok {
		e = &sessionEntry{state: StateIdle}
		r.sessions[userID] = e
	}
	return e
}

// Start activates a session for config.UserID. If a runner is already live
// for that user it is cancelled and awaited first, so there are never two
// concurrent tasks for one id.
func (r *Registry) Start(config Config) error {
	if err := config.Validate(); err != nil {
		return errors.Wrap(err, "invalid session config")
	}

	e := r.entry(config.UserID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.runner != nil {
		if err := e.runner.Stop(); err != nil {
			return errors.Wrap(err, "failed to stop previous session")
		}
		e.runner = nil
	}

	runner, err := r.newRunner(config)
	if err != nil {
		return errors.Wrap(err, "failed to create session runner")
	}

	if err := runner.Start(); err != nil {
		return errors.Wrap(err, "failed to start session runner")
	}

	e.config = config
	e.state = StateActive
	e.runner = runner
	return nil
}

// Stop deactivates the user's session. Returns false (without error) when
// no session was active: stopping an inactive session is reported, not
// failed.
func (r *Registry) Stop(userID string) (bool, error) {
	e := r.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.runner == nil {
		return false, nil
	}

	if err := e.runner.Stop(); err != nil {
		return true, errors.Wrap(err, "failed to stop session runner")
	}

	e.runner = nil
	e.config = Config{}
	e.state = StateIdle
	return true, nil
}

// MarkStopped records that a runner terminated itself (authentication
// failure). The callback arrives on its own goroutine, so the user may have
// stopped or restarted the session in the meantime; only the entry still
// holding this exact runner is marked stopped. The runner's job goroutine
// is already winding down; Stop here just reaps it.
func (r *Registry) MarkStopped(runner *Runner) {
	e := r.entry(runner.config.UserID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.runner != runner {
		return
	}

	_ = runner.Stop()
	e.runner = nil
	e.config = Config{}
	e.state = StateStopped
}

// Status returns the user's session state and, when active, a snapshot of
// its config. The second return is false for idle and stopped sessions.
func (r *Registry) Status(userID string) (State, Config, bool) {
	e := r.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state, e.config, e.runner != nil
}

// Active reports whether the user currently has a live runner.
func (r *Registry) Active(userID string) bool {
	_, _, active := r.Status(userID)
	return active
}

// StopAll cancels and awaits every live runner. Used at plugin
// deactivation. Returns the first error encountered but keeps stopping the
// rest.
func (r *Registry) StopAll() error {
	r.mu.Lock()
	entries := make([]*sessionEntry, 0, len(r.sessions))
	for _, e := range r.sessions {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	var firstErr error
	for _, e := range entries {
		e.mu.Lock()
		if e.runner != nil {
			if err := e.runner.Stop(); err != nil && firstErr == nil {
				firstErr = err
			}
			e.runner = nil
			e.state = StateIdle
			e.config = Config{}
		}
		e.mu.Unlock()
	}
	return firstErr
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	entries := make([]*sessionEntry, 0, len(r.sessions))
	for _, e := range r.sessions {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	count := 0
	for _, e := range entries {
		e.mu.Lock()
		if e.runner != nil {
			count++
		}
		e.mu.Unlock()
	}
	return count
}
