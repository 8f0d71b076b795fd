package session

import (
	"context"
	"fmt"
	"time"

	"github.com/mattermost/mattermost/server/public/pluginapi"

	"github.com/ibidi/schengen-visa-bot/server/audit"
	"github.com/ibidi/schengen-visa-bot/server/formatter"
	"github.com/ibidi/schengen-visa-bot/server/provider"
)

// AdapterResolver returns the provider adapter owning a mission country.
// The indirection lets the plugin swap the router when portal credentials
// change without touching running sessions.
type AdapterResolver func(country string) provider.Adapter

// SlotDispatcher hands one cycle's slots to the notification pipeline and
// returns how many notifications went out.
type SlotDispatcher interface {
	Dispatch(cycle int, slots []provider.Slot) int
}

// Notifier delivers a session-level message (escalation, terminal) to the
// session's user.
type Notifier interface {
	Notify(userID, message string) error
}

// CycleRecorder consumes the read-only audit stream. Implementations must
// not block the caller.
type CycleRecorder interface {
	Record(result audit.CycleResult)
}

// TerminalCallback is invoked when the runner stops its own session
// (authentication failure). The callback receives the terminated runner so
// the registry can ignore a late callback once a newer runner has taken
// over the user's session.
type TerminalCallback func(runner *Runner)

// Runner executes one session's poll cycles: fetch through the resolved
// adapter, dispatch the slots, and apply the failure policy. A runner owns
// its session's consecutive-failure counter and its scheduled job; cycles
// for one session never overlap because they all run on the job goroutine.
type Runner struct {
	api        *pluginapi.Client
	config     Config
	resolve    AdapterResolver
	dispatcher SlotDispatcher
	notifier   Notifier
	recorder   CycleRecorder // optional
	onTerminal TerminalCallback
	scheduler  JobScheduler
	job        Job

	// Touched only from the job goroutine.
	failures int
	cycles   int
}

// NewRunner creates a runner for the given session config.
func NewRunner(
	api *pluginapi.Client,
	config Config,
	resolve AdapterResolver,
	dispatcher SlotDispatcher,
	notifier Notifier,
	recorder CycleRecorder,
	onTerminal TerminalCallback,
) *Runner {
	return &Runner{
		api:        api,
		config:     config,
		resolve:    resolve,
		dispatcher: dispatcher,
		notifier:   notifier,
		recorder:   recorder,
		onTerminal: onTerminal,
		scheduler:  GoroutineScheduler{},
	}
}

// SetScheduler sets a custom job scheduler (useful for testing).
func (r *Runner) SetScheduler(scheduler JobScheduler) {
	r.scheduler = scheduler
}

// Config returns the session config this runner was built for.
func (r *Runner) Config() Config {
	return r.config
}

// Start schedules the polling job. The first cycle runs immediately, then
// once per FrequencyMinutes.
func (r *Runner) Start() error {
	if r.job != nil {
		return fmt.Errorf("runner already started")
	}

	jobID := fmt.Sprintf("visawatch_poll_%s", r.config.UserID)
	interval := time.Duration(r.config.FrequencyMinutes) * time.Minute

	job, err := r.scheduler.Schedule(jobID, interval, r.runCycle)
	if err != nil {
		return fmt.Errorf("failed to schedule poll job: %w", err)
	}

	r.job = job
	r.api.Log.Info("Watch session started",
		"userId", r.config.UserID,
		"country", r.config.Country,
		"city", r.config.City,
		"frequencyMinutes", r.config.FrequencyMinutes)
	return nil
}

// Stop cancels the polling job and waits for the in-flight cycle, if any,
// to finish. Safe to call on a runner that already ended itself.
func (r *Runner) Stop() error {
	if r.job == nil {
		return nil
	}

	err := r.job.Close()
	r.job = nil
	if err != nil {
		return fmt.Errorf("failed to close poll job: %w", err)
	}

	r.api.Log.Info("Watch session stopped", "userId", r.config.UserID)
	return nil
}

// runCycle executes one fetch → dispatch cycle. Returning false ends the
// job (terminal failure).
func (r *Runner) runCycle(ctx context.Context) bool {
	r.cycles++

	adapter := r.resolve(r.config.Country)
	query := provider.Query{
		Category: r.config.Category,
		Country:  r.config.Country,
		City:     r.config.City,
	}

	r.api.Log.Debug("Starting poll cycle",
		"userId", r.config.UserID,
		"cycle", r.cycles,
		"adapter", adapter.Name())

	slots, err := adapter.FetchSlots(ctx, query)
	if err != nil {
		return r.handleFetchError(ctx, adapter.Name(), err)
	}

	// Any successful fetch resets the failure counter, even with zero
	// slots.
	r.failures = 0

	notified := r.dispatcher.Dispatch(r.cycles, slots)

	outcome := audit.OutcomeEmpty
	if len(slots) > 0 {
		outcome = audit.OutcomeSlots
	}
	r.record(outcome, len(slots), "")

	r.api.Log.Debug("Poll cycle completed",
		"userId", r.config.UserID,
		"cycle", r.cycles,
		"slots", len(slots),
		"notified", notified)
	return true
}

// handleFetchError applies the failure policy for one classified adapter
// error. Returns false when the session must stop.
func (r *Runner) handleFetchError(ctx context.Context, adapterName string, err error) bool {
	if ctx.Err() != nil {
		// The session was cancelled mid-fetch; not a backend failure.
		return false
	}

	kind := provider.KindOf(err)
	r.api.Log.Error("Poll cycle failed",
		"userId", r.config.UserID,
		"cycle", r.cycles,
		"adapter", adapterName,
		"kind", kind.String(),
		"error", err.Error())
	r.record(audit.Outcome(kind.String()), 0, err.Error())

	switch kind {
	case provider.AuthFailure:
		r.notify(formatter.ReauthRequiredMessage(adapterName, r.config.Country))

		// Wrap in goroutine to avoid deadlock: the callback stops this
		// runner's job, which waits for this cycle to return.
		if r.onTerminal != nil {
			go r.onTerminal(r)
		}
		return false

	case provider.MalformedResponse:
		// The backend answered, just not parseably. Treat as an empty
		// cycle: no counter increment, no escalation.
		return true

	default: // Transient, RateLimited
		r.failures++
		if r.failures >= EscalationThreshold {
			r.notify(formatter.EscalationMessage(r.config.Country, r.config.City, r.failures))
			r.failures = 0
		}
		return true
	}
}

func (r *Runner) notify(message string) {
	if err := r.notifier.Notify(r.config.UserID, message); err != nil {
		// Delivery is best-effort; a failed notification never stops the
		// session.
		r.api.Log.Warn("Failed to deliver session notification", "userId", r.config.UserID, "error", err.Error())
	}
}

func (r *Runner) record(outcome audit.Outcome, slotCount int, errMsg string) {
	if r.recorder == nil {
		return
	}
	r.recorder.Record(audit.CycleResult{
		UserID:    r.config.UserID,
		Cycle:     r.cycles,
		Outcome:   outcome,
		SlotCount: slotCount,
		Err:       errMsg,
		Timestamp: time.Now(),
	})
}
