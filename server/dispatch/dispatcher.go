// Package dispatch turns the slots a poll cycle produced into user
// notifications: oldest slot first, at most one message per slot, with
// optional repeat suppression and a periodic heartbeat on quiet sessions.
package dispatch

import (
	"github.com/mattermost/mattermost/server/public/pluginapi"

	"github.com/ibidi/schengen-visa-bot/server/formatter"
	"github.com/ibidi/schengen-visa-bot/server/provider"
)

// heartbeatEvery is the consecutive-empty-cycle period between still-alive
// messages. Any cycle that produces slots restarts the count.
const heartbeatEvery = 10

// SlotNotifier delivers formatted messages to a user.
type SlotNotifier interface {
	Notify(userID, message string) error
	NotifySlot(userID string, slot provider.Slot) error
}

// Options tune per-session dispatch behavior.
type Options struct {
	// SuppressRepeats skips slots already announced to this user within
	// the suppression TTL. Off by default: a slot still open on the next
	// cycle is announced again.
	SuppressRepeats bool

	// Heartbeat sends a still-alive message every tenth consecutive
	// empty cycle.
	Heartbeat bool
}

// Dispatcher fans one session's cycle results out to its user. Each session
// gets its own dispatcher; the suppressor may be shared across sessions.
type Dispatcher struct {
	userID     string
	country    string
	city       string
	notifier   SlotNotifier
	suppressor *Suppressor
	opts       Options
	logger     pluginapi.LogService

	// Touched only from the session's job goroutine.
	emptyStreak int
}

// NewDispatcher creates a dispatcher for one session. suppressor may be nil
// when repeat suppression is disabled.
func NewDispatcher(userID, country, city string, notifier SlotNotifier, suppressor *Suppressor, opts Options, logger pluginapi.LogService) *Dispatcher {
	return &Dispatcher{
		userID:     userID,
		country:    country,
		city:       city,
		notifier:   notifier,
		suppressor: suppressor,
		opts:       opts,
		logger:     logger,
	}
}

// Dispatch announces the cycle's slots to the user, earliest date first,
// and returns how many slot notifications were sent. An empty cycle may
// produce a heartbeat instead. Delivery failures are logged and skipped;
// one undeliverable slot never blocks the rest.
func (d *Dispatcher) Dispatch(cycle int, slots []provider.Slot) int {
	if len(slots) == 0 {
		d.emptyStreak++
		d.maybeHeartbeat(cycle)
		return 0
	}
	d.emptyStreak = 0

	provider.SortSlots(slots)

	sent := 0
	for _, slot := range slots {
		if d.suppressed(slot) {
			continue
		}

		if err := d.notifier.NotifySlot(d.userID, slot); err != nil {
			d.logger.Warn("Failed to deliver slot notification",
				"userId", d.userID,
				"slot", formatter.SlotSummary(slot),
				"error", err.Error())
			continue
		}
		sent++
	}

	return sent
}

// suppressed reports whether this slot was already announced and records it
// as seen otherwise.
func (d *Dispatcher) suppressed(slot provider.Slot) bool {
	if !d.opts.SuppressRepeats || d.suppressor == nil {
		return false
	}
	if d.suppressor.Record(d.userID, slot.Signature()) {
		return false
	}

	d.logger.Debug("Suppressed repeat slot notification",
		"userId", d.userID,
		"slot", formatter.SlotSummary(slot))
	return true
}

func (d *Dispatcher) maybeHeartbeat(cycle int) {
	if !d.opts.Heartbeat || d.emptyStreak%heartbeatEvery != 0 {
		return
	}

	if err := d.notifier.Notify(d.userID, formatter.HeartbeatMessage(d.country, d.city, cycle)); err != nil {
		d.logger.Warn("Failed to deliver heartbeat",
			"userId", d.userID,
			"error", err.Error())
	}
}
