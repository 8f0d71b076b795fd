// Package audit offers collaborators a read-only stream of per-cycle
// results for logging and dashboard display. The polling core hands events
// to the recorder without ever blocking on it: when the buffer is full the
// event is dropped.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mattermost/mattermost/server/public/plugin"
	"github.com/mattermost/mattermost/server/public/pluginapi"
)

const (
	// historyLimit caps the stored cycle results per user.
	historyLimit = 50

	// bufferSize is the event channel capacity. Sized for bursts; the
	// sink normally drains faster than sessions produce.
	bufferSize = 64
)

// Outcome labels one poll cycle's result. Error outcomes reuse the
// provider error kind identifiers.
type Outcome string

const (
	OutcomeSlots Outcome = "slots"
	OutcomeEmpty Outcome = "empty"
)

// CycleResult is one entry of the audit stream.
type CycleResult struct {
	UserID    string    `json:"userId"`
	Cycle     int       `json:"cycle"`
	Outcome   Outcome   `json:"outcome"`
	SlotCount int       `json:"slotCount"`
	Err       string    `json:"err,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Recorder buffers cycle results and persists the latest entries per user
// to the KV store from a single sink goroutine.
type Recorder struct {
	api    plugin.API
	logger pluginapi.LogService
	events chan CycleResult
	stop   chan struct{}
	done   chan struct{}
}

// NewRecorder creates a recorder and starts its sink loop.
func NewRecorder(api plugin.API, logger pluginapi.LogService) *Recorder {
	r := &Recorder{
		api:    api,
		logger: logger,
		events: make(chan CycleResult, bufferSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	go r.sinkLoop()

	return r
}

// Record offers one cycle result to the stream. Never blocks: if the sink
// is behind, the event is dropped.
func (r *Recorder) Record(result CycleResult) {
	select {
	case r.events <- result:
	default:
		r.logger.Debug("Audit buffer full, dropping cycle result", "userId", result.UserID, "cycle", result.Cycle)
	}
}

// History returns the stored cycle results for a user, most recent last.
func (r *Recorder) History(userID string) ([]CycleResult, error) {
	data, err := r.api.KVGet(historyKey(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to load audit history: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	var history []CycleResult
	if uerr := json.Unmarshal(data, &history); uerr != nil {
		return nil, fmt.Errorf("failed to unmarshal audit history: %w", uerr)
	}
	return history, nil
}

// Stop shuts down the sink loop and waits for it to finish. Buffered
// events are flushed before the loop exits.
func (r *Recorder) Stop() {
	close(r.stop)
	<-r.done
}

func (r *Recorder) sinkLoop() {
	defer close(r.done)
	for {
		select {
		case result := <-r.events:
			r.persist(result)
		case <-r.stop:
			for {
				select {
				case result := <-r.events:
					r.persist(result)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) persist(result CycleResult) {
	history, err := r.History(result.UserID)
	if err != nil {
		r.logger.Warn("Failed to read audit history", "userId", result.UserID, "error", err.Error())
		history = nil
	}

	history = append(history, result)
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	data, err := json.Marshal(history)
	if err != nil {
		r.logger.Warn("Failed to marshal audit history", "userId", result.UserID, "error", err.Error())
		return
	}

	if err := r.api.KVSet(historyKey(result.UserID), data); err != nil {
		r.logger.Warn("Failed to persist audit history", "userId", result.UserID, "error", err.Error())
	}
}

func historyKey(userID string) string {
	return fmt.Sprintf("audit_%s", userID)
}
