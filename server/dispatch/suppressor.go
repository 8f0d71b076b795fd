package dispatch

import (
	"sync"
	"time"

	"github.com/mattermost/mattermost/server/public/pluginapi"
)

const (
	// SuppressionTTL is how long a notified slot signature stays
	// suppressed before the same slot may be announced again.
	SuppressionTTL = 24 * time.Hour

	// sweepInterval bounds how often Record scans for expired entries.
	sweepInterval = 10 * time.Minute
)

// Suppressor tracks slot signatures already announced to a user so repeat
// appearances of the same slot in later cycles stay quiet. Shared across
// all sessions, with entries held per user. Expired entries are reaped
// opportunistically during Record, so there is no background goroutine to
// manage.
type Suppressor struct {
	logger pluginapi.LogService

	mu        sync.Mutex
	seen      map[string]map[string]time.Time
	lastSweep time.Time

	now func() time.Time
}

// NewSuppressor creates an empty suppressor.
func NewSuppressor(logger pluginapi.LogService) *Suppressor {
	return &Suppressor{
		logger: logger,
		seen:   make(map[string]map[string]time.Time),
		now:    time.Now,
	}
}

// Record atomically checks whether the user has already been told about this
// slot signature and marks it as seen if not. Returns true if the slot is
// new for this user, false if it is a repeat within the suppression TTL.
func (s *Suppressor) Record(userID, signature string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.maybeSweep(now)

	sigs := s.seen[userID]
	if seenAt, ok := sigs[signature]; ok && now.Sub(seenAt) < SuppressionTTL {
		return false
	}

	if sigs == nil {
		sigs = make(map[string]time.Time)
		s.seen[userID] = sigs
	}
	sigs[signature] = now
	return true
}

// Forget drops all entries for one user, used when their session restarts
// so a fresh session announces everything currently available.
func (s *Suppressor) Forget(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.seen, userID)
}

// maybeSweep reaps expired entries at most once per sweepInterval. Caller
// holds the lock.
func (s *Suppressor) maybeSweep(now time.Time) {
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now

	expired := 0
	for userID, sigs := range s.seen {
		for sig, seenAt := range sigs {
			if now.Sub(seenAt) >= SuppressionTTL {
				delete(sigs, sig)
				expired++
			}
		}
		if len(sigs) == 0 {
			delete(s.seen, userID)
		}
	}

	if expired > 0 {
		s.logger.Debug("Dropped expired slot suppression entries", "expired", expired)
	}
}
