package engine

import (
	"log/slog"
	"time"

	"aide/storage"
)

// AutoScheduler decides, whenever the app returns to the foreground, whether
// the orchestrator should open a proactive exchange without user input.
//
// The last-foreground timestamp is persisted and updated on every
// evaluation regardless of the outcome, so the idle threshold is measured
// from the previous evaluation, not from app launch.
type AutoScheduler struct {
	store          *storage.Store
	enabled        func() bool
	hasCredentials func() bool
	threshold      time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

func NewAutoScheduler(store *storage.Store, enabled, hasCredentials func() bool, threshold time.Duration, logger *slog.Logger) *AutoScheduler {
	if threshold <= 0 {
		threshold = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoScheduler{
		store:          store,
		enabled:        enabled,
		hasCredentials: hasCredentials,
		threshold:      threshold,
		logger:         logger,
		now:            time.Now,
	}
}

// ShouldSendOnForeground evaluates the idle-time predicate: enabled,
// credentialed, and at least the threshold elapsed since the previous
// evaluation. The first evaluation only seeds the timestamp.
func (s *AutoScheduler) ShouldSendOnForeground() bool {
	now := s.now()

	lastRaw, err := s.store.GetState(storage.StateKeyLastForeground)
	if err != nil {
		s.logger.Warn("failed to read last-foreground timestamp", "error", err)
	}
	if err := s.store.SetState(storage.StateKeyLastForeground, now.Format(time.RFC3339Nano)); err != nil {
		s.logger.Warn("failed to store last-foreground timestamp", "error", err)
	}

	if !s.enabled() || !s.hasCredentials() {
		return false
	}
	if lastRaw == "" {
		return false
	}
	last, err := time.Parse(time.RFC3339Nano, lastRaw)
	if err != nil {
		return false
	}

	return now.Sub(last) >= s.threshold
}

// ShouldSendAfterClear is the always-available predicate used right after
// the user clears the conversation: no idle-time requirement, just enabled
// and credentialed, so a welcome-back message can open immediately.
func (s *AutoScheduler) ShouldSendAfterClear() bool {
	return s.enabled() && s.hasCredentials()
}
