// Package health tracks per-resource success/failure counters and time-boxed
// cooldown state. It is the only writer of resource health; everything else
// reads snapshots.
package health

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vietddude/aggregator/internal/core/domain"
)

// Config holds cooldown thresholds. The defaults are empirically chosen, not
// claimed optimal; operators tune them per deployment.
type Config struct {
	// FailureThreshold is the consecutive-failure count that triggers
	// FailureCooldown. Below it, single blips leave availability untouched.
	FailureThreshold int
	// FailureCooldown suspends a resource after repeated generic failures.
	FailureCooldown time.Duration
	// RateLimitCooldown suspends a resource immediately when the provider
	// explicitly asked to back off.
	RateLimitCooldown time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:  3,
		FailureCooldown:   5 * time.Minute,
		RateLimitCooldown: 60 * time.Minute,
	}
}

// Snapshot is a point-in-time copy of one resource's health state.
type Snapshot struct {
	ResourceID       string                `json:"resource_id"`
	Status           domain.ResourceStatus `json:"status"`
	SuccessCount     uint64                `json:"success_count"`
	FailCount        uint64                `json:"fail_count"`
	ConsecutiveFails int                   `json:"consecutive_fails"`
	// CooldownUntil is zero when no cooldown is active.
	CooldownUntil time.Time `json:"cooldown_until,omitempty"`
	LastAttemptAt time.Time `json:"last_attempt_at,omitempty"`
}

type state struct {
	mu               sync.Mutex
	status           domain.ResourceStatus
	successCount     uint64
	failCount        uint64
	consecutiveFails int
	cooldownUntil    time.Time
	lastAttemptAt    time.Time
}

// Tracker holds health state for every known resource. Writes to a single
// resource are serialized by a per-resource mutex; resources never contend
// with each other.
type Tracker struct {
	cfg   Config
	clock clock.Clock

	mu     sync.RWMutex
	states map[string]*state
}

// NewTracker creates a tracker with the given thresholds.
func NewTracker(cfg Config, clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.New()
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.FailureCooldown <= 0 {
		cfg.FailureCooldown = DefaultConfig().FailureCooldown
	}
	if cfg.RateLimitCooldown <= 0 {
		cfg.RateLimitCooldown = DefaultConfig().RateLimitCooldown
	}
	return &Tracker{
		cfg:    cfg,
		clock:  clk,
		states: make(map[string]*state),
	}
}

func (t *Tracker) ensure(id string) *state {
	t.mu.RLock()
	s, ok := t.states[id]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok = t.states[id]; ok {
		return s
	}
	s = &state{status: domain.StatusAvailable}
	t.states[id] = s
	return s
}

// RecordSuccess resets the failure streak and clears any active cooldown.
// One success is always enough to restore availability.
func (t *Tracker) RecordSuccess(id string) {
	s := t.ensure(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	s.successCount++
	s.consecutiveFails = 0
	s.cooldownUntil = time.Time{}
	s.status = domain.StatusAvailable
	s.lastAttemptAt = t.clock.Now()
}

// RecordFailure increments failure counters and applies cooldown policy:
// an explicit rate limit triggers the long cooldown immediately, repeated
// generic failures trigger the short one, and a single blip changes nothing.
// The cooldown deadline only ever moves forward while failures accumulate.
func (t *Tracker) RecordFailure(id string, kind domain.ErrorKind) {
	s := t.ensure(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := t.clock.Now()
	s.failCount++
	s.consecutiveFails++
	s.lastAttemptAt = now

	switch {
	case kind == domain.KindRateLimited:
		s.extendCooldown(now.Add(t.cfg.RateLimitCooldown))
		s.status = domain.StatusRateLimited
	case s.consecutiveFails >= t.cfg.FailureThreshold:
		s.extendCooldown(now.Add(t.cfg.FailureCooldown))
		s.status = domain.StatusDegraded
	}
}

// extendCooldown keeps cooldownUntil monotonically non-decreasing.
// Caller holds s.mu.
func (s *state) extendCooldown(until time.Time) {
	if until.After(s.cooldownUntil) {
		s.cooldownUntil = until
	}
}

// IsAvailable reports whether a resource may be selected right now.
// Unknown resources are available: health state is created on first use.
func (t *Tracker) IsAvailable(id string) bool {
	t.mu.RLock()
	s, ok := t.states[id]
	t.mu.RUnlock()
	if !ok {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == domain.StatusFailed {
		return false
	}
	return s.cooldownUntil.IsZero() || !t.clock.Now().Before(s.cooldownUntil)
}

// Snapshot returns a copy of one resource's health state.
func (t *Tracker) Snapshot(id string) (Snapshot, bool) {
	t.mu.RLock()
	s, ok := t.states[id]
	t.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ResourceID:       id,
		Status:           s.status,
		SuccessCount:     s.successCount,
		FailCount:        s.failCount,
		ConsecutiveFails: s.consecutiveFails,
		CooldownUntil:    s.cooldownUntil,
		LastAttemptAt:    s.lastAttemptAt,
	}, true
}

// Snapshots returns health state for every tracked resource.
func (t *Tracker) Snapshots() []Snapshot {
	t.mu.RLock()
	ids := make([]string, 0, len(t.states))
	for id := range t.states {
		ids = append(ids, id)
	}
	t.mu.RUnlock()

	out := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		if snap, ok := t.Snapshot(id); ok {
			out = append(out, snap)
		}
	}
	return out
}

// InCooldown counts resources currently cooling down, for metrics.
func (t *Tracker) InCooldown() int {
	now := t.clock.Now()
	count := 0
	for _, snap := range t.Snapshots() {
		if !snap.CooldownUntil.IsZero() && now.Before(snap.CooldownUntil) {
			count++
		}
	}
	return count
}
