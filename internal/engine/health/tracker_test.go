package health

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vietddude/aggregator/internal/core/domain"
)

func newTestTracker() (*Tracker, *clock.Mock) {
	mock := clock.NewMock()
	mock.Set(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return NewTracker(DefaultConfig(), mock), mock
}

func TestRateLimitCooldownWindow(t *testing.T) {
	tr, mock := newTestTracker()

	tr.RecordFailure("cmc", domain.KindRateLimited)

	if tr.IsAvailable("cmc") {
		t.Fatal("Expected resource unavailable immediately after rate limit")
	}

	// 59 minutes later: still cooling down.
	mock.Add(59 * time.Minute)
	if tr.IsAvailable("cmc") {
		t.Error("Expected resource unavailable 59m into a 60m cooldown")
	}

	// Exactly at expiry: available again, never before.
	mock.Add(1 * time.Minute)
	if !tr.IsAvailable("cmc") {
		t.Error("Expected resource available exactly at cooldown expiry")
	}

	snap, _ := tr.Snapshot("cmc")
	if snap.Status != domain.StatusRateLimited {
		t.Errorf("Expected status rate_limited, got %s", snap.Status)
	}
}

func TestConsecutiveFailureCooldown(t *testing.T) {
	tr, mock := newTestTracker()

	// Two blips: no cooldown yet.
	tr.RecordFailure("coingecko", domain.KindTimeout)
	tr.RecordFailure("coingecko", domain.KindServer)

	if !tr.IsAvailable("coingecko") {
		t.Fatal("Expected resource available after 2 failures (below threshold)")
	}
	snap, _ := tr.Snapshot("coingecko")
	if !snap.CooldownUntil.IsZero() {
		t.Errorf("Expected no cooldown below threshold, got %v", snap.CooldownUntil)
	}
	if snap.Status != domain.StatusAvailable {
		t.Errorf("Expected status unchanged below threshold, got %s", snap.Status)
	}

	// Third consecutive failure trips the short cooldown.
	tr.RecordFailure("coingecko", domain.KindNetwork)
	if tr.IsAvailable("coingecko") {
		t.Fatal("Expected resource unavailable after 3 consecutive failures")
	}
	snap, _ = tr.Snapshot("coingecko")
	if snap.Status != domain.StatusDegraded {
		t.Errorf("Expected status degraded, got %s", snap.Status)
	}

	mock.Add(5 * time.Minute)
	if !tr.IsAvailable("coingecko") {
		t.Error("Expected resource available after 5m cooldown")
	}
}

func TestSuccessClearsState(t *testing.T) {
	tr, _ := newTestTracker()

	for i := 0; i < 10; i++ {
		tr.RecordFailure("binance", domain.KindServer)
	}
	if tr.IsAvailable("binance") {
		t.Fatal("Expected resource in cooldown after 10 failures")
	}

	// A single success resets everything.
	tr.RecordSuccess("binance")

	if !tr.IsAvailable("binance") {
		t.Error("Expected resource available immediately after success")
	}
	snap, _ := tr.Snapshot("binance")
	if snap.ConsecutiveFails != 0 {
		t.Errorf("Expected consecutive fails reset, got %d", snap.ConsecutiveFails)
	}
	if !snap.CooldownUntil.IsZero() {
		t.Errorf("Expected cooldown cleared, got %v", snap.CooldownUntil)
	}
	if snap.Status != domain.StatusAvailable {
		t.Errorf("Expected status available, got %s", snap.Status)
	}
	if snap.SuccessCount != 1 || snap.FailCount != 10 {
		t.Errorf("Lifetime counters wrong: %+v", snap)
	}
}

func TestCooldownIsMonotonic(t *testing.T) {
	tr, mock := newTestTracker()

	// Rate limit sets a 60m deadline.
	tr.RecordFailure("etherscan", domain.KindRateLimited)
	first, _ := tr.Snapshot("etherscan")

	// A generic failure 1m later must not shorten the deadline to now+5m.
	mock.Add(1 * time.Minute)
	tr.RecordFailure("etherscan", domain.KindServer)
	second, _ := tr.Snapshot("etherscan")

	if second.CooldownUntil.Before(first.CooldownUntil) {
		t.Errorf("Cooldown moved backwards: %v -> %v", first.CooldownUntil, second.CooldownUntil)
	}

	// Another rate limit extends it further.
	mock.Add(1 * time.Minute)
	tr.RecordFailure("etherscan", domain.KindRateLimited)
	third, _ := tr.Snapshot("etherscan")
	if !third.CooldownUntil.After(second.CooldownUntil) {
		t.Errorf("Expected new rate limit to extend cooldown: %v -> %v",
			second.CooldownUntil, third.CooldownUntil)
	}
}

func TestUnknownResourceIsAvailable(t *testing.T) {
	tr, _ := newTestTracker()
	if !tr.IsAvailable("never-seen") {
		t.Error("Expected unknown resource to be available")
	}
}

func TestConcurrentRecords(t *testing.T) {
	tr, _ := newTestTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tr.RecordFailure("shared", domain.KindServer)
		}()
		go func() {
			defer wg.Done()
			tr.RecordSuccess("other")
		}()
	}
	wg.Wait()

	snap, _ := tr.Snapshot("shared")
	if snap.FailCount != 50 {
		t.Errorf("Expected 50 failures recorded, got %d", snap.FailCount)
	}
	other, _ := tr.Snapshot("other")
	if other.SuccessCount != 50 {
		t.Errorf("Expected 50 successes recorded, got %d", other.SuccessCount)
	}
}

func TestInCooldown(t *testing.T) {
	tr, mock := newTestTracker()

	tr.RecordFailure("a", domain.KindRateLimited)
	tr.RecordSuccess("b")
	if got := tr.InCooldown(); got != 1 {
		t.Errorf("Expected 1 resource in cooldown, got %d", got)
	}

	mock.Add(61 * time.Minute)
	if got := tr.InCooldown(); got != 0 {
		t.Errorf("Expected 0 resources in cooldown after expiry, got %d", got)
	}
}
