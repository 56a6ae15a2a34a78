package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/aggregator/internal/core/domain"
)

// AttemptRepo implements storage.AttemptRepository in memory with a bounded
// journal. Used when no database is configured and in tests.
type AttemptRepo struct {
	mu       sync.RWMutex
	attempts []*domain.FetchAttempt
	maxSize  int
}

func NewAttemptRepo(maxSize int) *AttemptRepo {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &AttemptRepo{maxSize: maxSize}
}

func (r *AttemptRepo) Save(_ context.Context, attempt *domain.FetchAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *attempt
	r.attempts = append(r.attempts, &cp)
	if len(r.attempts) > r.maxSize {
		r.attempts = r.attempts[len(r.attempts)-r.maxSize:]
	}
	return nil
}

func (r *AttemptRepo) Recent(_ context.Context, category domain.Category, limit int) ([]*domain.FetchAttempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	var out []*domain.FetchAttempt
	for i := len(r.attempts) - 1; i >= 0 && len(out) < limit; i-- {
		a := r.attempts[i]
		if category != "" && a.Category != category {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (r *AttemptRepo) CountByOutcome(_ context.Context, resourceID string, since time.Time) (map[domain.AttemptOutcome]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[domain.AttemptOutcome]int)
	for _, a := range r.attempts {
		if a.ResourceID != resourceID || a.Timestamp.Before(since) {
			continue
		}
		counts[a.Outcome]++
	}
	return counts, nil
}

func (r *AttemptRepo) Prune(_ context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.attempts[:0]
	var removed int64
	for _, a := range r.attempts {
		if a.Timestamp.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	r.attempts = kept
	return removed, nil
}
