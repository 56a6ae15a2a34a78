// Package selector picks the next resource to try for a category, biased
// toward higher priority and recent success with bounded exploration.
package selector

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/aggregator/internal/core/domain"
	"github.com/vietddude/aggregator/internal/engine/health"
	"github.com/vietddude/aggregator/internal/engine/registry"
)

// Candidate pairs a resource with its current health snapshot.
type Candidate struct {
	Resource domain.Resource
	Health   health.Snapshot
}

// Strategy picks one resource from a non-empty, best-first candidate list.
// Pluggable so the default heuristic can be swapped (e.g. weighted-by-
// latency) without touching the orchestrator.
type Strategy interface {
	Pick(candidates []Candidate) domain.Resource
}

// Selector computes the eligible candidate list and delegates the pick.
type Selector struct {
	registry *registry.Registry
	tracker  *health.Tracker
	strategy Strategy
}

// New creates a selector over the given registry and tracker.
func New(reg *registry.Registry, tracker *health.Tracker, strategy Strategy) *Selector {
	if strategy == nil {
		strategy = NewExploreStrategy(0.2, 3, nil)
	}
	return &Selector{registry: reg, tracker: tracker, strategy: strategy}
}

// Next returns the next resource to try, skipping cooled-down resources and
// everything in exclude. Returns false when no candidate remains; the caller
// falls back to stale cache or reports exhaustion.
func (s *Selector) Next(category domain.Category, exclude map[string]struct{}) (domain.Resource, bool) {
	var candidates []Candidate
	for _, res := range s.registry.List(category) {
		if _, skip := exclude[res.ID]; skip {
			continue
		}
		if !s.tracker.IsAvailable(res.ID) {
			continue
		}
		snap, _ := s.tracker.Snapshot(res.ID)
		candidates = append(candidates, Candidate{Resource: res, Health: snap})
	}
	if len(candidates) == 0 {
		return domain.Resource{}, false
	}

	// Best first: priority tier, then shortest failure streak, then least
	// recently attempted to spread load across equal candidates.
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Resource.Priority != b.Resource.Priority {
			return a.Resource.Priority < b.Resource.Priority
		}
		if a.Health.ConsecutiveFails != b.Health.ConsecutiveFails {
			return a.Health.ConsecutiveFails < b.Health.ConsecutiveFails
		}
		return a.Health.LastAttemptAt.Before(b.Health.LastAttemptAt)
	})

	return s.strategy.Pick(candidates), true
}

// ExploreStrategy is the default pick policy: exploit the best candidate most
// of the time, occasionally give a runner-up inside the top N a request so
// near-equal providers stay warm and load never concentrates fully on one.
// It is a documented heuristic, not a bandit algorithm.
type ExploreStrategy struct {
	mu            sync.Mutex
	rng           *rand.Rand
	exploreChance float64
	topN          int
}

// NewExploreStrategy creates the default strategy. A nil rng is seeded from
// the wall clock; tests pass a seeded one for determinism.
func NewExploreStrategy(exploreChance float64, topN int, rng *rand.Rand) *ExploreStrategy {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if topN < 2 {
		topN = 2
	}
	return &ExploreStrategy{rng: rng, exploreChance: exploreChance, topN: topN}
}

// Pick returns candidates[0] with probability 1-exploreChance, otherwise a
// uniform pick among the runners-up within the top N. Exploration never
// reaches past the top N, so low-priority or emergency resources are never
// exploratively selected ahead of healthy primary ones.
func (e *ExploreStrategy) Pick(candidates []Candidate) domain.Resource {
	if len(candidates) == 1 {
		return candidates[0].Resource
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rng.Float64() >= e.exploreChance {
		return candidates[0].Resource
	}

	n := e.topN
	if n > len(candidates) {
		n = len(candidates)
	}
	// Uniform over indices [1, n).
	return candidates[1+e.rng.Intn(n-1)].Resource
}
