// Package orchestrator drives the fetch-with-fallback loop: cache check,
// provider selection, attempt, health update, cache write, cascading through
// the pool until success, exhaustion, or the attempt cap. Stale cache is the
// last resort before a structured exhaustion error.
package orchestrator

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/vietddude/aggregator/internal/core/domain"
	"github.com/vietddude/aggregator/internal/engine/health"
	"github.com/vietddude/aggregator/internal/engine/selector"
	"github.com/vietddude/aggregator/internal/engine/stats"
	"github.com/vietddude/aggregator/internal/infra/adapter"
	"github.com/vietddude/aggregator/internal/infra/cache"
	"github.com/vietddude/aggregator/internal/metrics"
)

// CategorySettings holds the per-category fetch knobs.
type CategorySettings struct {
	TTL            time.Duration
	AttemptTimeout time.Duration
	MaxAttempts    int
}

// DefaultSettings applies when a category has no explicit block.
var DefaultSettings = CategorySettings{
	TTL:            60 * time.Second,
	AttemptTimeout: 10 * time.Second,
	MaxAttempts:    5,
}

// Orchestrator owns no persistent state of its own; it only holds transient
// per-request exclusion sets and delegates everything else.
type Orchestrator struct {
	selector *selector.Selector
	tracker  *health.Tracker
	cache    cache.Store
	adapter  adapter.Adapter
	recorder stats.Recorder
	clock    clock.Clock
	log      *slog.Logger

	mu       sync.RWMutex
	settings map[domain.Category]CategorySettings
}

// New creates an orchestrator. recorder and log may be nil.
func New(
	sel *selector.Selector,
	tracker *health.Tracker,
	store cache.Store,
	ad adapter.Adapter,
	recorder stats.Recorder,
	clk clock.Clock,
	log *slog.Logger,
) *Orchestrator {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		selector: sel,
		tracker:  tracker,
		cache:    store,
		adapter:  ad,
		recorder: recorder,
		clock:    clk,
		log:      log,
		settings: make(map[domain.Category]CategorySettings),
	}
}

// Configure sets the per-category settings. Safe to call on hot reload;
// in-flight fetches keep the settings they started with.
func (o *Orchestrator) Configure(settings map[domain.Category]CategorySettings) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.settings = settings
}

func (o *Orchestrator) settingsFor(category domain.Category) CategorySettings {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if s, ok := o.settings[category]; ok {
		return s
	}
	return DefaultSettings
}

// Fetch resolves one logical request with the category's configured attempt
// cap. Callers either get a value (fresh or stale, both labeled) or a
// *domain.ExhaustedError listing everything tried.
func (o *Orchestrator) Fetch(ctx context.Context, category domain.Category, params map[string]string) (*domain.FetchResult, error) {
	return o.FetchN(ctx, category, params, o.settingsFor(category).MaxAttempts)
}

// FetchN is Fetch with an explicit attempt cap.
func (o *Orchestrator) FetchN(ctx context.Context, category domain.Category, params map[string]string, maxAttempts int) (*domain.FetchResult, error) {
	set := o.settingsFor(category)
	key := cache.Key(params)

	// Dominant steady-state path: serve fresh cache, contact nobody.
	if e, err := o.cache.Get(ctx, category, key); err == nil && e != nil {
		metrics.FetchesTotal.WithLabelValues(string(category), "fresh_cache").Inc()
		return &domain.FetchResult{
			Value:     e.Value,
			Source:    e.Source,
			FetchedAt: e.FetchedAt,
		}, nil
	}

	exclude := make(map[string]struct{}, maxAttempts)
	attempted := make([]string, 0, maxAttempts)

	for len(attempted) < maxAttempts {
		if err := ctx.Err(); err != nil {
			metrics.FetchesTotal.WithLabelValues(string(category), "cancelled").Inc()
			return nil, err
		}

		res, ok := o.selector.Next(category, exclude)
		if !ok {
			break // pool exhausted or fully cooled down
		}
		exclude[res.ID] = struct{}{}
		attempted = append(attempted, res.ID)

		value, latency, err := o.attempt(ctx, res, params, set.AttemptTimeout)
		if err == nil {
			o.tracker.RecordSuccess(res.ID)
			o.report(res, domain.OutcomeSuccess, "", latency)

			entry := &cache.Entry{
				Value:     value,
				Source:    res.ID,
				FetchedAt: o.clock.Now(),
				TTL:       set.TTL,
			}
			if cerr := o.cache.Set(ctx, category, key, entry); cerr != nil {
				o.log.Warn("cache write failed", "category", category, "error", cerr)
			}

			metrics.FetchesTotal.WithLabelValues(string(category), "provider").Inc()
			return &domain.FetchResult{
				Value:     value,
				Source:    res.ID,
				FetchedAt: entry.FetchedAt,
			}, nil
		}

		kind := domain.KindOf(err)
		o.tracker.RecordFailure(res.ID, kind)
		o.report(res, domain.OutcomeFailure, kind, latency)
		o.log.Warn("provider attempt failed",
			"category", category,
			"resource", res.ID,
			"kind", kind,
			"error", err,
		)
	}

	// Every eligible resource failed or none were eligible. A stale value is
	// still a recovered outcome, explicitly labeled for the caller.
	if e, err := o.cache.GetStale(ctx, category, key); err == nil && e != nil {
		metrics.FetchesTotal.WithLabelValues(string(category), "stale_cache").Inc()
		o.log.Info("serving stale cache after exhaustion",
			"category", category,
			"age", o.clock.Now().Sub(e.FetchedAt),
		)
		return &domain.FetchResult{
			Value:     e.Value,
			Source:    e.Source,
			Stale:     true,
			FetchedAt: e.FetchedAt,
		}, nil
	}

	metrics.FetchesTotal.WithLabelValues(string(category), "exhausted").Inc()
	return nil, &domain.ExhaustedError{Category: category, Attempted: attempted}
}

// attempt runs one provider call under its own deadline. The context is
// cancelled either way so a slow provider never leaks a connection into the
// next attempt.
func (o *Orchestrator) attempt(ctx context.Context, res domain.Resource, params map[string]string, timeout time.Duration) (json.RawMessage, time.Duration, error) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := o.clock.Now()
	value, err := o.adapter.Call(actx, res, params)
	return value, o.clock.Now().Sub(start), err
}

func (o *Orchestrator) report(res domain.Resource, outcome domain.AttemptOutcome, kind domain.ErrorKind, latency time.Duration) {
	label := string(outcome)
	if outcome == domain.OutcomeFailure {
		label = string(kind)
	}
	metrics.AttemptsTotal.WithLabelValues(string(res.Category), res.ID, label).Inc()
	metrics.AttemptLatency.WithLabelValues(string(res.Category), res.ID).Observe(latency.Seconds())

	if o.recorder == nil {
		return
	}
	o.recorder.Record(domain.FetchAttempt{
		ID:         uuid.New().String(),
		Timestamp:  o.clock.Now(),
		ResourceID: res.ID,
		Category:   res.Category,
		Outcome:    outcome,
		ErrorKind:  kind,
		Latency:    latency,
	})
}
