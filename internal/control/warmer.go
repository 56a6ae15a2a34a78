package control

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/aggregator/internal/core/domain"
	"github.com/vietddude/aggregator/internal/engine/orchestrator"
)

// Warmer periodically refreshes one category's configured request shapes so
// consumers mostly hit fresh cache. Warm fetch failures are logged and
// retried on the next tick; the warmer itself never gives up.
type Warmer struct {
	orch     *orchestrator.Orchestrator
	category domain.Category
	shapes   []map[string]string
	interval time.Duration
	log      *slog.Logger
}

func NewWarmer(
	orch *orchestrator.Orchestrator,
	category domain.Category,
	shapes []map[string]string,
	interval time.Duration,
	log *slog.Logger,
) *Warmer {
	if log == nil {
		log = slog.Default()
	}
	return &Warmer{
		orch:     orch,
		category: category,
		shapes:   shapes,
		interval: interval,
		log:      log,
	}
}

func (w *Warmer) Category() domain.Category { return w.category }

// Run warms once immediately, then on every tick until the context ends.
func (w *Warmer) Run(ctx context.Context) {
	w.warm(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.warm(ctx)
		}
	}
}

func (w *Warmer) warm(ctx context.Context) {
	for _, params := range w.shapes {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.orch.Fetch(ctx, w.category, params); err != nil {
			w.log.Warn("Cache warm failed",
				"category", w.category,
				"error", err,
			)
		}
	}
}
