package cache

import (
	"context"
	"log/slog"

	"github.com/vietddude/aggregator/internal/core/domain"
)

// Layered is a two-level store: L1 in-process memory, L2 shared (Redis).
// L2 errors degrade to L1-only behavior; a flaky Redis never fails a fetch.
type Layered struct {
	mem *Memory
	l2  Store
	log *slog.Logger
}

// NewLayered creates a layered store over the given tiers.
func NewLayered(mem *Memory, l2 Store, log *slog.Logger) *Layered {
	if log == nil {
		log = slog.Default()
	}
	return &Layered{mem: mem, l2: l2, log: log}
}

func (lc *Layered) Get(ctx context.Context, category domain.Category, key string) (*Entry, error) {
	if e, err := lc.mem.Get(ctx, category, key); err == nil && e != nil {
		return e, nil
	}

	e, err := lc.l2.Get(ctx, category, key)
	if err != nil {
		lc.log.Warn("L2 cache read failed", "category", category, "error", err)
		return nil, nil
	}
	if e == nil {
		return nil, nil
	}

	// Promote for next time.
	_ = lc.mem.Set(ctx, category, key, e)
	return e, nil
}

func (lc *Layered) GetStale(ctx context.Context, category domain.Category, key string) (*Entry, error) {
	if e, err := lc.mem.GetStale(ctx, category, key); err == nil && e != nil {
		return e, nil
	}

	e, err := lc.l2.GetStale(ctx, category, key)
	if err != nil {
		lc.log.Warn("L2 stale read failed", "category", category, "error", err)
		return nil, nil
	}
	return e, nil
}

func (lc *Layered) Set(ctx context.Context, category domain.Category, key string, entry *Entry) error {
	if err := lc.l2.Set(ctx, category, key, entry); err != nil {
		lc.log.Warn("L2 cache write failed", "category", category, "error", err)
	}
	return lc.mem.Set(ctx, category, key, entry)
}
