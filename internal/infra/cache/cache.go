// Package cache implements the TTL cache the fallback engine degrades
// through. Entries passively expire: a read past the TTL is no longer fresh
// but the value stays queryable via GetStale until evicted by a size or
// retention bound. That is what lets the orchestrator serve a labeled stale
// answer instead of failing outright.
package cache

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/vietddude/aggregator/internal/core/domain"
)

// Entry is one cached value with its provenance metadata.
type Entry struct {
	Value     json.RawMessage `json:"value"`
	Source    string          `json:"source"`
	FetchedAt time.Time       `json:"fetched_at"`
	TTL       time.Duration   `json:"ttl"`
}

// FreshAt reports whether the entry is still within its TTL at now.
func (e *Entry) FreshAt(now time.Time) bool {
	return now.Sub(e.FetchedAt) < e.TTL
}

// Store is the cache contract the orchestrator depends on. Get returns nil
// on a miss or when the entry is past its TTL; GetStale ignores the TTL and
// returns nil only when no value exists at all.
type Store interface {
	Get(ctx context.Context, category domain.Category, key string) (*Entry, error)
	GetStale(ctx context.Context, category domain.Category, key string) (*Entry, error)
	Set(ctx context.Context, category domain.Category, key string, entry *Entry) error
}

// Key builds the canonical request signature for a parameter set. Parameters
// are sorted so equivalent requests share a cache slot.
func Key(params map[string]string) string {
	if len(params) == 0 {
		return "_"
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

func slot(category domain.Category, key string) string {
	return string(category) + "|" + key
}
