// Package stats aggregates fetch attempt records for the observability
// surface. It sits off the hot path: the orchestrator reports outcomes here
// but never consults stats when selecting providers.
package stats

import (
	"sync"
	"time"

	"github.com/vietddude/aggregator/internal/core/domain"
)

// Recorder consumes attempt records. Implemented by the ring buffer here and
// the durable journal; control fans one attempt out to both.
type Recorder interface {
	Record(attempt domain.FetchAttempt)
}

// Multi fans records out to several recorders.
type Multi []Recorder

func (m Multi) Record(attempt domain.FetchAttempt) {
	for _, r := range m {
		r.Record(attempt)
	}
}

// ResourceSummary aggregates outcomes for one resource.
type ResourceSummary struct {
	ResourceID   string                   `json:"resource_id"`
	Total        int                      `json:"total"`
	Successes    int                      `json:"successes"`
	Failures     int                      `json:"failures"`
	SuccessRate  float64                  `json:"success_rate"`
	AvgLatencyMs float64                  `json:"avg_latency_ms"`
	ByErrorKind  map[domain.ErrorKind]int `json:"by_error_kind,omitempty"`
}

// Summary aggregates outcomes, optionally filtered to one category.
type Summary struct {
	Category     domain.Category            `json:"category,omitempty"`
	Total        int                        `json:"total"`
	Successes    int                        `json:"successes"`
	Failures     int                        `json:"failures"`
	SuccessRate  float64                    `json:"success_rate"`
	AvgLatencyMs float64                    `json:"avg_latency_ms"`
	PerResource  map[string]ResourceSummary `json:"per_resource"`
}

// Ring keeps the most recent attempt records in a fixed-size ring buffer.
type Ring struct {
	mu    sync.RWMutex
	buf   []domain.FetchAttempt
	next  int
	count int
}

// NewRing creates a ring retaining the last size records.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = 4096
	}
	return &Ring{buf: make([]domain.FetchAttempt, size)}
}

// Record appends an attempt, overwriting the oldest past capacity.
func (r *Ring) Record(attempt domain.FetchAttempt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.next] = attempt
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// snapshotLocked returns retained records oldest-first. Caller holds r.mu.
func (r *Ring) snapshotLocked() []domain.FetchAttempt {
	out := make([]domain.FetchAttempt, 0, r.count)
	start := r.next - r.count
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

// Recent returns up to n most recent records, newest last.
func (r *Ring) Recent(n int) []domain.FetchAttempt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.snapshotLocked()
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return all
}

// Summary aggregates the retained records. An empty category means all.
func (r *Ring) Summary(category domain.Category) Summary {
	r.mu.RLock()
	records := r.snapshotLocked()
	r.mu.RUnlock()

	sum := Summary{
		Category:    category,
		PerResource: make(map[string]ResourceSummary),
	}
	var totalLatency time.Duration
	perLatency := make(map[string]time.Duration)

	for _, a := range records {
		if category != "" && a.Category != category {
			continue
		}
		sum.Total++
		totalLatency += a.Latency

		rs := sum.PerResource[a.ResourceID]
		rs.ResourceID = a.ResourceID
		rs.Total++
		perLatency[a.ResourceID] += a.Latency
		if a.Outcome == domain.OutcomeSuccess {
			sum.Successes++
			rs.Successes++
		} else {
			sum.Failures++
			rs.Failures++
			if rs.ByErrorKind == nil {
				rs.ByErrorKind = make(map[domain.ErrorKind]int)
			}
			rs.ByErrorKind[a.ErrorKind]++
		}
		sum.PerResource[a.ResourceID] = rs
	}

	if sum.Total > 0 {
		sum.SuccessRate = float64(sum.Successes) / float64(sum.Total)
		sum.AvgLatencyMs = float64(totalLatency.Milliseconds()) / float64(sum.Total)
	}
	for id, rs := range sum.PerResource {
		rs.SuccessRate = float64(rs.Successes) / float64(rs.Total)
		rs.AvgLatencyMs = float64(perLatency[id].Milliseconds()) / float64(rs.Total)
		sum.PerResource[id] = rs
	}

	return sum
}
