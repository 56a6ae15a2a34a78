package domain

import (
	"encoding/json"
	"time"
)

// FetchResult is the outcome of a successful fetch. Stale marks values served
// from the cache past their TTL as a last resort; downstream consumers apply
// their own freshness policy.
type FetchResult struct {
	Value     json.RawMessage `json:"value"`
	Source    string          `json:"source"`
	Stale     bool            `json:"stale"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// AttemptOutcome labels a fetch attempt record.
type AttemptOutcome string

const (
	OutcomeSuccess AttemptOutcome = "success"
	OutcomeFailure AttemptOutcome = "failure"
)

// FetchAttempt records one provider attempt for observability. Append-only
// and bounded-retention; never consulted by selection logic.
type FetchAttempt struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	ResourceID string         `json:"resource_id"`
	Category   Category       `json:"category"`
	Outcome    AttemptOutcome `json:"outcome"`
	// ErrorKind is empty on success.
	ErrorKind ErrorKind     `json:"error_kind,omitempty"`
	Latency   time.Duration `json:"latency"`
}
