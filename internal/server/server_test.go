package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/aggregator/internal/core/domain"
	"github.com/vietddude/aggregator/internal/engine/health"
	"github.com/vietddude/aggregator/internal/engine/registry"
	"github.com/vietddude/aggregator/internal/engine/stats"
)

func newTestServer(t *testing.T) (*Server, *health.Tracker, *stats.Ring) {
	t.Helper()

	reg, err := registry.New([]domain.Resource{
		{ID: "coingecko", Category: domain.CategoryMarketData, Priority: domain.PriorityCritical},
		{ID: "cmc", Category: domain.CategoryMarketData, Priority: domain.PriorityHigh},
		{ID: "newsapi", Category: domain.CategoryNews, Priority: domain.PriorityHigh},
	})
	if err != nil {
		t.Fatalf("registry.New failed: %v", err)
	}

	tracker := health.NewTracker(health.DefaultConfig(), nil)
	ring := stats.NewRing(100)
	return NewServer(reg, tracker, ring, 0), tracker, ring
}

func TestHealthEndpoint_AllAvailable(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != StatusHealthy {
		t.Errorf("Expected healthy, got %s", body.Status)
	}
}

func TestHealthEndpoint_DegradedAndCritical(t *testing.T) {
	s, tracker, _ := newTestServer(t)

	// One market_data resource cooled down: degraded, still 200.
	tracker.RecordFailure("coingecko", domain.KindRateLimited)

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 while degraded, got %d", rec.Code)
	}

	var body struct {
		Status string `json:"status"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Status != StatusDegraded {
		t.Errorf("Expected degraded, got %s", body.Status)
	}

	// Whole news pool down: critical, 503.
	tracker.RecordFailure("newsapi", domain.KindRateLimited)

	rec = httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 when a category is exhausted, got %d", rec.Code)
	}
}

func TestProvidersEndpoint(t *testing.T) {
	s, tracker, _ := newTestServer(t)
	tracker.RecordSuccess("coingecko")

	rec := httptest.NewRecorder()
	s.handleProviders(rec, httptest.NewRequest(http.MethodGet, "/providers", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var providers []struct {
		ID     string `json:"id"`
		Health *struct {
			Status string `json:"status"`
		} `json:"health"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &providers); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(providers) != 3 {
		t.Fatalf("Expected 3 providers, got %d", len(providers))
	}

	byID := make(map[string]*struct {
		Status string `json:"status"`
	})
	for _, p := range providers {
		byID[p.ID] = p.Health
	}
	if byID["coingecko"] == nil || byID["coingecko"].Status != string(domain.StatusAvailable) {
		t.Errorf("Expected coingecko health snapshot, got %+v", byID["coingecko"])
	}
	// Never attempted: no snapshot yet.
	if byID["cmc"] != nil {
		t.Errorf("Expected no health for untouched resource, got %+v", byID["cmc"])
	}
}

func TestStatsEndpoint_CategoryFilter(t *testing.T) {
	s, _, ring := newTestServer(t)

	ring.Record(domain.FetchAttempt{
		ID: "a1", Timestamp: time.Now(), ResourceID: "coingecko",
		Category: domain.CategoryMarketData, Outcome: domain.OutcomeSuccess,
	})
	ring.Record(domain.FetchAttempt{
		ID: "a2", Timestamp: time.Now(), ResourceID: "newsapi",
		Category: domain.CategoryNews, Outcome: domain.OutcomeFailure,
		ErrorKind: domain.KindServer,
	})

	rec := httptest.NewRecorder()
	s.handleStats(rec, httptest.NewRequest(http.MethodGet, "/stats?category=news", nil))

	var sum stats.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.Total != 1 || sum.Failures != 1 {
		t.Errorf("Expected only the news attempt, got %+v", sum)
	}

	rec = httptest.NewRecorder()
	s.handleStats(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	_ = json.Unmarshal(rec.Body.Bytes(), &sum)
	if sum.Total != 2 {
		t.Errorf("Expected both attempts without filter, got %+v", sum)
	}
}
