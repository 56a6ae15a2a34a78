package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/vietddude/aggregator/internal/core/domain"
)

func attempt(id, resource string, cat domain.Category, at time.Time, outcome domain.AttemptOutcome) *domain.FetchAttempt {
	return &domain.FetchAttempt{
		ID:         id,
		Timestamp:  at,
		ResourceID: resource,
		Category:   cat,
		Outcome:    outcome,
	}
}

func TestRecent_NewestFirstWithCategoryFilter(t *testing.T) {
	repo := NewAttemptRepo(100)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_ = repo.Save(ctx, attempt("a1", "coingecko", domain.CategoryMarketData, base, domain.OutcomeSuccess))
	_ = repo.Save(ctx, attempt("a2", "newsapi", domain.CategoryNews, base.Add(time.Second), domain.OutcomeFailure))
	_ = repo.Save(ctx, attempt("a3", "cmc", domain.CategoryMarketData, base.Add(2*time.Second), domain.OutcomeSuccess))

	got, err := repo.Recent(ctx, domain.CategoryMarketData, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 market_data attempts, got %d", len(got))
	}
	if got[0].ID != "a3" || got[1].ID != "a1" {
		t.Errorf("Expected newest first, got %s, %s", got[0].ID, got[1].ID)
	}

	all, _ := repo.Recent(ctx, "", 2)
	if len(all) != 2 || all[0].ID != "a3" {
		t.Errorf("Unexpected limited listing: %+v", all)
	}
}

func TestSave_BoundedRetention(t *testing.T) {
	repo := NewAttemptRepo(5)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("a%d", i)
		_ = repo.Save(ctx, attempt(id, "r", domain.CategoryMarketData, base.Add(time.Duration(i)*time.Second), domain.OutcomeSuccess))
	}

	got, _ := repo.Recent(ctx, "", 100)
	if len(got) != 5 {
		t.Fatalf("Expected journal bounded to 5, got %d", len(got))
	}
	if got[0].ID != "a7" || got[4].ID != "a3" {
		t.Errorf("Expected oldest records dropped, got %s..%s", got[0].ID, got[4].ID)
	}
}

func TestCountByOutcome(t *testing.T) {
	repo := NewAttemptRepo(100)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_ = repo.Save(ctx, attempt("a1", "cmc", domain.CategoryMarketData, base, domain.OutcomeSuccess))
	_ = repo.Save(ctx, attempt("a2", "cmc", domain.CategoryMarketData, base.Add(time.Minute), domain.OutcomeFailure))
	_ = repo.Save(ctx, attempt("a3", "cmc", domain.CategoryMarketData, base.Add(2*time.Minute), domain.OutcomeFailure))
	_ = repo.Save(ctx, attempt("a4", "other", domain.CategoryMarketData, base.Add(3*time.Minute), domain.OutcomeSuccess))

	counts, err := repo.CountByOutcome(ctx, "cmc", base.Add(30*time.Second))
	if err != nil {
		t.Fatalf("CountByOutcome failed: %v", err)
	}
	if counts[domain.OutcomeFailure] != 2 {
		t.Errorf("Expected 2 failures since cutoff, got %d", counts[domain.OutcomeFailure])
	}
	if counts[domain.OutcomeSuccess] != 0 {
		t.Errorf("Expected the earlier success excluded, got %d", counts[domain.OutcomeSuccess])
	}
}

func TestPrune(t *testing.T) {
	repo := NewAttemptRepo(100)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_ = repo.Save(ctx, attempt("old", "r", domain.CategoryMarketData, base, domain.OutcomeSuccess))
	_ = repo.Save(ctx, attempt("new", "r", domain.CategoryMarketData, base.Add(time.Hour), domain.OutcomeSuccess))

	removed, err := repo.Prune(ctx, base.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 pruned, got %d", removed)
	}

	got, _ := repo.Recent(ctx, "", 10)
	if len(got) != 1 || got[0].ID != "new" {
		t.Errorf("Expected only the newer record, got %+v", got)
	}
}
