package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/aggregator/internal/core/domain"
)

// AttemptRepository persists the fetch attempt journal
type AttemptRepository interface {
	// Save persists a single attempt record
	Save(ctx context.Context, attempt *domain.FetchAttempt) error

	// Recent retrieves the newest attempts, newest first. An empty category
	// means all categories.
	Recent(ctx context.Context, category domain.Category, limit int) ([]*domain.FetchAttempt, error)

	// CountByOutcome returns attempt counts per outcome for one resource
	CountByOutcome(ctx context.Context, resourceID string, since time.Time) (map[domain.AttemptOutcome]int, error)

	// Prune deletes attempts older than the cutoff and returns how many went
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}

// Journal adapts an AttemptRepository to the synchronous recorder interface
// the orchestrator reports into. Writes happen inline with a short deadline;
// a failing journal degrades to a log line and never blocks a fetch for long.
type Journal struct {
	repo AttemptRepository
	log  *slog.Logger
}

func NewJournal(repo AttemptRepository, log *slog.Logger) *Journal {
	if log == nil {
		log = slog.Default()
	}
	return &Journal{repo: repo, log: log}
}

func (j *Journal) Record(attempt domain.FetchAttempt) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := j.repo.Save(ctx, &attempt); err != nil {
		j.log.Warn("attempt journal write failed",
			"resource", attempt.ResourceID,
			"error", err,
		)
	}
}
