package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/aggregator/internal/core/domain"
)

// AttemptRepo implements storage.AttemptRepository using PostgreSQL.
type AttemptRepo struct {
	db *DB
}

// NewAttemptRepo creates a new PostgreSQL attempt repository.
func NewAttemptRepo(db *DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// Save persists a single attempt record.
func (r *AttemptRepo) Save(ctx context.Context, attempt *domain.FetchAttempt) error {
	query := `
		INSERT INTO fetch_attempts (id, attempted_at, resource_id, category, outcome, error_kind, latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		attempt.ID,
		attempt.Timestamp,
		attempt.ResourceID,
		string(attempt.Category),
		string(attempt.Outcome),
		string(attempt.ErrorKind),
		attempt.Latency.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to save attempt: %w", err)
	}
	return nil
}

type attemptRow struct {
	ID         string    `db:"id"`
	Timestamp  time.Time `db:"attempted_at"`
	ResourceID string    `db:"resource_id"`
	Category   string    `db:"category"`
	Outcome    string    `db:"outcome"`
	ErrorKind  string    `db:"error_kind"`
	LatencyMs  int64     `db:"latency_ms"`
}

func (a *attemptRow) toDomain() *domain.FetchAttempt {
	return &domain.FetchAttempt{
		ID:         a.ID,
		Timestamp:  a.Timestamp,
		ResourceID: a.ResourceID,
		Category:   domain.Category(a.Category),
		Outcome:    domain.AttemptOutcome(a.Outcome),
		ErrorKind:  domain.ErrorKind(a.ErrorKind),
		Latency:    time.Duration(a.LatencyMs) * time.Millisecond,
	}
}

// Recent retrieves the newest attempts, newest first.
func (r *AttemptRepo) Recent(
	ctx context.Context,
	category domain.Category,
	limit int,
) ([]*domain.FetchAttempt, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, attempted_at, resource_id, category, outcome, error_kind, latency_ms
		FROM fetch_attempts
		WHERE ($1 = '' OR category = $1)
		ORDER BY attempted_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryxContext(ctx, query, string(category), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*domain.FetchAttempt
	for rows.Next() {
		var row attemptRow
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		attempts = append(attempts, row.toDomain())
	}
	return attempts, rows.Err()
}

// CountByOutcome returns attempt counts per outcome for one resource.
func (r *AttemptRepo) CountByOutcome(
	ctx context.Context,
	resourceID string,
	since time.Time,
) (map[domain.AttemptOutcome]int, error) {
	query := `
		SELECT outcome, COUNT(*) AS n
		FROM fetch_attempts
		WHERE resource_id = $1 AND attempted_at >= $2
		GROUP BY outcome
	`

	rows, err := r.db.QueryxContext(ctx, query, resourceID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.AttemptOutcome]int)
	for rows.Next() {
		var row struct {
			Outcome string `db:"outcome"`
			N       int    `db:"n"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}
		counts[domain.AttemptOutcome(row.Outcome)] = row.N
	}
	return counts, rows.Err()
}

// Prune deletes attempts older than the cutoff.
func (r *AttemptRepo) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `DELETE FROM fetch_attempts WHERE attempted_at < $1`
	res, err := r.db.ExecContext(ctx, query, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to prune attempts: %w", err)
	}
	return res.RowsAffected()
}
