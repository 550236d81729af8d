package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"code-vault-go/internal/game"
)

// OutcomeStore persists finished games in the outcomes table
type OutcomeStore struct {
	db *sqlx.DB
}

func NewOutcomeStore(db *sqlx.DB) *OutcomeStore {
	return &OutcomeStore{db: db}
}

type outcomeRow struct {
	ID         string        `db:"id"`
	SessionID  string        `db:"session_id"`
	Won        bool          `db:"won"`
	Elapsed    int           `db:"elapsed_seconds"`
	Secret     pq.Int64Array `db:"secret"`
	Sequence   pq.Int64Array `db:"sequence"`
	Points     int           `db:"points"`
	RankColor  string        `db:"rank_color"`
	FinishedAt time.Time     `db:"finished_at"`
}

func toRow(o game.Outcome) outcomeRow {
	return outcomeRow{
		ID:         o.ID,
		SessionID:  o.SessionID,
		Won:        o.Won,
		Elapsed:    o.Elapsed,
		Secret:     toInt64s(o.Secret),
		Sequence:   toInt64s(o.Sequence),
		Points:     o.Points,
		RankColor:  o.RankColor,
		FinishedAt: o.FinishedAt,
	}
}

func (r outcomeRow) outcome() game.Outcome {
	return game.Outcome{
		ID:         r.ID,
		SessionID:  r.SessionID,
		Won:        r.Won,
		Elapsed:    r.Elapsed,
		Secret:     toInts(r.Secret),
		Sequence:   toInts(r.Sequence),
		Points:     r.Points,
		RankColor:  r.RankColor,
		FinishedAt: r.FinishedAt.UTC(),
	}
}

func (s *OutcomeStore) Record(ctx context.Context, outcome game.Outcome) error {
	query := `
		INSERT INTO outcomes (id, session_id, won, elapsed_seconds, secret, sequence, points, rank_color, finished_at)
		VALUES (:id, :session_id, :won, :elapsed_seconds, :secret, :sequence, :points, :rank_color, :finished_at)`

	if _, err := s.db.NamedExecContext(ctx, query, toRow(outcome)); err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

func (s *OutcomeStore) Fastest(ctx context.Context, limit int) ([]game.Outcome, error) {
	limit = game.ClampLimit(limit)

	query := `
		SELECT id, session_id, won, elapsed_seconds, secret, sequence, points, rank_color, finished_at
		FROM outcomes
		WHERE won
		ORDER BY elapsed_seconds, finished_at
		LIMIT $1`

	var rows []outcomeRow
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}

	outcomes := make([]game.Outcome, len(rows))
	for i, r := range rows {
		outcomes[i] = r.outcome()
	}
	return outcomes, nil
}

func toInt64s(values []int) pq.Int64Array {
	out := make(pq.Int64Array, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}
	return out
}

func toInts(values pq.Int64Array) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	return out
}
