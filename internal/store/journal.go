// Package store persists the neighborhood activity journal in PostgreSQL.
// The journal is an append-only record of fired block events; schedules
// themselves are never persisted and are rebuilt on every activation.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nidhogg/neighborhood-life/internal/news"
	"github.com/nidhogg/neighborhood-life/internal/schedule"
	"go.uber.org/zap"
)

// Journal wraps a PostgreSQL connection pool. It doubles as a news sink.
type Journal struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// New connects to PostgreSQL and ensures the journal table exists.
func New(dsn string, logger *zap.Logger) (*Journal, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	j := &Journal{db: pool, logger: logger}
	if err := j.migrate(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("PostgreSQL journal connected")
	return j, nil
}

func (j *Journal) migrate(ctx context.Context) error {
	_, err := j.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS activity_journal (
			id            UUID PRIMARY KEY,
			resident_id   TEXT NOT NULL,
			resident_name TEXT NOT NULL,
			action        TEXT NOT NULL,
			venue         TEXT NOT NULL DEFAULT '',
			phase         TEXT NOT NULL,
			message       TEXT NOT NULL,
			world_time    TIMESTAMPTZ NOT NULL,
			recorded_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("migrate journal: %w", err)
	}
	return nil
}

// Name implements news.Sink.
func (j *Journal) Name() string { return "journal" }

// Post implements news.Sink by appending the event to the journal.
func (j *Journal) Post(ctx context.Context, ev *news.Event) error {
	_, err := j.db.Exec(ctx, `
		INSERT INTO activity_journal
			(id, resident_id, resident_name, action, venue, phase, message, world_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ev.ID, ev.ResidentID, ev.ResidentName,
		string(ev.Action), string(ev.Venue), string(ev.Phase),
		ev.Message, ev.WorldTime,
	)
	if err != nil {
		return fmt.Errorf("journal event %s: %w", ev.ID, err)
	}
	return nil
}

// Recent returns the latest n journal entries, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]*news.Event, error) {
	rows, err := j.db.Query(ctx, `
		SELECT id, resident_id, resident_name, action, venue, phase, message, world_time
		FROM activity_journal
		ORDER BY recorded_at DESC
		LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []*news.Event
	for rows.Next() {
		var ev news.Event
		var action, venue, phase string
		if err := rows.Scan(&ev.ID, &ev.ResidentID, &ev.ResidentName,
			&action, &venue, &phase, &ev.Message, &ev.WorldTime); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		ev.Action = schedule.Action(action)
		ev.Venue = schedule.VenueTag(venue)
		ev.Phase = news.Phase(phase)
		out = append(out, &ev)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (j *Journal) Close() error {
	j.db.Close()
	return nil
}

var _ news.Sink = (*Journal)(nil)
