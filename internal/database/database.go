// Package database archives fetched report snapshots and the lookup entries
// learned from them in Postgres.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"boss-spawn-board/internal/lookup"
	"boss-spawn-board/internal/models"
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

// Migrate creates the schema if it doesn't exist.
func (db *DB) Migrate(ctx context.Context) error {
	sql := `
	CREATE TABLE IF NOT EXISTS report_snapshots (
		id            UUID PRIMARY KEY,
		fetched_at    TIMESTAMPTZ NOT NULL,
		report_count  INT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_report_snapshots_fetched_at
		ON report_snapshots (fetched_at DESC);

	CREATE TABLE IF NOT EXISTS reports (
		snapshot_id    UUID NOT NULL REFERENCES report_snapshots(id) ON DELETE CASCADE,
		position       INT NOT NULL,
		report_id      TEXT NOT NULL DEFAULT '',
		reporter_id    TEXT NOT NULL DEFAULT '',
		reporter_name  TEXT NOT NULL DEFAULT '',
		report_date    TEXT NOT NULL DEFAULT '',
		monster_id     INT NOT NULL,
		region_id      INT NOT NULL,
		location_name  TEXT NOT NULL DEFAULT '',
		start_minute   INT NOT NULL,
		end_minute     INT NOT NULL,
		move_ids       INT[] NOT NULL,
		alpha_time_id  INT NOT NULL DEFAULT 0,
		summary        TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (snapshot_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_reports_monster ON reports(monster_id);

	CREATE TABLE IF NOT EXISTS lookup_monsters (
		id          INT PRIMARY KEY,
		name        TEXT NOT NULL,
		type        TEXT NOT NULL DEFAULT 'normal',
		image       TEXT NOT NULL DEFAULT '',
		ability     TEXT NOT NULL DEFAULT '',
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS lookup_moves (
		id          INT PRIMARY KEY,
		name        TEXT NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	_, err := db.Pool.Exec(ctx, sql)
	return err
}

// SnapshotInfo is one archived fetch.
type SnapshotInfo struct {
	ID          uuid.UUID `json:"id"`
	FetchedAt   time.Time `json:"fetched_at"`
	ReportCount int       `json:"report_count"`
}

var reportColumns = []string{
	"snapshot_id", "position", "report_id", "reporter_id", "reporter_name", "report_date",
	"monster_id", "region_id", "location_name", "start_minute", "end_minute",
	"move_ids", "alpha_time_id", "summary",
}

// reportRows flattens reports into COPY rows for the reports table.
func reportRows(id uuid.UUID, reports []models.MonsterReport) [][]any {
	rows := make([][]any, 0, len(reports))
	for i, r := range reports {
		moves := r.MoveIDs()
		rows = append(rows, []any{
			id, i, r.ID, r.ReporterUserID, r.ReporterName, r.Date,
			r.MonsterID, r.RegionID, r.LocationName,
			r.StartHour*60 + r.StartMinute, r.EndHour*60 + r.EndMinute,
			moves[:], r.AlphaTimeID, r.Summary,
		})
	}
	return rows
}

// ArchiveSnapshot stores one fetched dataset and returns its id.
func (db *DB) ArchiveSnapshot(ctx context.Context, fetchedAt time.Time, reports []models.MonsterReport) (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("snapshot id: %w", err)
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO report_snapshots (id, fetched_at, report_count)
		VALUES ($1, $2, $3)
	`, id, fetchedAt, len(reports)); err != nil {
		return uuid.Nil, fmt.Errorf("insert snapshot: %w", err)
	}

	if len(reports) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"reports"}, reportColumns,
			pgx.CopyFromRows(reportRows(id, reports))); err != nil {
			return uuid.Nil, fmt.Errorf("copy reports: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// RecentSnapshots returns the latest archived fetches, newest first.
func (db *DB) RecentSnapshots(ctx context.Context, limit int) ([]SnapshotInfo, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, fetched_at, report_count
		FROM report_snapshots
		ORDER BY fetched_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SnapshotInfo, error) {
		var s SnapshotInfo
		err := row.Scan(&s.ID, &s.FetchedAt, &s.ReportCount)
		return s, err
	})
}

// UpsertLookups writes learned monster and move entries, last write wins.
func (db *DB) UpsertLookups(ctx context.Context, u lookup.Update) error {
	if u.Empty() {
		return nil
	}

	batch := &pgx.Batch{}
	for id, m := range u.Monsters {
		batch.Queue(`
			INSERT INTO lookup_monsters (id, name, type, image, ability, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (id) DO UPDATE
			SET name = $2, type = $3, image = $4, ability = $5, updated_at = NOW()
		`, id, m.Name, m.Type, m.Image, m.Ability)
	}
	for id, name := range u.Moves {
		batch.Queue(`
			INSERT INTO lookup_moves (id, name, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (id) DO UPDATE SET name = $2, updated_at = NOW()
		`, id, name)
	}

	if err := db.Pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert lookups: %w", err)
	}
	return nil
}

// LoadLookups reads every persisted lookup entry so a restarted process
// starts with the names it learned before.
func (db *DB) LoadLookups(ctx context.Context) (lookup.Update, error) {
	u := lookup.Update{Monsters: make(map[int]lookup.Monster), Moves: make(map[int]string)}

	rows, err := db.Pool.Query(ctx, `SELECT id, name, type, image, ability FROM lookup_monsters`)
	if err != nil {
		return u, fmt.Errorf("load monsters: %w", err)
	}
	var (
		id int
		m  lookup.Monster
	)
	if _, err := pgx.ForEachRow(rows, []any{&id, &m.Name, &m.Type, &m.Image, &m.Ability}, func() error {
		u.Monsters[id] = m
		return nil
	}); err != nil {
		return u, fmt.Errorf("load monsters: %w", err)
	}

	rows, err = db.Pool.Query(ctx, `SELECT id, name FROM lookup_moves`)
	if err != nil {
		return u, fmt.Errorf("load moves: %w", err)
	}
	var name string
	if _, err := pgx.ForEachRow(rows, []any{&id, &name}, func() error {
		u.Moves[id] = name
		return nil
	}); err != nil {
		return u, fmt.Errorf("load moves: %w", err)
	}

	return u, nil
}
