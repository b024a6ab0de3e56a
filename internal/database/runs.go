package database

import (
	"database/sql"
	"time"
)

// Run holds metadata about one pipeline run.
type Run struct {
	ID          string
	StartedAt   string
	FinishedAt  *string
	EntityCount int
	OKCount     int
	ErrorCount  int
}

// EntityRun holds the outcome of one entity within a run.
type EntityRun struct {
	ID         int64
	RunID      string
	Entity     string
	Status     string // "ok" or "error"
	Stage      *string
	Message    *string
	ItemCount  int
	FinishedAt *string
}

// Stats contains aggregate ledger statistics.
type Stats struct {
	TotalRuns        int
	TotalEntityRuns  int
	OKEntityRuns     int
	ErrorEntityRuns  int
	DistinctEntities int
	LastRunStarted   *string
}

// InsertRun records the start of a pipeline run.
func (db *DB) InsertRun(runID string, entityCount int) error {
	_, err := db.conn.Exec(
		`INSERT INTO runs (id, started_at, entity_count) VALUES (?, ?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339), entityCount,
	)
	return err
}

// FinishRun records a run's completion and outcome counts.
func (db *DB) FinishRun(runID string, okCount, errorCount int) error {
	_, err := db.conn.Exec(
		`UPDATE runs SET finished_at = ?, ok_count = ?, error_count = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), okCount, errorCount, runID,
	)
	return err
}

// InsertEntityRun records one entity's outcome within a run.
func (db *DB) InsertEntityRun(runID, entity, status string, stage, message *string, itemCount int) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO entity_runs (run_id, entity, status, stage, message, item_count)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, entity, status, stage, message, itemCount,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetRun returns a run by ID, or nil if not found.
func (db *DB) GetRun(runID string) (*Run, error) {
	row := db.conn.QueryRow(
		`SELECT id, started_at, finished_at, entity_count, ok_count, error_count
		FROM runs WHERE id = ?`, runID,
	)
	var r Run
	err := row.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.EntityCount, &r.OKCount, &r.ErrorCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRecentRuns returns the most recent runs, newest first.
func (db *DB) GetRecentRuns(limit int) ([]Run, error) {
	rows, err := db.conn.Query(
		`SELECT id, started_at, finished_at, entity_count, ok_count, error_count
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.EntityCount, &r.OKCount, &r.ErrorCount); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetEntityRuns returns the per-entity outcomes of a run.
func (db *DB) GetEntityRuns(runID string) ([]EntityRun, error) {
	rows, err := db.conn.Query(
		`SELECT id, run_id, entity, status, stage, message, item_count, finished_at
		FROM entity_runs WHERE run_id = ? ORDER BY entity`, runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entityRuns []EntityRun
	for rows.Next() {
		var er EntityRun
		if err := rows.Scan(&er.ID, &er.RunID, &er.Entity, &er.Status, &er.Stage,
			&er.Message, &er.ItemCount, &er.FinishedAt); err != nil {
			return nil, err
		}
		entityRuns = append(entityRuns, er)
	}
	return entityRuns, rows.Err()
}

// GetLatestEntityRun returns the most recent outcome for an entity, or nil.
func (db *DB) GetLatestEntityRun(entity string) (*EntityRun, error) {
	row := db.conn.QueryRow(
		`SELECT id, run_id, entity, status, stage, message, item_count, finished_at
		FROM entity_runs WHERE entity = ? ORDER BY id DESC LIMIT 1`, entity,
	)
	var er EntityRun
	err := row.Scan(&er.ID, &er.RunID, &er.Entity, &er.Status, &er.Stage,
		&er.Message, &er.ItemCount, &er.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &er, nil
}

// GetStats returns aggregate ledger statistics.
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{}

	err := db.conn.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&stats.TotalRuns)
	if err != nil {
		return nil, err
	}

	err = db.conn.QueryRow(
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'ok' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT entity)
		FROM entity_runs`,
	).Scan(&stats.TotalEntityRuns, &stats.OKEntityRuns, &stats.ErrorEntityRuns, &stats.DistinctEntities)
	if err != nil {
		return nil, err
	}

	row := db.conn.QueryRow(`SELECT started_at FROM runs ORDER BY started_at DESC LIMIT 1`)
	var last string
	if err := row.Scan(&last); err == nil {
		stats.LastRunStarted = &last
	} else if err != sql.ErrNoRows {
		return nil, err
	}

	return stats, nil
}
