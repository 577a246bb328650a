package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seolens/seolens/internal/core"
)

// RecordRun persists the start of a collection run.
func (s *Store) RecordRun(ctx context.Context, run core.CollectionRun) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	if strings.TrimSpace(run.Domain) == "" {
		return errors.New("run domain is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	startedAt := run.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	status := run.Status
	if status == "" {
		status = core.RunStatusFailed
	}

	const insert = `INSERT INTO collection_runs (id, domain, started_at, status, error)
VALUES (?, ?, ?, ?, ?);`

	_, err := s.DB.ExecContext(ctx, insert, run.ID, run.Domain, startedAt.Unix(), string(status), nullString(run.Error))
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// FinishRun marks a run as finished with its final status.
func (s *Store) FinishRun(ctx context.Context, id string, status core.RunStatus, runErr string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	const update = `UPDATE collection_runs
SET finished_at = ?, status = ?, error = ?
WHERE id = ?;`

	res, err := s.DB.ExecContext(ctx, update, time.Now().Unix(), string(status), nullString(runErr), id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("finish run: unknown run %s", id)
	}
	return nil
}

// ListRuns returns the most recent runs for a domain, newest first. An
// empty domain returns runs across all domains.
func (s *Store) ListRuns(ctx context.Context, domain string, limit int) ([]core.CollectionRun, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	query := `SELECT id, domain, started_at, finished_at, status, error
FROM collection_runs`
	var args []any
	if d := strings.TrimSpace(domain); d != "" {
		query += " WHERE domain = ?"
		args = append(args, d)
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	query += ";"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close() // nolint:errcheck // read-only cursor

	var runs []core.CollectionRun
	for rows.Next() {
		var (
			run        core.CollectionRun
			startedAt  int64
			finishedAt sql.NullInt64
			status     string
			runErr     sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Domain, &startedAt, &finishedAt, &status, &runErr); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}

		run.StartedAt = time.Unix(startedAt, 0)
		if finishedAt.Valid {
			t := time.Unix(finishedAt.Int64, 0)
			run.FinishedAt = &t
		}
		run.Status = core.RunStatus(status)
		run.Error = runErr.String

		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
