package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS domains (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain TEXT NOT NULL UNIQUE,
		registrar TEXT,
		created_date TEXT,
		expiry_date TEXT,
		registration_checked_at INTEGER,
		created_at INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS domain_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		domain_id INTEGER NOT NULL REFERENCES domains(id),
		collected_on TEXT NOT NULL,
		organic_traffic INTEGER,
		paid_traffic INTEGER,
		organic_keywords INTEGER,
		paid_keywords INTEGER,
		organic_traffic_cost REAL,
		paid_traffic_cost REAL,
		backlink_count INTEGER,
		referring_domains INTEGER,
		domain_authority INTEGER,
		created_at INTEGER NOT NULL,
		UNIQUE(domain_id, collected_on)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_domain_metrics_lookup ON domain_metrics(domain_id, collected_on);`,
	`CREATE TABLE IF NOT EXISTS collection_runs (
		id TEXT PRIMARY KEY,
		domain TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		status TEXT NOT NULL,
		error TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_collection_runs_domain ON collection_runs(domain, started_at);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
