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

// InsertMetrics persists one day of metrics for a domain. A second
// collection on the same day replaces the earlier row.
func (s *Store) InsertMetrics(ctx context.Context, domainID int64, m core.DomainMetrics) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if domainID <= 0 {
		return errors.New("domain id is required")
	}
	if strings.TrimSpace(m.CollectedOn) == "" {
		return errors.New("collection date is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	const upsert = `INSERT INTO domain_metrics (
	domain_id, collected_on,
	organic_traffic, paid_traffic, organic_keywords, paid_keywords,
	organic_traffic_cost, paid_traffic_cost,
	backlink_count, referring_domains, domain_authority,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(domain_id, collected_on) DO UPDATE SET
	organic_traffic = excluded.organic_traffic,
	paid_traffic = excluded.paid_traffic,
	organic_keywords = excluded.organic_keywords,
	paid_keywords = excluded.paid_keywords,
	organic_traffic_cost = excluded.organic_traffic_cost,
	paid_traffic_cost = excluded.paid_traffic_cost,
	backlink_count = excluded.backlink_count,
	referring_domains = excluded.referring_domains,
	domain_authority = excluded.domain_authority,
	created_at = excluded.created_at;`

	_, err := s.DB.ExecContext(ctx, upsert,
		domainID, m.CollectedOn,
		m.OrganicTraffic, m.PaidTraffic, m.OrganicKeywords, m.PaidKeywords,
		m.OrganicTrafficCost, m.PaidTrafficCost,
		m.BacklinkCount, m.ReferringDomains, m.DomainAuthority,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert metrics: %w", err)
	}
	return nil
}

// ListMetrics returns the most recent metric rows for a domain, newest
// first. A non-positive limit returns all rows.
func (s *Store) ListMetrics(ctx context.Context, domain string, limit int) ([]core.MetricsRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	query := `SELECT m.id, d.domain, m.collected_on,
	m.organic_traffic, m.paid_traffic, m.organic_keywords, m.paid_keywords,
	m.organic_traffic_cost, m.paid_traffic_cost,
	m.backlink_count, m.referring_domains, m.domain_authority,
	m.created_at
FROM domain_metrics m
JOIN domains d ON d.id = m.domain_id
WHERE d.domain = ?
ORDER BY m.collected_on DESC`

	args := []any{strings.TrimSpace(domain)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	query += ";"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	defer rows.Close() // nolint:errcheck // read-only cursor

	var records []core.MetricsRecord
	for rows.Next() {
		var (
			rec          core.MetricsRecord
			collectedOn  any
			orgTraffic   sql.NullInt64
			paidTraffic  sql.NullInt64
			orgKeywords  sql.NullInt64
			paidKeywords sql.NullInt64
			orgCost      sql.NullFloat64
			paidCost     sql.NullFloat64
			backlinks    sql.NullInt64
			referring    sql.NullInt64
			authority    sql.NullInt64
			createdAt    int64
		)
		err := rows.Scan(
			&rec.ID, &rec.Domain, &collectedOn,
			&orgTraffic, &paidTraffic, &orgKeywords, &paidKeywords,
			&orgCost, &paidCost,
			&backlinks, &referring, &authority,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan metrics row: %w", err)
		}

		rec.CollectedOn = dateText(collectedOn)
		rec.OrganicTraffic = int64Ptr(orgTraffic)
		rec.PaidTraffic = int64Ptr(paidTraffic)
		rec.OrganicKeywords = int64Ptr(orgKeywords)
		rec.PaidKeywords = int64Ptr(paidKeywords)
		rec.OrganicTrafficCost = float64Ptr(orgCost)
		rec.PaidTrafficCost = float64Ptr(paidCost)
		rec.BacklinkCount = int64Ptr(backlinks)
		rec.ReferringDomains = int64Ptr(referring)
		rec.DomainAuthority = int64Ptr(authority)
		rec.CreatedAt = time.Unix(createdAt, 0)

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list metrics: %w", err)
	}
	return records, nil
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func float64Ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
