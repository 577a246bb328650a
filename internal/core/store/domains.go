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

// DomainRecord is a persisted domain row.
type DomainRecord struct {
	ID           int64
	Domain       string
	Registration *core.RegistrationInfo
	CreatedAt    time.Time
}

// UpsertDomain inserts a domain if it is not yet known and returns its
// row id.
func (s *Store) UpsertDomain(ctx context.Context, domain string) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	domain = strings.TrimSpace(domain)
	if domain == "" {
		return 0, errors.New("domain is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	const insert = `INSERT INTO domains (domain, created_at)
VALUES (?, ?)
ON CONFLICT(domain) DO NOTHING;`

	if _, err := s.DB.ExecContext(ctx, insert, domain, time.Now().Unix()); err != nil {
		return 0, fmt.Errorf("upsert domain: %w", err)
	}

	var id int64
	err := s.DB.QueryRowContext(ctx, `SELECT id FROM domains WHERE domain = ?;`, domain).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolve domain id: %w", err)
	}
	return id, nil
}

// SetRegistration records RDAP registration details for a domain.
func (s *Store) SetRegistration(ctx context.Context, domain string, info core.RegistrationInfo) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	checkedAt := info.CheckedAt
	if checkedAt.IsZero() {
		checkedAt = time.Now()
	}

	const update = `UPDATE domains
SET registrar = ?, created_date = ?, expiry_date = ?, registration_checked_at = ?
WHERE domain = ?;`

	res, err := s.DB.ExecContext(ctx, update,
		nullString(info.Registrar),
		nullString(info.CreatedDate),
		nullString(info.ExpiryDate),
		checkedAt.Unix(),
		strings.TrimSpace(domain),
	)
	if err != nil {
		return fmt.Errorf("set registration: %w", err)
	}

	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("set registration: unknown domain %s", domain)
	}
	return nil
}

// GetDomain fetches a domain row, or nil when the domain is unknown.
func (s *Store) GetDomain(ctx context.Context, domain string) (*DomainRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	const query = `SELECT id, domain, registrar, created_date, expiry_date, registration_checked_at, created_at
FROM domains WHERE domain = ?;`

	var (
		rec       DomainRecord
		registrar sql.NullString
		created   any
		expiry    any
		checkedAt sql.NullInt64
		createdAt int64
	)
	err := s.DB.QueryRowContext(ctx, query, strings.TrimSpace(domain)).Scan(
		&rec.ID, &rec.Domain, &registrar, &created, &expiry, &checkedAt, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get domain: %w", err)
	}

	rec.CreatedAt = time.Unix(createdAt, 0)
	if registrar.Valid || created != nil || expiry != nil || checkedAt.Valid {
		info := &core.RegistrationInfo{
			Registrar:   registrar.String,
			CreatedDate: dateText(created),
			ExpiryDate:  dateText(expiry),
		}
		if checkedAt.Valid {
			info.CheckedAt = time.Unix(checkedAt.Int64, 0)
		}
		rec.Registration = info
	}
	return &rec, nil
}

func nullString(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

// dateText normalizes a scanned date column to YYYY-MM-DD. The libsql
// driver surfaces date-shaped TEXT as time.Time, so a plain string
// scan would grow a spurious time component.
func dateText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.UTC().Format("2006-01-02")
	case []byte:
		return dateText(string(t))
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed.UTC().Format("2006-01-02")
		}
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
