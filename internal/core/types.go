package core

import "time"

// RunStatus reports how a collection run ended.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)

// DomainMetrics holds one observation of SEO metrics for a domain.
// Nil fields were not reported by the analytics API for that day.
type DomainMetrics struct {
	Domain      string `json:"domain"`
	CollectedOn string `json:"collected_on"`

	OrganicTraffic     *int64   `json:"organic_traffic,omitempty"`
	PaidTraffic        *int64   `json:"paid_traffic,omitempty"`
	OrganicKeywords    *int64   `json:"organic_keywords,omitempty"`
	PaidKeywords       *int64   `json:"paid_keywords,omitempty"`
	OrganicTrafficCost *float64 `json:"organic_traffic_cost,omitempty"`
	PaidTrafficCost    *float64 `json:"paid_traffic_cost,omitempty"`
	BacklinkCount      *int64   `json:"backlink_count,omitempty"`
	ReferringDomains   *int64   `json:"referring_domains,omitempty"`
	DomainAuthority    *int64   `json:"domain_authority,omitempty"`
}

// MetricsRecord is a persisted DomainMetrics row.
type MetricsRecord struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	DomainMetrics
}

// RegistrationInfo captures RDAP registration data stored alongside a
// domain.
type RegistrationInfo struct {
	Registrar   string    `json:"registrar,omitempty"`
	CreatedDate string    `json:"created_date,omitempty"`
	ExpiryDate  string    `json:"expiry_date,omitempty"`
	CheckedAt   time.Time `json:"checked_at"`
}

// CollectionRun records one end-to-end collection attempt.
type CollectionRun struct {
	ID         string     `json:"id"`
	Domain     string     `json:"domain"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     RunStatus  `json:"status"`
	Error      string     `json:"error,omitempty"`
}
