package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openrdap/rdap"

	"github.com/seolens/seolens/internal/core"
)

// RegistrationLookup resolves registration details for a domain.
type RegistrationLookup interface {
	Lookup(ctx context.Context, domain string) (*core.RegistrationInfo, error)
}

// RDAPLookup queries the public RDAP infrastructure for registrar and
// lifecycle dates.
type RDAPLookup struct {
	Client  *rdap.Client
	Timeout time.Duration
	Clock   func() time.Time
}

// NewRDAPLookup returns a lookup backed by the default RDAP client.
func NewRDAPLookup(timeout time.Duration) *RDAPLookup {
	return &RDAPLookup{Client: &rdap.Client{}, Timeout: timeout}
}

// Lookup fetches registration info via RDAP. An unregistered domain is
// reported as an error since the collector only targets live domains.
func (l *RDAPLookup) Lookup(ctx context.Context, domain string) (*core.RegistrationInfo, error) {
	if l == nil {
		return nil, errors.New("rdap lookup is not configured")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	domain = strings.TrimSpace(domain)
	if domain == "" {
		return nil, errors.New("domain is required")
	}

	client := l.Client
	if client == nil {
		client = &rdap.Client{}
	}

	req := rdap.NewDomainRequest(domain)
	if l.Timeout > 0 {
		req.Timeout = l.Timeout
	}
	req = req.WithContext(ctx)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rdap query for %s: %w", domain, err)
	}

	obj, ok := resp.Object.(*rdap.Domain)
	if !ok {
		return nil, fmt.Errorf("rdap query for %s: unexpected response object", domain)
	}

	info := &core.RegistrationInfo{
		Registrar:   findRegistrar(obj),
		CreatedDate: findEventDate(obj.Events, "registration"),
		ExpiryDate:  findEventDate(obj.Events, "expiration"),
		CheckedAt:   l.now(),
	}
	return info, nil
}

func (l *RDAPLookup) now() time.Time {
	if l != nil && l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}

func findRegistrar(domain *rdap.Domain) string {
	if domain == nil {
		return ""
	}

	for _, entity := range domain.Entities {
		for _, role := range entity.Roles {
			if role == "registrar" && entity.VCard != nil {
				return entity.VCard.Name()
			}
		}
	}

	return ""
}

func findEventDate(events []rdap.Event, action string) string {
	for _, event := range events {
		if event.Action == action {
			return event.Date
		}
	}
	return ""
}
