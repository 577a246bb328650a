// Package transform normalizes raw analytics API values into typed
// metrics and validates them before persistence.
package transform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/seolens/seolens/internal/core"
)

var (
	schemeRe  = regexp.MustCompile(`(?i)^https?://`)
	wwwRe     = regexp.MustCompile(`(?i)^www\.`)
	trafficRe = regexp.MustCompile(`^([\d.]+)([kmb])?$`)
	domainRe  = regexp.MustCompile(`^([\da-z\.-]+)\.([a-z\.]{2,6})$`)
)

var unitMultipliers = map[string]int64{
	"k": 1_000,
	"m": 1_000_000,
	"b": 1_000_000_000,
}

// numericRanges bounds metric values by kind. Values outside their
// range are treated as corrupt API output.
var numericRanges = map[string][2]float64{
	"traffic":   {0, 1e12},
	"count":     {0, 1e9},
	"cost":      {0, 1e9},
	"authority": {0, 100},
}

// CleanDomain strips scheme, www prefix and any path from a domain
// name and lowercases it.
//
// CleanDomain("https://Example.com/about") == "example.com"
func CleanDomain(domain string) string {
	domain = schemeRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(domain)), "")
	domain = wwwRe.ReplaceAllString(domain, "")
	if i := strings.IndexByte(domain, '/'); i >= 0 {
		domain = domain[:i]
	}
	return strings.TrimSpace(domain)
}

// ValidDomain reports whether the cleaned value looks like a domain
// name.
func ValidDomain(domain string) bool {
	return domainRe.MatchString(domain)
}

// ParseTrafficValue parses a traffic value with an optional unit
// suffix (K, M, B). Empty and "n/a" values yield a nil pointer.
//
// ParseTrafficValue("1.5K") == 1500
func ParseTrafficValue(value string) (*int64, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == "n/a" {
		return nil, nil
	}

	value = strings.ReplaceAll(value, ",", "")
	value = strings.ReplaceAll(value, " ", "")

	m := trafficRe.FindStringSubmatch(value)
	if m == nil {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid traffic value %q", value)
		}
		n := int64(f)
		return &n, nil
	}

	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid traffic value %q", value)
	}
	if mult, ok := unitMultipliers[m[2]]; ok {
		f *= float64(mult)
	}
	n := int64(f)
	return &n, nil
}

// ParsePercentage parses a percentage value such as "15.5%".
func ParsePercentage(value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "n/a") {
		return nil, nil
	}

	value = strings.TrimSpace(strings.ReplaceAll(value, "%", ""))
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid percentage %q", value)
	}
	return &f, nil
}

// ParseCurrencyAmount parses a currency amount such as "$1,234.56".
func ParseCurrencyAmount(value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "n/a") {
		return nil, nil
	}

	value = strings.NewReplacer("$", "", "€", "", "£", "", ",", "").Replace(value)
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid currency amount %q", value)
	}
	return &f, nil
}

// InRange reports whether a value is plausible for a metric kind.
// Unknown kinds are not range-checked.
func InRange(value float64, kind string) bool {
	bounds, ok := numericRanges[kind]
	if !ok {
		return true
	}
	return value >= bounds[0] && value <= bounds[1]
}

// NormalizeMetrics converts a raw report into typed domain metrics.
// Fields that fail to parse are left nil and reported in the returned
// problem list; normalization itself never fails outright.
func NormalizeMetrics(domain, collectedOn string, raw map[string]any) (core.DomainMetrics, []string) {
	metrics := core.DomainMetrics{
		Domain:      CleanDomain(domain),
		CollectedOn: collectedOn,
	}

	var problems []string
	record := func(field string, err error) {
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", field, err))
		}
	}

	traffic := map[string]**int64{
		"organic_traffic": &metrics.OrganicTraffic,
		"paid_traffic":    &metrics.PaidTraffic,
	}
	for field, target := range traffic {
		if v, ok := raw[field]; ok {
			parsed, err := ParseTrafficValue(asString(v))
			record(field, err)
			*target = parsed
		}
	}

	counts := map[string]**int64{
		"organic_keywords":  &metrics.OrganicKeywords,
		"paid_keywords":     &metrics.PaidKeywords,
		"backlink_count":    &metrics.BacklinkCount,
		"referring_domains": &metrics.ReferringDomains,
		"domain_authority":  &metrics.DomainAuthority,
	}
	for field, target := range counts {
		if v, ok := raw[field]; ok {
			parsed, err := ParseTrafficValue(asString(v))
			record(field, err)
			*target = parsed
		}
	}

	costs := map[string]**float64{
		"organic_traffic_cost": &metrics.OrganicTrafficCost,
		"paid_traffic_cost":    &metrics.PaidTrafficCost,
	}
	for field, target := range costs {
		if v, ok := raw[field]; ok {
			parsed, err := ParseCurrencyAmount(asString(v))
			record(field, err)
			*target = parsed
		}
	}

	return metrics, problems
}

// ValidateMetrics checks a normalized record for missing required
// fields and out-of-range values. An empty result means valid.
func ValidateMetrics(m core.DomainMetrics) []string {
	var errs []string

	required := map[string]*int64{
		"organic_traffic":  m.OrganicTraffic,
		"organic_keywords": m.OrganicKeywords,
		"backlink_count":   m.BacklinkCount,
	}
	for field, value := range required {
		if value == nil {
			errs = append(errs, fmt.Sprintf("missing required field: %s", field))
		}
	}

	ranged := []struct {
		field string
		kind  string
		value *int64
	}{
		{"organic_traffic", "traffic", m.OrganicTraffic},
		{"paid_traffic", "traffic", m.PaidTraffic},
		{"organic_keywords", "count", m.OrganicKeywords},
		{"paid_keywords", "count", m.PaidKeywords},
		{"backlink_count", "count", m.BacklinkCount},
		{"referring_domains", "count", m.ReferringDomains},
		{"domain_authority", "authority", m.DomainAuthority},
	}
	for _, r := range ranged {
		if r.value != nil && !InRange(float64(*r.value), r.kind) {
			errs = append(errs, fmt.Sprintf("invalid %s value: %d", r.field, *r.value))
		}
	}

	for _, cost := range []struct {
		field string
		value *float64
	}{
		{"organic_traffic_cost", m.OrganicTrafficCost},
		{"paid_traffic_cost", m.PaidTrafficCost},
	} {
		if cost.value != nil && !InRange(*cost.value, "cost") {
			errs = append(errs, fmt.Sprintf("invalid %s value: %v", cost.field, *cost.value))
		}
	}

	return errs
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
