package output

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/seolens/seolens/internal/core"
	"github.com/seolens/seolens/internal/core/collector"
	"github.com/seolens/seolens/internal/core/ratelimit"
)

// TableFormatter renders output as an ASCII table.
type TableFormatter struct{}

// FormatResult renders a collection result as a field/value table.
func (f *TableFormatter) FormatResult(result *collector.Result) (string, error) {
	if result == nil {
		return "", nil
	}
	return resultTable(result).Render() + renderProblems(result.Problems), nil
}

// FormatHistory renders metric history rows, newest first.
func (f *TableFormatter) FormatHistory(domain string, records []core.MetricsRecord) (string, error) {
	return historyTable(domain, records).Render(), nil
}

// MarkdownFormatter renders output as Markdown tables.
type MarkdownFormatter struct{}

// FormatResult renders a collection result as a Markdown table.
func (f *MarkdownFormatter) FormatResult(result *collector.Result) (string, error) {
	if result == nil {
		return "", nil
	}
	return resultTable(result).RenderMarkdown() + renderProblems(result.Problems), nil
}

// FormatHistory renders metric history as a Markdown table.
func (f *MarkdownFormatter) FormatHistory(domain string, records []core.MetricsRecord) (string, error) {
	return historyTable(domain, records).RenderMarkdown(), nil
}

func resultTable(result *collector.Result) table.Writer {
	m := result.Metrics

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("%s (%s)", m.Domain, m.CollectedOn))
	t.AppendHeader(table.Row{"Metric", "Value"})

	t.AppendRow(table.Row{"Organic Traffic", countValue(m.OrganicTraffic)})
	t.AppendRow(table.Row{"Paid Traffic", countValue(m.PaidTraffic)})
	t.AppendRow(table.Row{"Organic Keywords", countValue(m.OrganicKeywords)})
	t.AppendRow(table.Row{"Paid Keywords", countValue(m.PaidKeywords)})
	t.AppendRow(table.Row{"Organic Traffic Cost", costValue(m.OrganicTrafficCost)})
	t.AppendRow(table.Row{"Paid Traffic Cost", costValue(m.PaidTrafficCost)})
	t.AppendRow(table.Row{"Backlinks", countValue(m.BacklinkCount)})
	t.AppendRow(table.Row{"Referring Domains", countValue(m.ReferringDomains)})
	t.AppendRow(table.Row{"Domain Authority", countValue(m.DomainAuthority)})

	t.AppendFooter(table.Row{"Status", string(result.Run.Status)})
	return t
}

func historyTable(domain string, records []core.MetricsRecord) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(domain)
	t.AppendHeader(table.Row{"Date", "Organic", "Paid", "Org KW", "Paid KW", "Backlinks", "Ref Domains", "Authority"})

	for _, r := range records {
		t.AppendRow(table.Row{
			r.CollectedOn,
			countValue(r.OrganicTraffic),
			countValue(r.PaidTraffic),
			countValue(r.OrganicKeywords),
			countValue(r.PaidKeywords),
			countValue(r.BacklinkCount),
			countValue(r.ReferringDomains),
			countValue(r.DomainAuthority),
		})
	}
	return t
}

// FormatUsage renders current limiter occupancy per endpoint group.
func FormatUsage(format Format, usage map[string]ratelimit.Usage) (string, error) {
	if format == FormatJSON {
		return (&JSONFormatter{Indent: true}).marshal(usage)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Endpoint", "Per-Second", "Per-Minute"})

	for endpoint, u := range usage {
		t.AppendRow(table.Row{
			endpoint,
			fmt.Sprintf("%d/%d", u.ShortCount, u.ShortLimit),
			fmt.Sprintf("%d/%d", u.LongCount, u.LongLimit),
		})
	}
	t.SortBy([]table.SortBy{{Name: "Endpoint", Mode: table.Asc}})

	if format == FormatMarkdown {
		return t.RenderMarkdown(), nil
	}
	return t.Render(), nil
}

func countValue(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func costValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f", *v)
}

func renderProblems(problems []string) string {
	if len(problems) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\nProblems:\n")
	for _, p := range problems {
		sb.WriteString("  - " + p + "\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
