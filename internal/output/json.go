package output

import (
	"encoding/json"

	"github.com/seolens/seolens/internal/core"
	"github.com/seolens/seolens/internal/core/collector"
)

// JSONFormatter renders output as JSON.
type JSONFormatter struct {
	Indent bool
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)
	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FormatResult renders a collection result as JSON.
func (f *JSONFormatter) FormatResult(result *collector.Result) (string, error) {
	if result == nil {
		return "", nil
	}
	return f.marshal(result)
}

// FormatHistory renders metric history as JSON.
func (f *JSONFormatter) FormatHistory(domain string, records []core.MetricsRecord) (string, error) {
	return f.marshal(map[string]any{
		"domain":  domain,
		"history": records,
	})
}
