// ABOUTME: Static fallback plugins when OpenAI API key is not available.
// ABOUTME: Provides a varied set of plugins covering both parameter types.

package seed

import (
	"fmt"

	"github.com/2389/pluginadmin/internal/wire"
)

func param(key, typ string, mandatory, readOnly bool, def any) wire.Parameter {
	return wire.Parameter{Key: key, Type: typ, Mandatory: mandatory, ReadOnly: readOnly, DefaultValue: def}
}

var staticTemplates = []wire.Plugin{
	{Name: "weather", URL: "http://weather.plugins.local/v1", Parameters: []wire.Parameter{
		param("city", "string", true, false, nil),
		param("days", "integer", false, false, int64(3)),
		param("unit", "string", false, false, "metric"),
	}},
	{Name: "geocode", URL: "http://geo.plugins.local/lookup", Parameters: []wire.Parameter{
		param("address", "string", true, false, nil),
		param("limit", "integer", false, false, int64(5)),
	}},
	{Name: "currency", URL: "http://fx.plugins.local/convert", Parameters: []wire.Parameter{
		param("from", "string", true, false, "USD"),
		param("to", "string", true, false, "EUR"),
		param("precision", "integer", false, true, int64(2)),
	}},
	{Name: "translate", URL: "http://translate.plugins.local", Parameters: []wire.Parameter{
		param("text", "string", true, false, nil),
		param("target_lang", "string", true, false, "en"),
	}},
	{Name: "ticket-search", URL: "http://tickets.plugins.local/search", Parameters: []wire.Parameter{
		param("query", "string", true, false, nil),
		param("page_size", "integer", false, false, int64(20)),
		param("project", "string", false, true, "OPS"),
	}},
	{Name: "uptime", URL: "http://status.plugins.local/check", Parameters: []wire.Parameter{
		param("target", "string", true, false, nil),
		param("timeout_seconds", "integer", false, false, int64(10)),
	}},
	{Name: "calendar-free-busy", URL: "http://calendar.plugins.local/freebusy", Parameters: []wire.Parameter{
		param("attendee", "string", true, false, nil),
		param("window_days", "integer", false, false, int64(7)),
		param("timezone", "string", false, false, "UTC"),
	}},
	{Name: "stock-quote", URL: "http://quotes.plugins.local", Parameters: []wire.Parameter{
		param("symbol", "string", true, false, nil),
	}},
	{Name: "unit-convert", URL: "http://units.plugins.local/convert", Parameters: []wire.Parameter{
		param("value", "integer", true, false, nil),
		param("from_unit", "string", true, false, nil),
		param("to_unit", "string", true, false, nil),
	}},
	{Name: "news-digest", URL: "http://news.plugins.local/digest", Parameters: []wire.Parameter{}},
}

// generateStatic returns count plugins, cycling through the templates and
// suffixing names once they repeat.
func generateStatic(count int) []wire.Plugin {
	result := make([]wire.Plugin, count)
	for i := 0; i < count; i++ {
		tmpl := staticTemplates[i%len(staticTemplates)]
		p := wire.Plugin{Name: tmpl.Name, URL: tmpl.URL, Parameters: append([]wire.Parameter{}, tmpl.Parameters...)}
		if round := i / len(staticTemplates); round > 0 {
			p.Name = fmt.Sprintf("%s-%d", tmpl.Name, round+1)
		}
		result[i] = p
	}
	return result
}
