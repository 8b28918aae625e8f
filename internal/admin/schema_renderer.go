// ABOUTME: Type-directed HTML controls for parameter rows.
// ABOUTME: Renders the type select, default value control and list summaries.

package admin

import (
	"fmt"
	"html"
	"html/template"
	"strings"

	"github.com/2389/pluginadmin/internal/record"
	"github.com/2389/pluginadmin/internal/schema"
	"github.com/2389/pluginadmin/internal/wire"
)

// RenderTypeSelect renders the parameter type dropdown for a row.
func RenderTypeSelect(row record.RowID, current schema.Type) template.HTML {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<select name="type_%s" class="block w-full rounded border-gray-300 shadow-sm px-3 py-2 border">`, row))
	for _, t := range schema.Types() {
		selected := ""
		if t == current {
			selected = " selected"
		}
		sb.WriteString(fmt.Sprintf(`<option value="%s"%s>%s</option>`,
			html.EscapeString(string(t)), selected, html.EscapeString(t.Label())))
	}
	sb.WriteString(`</select>`)
	return template.HTML(sb.String())
}

// RenderDefaultControl renders the default value input chosen by the
// parameter type. Unset defaults render an empty control, never a zero
// placeholder. Text controls carry a "no default" checkbox so an empty
// string default stays distinguishable from no default.
func RenderDefaultControl(row record.RowID, p schema.Parameter) template.HTML {
	e := p.Editor()
	valueAttr := ""
	if e.Set {
		valueAttr = fmt.Sprintf(` value="%s"`, html.EscapeString(e.Value))
	}

	var sb strings.Builder
	switch e.Control {
	case schema.ControlNumber:
		sb.WriteString(fmt.Sprintf(`<input type="number" step="%d" name="default_%s"%s placeholder="no default" class="block w-full rounded border-gray-300 shadow-sm px-3 py-2 border">`,
			e.Step, row, valueAttr))
	default:
		sb.WriteString(fmt.Sprintf(`<input type="text" name="default_%s"%s placeholder="default" class="block w-full rounded border-gray-300 shadow-sm px-3 py-2 border">`,
			row, valueAttr))
		checked := ""
		if !e.Set {
			checked = " checked"
		}
		sb.WriteString(fmt.Sprintf(`<label class="text-xs"><input type="checkbox" name="nodefault_%s"%s> no default</label>`, row, checked))
	}
	return template.HTML(sb.String())
}

// Summary is the list page description of a parameter:
// "key: type; mandatory, read_only; default" with "not set" for no default.
func Summary(p schema.Parameter) string {
	var flags []string
	if p.Mandatory {
		flags = append(flags, "mandatory")
	}
	if p.ReadOnly {
		flags = append(flags, "read_only")
	}
	s := fmt.Sprintf("%s: %s", p.Key, p.Type)
	if len(flags) > 0 {
		s += "; " + strings.Join(flags, ", ")
	}
	e := p.Editor()
	switch {
	case !e.Set:
		s += "; not set"
	case e.Control == schema.ControlText:
		s += fmt.Sprintf("; %q", e.Value)
	default:
		s += "; " + e.Value
	}
	return s
}

// wireSummary summarizes a repository parameter, falling back to its raw
// tags when the type is not one this admin understands.
func wireSummary(wp wire.Parameter) string {
	p, err := record.ParameterFromWire(wp)
	if err != nil {
		return fmt.Sprintf("%s: %s", wp.Key, wp.Type)
	}
	return Summary(p)
}
