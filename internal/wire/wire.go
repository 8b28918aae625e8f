// ABOUTME: JSON wire shapes exchanged with the plugin repository API.
// ABOUTME: Mirrors the plugin/parameter payloads and their envelopes.

package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Decode reads one JSON value from r into v. Untyped fields such as
// default values keep numbers as json.Number so large integers survive.
func Decode(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec.Decode(v)
}

// ID is an opaque server-assigned identity. On the wire it is either a JSON
// string or a JSON number and keeps the form it was received in.
type ID struct {
	raw     string
	numeric bool
}

// StringID returns an ID that encodes as a JSON string.
func StringID(s string) ID {
	return ID{raw: s}
}

// NumericID returns an ID that encodes as a JSON number.
func NumericID(n int64) ID {
	return ID{raw: strconv.FormatInt(n, 10), numeric: true}
}

// IDPtr returns a pointer to a copy of id.
func IDPtr(id ID) *ID {
	return &id
}

func (id ID) String() string { return id.raw }

// IsZero reports whether the ID is empty.
func (id ID) IsZero() bool { return id.raw == "" }

// Int64 returns the integer form of the ID when it has one.
func (id ID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(id.raw, 10, 64)
	return n, err == nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.raw), nil
	}
	return json.Marshal(id.raw)
}

func (id *ID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ID{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID{raw: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID{raw: n.String(), numeric: true}
	return nil
}

// Parameter is the wire form of one parameter schema.
type Parameter struct {
	ID           *ID    `json:"id,omitempty"`
	Key          string `json:"parameter_key"`
	Type         string `json:"parameter_type"`
	Mandatory    bool   `json:"is_mandatory"`
	ReadOnly     bool   `json:"is_read_only"`
	DefaultValue any    `json:"default_value,omitempty"`
}

// Plugin is the wire form of a plugin record.
type Plugin struct {
	ID         *ID         `json:"id,omitempty"`
	Name       string      `json:"plugin_name"`
	URL        string      `json:"plugin_url"`
	Parameters []Parameter `json:"parameters"`
}

// Key is the externally stable identifier of a plugin.
func (p Plugin) Key() string { return p.Name }

// Envelope wraps a single plugin: {"plugin": {...}}.
type Envelope struct {
	Plugin Plugin `json:"plugin"`
}

// List wraps many plugins: {"plugins": [{"plugin": {...}}, ...]}.
type List struct {
	Plugins []Envelope `json:"plugins"`
}

// NewList wraps plugins into a List. A nil slice encodes as an empty array.
func NewList(plugins []Plugin) List {
	l := List{Plugins: make([]Envelope, 0, len(plugins))}
	for _, p := range plugins {
		l.Plugins = append(l.Plugins, Envelope{Plugin: p})
	}
	return l
}

// Records unwraps the plugins of l.
func (l List) Records() []Plugin {
	out := make([]Plugin, 0, len(l.Plugins))
	for _, e := range l.Plugins {
		out = append(out, e.Plugin)
	}
	return out
}

// ParamsFile is the bulk import format: {"params": [...]}.
type ParamsFile struct {
	Params []Parameter `json:"params"`
}

// ErrMissingParams reports an import file without a params array.
var ErrMissingParams = errors.New(`parameter file has no "params" array`)
