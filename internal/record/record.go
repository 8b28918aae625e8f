// ABOUTME: Plugin record aggregate holding identity, name, URL and parameter rows.
// ABOUTME: Rows are addressed by never-reused identities, not by position.

package record

import (
	"fmt"

	"github.com/2389/pluginadmin/internal/schema"
	"github.com/2389/pluginadmin/internal/wire"
)

// Mode is the lifecycle mode of a record.
type Mode int

const (
	// ModeCreate is a record that has never been persisted.
	ModeCreate Mode = iota
	// ModeUpdate is a record hydrated from the repository.
	ModeUpdate
)

func (m Mode) String() string {
	if m == ModeUpdate {
		return "update"
	}
	return "create"
}

// RowID identifies a parameter row for the lifetime of a record. Zero is
// never assigned.
type RowID uint64

func (id RowID) String() string {
	return fmt.Sprintf("%d", uint64(id))
}

// Row is one parameter entry in the record's ordered list.
type Row struct {
	ID RowID
	// StoredID is the server-side parameter id the row was hydrated with.
	StoredID  *wire.ID
	Parameter schema.Parameter
}

// Record is the editable working copy of a plugin.
type Record struct {
	mode       Mode
	identity   *wire.ID
	loadedName string

	Name string
	URL  string

	rows    []Row
	lastRow RowID
}

// New returns an empty record in create mode.
func New() *Record {
	return &Record{mode: ModeCreate}
}

// Hydrate builds an update-mode record from a repository plugin.
func Hydrate(p wire.Plugin) (*Record, error) {
	r := &Record{
		mode:       ModeUpdate,
		loadedName: p.Name,
		Name:       p.Name,
		URL:        p.URL,
	}
	if p.ID != nil {
		r.identity = wire.IDPtr(*p.ID)
	}
	for i, wp := range p.Parameters {
		param, err := ParameterFromWire(wp)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		row := Row{ID: r.allocRow(), Parameter: param}
		if wp.ID != nil {
			row.StoredID = wire.IDPtr(*wp.ID)
		}
		r.rows = append(r.rows, row)
	}
	return r, nil
}

// Mode returns the lifecycle mode.
func (r *Record) Mode() Mode { return r.mode }

// Identity returns the server identity, nil in create mode.
func (r *Record) Identity() *wire.ID {
	if r.identity == nil {
		return nil
	}
	return wire.IDPtr(*r.identity)
}

// LoadedName is the name the record was hydrated with.
func (r *Record) LoadedName() string { return r.loadedName }

// EffectiveName is the name that will be submitted.
func (r *Record) EffectiveName() string {
	if r.mode == ModeUpdate {
		return r.loadedName
	}
	return r.Name
}

func (r *Record) allocRow() RowID {
	r.lastRow++
	return r.lastRow
}

// AddParameter appends a new parameter built from init and returns its row.
func (r *Record) AddParameter(init schema.Init) RowID {
	id := r.allocRow()
	r.rows = append(r.rows, Row{ID: id, Parameter: schema.New(init)})
	return id
}

// RemoveParameter removes the row with the given identity. It reports
// whether a row was removed.
func (r *Record) RemoveParameter(id RowID) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	r.rows = append(r.rows[:i:i], r.rows[i+1:]...)
	return true
}

// ReplaceParameter swaps the parameter value at id, keeping the row
// identity and stored id.
func (r *Record) ReplaceParameter(id RowID, p schema.Parameter) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	r.rows[i].Parameter = p
	return true
}

// MoveParameter moves the row to position to, clamped to the list bounds.
func (r *Record) MoveParameter(id RowID, to int) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	if to < 0 {
		to = 0
	}
	if to > len(r.rows)-1 {
		to = len(r.rows) - 1
	}
	row := r.rows[i]
	rest := append(r.rows[:i:i], r.rows[i+1:]...)
	out := make([]Row, 0, len(r.rows))
	out = append(out, rest[:to]...)
	out = append(out, row)
	out = append(out, rest[to:]...)
	r.rows = out
	return true
}

// SetParameters replaces the whole list. Every parameter gets a fresh row
// identity and no stored id.
func (r *Record) SetParameters(params []schema.Parameter) []RowID {
	ids := make([]RowID, 0, len(params))
	rows := make([]Row, 0, len(params))
	for _, p := range params {
		id := r.allocRow()
		ids = append(ids, id)
		rows = append(rows, Row{ID: id, Parameter: p})
	}
	r.rows = rows
	return ids
}

// Parameter returns the parameter at id.
func (r *Record) Parameter(id RowID) (schema.Parameter, bool) {
	i := r.index(id)
	if i < 0 {
		return schema.Parameter{}, false
	}
	return r.rows[i].Parameter, true
}

// Rows returns a copy of the rows in display order.
func (r *Record) Rows() []Row {
	out := make([]Row, len(r.rows))
	copy(out, r.rows)
	return out
}

// Len returns the number of parameter rows.
func (r *Record) Len() int { return len(r.rows) }

// Clone returns an independent copy, including the row identity counter.
func (r *Record) Clone() *Record {
	c := *r
	c.identity = r.Identity()
	c.rows = r.Rows()
	return &c
}

func (r *Record) index(id RowID) int {
	for i, row := range r.rows {
		if row.ID == id {
			return i
		}
	}
	return -1
}

// Payload builds the repository shape. In update mode the hydrated name and
// identity always replace whatever the working copy holds.
func (r *Record) Payload() wire.Plugin {
	p := wire.Plugin{
		Name:       r.Name,
		URL:        r.URL,
		Parameters: make([]wire.Parameter, 0, len(r.rows)),
	}
	if r.mode == ModeUpdate {
		p.Name = r.loadedName
		p.ID = r.Identity()
	}
	for _, row := range r.rows {
		p.Parameters = append(p.Parameters, ParameterToWire(row.Parameter, row.StoredID))
	}
	return p
}

// AdoptIdentity moves a create-mode record to update mode after its first
// successful creation.
func (r *Record) AdoptIdentity(saved wire.Plugin) {
	r.mode = ModeUpdate
	if saved.ID != nil {
		r.identity = wire.IDPtr(*saved.ID)
	}
	r.loadedName = saved.Name
	if r.loadedName == "" {
		r.loadedName = r.Name
	}
}

// ParameterToWire converts a parameter to its wire form.
func ParameterToWire(p schema.Parameter, id *wire.ID) wire.Parameter {
	w := wire.Parameter{
		Key:       p.Key,
		Type:      string(p.Type),
		Mandatory: p.Mandatory,
		ReadOnly:  p.ReadOnly,
	}
	if id != nil {
		w.ID = wire.IDPtr(*id)
	}
	if p.Default != nil {
		w.DefaultValue = p.Default.Any()
	}
	return w
}

// ParameterFromWire converts a wire parameter. Unknown types are an error;
// defaults that do not fit the type are dropped.
func ParameterFromWire(w wire.Parameter) (schema.Parameter, error) {
	t, err := schema.ParseType(w.Type)
	if err != nil {
		return schema.Parameter{}, err
	}
	p := schema.New(schema.Init{
		Type:      t,
		Mandatory: w.Mandatory,
		ReadOnly:  w.ReadOnly,
		Default:   schema.DefaultFromAny(t, w.DefaultValue),
	})
	return p.WithKey(w.Key), nil
}

// ParametersFromWire converts a list of wire parameters.
func ParametersFromWire(ws []wire.Parameter) ([]schema.Parameter, error) {
	out := make([]schema.Parameter, 0, len(ws))
	for i, w := range ws {
		p, err := ParameterFromWire(w)
		if err != nil {
			return nil, fmt.Errorf("parameter %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}
