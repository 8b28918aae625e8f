// ABOUTME: Parameter value object with type-directed default handling.
// ABOUTME: All mutators return updated copies; the receiver is never changed.

package schema

// Init carries the initial field values for a new parameter.
type Init struct {
	Type      Type
	Mandatory bool
	ReadOnly  bool
	Default   *Default
}

// Parameter is one typed configuration slot on a plugin record.
type Parameter struct {
	Key       string
	Type      Type
	Mandatory bool
	ReadOnly  bool
	Default   *Default
}

// Blank is the initial value of a parameter row added by a user.
func Blank() Init {
	return Init{Type: TypeString}
}

// New creates a parameter with an empty key. A default whose type does not
// match init.Type is dropped. An empty type means TypeString.
func New(init Init) Parameter {
	t := init.Type
	if t == "" {
		t = TypeString
	}
	p := Parameter{
		Type:      t,
		Mandatory: init.Mandatory,
		ReadOnly:  init.ReadOnly,
	}
	if init.Default != nil && init.Default.Type() == t {
		d := *init.Default
		p.Default = &d
	}
	return p
}

// WithKey returns p with the given key.
func (p Parameter) WithKey(key string) Parameter {
	p.Key = key
	return p
}

// WithMandatory returns p with the mandatory flag set to v.
func (p Parameter) WithMandatory(v bool) Parameter {
	p.Mandatory = v
	return p
}

// WithReadOnly returns p with the read-only flag set to v.
func (p Parameter) WithReadOnly(v bool) Parameter {
	p.ReadOnly = v
	return p
}

// WithType returns p with type t and no default. The previous default is
// cleared even when t equals the current type.
func (p Parameter) WithType(t Type) Parameter {
	p.Type = t
	p.Default = nil
	return p
}

// WithDefault coerces raw according to p.Type. On ErrCoercionEmpty the
// default is left unset and the error is returned alongside the result.
func (p Parameter) WithDefault(raw string) (Parameter, error) {
	d, err := Coerce(p.Type, raw)
	if err != nil {
		p.Default = nil
		return p, err
	}
	p.Default = &d
	return p, nil
}

// WithoutDefault returns p with the default unset.
func (p Parameter) WithoutDefault() Parameter {
	p.Default = nil
	return p
}

// HasDefault reports whether a default is stored.
func (p Parameter) HasDefault() bool {
	return p.Default != nil
}

// Editor describes how a presentation layer should render the default
// value control of a parameter.
type Editor struct {
	Control Control
	Value   string
	Set     bool
	Step    int
}

// Editor returns the control for p. An unset default renders an empty
// control with Set false, never a zero or empty placeholder value.
func (p Parameter) Editor() Editor {
	e := Editor{Control: p.Type.Control()}
	if e.Control == ControlNumber {
		e.Step = 1
	}
	if p.Default != nil {
		e.Value = p.Default.String()
		e.Set = true
	}
	return e
}
