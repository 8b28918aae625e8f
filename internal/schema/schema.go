// ABOUTME: Typed parameter schema for plugin records.
// ABOUTME: Owns the closed type set, default-value coercion and editor control mapping.

package schema

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type is the declared primitive type of a parameter.
type Type string

const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
)

// ErrUnknownType is returned when a type tag is outside the supported set.
var ErrUnknownType = errors.New("unknown parameter type")

// ErrCoercionEmpty reports input that could not be coerced into a default
// value. It is not a hard failure: the default is left unset.
var ErrCoercionEmpty = errors.New("input does not coerce to a default value")

// Control is the editing control a presentation layer should use for a type.
type Control string

const (
	ControlText   Control = "text"
	ControlNumber Control = "number"
)

// kind binds a type tag to its coercion rule and editor control.
// Every Type returned by Types must have an entry.
type kind struct {
	control Control
	coerce  func(raw string) (Default, error)
}

var kinds = map[Type]kind{
	TypeString: {
		control: ControlText,
		coerce: func(raw string) (Default, error) {
			return Default{typ: TypeString, str: raw}, nil
		},
	},
	TypeInteger: {
		control: ControlNumber,
		coerce:  coerceInteger,
	},
}

// Types returns every supported type in display order.
func Types() []Type {
	return []Type{TypeString, TypeInteger}
}

// ParseType converts a wire tag into a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if _, ok := kinds[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
	return t, nil
}

// Valid reports whether t is one of the supported types.
func (t Type) Valid() bool {
	_, ok := kinds[t]
	return ok
}

// Control returns the editor control for t. Unknown types get a text control.
func (t Type) Control() Control {
	if k, ok := kinds[t]; ok {
		return k.control
	}
	return ControlText
}

// Label is the human readable name of the type.
func (t Type) Label() string {
	switch t {
	case TypeInteger:
		return "Integer"
	case TypeString:
		return "String"
	}
	return string(t)
}

// Coerce converts raw user input into a default value of type t.
func Coerce(t Type, raw string) (Default, error) {
	k, ok := kinds[t]
	if !ok {
		return Default{}, fmt.Errorf("%w: %q", ErrUnknownType, string(t))
	}
	return k.coerce(raw)
}

// coerceInteger truncates any fractional part. Non-numeric, non-finite and
// out of range input yields ErrCoercionEmpty.
func coerceInteger(raw string) (Default, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Default{}, ErrCoercionEmpty
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Default{typ: TypeInteger, num: n}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Default{}, ErrCoercionEmpty
	}
	f = math.Trunc(f)
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return Default{}, ErrCoercionEmpty
	}
	return Default{typ: TypeInteger, num: int64(f)}, nil
}
