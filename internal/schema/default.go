// ABOUTME: Default value representation for typed parameters.
// ABOUTME: Integer defaults are stored as int64, string defaults verbatim.

package schema

import (
	"encoding/json"
	"math"
	"strconv"
)

// Default is a stored default value. Its representation always matches its
// type; construct it with StringDefault, IntegerDefault or Coerce.
type Default struct {
	typ Type
	str string
	num int64
}

// StringDefault returns a string default, empty string included.
func StringDefault(s string) Default {
	return Default{typ: TypeString, str: s}
}

// IntegerDefault returns an integer default.
func IntegerDefault(n int64) Default {
	return Default{typ: TypeInteger, num: n}
}

// Type returns the type the value was stored under.
func (d Default) Type() Type {
	return d.typ
}

// Int returns the integer value when d is an integer default.
func (d Default) Int() (int64, bool) {
	return d.num, d.typ == TypeInteger
}

// String renders the value as it appears in an editing control.
func (d Default) String() string {
	if d.typ == TypeInteger {
		return strconv.FormatInt(d.num, 10)
	}
	return d.str
}

// Any returns the JSON representation: int64 for integers, string otherwise.
func (d Default) Any() any {
	if d.typ == TypeInteger {
		return d.num
	}
	return d.str
}

// DefaultFromAny converts a decoded JSON value into a default of type t.
// nil and unconvertible values yield nil.
func DefaultFromAny(t Type, v any) *Default {
	if v == nil {
		return nil
	}
	var raw string
	switch val := v.(type) {
	case string:
		raw = val
	case json.Number:
		raw = val.String()
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		raw = strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		raw = strconv.Itoa(val)
	case int64:
		raw = strconv.FormatInt(val, 10)
	case bool:
		raw = strconv.FormatBool(val)
	default:
		return nil
	}
	d, err := Coerce(t, raw)
	if err != nil {
		return nil
	}
	return &d
}
