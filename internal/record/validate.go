// ABOUTME: Pre-submission validation rules for plugin records.
// ABOUTME: Shared by the local editor and the repository API handlers.

package record

import (
	"errors"
	"fmt"
	"strings"

	"github.com/2389/pluginadmin/internal/schema"
	"github.com/2389/pluginadmin/internal/wire"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// Code is a machine-readable validation failure.
type Code string

const (
	MissingName  Code = "MISSING_NAME"
	MissingURL   Code = "MISSING_URL"
	MissingKey   Code = "MISSING_KEY"
	DuplicateKey Code = "DUPLICATE_KEY"
	InvalidType  Code = "INVALID_TYPE"
)

// Violation is one failed rule.
type Violation struct {
	Code  Code
	Field string
	// Index is the parameter position, -1 for record-level fields.
	Index int
	// Row is the parameter row identity when the violation came from a Record.
	Row RowID
}

func (v Violation) Message() string {
	switch v.Code {
	case MissingName:
		return "Please input name!"
	case MissingURL:
		return "Please input url!"
	case MissingKey:
		return "Please input key!"
	case DuplicateKey:
		return "Duplicate parameter key"
	case InvalidType:
		return "Unknown parameter type"
	}
	return string(v.Code)
}

// ValidationError lists every violation found, in field order.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return ErrValidation.Error()
	}
	first := e.Violations[0]
	msg := fmt.Sprintf("%s: %s (%s)", ErrValidation, first.Code, first.Field)
	if n := len(e.Violations) - 1; n > 0 {
		msg += fmt.Sprintf(" and %d more", n)
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// First returns the first violation.
func (e *ValidationError) First() Violation {
	if len(e.Violations) == 0 {
		return Violation{Index: -1}
	}
	return e.Violations[0]
}

// Has reports whether a violation with code exists for the given field.
func (e *ValidationError) Has(code Code, field string) bool {
	for _, v := range e.Violations {
		if v.Code == code && v.Field == field {
			return true
		}
	}
	return false
}

// ForRow returns the violations attached to a parameter row.
func (e *ValidationError) ForRow(id RowID) []Violation {
	var out []Violation
	for _, v := range e.Violations {
		if v.Row == id && id != 0 {
			out = append(out, v)
		}
	}
	return out
}

// KeyField is the field path of a parameter key.
func KeyField(i int) string {
	return fmt.Sprintf("parameters[%d].parameter_key", i)
}

// TypeField is the field path of a parameter type.
func TypeField(i int) string {
	return fmt.Sprintf("parameters[%d].parameter_type", i)
}

// ValidatePayload checks the submission rules. It returns nil or a
// *ValidationError.
func ValidatePayload(p wire.Plugin) error {
	var vs []Violation
	if blank(p.Name) {
		vs = append(vs, Violation{Code: MissingName, Field: "plugin_name", Index: -1})
	}
	if blank(p.URL) {
		vs = append(vs, Violation{Code: MissingURL, Field: "plugin_url", Index: -1})
	}
	seen := make(map[string]bool, len(p.Parameters))
	for i, param := range p.Parameters {
		if _, err := schema.ParseType(param.Type); err != nil {
			vs = append(vs, Violation{Code: InvalidType, Field: TypeField(i), Index: i})
		}
		if blank(param.Key) {
			vs = append(vs, Violation{Code: MissingKey, Field: KeyField(i), Index: i})
			continue
		}
		if seen[param.Key] {
			vs = append(vs, Violation{Code: DuplicateKey, Field: KeyField(i), Index: i})
		}
		seen[param.Key] = true
	}
	if len(vs) == 0 {
		return nil
	}
	return &ValidationError{Violations: vs}
}

// Validate checks the record as it would be submitted and attaches row
// identities to parameter violations.
func (r *Record) Validate() error {
	err := ValidatePayload(r.Payload())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	for i := range verr.Violations {
		if idx := verr.Violations[i].Index; idx >= 0 && idx < len(r.rows) {
			verr.Violations[i].Row = r.rows[idx].ID
		}
	}
	return verr
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
