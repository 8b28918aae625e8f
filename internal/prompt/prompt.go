// ABOUTME: Interactive terminal editor for plugin records.
// ABOUTME: Drives a RecordEditor through menus rendered with charmbracelet/huh.

package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/2389/pluginadmin/internal/editor"
	"github.com/2389/pluginadmin/internal/importer"
	"github.com/2389/pluginadmin/internal/record"
	"github.com/2389/pluginadmin/internal/schema"
	"github.com/2389/pluginadmin/internal/wire"
	"github.com/charmbracelet/huh"
)

// ErrCancelled is returned when the user leaves without saving.
var ErrCancelled = errors.New("edit cancelled")

// Option is one entry of a selection menu.
type Option struct {
	Label string
	Value string
}

// Prompter asks the user for input. TerminalPrompter is the huh-backed
// implementation; tests script their own.
type Prompter interface {
	Select(title string, options []Option) (string, error)
	Input(title, value string) (string, error)
	Confirm(title string, value bool) (bool, error)
}

// TerminalPrompter renders prompts on the terminal.
type TerminalPrompter struct{}

// IsInteractive checks if we're running in an interactive terminal.
func IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

func (TerminalPrompter) Select(title string, options []Option) (string, error) {
	var selection string
	opts := make([]huh.Option[string], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o.Label, o.Value)
	}
	err := huh.NewSelect[string]().
		Title(title).
		Options(opts...).
		Value(&selection).
		Run()
	return selection, err
}

func (TerminalPrompter) Input(title, value string) (string, error) {
	err := huh.NewInput().
		Title(title).
		Value(&value).
		Run()
	return value, err
}

func (TerminalPrompter) Confirm(title string, value bool) (bool, error) {
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&value).
		Run()
	return value, err
}

// Menu actions.
const (
	actionName   = "name"
	actionURL    = "url"
	actionAdd    = "add"
	actionImport = "import"
	actionSave   = "save"
	actionQuit   = "quit"
	rowPrefix    = "row:"

	rowKey       = "key"
	rowType      = "type"
	rowMandatory = "mandatory"
	rowReadOnly  = "read_only"
	rowDefault   = "default"
	rowClear     = "clear"
	rowUp        = "up"
	rowDown      = "down"
	rowRemove    = "remove"
	rowBack      = "back"
)

// Session runs one interactive edit.
type Session struct {
	ed  *editor.Editor
	p   Prompter
	out io.Writer
}

func NewSession(ed *editor.Editor, p Prompter, out io.Writer) *Session {
	return &Session{ed: ed, p: p, out: out}
}

// Run loops over the main menu until the record is saved or the user quits.
// Validation and transport failures are reported and editing continues.
func (s *Session) Run(ctx context.Context) (wire.Plugin, error) {
	for {
		choice, err := s.p.Select(s.title(), s.mainOptions())
		if err != nil {
			return wire.Plugin{}, err
		}

		switch {
		case choice == actionName:
			s.editName()
		case choice == actionURL:
			s.editURL()
		case choice == actionAdd:
			id, err := s.ed.AddParameter()
			if s.report(err) {
				continue
			}
			if err := s.editRow(id); err != nil {
				return wire.Plugin{}, err
			}
		case choice == actionImport:
			s.importFile()
		case choice == actionSave:
			saved, err := s.ed.Save(ctx)
			if err == nil {
				fmt.Fprintf(s.out, "Saved plugin %s\n", saved.Name)
				return saved, nil
			}
			s.reportSave(err)
		case choice == actionQuit:
			if s.ed.State() == editor.StateDirty {
				leave, err := s.p.Confirm("Discard unsaved changes?", false)
				if err != nil {
					return wire.Plugin{}, err
				}
				if !leave {
					continue
				}
			}
			return wire.Plugin{}, ErrCancelled
		case strings.HasPrefix(choice, rowPrefix):
			id, ok := parseRow(choice)
			if !ok {
				continue
			}
			if err := s.editRow(id); err != nil {
				return wire.Plugin{}, err
			}
		}
	}
}

func (s *Session) title() string {
	rec := s.ed.Record()
	if rec.Mode() == record.ModeUpdate {
		return fmt.Sprintf("Edit plugin %s (%s)", rec.LoadedName(), s.ed.State())
	}
	return fmt.Sprintf("New plugin (%s)", s.ed.State())
}

func (s *Session) mainOptions() []Option {
	rec := s.ed.Record()
	var opts []Option
	if rec.Mode() == record.ModeCreate {
		opts = append(opts, Option{Label: "Name: " + orUnset(rec.Name), Value: actionName})
	}
	opts = append(opts, Option{Label: "URL: " + orUnset(rec.URL), Value: actionURL})
	for _, row := range rec.Rows() {
		opts = append(opts, Option{Label: "  " + Summary(row.Parameter), Value: rowPrefix + row.ID.String()})
	}
	return append(opts,
		Option{Label: "Add parameter", Value: actionAdd},
		Option{Label: "Import parameter file", Value: actionImport},
		Option{Label: "Save", Value: actionSave},
		Option{Label: "Quit", Value: actionQuit},
	)
}

func (s *Session) editName() {
	v, err := s.p.Input("Plugin name", s.ed.Record().Name)
	if err == nil {
		err = s.ed.SetName(v)
	}
	s.report(err)
}

func (s *Session) editURL() {
	v, err := s.p.Input("Plugin URL", s.ed.Record().URL)
	if err == nil {
		err = s.ed.SetURL(v)
	}
	s.report(err)
}

func (s *Session) importFile() {
	path, err := s.p.Input("Parameter file (.json, .yaml)", "")
	if err != nil || strings.TrimSpace(path) == "" {
		return
	}
	params, err := importer.LoadFile(strings.TrimSpace(path))
	if s.report(err) {
		return
	}
	ids, err := s.ed.ImportParameters(params)
	if s.report(err) {
		return
	}
	fmt.Fprintf(s.out, "Imported %d parameters\n", len(ids))
}

// editRow shows the per-parameter menu until the user goes back or the row
// is removed.
func (s *Session) editRow(id record.RowID) error {
	for {
		param, ok := s.ed.Record().Parameter(id)
		if !ok {
			return nil
		}
		choice, err := s.p.Select(Summary(param), rowOptions(param))
		if err != nil {
			return err
		}

		switch choice {
		case rowKey:
			v, err := s.p.Input("Parameter key", param.Key)
			if err == nil {
				err = s.ed.SetKey(id, v)
			}
			s.report(err)
		case rowType:
			opts := make([]Option, 0, len(schema.Types()))
			for _, t := range schema.Types() {
				opts = append(opts, Option{Label: t.Label(), Value: string(t)})
			}
			v, err := s.p.Select("Parameter type", opts)
			if err == nil {
				err = s.ed.OnTypeChange(id, schema.Type(v))
			}
			s.report(err)
		case rowMandatory:
			s.report(s.ed.SetMandatory(id, !param.Mandatory))
		case rowReadOnly:
			s.report(s.ed.SetReadOnly(id, !param.ReadOnly))
		case rowDefault:
			v, err := s.p.Input(defaultTitle(param), param.Editor().Value)
			if err == nil {
				err = s.ed.SetDefault(id, v)
			}
			if errors.Is(err, schema.ErrCoercionEmpty) {
				fmt.Fprintln(s.out, "Not a valid default; default left unset")
				continue
			}
			s.report(err)
		case rowClear:
			s.report(s.ed.ClearDefault(id))
		case rowUp, rowDown:
			pos := rowIndex(s.ed.Record(), id)
			if choice == rowUp {
				pos--
			} else {
				pos++
			}
			s.report(s.ed.MoveParameter(id, pos))
		case rowRemove:
			s.report(s.ed.RemoveParameter(id))
			return nil
		default:
			return nil
		}
	}
}

func rowOptions(p schema.Parameter) []Option {
	opts := []Option{
		{Label: "Key: " + orUnset(p.Key), Value: rowKey},
		{Label: "Type: " + p.Type.Label(), Value: rowType},
		{Label: fmt.Sprintf("Mandatory: %t", p.Mandatory), Value: rowMandatory},
		{Label: fmt.Sprintf("Read only: %t", p.ReadOnly), Value: rowReadOnly},
		{Label: "Default: " + defaultLabel(p), Value: rowDefault},
	}
	if p.HasDefault() {
		opts = append(opts, Option{Label: "Clear default", Value: rowClear})
	}
	return append(opts,
		Option{Label: "Move up", Value: rowUp},
		Option{Label: "Move down", Value: rowDown},
		Option{Label: "Remove", Value: rowRemove},
		Option{Label: "Back", Value: rowBack},
	)
}

func defaultTitle(p schema.Parameter) string {
	if p.Editor().Control == schema.ControlNumber {
		return "Default value (whole number)"
	}
	return "Default value"
}

// Summary is the one-line description of a parameter used in menus and
// listings.
func Summary(p schema.Parameter) string {
	var flags []string
	if p.Mandatory {
		flags = append(flags, "mandatory")
	}
	if p.ReadOnly {
		flags = append(flags, "read_only")
	}
	s := fmt.Sprintf("%s: %s", orUnset(p.Key), p.Type)
	if len(flags) > 0 {
		s += "; " + strings.Join(flags, ", ")
	}
	return s + "; default " + defaultLabel(p)
}

func defaultLabel(p schema.Parameter) string {
	e := p.Editor()
	if !e.Set {
		return "not set"
	}
	if e.Control == schema.ControlText {
		return fmt.Sprintf("%q", e.Value)
	}
	return e.Value
}

func orUnset(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(unset)"
	}
	return s
}

func rowIndex(rec *record.Record, id record.RowID) int {
	for i, row := range rec.Rows() {
		if row.ID == id {
			return i
		}
	}
	return -1
}

func parseRow(choice string) (record.RowID, bool) {
	var n uint64
	if _, err := fmt.Sscanf(strings.TrimPrefix(choice, rowPrefix), "%d", &n); err != nil {
		return 0, false
	}
	return record.RowID(n), true
}

// report prints a non-nil err and says whether it did.
func (s *Session) report(err error) bool {
	if err == nil {
		return false
	}
	fmt.Fprintf(s.out, "Error: %v\n", err)
	return true
}

func (s *Session) reportSave(err error) {
	var verr *record.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintln(s.out, "Cannot save:")
		for _, v := range verr.Violations {
			fmt.Fprintf(s.out, "  %s: %s\n", v.Field, v.Message())
		}
		return
	}
	fmt.Fprintf(s.out, "Save failed, your edits are kept: %v\n", err)
}
