// ABOUTME: Record editor state machine over one plugin working copy.
// ABOUTME: Resolves create vs update, gates edits while saving and surfaces failures.

package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/2389/pluginadmin/internal/record"
	"github.com/2389/pluginadmin/internal/schema"
	"github.com/2389/pluginadmin/internal/wire"
)

var (
	// ErrNotFound is matched by Repository.Get errors for unknown plugins.
	ErrNotFound = errors.New("plugin not found")
	// ErrTransport wraps every failed Repository write.
	ErrTransport = errors.New("save failed")
	// ErrBusy is returned while a save is in flight.
	ErrBusy = errors.New("save in progress")
	// ErrClosed is returned for edits after a successful save.
	ErrClosed = errors.New("editor already saved")
	// ErrNameLocked is returned when renaming a hydrated record.
	ErrNameLocked = errors.New("plugin name cannot change after creation")
	// ErrUnknownRow is returned for a row identity not in the record.
	ErrUnknownRow = errors.New("unknown parameter row")
)

// Repository persists plugin records.
type Repository interface {
	Get(ctx context.Context, name string) (wire.Plugin, error)
	Create(ctx context.Context, p wire.Plugin) (wire.Plugin, error)
	Update(ctx context.Context, p wire.Plugin) (wire.Plugin, error)
}

// State is the editor lifecycle state.
type State int

const (
	StateEmpty State = iota
	StateLoaded
	StateDirty
	StateSubmitting
	StateSaved
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	case StateDirty:
		return "dirty"
	case StateSubmitting:
		return "submitting"
	case StateSaved:
		return "saved"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Editor owns one working copy. Methods are safe to call from multiple
// goroutines; Save releases the lock while the repository call is pending.
type Editor struct {
	repo Repository

	mu      sync.Mutex
	rec     *record.Record
	state   State
	lastErr error
}

// New returns an editor in the Empty state for the create flow.
func New(repo Repository) *Editor {
	return &Editor{repo: repo, rec: record.New(), state: StateEmpty}
}

// Load hydrates the named plugin for the update flow. An empty plugin in
// the response is treated as not found.
func Load(ctx context.Context, repo Repository, name string) (*Editor, error) {
	p, err := repo.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return Hydrated(repo, p)
}

// Hydrated returns a Loaded editor for an already-fetched plugin.
func Hydrated(repo Repository, p wire.Plugin) (*Editor, error) {
	rec, err := record.Hydrate(p)
	if err != nil {
		return nil, fmt.Errorf("hydrate %s: %w", p.Name, err)
	}
	return &Editor{repo: repo, rec: rec, state: StateLoaded}, nil
}

// State returns the current state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Mode returns the record's mode.
func (e *Editor) Mode() record.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Mode()
}

// Record returns a copy of the working copy.
func (e *Editor) Record() *record.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Clone()
}

// Err returns the error of the last failed save, nil after a success.
func (e *Editor) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// edit runs fn under the lock when the editor accepts edits and marks the
// working copy dirty unless fn fails hard.
func (e *Editor) edit(fn func(r *record.Record) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateSubmitting:
		return ErrBusy
	case StateSaved:
		return ErrClosed
	}
	err := fn(e.rec)
	if err != nil && !errors.Is(err, schema.ErrCoercionEmpty) {
		return err
	}
	e.state = StateDirty
	return err
}

// updateRow replaces the parameter at id with fn's result.
func (e *Editor) updateRow(id record.RowID, fn func(p schema.Parameter) (schema.Parameter, error)) error {
	return e.edit(func(r *record.Record) error {
		p, ok := r.Parameter(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownRow, id)
		}
		next, err := fn(p)
		r.ReplaceParameter(id, next)
		return err
	})
}

// SetName sets the plugin name. Hydrated records keep their name.
func (e *Editor) SetName(name string) error {
	return e.edit(func(r *record.Record) error {
		if r.Mode() == record.ModeUpdate {
			return ErrNameLocked
		}
		r.Name = name
		return nil
	})
}

// SetURL sets the plugin URL.
func (e *Editor) SetURL(url string) error {
	return e.edit(func(r *record.Record) error {
		r.URL = url
		return nil
	})
}

// AddParameter appends a blank string parameter.
func (e *Editor) AddParameter() (record.RowID, error) {
	return e.AddParameterWith(schema.Blank())
}

// AddParameterWith appends a parameter built from init.
func (e *Editor) AddParameterWith(init schema.Init) (record.RowID, error) {
	var id record.RowID
	err := e.edit(func(r *record.Record) error {
		id = r.AddParameter(init)
		return nil
	})
	return id, err
}

// RemoveParameter removes the row. Removing an absent row is a no-op.
func (e *Editor) RemoveParameter(id record.RowID) error {
	return e.edit(func(r *record.Record) error {
		r.RemoveParameter(id)
		return nil
	})
}

// MoveParameter moves the row to index to.
func (e *Editor) MoveParameter(id record.RowID, to int) error {
	return e.edit(func(r *record.Record) error {
		if !r.MoveParameter(id, to) {
			return fmt.Errorf("%w: %s", ErrUnknownRow, id)
		}
		return nil
	})
}

// SetKey sets the parameter key.
func (e *Editor) SetKey(id record.RowID, key string) error {
	return e.updateRow(id, func(p schema.Parameter) (schema.Parameter, error) {
		return p.WithKey(key), nil
	})
}

// SetMandatory sets the mandatory flag.
func (e *Editor) SetMandatory(id record.RowID, v bool) error {
	return e.updateRow(id, func(p schema.Parameter) (schema.Parameter, error) {
		return p.WithMandatory(v), nil
	})
}

// SetReadOnly sets the read-only flag.
func (e *Editor) SetReadOnly(id record.RowID, v bool) error {
	return e.updateRow(id, func(p schema.Parameter) (schema.Parameter, error) {
		return p.WithReadOnly(v), nil
	})
}

// SetDefault coerces raw into the row's default. Input that does not coerce
// leaves the default unset and returns schema.ErrCoercionEmpty; the edit
// still counts.
func (e *Editor) SetDefault(id record.RowID, raw string) error {
	return e.updateRow(id, func(p schema.Parameter) (schema.Parameter, error) {
		return p.WithDefault(raw)
	})
}

// ClearDefault unsets the row's default.
func (e *Editor) ClearDefault(id record.RowID) error {
	return e.updateRow(id, func(p schema.Parameter) (schema.Parameter, error) {
		return p.WithoutDefault(), nil
	})
}

// OnTypeChange sets the row's type and clears its default, replacing the
// row in place under the same identity.
func (e *Editor) OnTypeChange(id record.RowID, t schema.Type) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", schema.ErrUnknownType, t)
	}
	return e.updateRow(id, func(p schema.Parameter) (schema.Parameter, error) {
		return p.WithType(t), nil
	})
}

// ImportParameters replaces the parameter list wholesale. Keys are not
// validated until Save; unknown types reject the whole import.
func (e *Editor) ImportParameters(ws []wire.Parameter) ([]record.RowID, error) {
	params, err := record.ParametersFromWire(ws)
	if err != nil {
		return nil, err
	}
	var ids []record.RowID
	err = e.edit(func(r *record.Record) error {
		ids = r.SetParameters(params)
		return nil
	})
	return ids, err
}

// Save validates the working copy and issues exactly one create or update.
// Validation failures return a *record.ValidationError without contacting
// the repository. Repository failures wrap ErrTransport. Either way the
// editor returns to Dirty with its edits intact.
func (e *Editor) Save(ctx context.Context) (wire.Plugin, error) {
	e.mu.Lock()
	switch e.state {
	case StateSubmitting:
		e.mu.Unlock()
		return wire.Plugin{}, ErrBusy
	case StateSaved:
		e.mu.Unlock()
		return wire.Plugin{}, ErrClosed
	}
	if err := e.rec.Validate(); err != nil {
		e.state = StateDirty
		e.lastErr = err
		e.mu.Unlock()
		return wire.Plugin{}, err
	}
	payload := e.rec.Payload()
	mode := e.rec.Mode()
	e.state = StateSubmitting
	e.mu.Unlock()

	var saved wire.Plugin
	var err error
	if mode == record.ModeUpdate {
		saved, err = e.repo.Update(ctx, payload)
	} else {
		saved, err = e.repo.Create(ctx, payload)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.state = StateDirty
		e.lastErr = fmt.Errorf("%w: %w", ErrTransport, err)
		return wire.Plugin{}, e.lastErr
	}
	e.rec.AdoptIdentity(saved)
	e.state = StateSaved
	e.lastErr = nil
	return saved, nil
}
