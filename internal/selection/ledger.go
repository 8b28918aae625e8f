// ABOUTME: Selection ledger tracking plugin names chosen for batch actions.
// ABOUTME: Derives the add/delete affordance and runs all-or-nothing batch deletes.

package selection

import (
	"context"
	"sort"

	"github.com/2389/pluginadmin/internal/wire"
)

// Affordance is the single batch control shown next to the list.
type Affordance string

const (
	AffordanceAdd    Affordance = "add"
	AffordanceDelete Affordance = "delete"
)

// BatchDeleter removes plugins in one call.
type BatchDeleter interface {
	DeletePlugins(ctx context.Context, plugins []wire.Plugin) error
}

// Ledger is a set of plugin keys. The zero value is an empty ledger.
type Ledger struct {
	selected map[string]struct{}
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Toggle flips membership of key and reports whether it is now selected.
func (l *Ledger) Toggle(key string) bool {
	if l.Has(key) {
		l.Deselect(key)
		return false
	}
	l.Select(key)
	return true
}

// Select adds key.
func (l *Ledger) Select(key string) {
	if l.selected == nil {
		l.selected = make(map[string]struct{})
	}
	l.selected[key] = struct{}{}
}

// Deselect removes key.
func (l *Ledger) Deselect(key string) {
	delete(l.selected, key)
}

// Clear empties the ledger.
func (l *Ledger) Clear() {
	l.selected = nil
}

func (l *Ledger) Has(key string) bool {
	_, ok := l.selected[key]
	return ok
}

func (l *Ledger) Len() int { return len(l.selected) }

func (l *Ledger) IsEmpty() bool { return len(l.selected) == 0 }

// Keys returns the selected keys in sorted order.
func (l *Ledger) Keys() []string {
	keys := make([]string, 0, len(l.selected))
	for k := range l.selected {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Affordance returns AffordanceAdd for an empty ledger, AffordanceDelete
// otherwise.
func (l *Ledger) Affordance() Affordance {
	if l.IsEmpty() {
		return AffordanceAdd
	}
	return AffordanceDelete
}

// Prune drops keys that no longer appear in collection.
func (l *Ledger) Prune(collection []wire.Plugin) {
	present := make(map[string]bool, len(collection))
	for _, p := range collection {
		present[p.Key()] = true
	}
	for k := range l.selected {
		if !present[k] {
			delete(l.selected, k)
		}
	}
}

// DeleteSelected issues one batch delete for the selected records of
// collection. On success it returns the remaining records and clears the
// ledger. On failure the ledger is untouched and the collection is returned
// unchanged. An empty selection makes no call.
func (l *Ledger) DeleteSelected(ctx context.Context, d BatchDeleter, collection []wire.Plugin) ([]wire.Plugin, error) {
	var doomed, remaining []wire.Plugin
	for _, p := range collection {
		if l.Has(p.Key()) {
			doomed = append(doomed, p)
		} else {
			remaining = append(remaining, p)
		}
	}
	if len(doomed) == 0 {
		return collection, nil
	}
	if err := d.DeletePlugins(ctx, doomed); err != nil {
		return collection, err
	}
	l.Clear()
	if remaining == nil {
		remaining = []wire.Plugin{}
	}
	return remaining, nil
}
