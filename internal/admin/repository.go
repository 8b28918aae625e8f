// ABOUTME: Repository adapter that lets the admin UI drive editors over the local store.
// ABOUTME: Maps store sentinels onto the editor's not-found error.

package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/pluginadmin/internal/editor"
	"github.com/2389/pluginadmin/internal/store"
	"github.com/2389/pluginadmin/internal/wire"
)

// Repository is everything the admin UI needs from the plugin repository.
// *client.Client implements it, as does LocalRepository.
type Repository interface {
	editor.Repository
	List(ctx context.Context) ([]wire.Plugin, error)
	DeletePlugins(ctx context.Context, plugins []wire.Plugin) error
}

// LocalRepository serves the admin UI straight from the store when it runs
// in the same process as the API.
type LocalRepository struct {
	store *store.Store
}

func NewLocalRepository(s *store.Store) *LocalRepository {
	return &LocalRepository{store: s}
}

func (l *LocalRepository) List(ctx context.Context) ([]wire.Plugin, error) {
	return l.store.ListPlugins(ctx, "")
}

func (l *LocalRepository) Get(ctx context.Context, name string) (wire.Plugin, error) {
	p, err := l.store.GetPlugin(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return wire.Plugin{}, fmt.Errorf("%w: %s", editor.ErrNotFound, name)
	}
	return p, err
}

func (l *LocalRepository) Create(ctx context.Context, p wire.Plugin) (wire.Plugin, error) {
	return l.store.CreatePlugin(ctx, p)
}

func (l *LocalRepository) Update(ctx context.Context, p wire.Plugin) (wire.Plugin, error) {
	return l.store.UpdatePlugin(ctx, p)
}

func (l *LocalRepository) DeletePlugins(ctx context.Context, plugins []wire.Plugin) error {
	return l.store.DeletePlugins(ctx, plugins)
}
