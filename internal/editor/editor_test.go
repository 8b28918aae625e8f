// ABOUTME: Tests for the record editor state machine.
// ABOUTME: Uses a recording fake repository to count collaborator calls.

package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/2389/pluginadmin/internal/record"
	"github.com/2389/pluginadmin/internal/schema"
	"github.com/2389/pluginadmin/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	plugins map[string]wire.Plugin
	fail    error
	block   chan struct{}
	started chan struct{}

	gets    int
	creates []wire.Plugin
	updates []wire.Plugin
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{plugins: map[string]wire.Plugin{}}
}

func (f *fakeRepo) calls() int { return len(f.creates) + len(f.updates) }

func (f *fakeRepo) Get(ctx context.Context, name string) (wire.Plugin, error) {
	f.gets++
	p, ok := f.plugins[name]
	if !ok {
		return wire.Plugin{}, ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) wait() {
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeRepo) Create(ctx context.Context, p wire.Plugin) (wire.Plugin, error) {
	f.creates = append(f.creates, p)
	f.wait()
	if f.fail != nil {
		return wire.Plugin{}, f.fail
	}
	p.ID = wire.IDPtr(wire.NumericID(int64(len(f.creates))))
	f.plugins[p.Name] = p
	return p, nil
}

func (f *fakeRepo) Update(ctx context.Context, p wire.Plugin) (wire.Plugin, error) {
	f.updates = append(f.updates, p)
	f.wait()
	if f.fail != nil {
		return wire.Plugin{}, f.fail
	}
	f.plugins[p.Name] = p
	return p, nil
}

func TestSave_ValidationBlocksNetwork(t *testing.T) {
	repo := newFakeRepo()
	ed := New(repo)
	require.NoError(t, ed.SetURL("http://x"))

	_, err := ed.Save(context.Background())
	require.ErrorIs(t, err, record.ErrValidation)
	var verr *record.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, record.MissingName, verr.First().Code)

	assert.Zero(t, repo.calls(), "repository must not be invoked")
	assert.Equal(t, StateDirty, ed.State())
	assert.Equal(t, "http://x", ed.Record().URL)
}

func TestSave_CreateFlow(t *testing.T) {
	repo := newFakeRepo()
	ed := New(repo)
	assert.Equal(t, StateEmpty, ed.State())

	require.NoError(t, ed.SetName("p1"))
	assert.Equal(t, StateDirty, ed.State())
	require.NoError(t, ed.SetURL("http://x"))
	row, err := ed.AddParameter()
	require.NoError(t, err)
	require.NoError(t, ed.SetKey(row, "k1"))

	saved, err := ed.Save(context.Background())
	require.NoError(t, err)
	require.Len(t, repo.creates, 1)
	assert.Empty(t, repo.updates)
	assert.Nil(t, repo.creates[0].ID)
	assert.Equal(t, []wire.Parameter{{Key: "k1", Type: "string"}}, repo.creates[0].Parameters)

	assert.Equal(t, StateSaved, ed.State())
	assert.Equal(t, record.ModeUpdate, ed.Mode())
	assert.Equal(t, saved.ID.String(), ed.Record().Identity().String())
	assert.ErrorIs(t, ed.SetURL("y"), ErrClosed)
	_, err = ed.Save(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSave_UpdateFlowCarriesIdentity(t *testing.T) {
	repo := newFakeRepo()
	repo.plugins["plug1"] = wire.Plugin{ID: wire.IDPtr(wire.NumericID(42)), Name: "plug1", URL: "http://a"}

	ed, err := Load(context.Background(), repo, "plug1")
	require.NoError(t, err)
	assert.Equal(t, StateLoaded, ed.State())
	assert.ErrorIs(t, ed.SetName("other"), ErrNameLocked)
	require.NoError(t, ed.SetURL("http://b"))

	_, err = ed.Save(context.Background())
	require.NoError(t, err)
	require.Len(t, repo.updates, 1)
	assert.Empty(t, repo.creates)
	assert.Equal(t, "42", repo.updates[0].ID.String())
	assert.Equal(t, "plug1", repo.updates[0].Name)
	assert.Equal(t, "http://b", repo.updates[0].URL)
}

func TestSave_TransportFailurePreservesEdits(t *testing.T) {
	repo := newFakeRepo()
	repo.fail = errors.New("connection refused")
	ed := New(repo)
	require.NoError(t, ed.SetName("p1"))
	require.NoError(t, ed.SetURL("http://x"))

	_, err := ed.Save(context.Background())
	require.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, StateDirty, ed.State())
	assert.Equal(t, err, ed.Err())
	assert.Equal(t, "p1", ed.Record().Name)
	assert.Equal(t, record.ModeCreate, ed.Mode())
	assert.Len(t, repo.creates, 1, "no automatic retry")

	repo.fail = nil
	_, err = ed.Save(context.Background())
	require.NoError(t, err)
	assert.Nil(t, ed.Err())
	assert.Len(t, repo.creates, 2)
}

func TestSave_BusyWhileSubmitting(t *testing.T) {
	repo := newFakeRepo()
	repo.block = make(chan struct{})
	repo.started = make(chan struct{})
	ed := New(repo)
	require.NoError(t, ed.SetName("p1"))
	require.NoError(t, ed.SetURL("http://x"))

	done := make(chan error, 1)
	go func() {
		_, err := ed.Save(context.Background())
		done <- err
	}()
	<-repo.started

	assert.Equal(t, StateSubmitting, ed.State())
	_, err := ed.Save(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, ed.SetURL("http://y"), ErrBusy)

	close(repo.block)
	require.NoError(t, <-done)
	assert.Equal(t, StateSaved, ed.State())
	assert.Len(t, repo.creates, 1)
}

func TestLoad_NotFound(t *testing.T) {
	repo := newFakeRepo()
	_, err := Load(context.Background(), repo, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	repo.plugins["empty"] = wire.Plugin{}
	_, err = Load(context.Background(), repo, "empty")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOnTypeChange_ClearsDefaultKeepsRow(t *testing.T) {
	ed := New(newFakeRepo())
	row, err := ed.AddParameterWith(schema.Init{Type: schema.TypeInteger})
	require.NoError(t, err)
	require.NoError(t, ed.SetDefault(row, "3.7"))

	p, _ := ed.Record().Parameter(row)
	n, ok := p.Default.Int()
	require.True(t, ok)
	assert.Equal(t, int64(3), n)

	require.NoError(t, ed.OnTypeChange(row, schema.TypeString))
	p, ok = ed.Record().Parameter(row)
	require.True(t, ok, "row identity survives a type change")
	assert.Equal(t, schema.TypeString, p.Type)
	assert.False(t, p.HasDefault())

	assert.ErrorIs(t, ed.OnTypeChange(row, "float"), schema.ErrUnknownType)
	assert.ErrorIs(t, ed.OnTypeChange(record.RowID(999), schema.TypeInteger), ErrUnknownRow)
}

func TestSetDefault_SoftCoercionFailure(t *testing.T) {
	ed := New(newFakeRepo())
	row, err := ed.AddParameterWith(schema.Init{Type: schema.TypeInteger})
	require.NoError(t, err)
	require.NoError(t, ed.SetDefault(row, "5"))

	err = ed.SetDefault(row, "abc")
	assert.ErrorIs(t, err, schema.ErrCoercionEmpty)
	p, _ := ed.Record().Parameter(row)
	assert.False(t, p.HasDefault())
	assert.Equal(t, StateDirty, ed.State())
}

func TestImportParameters_DefersValidation(t *testing.T) {
	repo := newFakeRepo()
	ed := New(repo)
	require.NoError(t, ed.SetName("p1"))
	require.NoError(t, ed.SetURL("http://x"))

	ids, err := ed.ImportParameters([]wire.Parameter{
		{Key: "a", Type: "integer", DefaultValue: float64(1)},
		{Key: "", Type: "string"},
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, 2, ed.Record().Len())

	_, err = ed.Save(context.Background())
	var verr *record.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.ForRow(ids[1]), 1)
	assert.Zero(t, repo.calls())

	_, err = ed.ImportParameters([]wire.Parameter{{Key: "x", Type: "bool"}})
	assert.ErrorIs(t, err, schema.ErrUnknownType)
	assert.Equal(t, 2, ed.Record().Len(), "rejected import leaves rows unchanged")
}

func TestRemoveAndMove(t *testing.T) {
	ed := New(newFakeRepo())
	a, _ := ed.AddParameter()
	b, _ := ed.AddParameter()
	require.NoError(t, ed.SetKey(a, "a"))
	require.NoError(t, ed.SetKey(b, "b"))

	require.NoError(t, ed.MoveParameter(b, 0))
	rows := ed.Record().Rows()
	assert.Equal(t, b, rows[0].ID)

	require.NoError(t, ed.RemoveParameter(b))
	require.NoError(t, ed.RemoveParameter(b), "removing twice is a no-op")
	rows = ed.Record().Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].Parameter.Key)
	assert.ErrorIs(t, ed.MoveParameter(b, 0), ErrUnknownRow)
}

func TestSetFlags(t *testing.T) {
	ed := New(newFakeRepo())
	row, _ := ed.AddParameter()
	require.NoError(t, ed.SetMandatory(row, true))
	require.NoError(t, ed.SetReadOnly(row, true))
	require.NoError(t, ed.SetDefault(row, ""))

	p, _ := ed.Record().Parameter(row)
	assert.True(t, p.Mandatory)
	assert.True(t, p.ReadOnly)
	assert.True(t, p.HasDefault(), "empty string is a stored default")

	require.NoError(t, ed.ClearDefault(row))
	p, _ = ed.Record().Parameter(row)
	assert.False(t, p.HasDefault())
}
