// ABOUTME: Tests for plugin and parameter storage operations.
// ABOUTME: Covers conflicts, parameter diffing on update and transactional batch delete.

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/2389/pluginadmin/internal/wire"
)

func mustCreate(t *testing.T, s *Store, p wire.Plugin) wire.Plugin {
	t.Helper()
	created, err := s.CreatePlugin(context.Background(), p)
	if err != nil {
		t.Fatalf("CreatePlugin(%s) error = %v", p.Name, err)
	}
	return created
}

func TestCreatePlugin(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	created := mustCreate(t, s, wire.Plugin{
		Name: "weather",
		URL:  "http://weather.local",
		Parameters: []wire.Parameter{
			{Key: "city", Type: "string", Mandatory: true},
			{Key: "days", Type: "integer", DefaultValue: float64(3)},
			{Key: "unit", Type: "string", DefaultValue: ""},
		},
	})

	if created.ID == nil {
		t.Fatal("created plugin has no id")
	}
	if len(created.Parameters) != 3 {
		t.Fatalf("got %d parameters, want 3", len(created.Parameters))
	}
	if created.Parameters[0].Key != "city" || !created.Parameters[0].Mandatory {
		t.Errorf("first parameter = %+v", created.Parameters[0])
	}
	if created.Parameters[0].DefaultValue != nil {
		t.Errorf("unset default came back as %v", created.Parameters[0].DefaultValue)
	}
	if created.Parameters[1].DefaultValue != int64(3) {
		t.Errorf("integer default = %#v, want int64(3)", created.Parameters[1].DefaultValue)
	}
	if created.Parameters[2].DefaultValue != "" {
		t.Errorf("empty string default = %#v, want \"\"", created.Parameters[2].DefaultValue)
	}
	for _, p := range created.Parameters {
		if p.ID == nil {
			t.Errorf("parameter %s has no id", p.Key)
		}
	}
}

func TestCreatePlugin_Conflict(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	mustCreate(t, s, wire.Plugin{Name: "p1", URL: "u"})
	_, err := s.CreatePlugin(context.Background(), wire.Plugin{Name: "p1", URL: "other"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestCreatePlugin_UnknownTypeRollsBack(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	_, err := s.CreatePlugin(context.Background(), wire.Plugin{Name: "p1", URL: "u", Parameters: []wire.Parameter{{Key: "k", Type: "float"}}})
	if err == nil {
		t.Fatal("expected error for unknown parameter type")
	}
	if _, err := s.GetPlugin(context.Background(), "p1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("plugin persisted after failed create: %v", err)
	}
}

func TestGetPlugin_NotFound(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	if _, err := s.GetPlugin(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdatePlugin_DiffsParameters(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()
	ctx := context.Background()

	created := mustCreate(t, s, wire.Plugin{
		Name: "p1",
		URL:  "http://old",
		Parameters: []wire.Parameter{
			{Key: "keep", Type: "string"},
			{Key: "drop", Type: "string"},
		},
	})
	keep := created.Parameters[0]
	keep.Type = "integer"
	keep.DefaultValue = float64(7)

	updated, err := s.UpdatePlugin(ctx, wire.Plugin{
		ID:   created.ID,
		Name: "renamed",
		URL:  "http://new",
		Parameters: []wire.Parameter{
			{Key: "added", Type: "string"},
			keep,
		},
	})
	if err != nil {
		t.Fatalf("UpdatePlugin() error = %v", err)
	}

	if updated.Name != "p1" {
		t.Errorf("name changed to %q", updated.Name)
	}
	if updated.URL != "http://new" {
		t.Errorf("url = %q", updated.URL)
	}
	if len(updated.Parameters) != 2 {
		t.Fatalf("got %d parameters, want 2", len(updated.Parameters))
	}
	if updated.Parameters[0].Key != "added" || updated.Parameters[1].Key != "keep" {
		t.Errorf("order = %s, %s", updated.Parameters[0].Key, updated.Parameters[1].Key)
	}
	if updated.Parameters[1].ID.String() != keep.ID.String() {
		t.Errorf("kept parameter id %s, want %s", updated.Parameters[1].ID, keep.ID)
	}
	if updated.Parameters[1].DefaultValue != int64(7) {
		t.Errorf("kept default = %#v", updated.Parameters[1].DefaultValue)
	}
}

func TestUpdatePlugin_ByNameAndNotFound(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()
	ctx := context.Background()

	mustCreate(t, s, wire.Plugin{Name: "p1", URL: "u"})
	if _, err := s.UpdatePlugin(ctx, wire.Plugin{Name: "p1", URL: "u2"}); err != nil {
		t.Fatalf("update by name error = %v", err)
	}
	got, _ := s.GetPlugin(ctx, "p1")
	if got.URL != "u2" {
		t.Errorf("url = %q, want u2", got.URL)
	}

	_, err := s.UpdatePlugin(ctx, wire.Plugin{ID: wire.IDPtr(wire.NumericID(999)), Name: "p1", URL: "u"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestUpdatePlugin_ForeignParameterIDInserted(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()
	ctx := context.Background()

	other := mustCreate(t, s, wire.Plugin{Name: "other", URL: "u", Parameters: []wire.Parameter{{Key: "x", Type: "string"}}})
	p1 := mustCreate(t, s, wire.Plugin{Name: "p1", URL: "u"})

	stolen := other.Parameters[0]
	if _, err := s.UpdatePlugin(ctx, wire.Plugin{ID: p1.ID, Name: "p1", URL: "u", Parameters: []wire.Parameter{stolen}}); err != nil {
		t.Fatalf("UpdatePlugin() error = %v", err)
	}

	got, _ := s.GetPlugin(ctx, "other")
	if len(got.Parameters) != 1 {
		t.Errorf("other plugin lost its parameter")
	}
	mine, _ := s.GetPlugin(ctx, "p1")
	if len(mine.Parameters) != 1 || mine.Parameters[0].ID.String() == stolen.ID.String() {
		t.Errorf("foreign parameter id was reused: %+v", mine.Parameters)
	}
}

func TestDeletePlugins(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()
	ctx := context.Background()

	p1 := mustCreate(t, s, wire.Plugin{Name: "p1", URL: "u", Parameters: []wire.Parameter{{Key: "k", Type: "string"}}})
	mustCreate(t, s, wire.Plugin{Name: "p2", URL: "u"})
	mustCreate(t, s, wire.Plugin{Name: "p3", URL: "u"})

	if err := s.DeletePlugins(ctx, []wire.Plugin{p1, {Name: "p2"}}); err != nil {
		t.Fatalf("DeletePlugins() error = %v", err)
	}

	remaining, err := s.ListPlugins(ctx, "")
	if err != nil {
		t.Fatalf("ListPlugins() error = %v", err)
	}
	if len(remaining) != 1 || remaining[0].Name != "p3" {
		t.Errorf("remaining = %+v", remaining)
	}

	var params int
	s.db.QueryRow("SELECT COUNT(*) FROM parameters").Scan(&params)
	if params != 0 {
		t.Errorf("parameters not cascaded: %d left", params)
	}
}

func TestDeletePlugins_AllOrNothing(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()
	ctx := context.Background()

	mustCreate(t, s, wire.Plugin{Name: "p1", URL: "u"})
	err := s.DeletePlugins(ctx, []wire.Plugin{{Name: "p1"}, {Name: "ghost"}})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetPlugin(ctx, "p1"); err != nil {
		t.Errorf("p1 deleted despite failed batch: %v", err)
	}
}

func TestListPlugins_Search(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()
	ctx := context.Background()

	for _, name := range []string{"geo_lookup", "geoXlookup", "weather"} {
		mustCreate(t, s, wire.Plugin{Name: name, URL: "u"})
	}

	all, err := s.ListPlugins(ctx, "")
	if err != nil {
		t.Fatalf("ListPlugins() error = %v", err)
	}
	if len(all) != 3 || all[2].Name != "weather" {
		t.Errorf("unexpected list %+v", all)
	}

	got, err := s.ListPlugins(ctx, "o_l")
	if err != nil {
		t.Fatalf("ListPlugins() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "geo_lookup" {
		t.Errorf("underscore treated as wildcard: %+v", got)
	}
}

func TestListPlugins_EmptyIsNotNil(t *testing.T) {
	s := setupTestDB(t)
	defer s.Close()

	got, err := s.ListPlugins(context.Background(), "")
	if err != nil {
		t.Fatalf("ListPlugins() error = %v", err)
	}
	if got == nil {
		t.Error("ListPlugins() returned nil slice")
	}
}
