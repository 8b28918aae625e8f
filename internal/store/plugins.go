// ABOUTME: Plugin and parameter storage operations.
// ABOUTME: Implements create, read, diffing update and all-or-nothing batch delete.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/2389/pluginadmin/internal/schema"
	"github.com/2389/pluginadmin/internal/wire"
)

// queryer is the subset of *sql.DB and *sql.Tx used by the read helpers.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ListPlugins returns every plugin ordered by name. A non-empty search
// restricts the result to names containing it.
func (s *Store) ListPlugins(ctx context.Context, search string) ([]wire.Plugin, error) {
	query := `SELECT id, name, url FROM plugins`
	args := []any{}
	if search != "" {
		query += ` WHERE name LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeSQLLike(search)+"%")
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var plugins []wire.Plugin
	var ids []int64
	for rows.Next() {
		var id int64
		var p wire.Plugin
		if err := rows.Scan(&id, &p.Name, &p.URL); err != nil {
			rows.Close()
			return nil, err
		}
		p.ID = wire.IDPtr(wire.NumericID(id))
		plugins = append(plugins, p)
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		params, err := loadParameters(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		plugins[i].Parameters = params
	}
	if plugins == nil {
		plugins = []wire.Plugin{}
	}
	return plugins, nil
}

// GetPlugin returns the named plugin or ErrNotFound.
func (s *Store) GetPlugin(ctx context.Context, name string) (wire.Plugin, error) {
	return getPlugin(ctx, s.db, `name = ?`, name)
}

// CountPlugins returns the number of stored plugins.
func (s *Store) CountPlugins(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plugins`).Scan(&n)
	return n, err
}

// CreatePlugin inserts p and its parameters. Ids in the payload are
// ignored. A taken name returns ErrConflict.
func (s *Store) CreatePlugin(ctx context.Context, p wire.Plugin) (wire.Plugin, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wire.Plugin{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO plugins (name, url) VALUES (?, ?)`, p.Name, p.URL)
	if err != nil {
		if isUniqueViolation(err) {
			return wire.Plugin{}, fmt.Errorf("%w: %s", ErrConflict, p.Name)
		}
		return wire.Plugin{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return wire.Plugin{}, err
	}

	for i, param := range p.Parameters {
		if err := insertParameter(ctx, tx, id, i, param); err != nil {
			return wire.Plugin{}, err
		}
	}

	created, err := getPlugin(ctx, tx, `id = ?`, id)
	if err != nil {
		return wire.Plugin{}, err
	}
	return created, tx.Commit()
}

// UpdatePlugin applies p to the stored plugin addressed by p.ID, or by
// p.Name when the id is absent. The name is never changed. Parameters with
// an id belonging to the plugin are updated, the rest are inserted, and
// stored parameters missing from p are deleted.
func (s *Store) UpdatePlugin(ctx context.Context, p wire.Plugin) (wire.Plugin, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wire.Plugin{}, err
	}
	defer tx.Rollback()

	id, err := resolvePlugin(ctx, tx, p)
	if err != nil {
		return wire.Plugin{}, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE plugins SET url = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, p.URL, id); err != nil {
		return wire.Plugin{}, err
	}

	existing, err := parameterIDs(ctx, tx, id)
	if err != nil {
		return wire.Plugin{}, err
	}

	kept := make(map[int64]bool)
	for i, param := range p.Parameters {
		if pid, ok := storedID(param); ok && existing[pid] && !kept[pid] {
			if err := updateParameter(ctx, tx, pid, i, param); err != nil {
				return wire.Plugin{}, err
			}
			kept[pid] = true
			continue
		}
		if err := insertParameter(ctx, tx, id, i, param); err != nil {
			return wire.Plugin{}, err
		}
	}

	for pid := range existing {
		if kept[pid] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM parameters WHERE id = ?`, pid); err != nil {
			return wire.Plugin{}, err
		}
	}

	updated, err := getPlugin(ctx, tx, `id = ?`, id)
	if err != nil {
		return wire.Plugin{}, err
	}
	return updated, tx.Commit()
}

// DeletePlugins removes every listed plugin in one transaction. If any
// plugin is unknown nothing is deleted and ErrNotFound is returned.
func (s *Store) DeletePlugins(ctx context.Context, plugins []wire.Plugin) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, p := range plugins {
		id, err := resolvePlugin(ctx, tx, p)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM parameters WHERE plugin_id = ?`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM plugins WHERE id = ?`, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// resolvePlugin finds the row id of p by its id, else by its name.
func resolvePlugin(ctx context.Context, q queryer, p wire.Plugin) (int64, error) {
	var id int64
	var err error
	if n, ok := storedPluginID(p); ok {
		err = q.QueryRowContext(ctx, `SELECT id FROM plugins WHERE id = ?`, n).Scan(&id)
	} else {
		err = q.QueryRowContext(ctx, `SELECT id FROM plugins WHERE name = ?`, p.Name).Scan(&id)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, p.Name)
	}
	return id, err
}

func storedPluginID(p wire.Plugin) (int64, bool) {
	if p.ID == nil {
		return 0, false
	}
	return p.ID.Int64()
}

func storedID(p wire.Parameter) (int64, bool) {
	if p.ID == nil {
		return 0, false
	}
	return p.ID.Int64()
}

func getPlugin(ctx context.Context, q queryer, where string, arg any) (wire.Plugin, error) {
	var id int64
	var p wire.Plugin
	err := q.QueryRowContext(ctx, `SELECT id, name, url FROM plugins WHERE `+where, arg).Scan(&id, &p.Name, &p.URL)
	if errors.Is(err, sql.ErrNoRows) {
		return wire.Plugin{}, fmt.Errorf("%w: %v", ErrNotFound, arg)
	}
	if err != nil {
		return wire.Plugin{}, err
	}
	p.ID = wire.IDPtr(wire.NumericID(id))
	p.Parameters, err = loadParameters(ctx, q, id)
	if err != nil {
		return wire.Plugin{}, err
	}
	return p, nil
}

func loadParameters(ctx context.Context, q queryer, pluginID int64) ([]wire.Parameter, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, parameter_key, parameter_type, default_value, is_mandatory, is_read_only
		FROM parameters WHERE plugin_id = ? ORDER BY position, id
	`, pluginID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	params := []wire.Parameter{}
	for rows.Next() {
		var id int64
		var def sql.NullString
		var p wire.Parameter
		if err := rows.Scan(&id, &p.Key, &p.Type, &def, &p.Mandatory, &p.ReadOnly); err != nil {
			return nil, err
		}
		p.ID = wire.IDPtr(wire.NumericID(id))
		if def.Valid {
			if d, err := schema.Coerce(schema.Type(p.Type), def.String); err == nil {
				p.DefaultValue = d.Any()
			}
		}
		params = append(params, p)
	}
	return params, rows.Err()
}

func parameterIDs(ctx context.Context, q queryer, pluginID int64) (map[int64]bool, error) {
	rows, err := q.QueryContext(ctx, `SELECT id FROM parameters WHERE plugin_id = ?`, pluginID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// defaultColumn converts a wire default into its TEXT column value. Values
// that do not fit the declared type are stored as NULL.
func defaultColumn(p wire.Parameter) (sql.NullString, error) {
	t, err := schema.ParseType(p.Type)
	if err != nil {
		return sql.NullString{}, err
	}
	d := schema.DefaultFromAny(t, p.DefaultValue)
	if d == nil {
		return sql.NullString{}, nil
	}
	return sql.NullString{String: d.String(), Valid: true}, nil
}

func insertParameter(ctx context.Context, tx *sql.Tx, pluginID int64, position int, p wire.Parameter) error {
	def, err := defaultColumn(p)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO parameters (plugin_id, position, parameter_key, parameter_type, default_value, is_mandatory, is_read_only)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, pluginID, position, p.Key, p.Type, def, p.Mandatory, p.ReadOnly)
	return err
}

func updateParameter(ctx context.Context, tx *sql.Tx, id int64, position int, p wire.Parameter) error {
	def, err := defaultColumn(p)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE parameters
		SET position = ?, parameter_key = ?, parameter_type = ?, default_value = ?, is_mandatory = ?, is_read_only = ?
		WHERE id = ?
	`, position, p.Key, p.Type, def, p.Mandatory, p.ReadOnly, id)
	return err
}
