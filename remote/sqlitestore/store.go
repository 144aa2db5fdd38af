// Package sqlitestore is the local driver for the remote store: every
// collection is a SQLite table of JSON documents keyed by id.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/ourstory/ourstory/remote"
	"github.com/ourstory/ourstory/remote/localfs"
)

// Config locates the database file and the directory blobs are written to.
type Config struct {
	Path   string
	Tables []string

	BlobRoot      string // directory buckets live under
	BlobURLPrefix string // URL path BlobRoot is served from
}

// Store wraps a SQLite database and implements remote.Client.
type Store struct {
	db     *sql.DB
	tables map[string]bool
	cfg    Config
}

// Open opens (or creates) the SQLite database at cfg.Path, ensures the data
// directory exists, and creates one table per entry in cfg.Tables.
func Open(cfg Config) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// WAL lets readers proceed during a write; busy_timeout makes writers
	// wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db, tables: make(map[string]bool), cfg: cfg}
	for _, name := range cfg.Tables {
		if err := s.ensureTable(name); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ensureTable(name string) error {
	if !remote.ValidIdent(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS ` + quote(name) + ` (
    id TEXT PRIMARY KEY,
    data TEXT NOT NULL
);`)
	if err != nil {
		return err
	}
	s.tables[name] = true
	return nil
}

// From returns the table called name. Operations on a table that was not
// listed in Config.Tables fail with a store error.
func (s *Store) From(name string) remote.Table {
	return &table{db: s.db, name: name, known: s.tables[name]}
}

// Bucket returns a filesystem bucket under Config.BlobRoot.
func (s *Store) Bucket(name string) remote.Bucket {
	return localfs.New(s.cfg.BlobRoot, name, s.cfg.BlobURLPrefix)
}

type table struct {
	db    *sql.DB
	name  string
	known bool
}

var errUnknownTable = errors.New("relation does not exist")

func (t *table) check() error {
	if !t.known {
		return errUnknownTable
	}
	return nil
}

func (t *table) Select(ctx context.Context, q remote.Query) ([]remote.Row, error) {
	if err := t.check(); err != nil {
		return nil, remote.Wrap("select", t.name, err)
	}
	if err := remote.CheckQuery(q); err != nil {
		return nil, remote.Wrap("select", t.name, err)
	}
	where, args := whereClause(q.Filters)
	query := `SELECT data FROM ` + quote(t.name) + where
	if q.Order != nil {
		dir := "ASC"
		if q.Order.Descending {
			dir = "DESC"
		}
		query += ` ORDER BY ` + columnExpr(q.Order.Column) + ` ` + dir + `, id ASC`
		if q.Order.Column != remote.IDColumn {
			args = append(args, jsonPath(q.Order.Column))
		}
	}
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, remote.Wrap("select", t.name, err)
	}
	defer rows.Close()

	out := []remote.Row{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, remote.Wrap("select", t.name, err)
		}
		r, err := decode(data)
		if err != nil {
			return nil, remote.Wrap("select", t.name, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, remote.Wrap("select", t.name, err)
	}
	return out, nil
}

func (t *table) Insert(ctx context.Context, rows ...remote.Row) ([]remote.Row, error) {
	out, err := t.write(ctx, `INSERT INTO `+quote(t.name)+` (id, data) VALUES (?, ?)`, rows)
	return out, remote.Wrap("insert", t.name, err)
}

func (t *table) Upsert(ctx context.Context, rows ...remote.Row) ([]remote.Row, error) {
	out, err := t.write(ctx, `INSERT INTO `+quote(t.name)+` (id, data) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data`, rows)
	return out, remote.Wrap("upsert", t.name, err)
}

func (t *table) write(ctx context.Context, stmt string, rows []remote.Row) ([]remote.Row, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	out := make([]remote.Row, 0, len(rows))
	for _, r := range rows {
		id := r.ID()
		if id == "" {
			return nil, errors.New(`null value in column "id" violates not-null constraint`)
		}
		data, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, stmt, id, string(data)); err != nil {
			return nil, err
		}
		stored, err := readRow(ctx, tx, t.name, id)
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *table) Update(ctx context.Context, patch remote.Row, filters ...remote.Filter) ([]remote.Row, error) {
	out, err := t.update(ctx, patch, filters)
	return out, remote.Wrap("update", t.name, err)
}

func (t *table) update(ctx context.Context, patch remote.Row, filters []remote.Filter) ([]remote.Row, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	if err := remote.CheckFilters(filters); err != nil {
		return nil, err
	}
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	where, args := whereClause(filters)
	rows, err := tx.QueryContext(ctx, `SELECT id, data FROM `+quote(t.name)+where, args...)
	if err != nil {
		return nil, err
	}
	type pending struct {
		id  string
		row remote.Row
	}
	var matched []pending
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			rows.Close()
			return nil, err
		}
		r, err := decode(data)
		if err != nil {
			rows.Close()
			return nil, err
		}
		matched = append(matched, pending{id: id, row: r})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]remote.Row, 0, len(matched))
	for _, m := range matched {
		for k, v := range patch {
			m.row[k] = v
		}
		m.row[remote.IDColumn] = m.id
		data, err := json.Marshal(m.row)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE `+quote(t.name)+` SET data = ? WHERE id = ?`, string(data), m.id); err != nil {
			return nil, err
		}
		out = append(out, m.row)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *table) Delete(ctx context.Context, filters ...remote.Filter) error {
	if err := t.check(); err != nil {
		return remote.Wrap("delete", t.name, err)
	}
	if len(filters) == 0 {
		return remote.Wrap("delete", t.name, errors.New("DELETE requires a WHERE clause"))
	}
	if err := remote.CheckFilters(filters); err != nil {
		return remote.Wrap("delete", t.name, err)
	}
	where, args := whereClause(filters)
	_, err := t.db.ExecContext(ctx, `DELETE FROM `+quote(t.name)+where, args...)
	return remote.Wrap("delete", t.name, err)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readRow(ctx context.Context, q querier, name, id string) (remote.Row, error) {
	var data string
	if err := q.QueryRowContext(ctx, `SELECT data FROM `+quote(name)+` WHERE id = ?`, id).Scan(&data); err != nil {
		return nil, err
	}
	return decode(data)
}

func whereClause(filters []remote.Filter) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(filters))
	var args []any
	for _, f := range filters {
		if f.Column == remote.IDColumn {
			parts = append(parts, "id = ?")
			args = append(args, f.Value)
			continue
		}
		parts = append(parts, "json_extract(data, ?) = ?")
		args = append(args, jsonPath(f.Column), f.Value)
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

func columnExpr(column string) string {
	if column == remote.IDColumn {
		return "id"
	}
	return "json_extract(data, ?)"
}

func jsonPath(column string) string {
	return "$." + column
}

func quote(name string) string {
	return `"` + name + `"`
}

func decode(data string) (remote.Row, error) {
	var r remote.Row
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return r, nil
}
