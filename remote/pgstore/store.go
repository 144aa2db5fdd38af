// Package pgstore is the Postgres driver for the remote store. Each
// collection is a table of JSONB documents keyed by id.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ourstory/ourstory/remote"
	"github.com/ourstory/ourstory/remote/localfs"
)

// Config describes the connection and the tables to serve.
type Config struct {
	DSN      string
	Tables   []string
	MaxConns int32

	BlobRoot      string
	BlobURLPrefix string
}

// Store is a pgx pool implementing remote.Client.
type Store struct {
	pool   *pgxpool.Pool
	tables map[string]bool
	cfg    Config
}

// Open connects to Postgres and creates the configured tables.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pcfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement
	pcfg.ConnConfig.StatementCacheCapacity = 64
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Store{pool: pool, tables: make(map[string]bool), cfg: cfg}
	for _, name := range cfg.Tables {
		if !remote.ValidIdent(name) {
			pool.Close()
			return nil, fmt.Errorf("invalid table name %q", name)
		}
		if _, err := pool.Exec(ctx, createTableSQL(name)); err != nil {
			pool.Close()
			return nil, fmt.Errorf("create table %s: %w", name, err)
		}
		s.tables[name] = true
	}
	return s, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks one pooled connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// From returns the named table.
func (s *Store) From(name string) remote.Table {
	return &table{pool: s.pool, name: name, known: s.tables[name]}
}

// Bucket returns a filesystem bucket under Config.BlobRoot.
func (s *Store) Bucket(name string) remote.Bucket {
	return localfs.New(s.cfg.BlobRoot, name, s.cfg.BlobURLPrefix)
}

type table struct {
	pool  *pgxpool.Pool
	name  string
	known bool
}

func (t *table) check() error {
	if !t.known {
		return fmt.Errorf("relation %q does not exist", t.name)
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
	sql, args := selectSQL(t.name, q)
	rows, err := t.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, remote.Wrap("select", t.name, err)
	}
	out, err := collect(rows)
	return out, remote.Wrap("select", t.name, err)
}

func (t *table) Insert(ctx context.Context, rows ...remote.Row) ([]remote.Row, error) {
	out, err := t.write(ctx, insertSQL(t.name, false), rows)
	return out, remote.Wrap("insert", t.name, err)
}

func (t *table) Upsert(ctx context.Context, rows ...remote.Row) ([]remote.Row, error) {
	out, err := t.write(ctx, insertSQL(t.name, true), rows)
	return out, remote.Wrap("upsert", t.name, err)
}

func (t *table) write(ctx context.Context, sql string, rows []remote.Row) ([]remote.Row, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

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
		var stored []byte
		if err := tx.QueryRow(ctx, sql, id, string(data)).Scan(&stored); err != nil {
			return nil, err
		}
		row, err := decode(stored)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *table) Update(ctx context.Context, patch remote.Row, filters ...remote.Filter) ([]remote.Row, error) {
	if err := t.check(); err != nil {
		return nil, remote.Wrap("update", t.name, err)
	}
	if err := remote.CheckFilters(filters); err != nil {
		return nil, remote.Wrap("update", t.name, err)
	}
	clean := make(remote.Row, len(patch))
	for k, v := range patch {
		if k != remote.IDColumn {
			clean[k] = v
		}
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return nil, remote.Wrap("update", t.name, err)
	}
	sql, args := updateSQL(t.name, string(data), filters)
	rows, err := t.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, remote.Wrap("update", t.name, err)
	}
	out, err := collect(rows)
	return out, remote.Wrap("update", t.name, err)
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
	sql, args := deleteSQL(t.name, filters)
	_, err := t.pool.Exec(ctx, sql, args...)
	return remote.Wrap("delete", t.name, err)
}

func collect(rows pgx.Rows) ([]remote.Row, error) {
	defer rows.Close()
	out := []remote.Row{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		r, err := decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func decode(data []byte) (remote.Row, error) {
	var r remote.Row
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return r, nil
}

// args numbers placeholders as they are added.
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func createTableSQL(name string) string {
	return `CREATE TABLE IF NOT EXISTS ` + ident(name) + ` (
    id TEXT PRIMARY KEY,
    data JSONB NOT NULL
)`
}

func where(a *args, filters []remote.Filter) string {
	if len(filters) == 0 {
		return ""
	}
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		if f.Column == remote.IDColumn {
			parts = append(parts, "id = "+a.add(f.Value))
			continue
		}
		parts = append(parts, "data->>"+a.add(f.Column)+" = "+a.add(f.Value))
	}
	return " WHERE " + strings.Join(parts, " AND ")
}

func selectSQL(name string, q remote.Query) (string, []any) {
	var a args
	sql := `SELECT data FROM ` + ident(name) + where(&a, q.Filters)
	if q.Order != nil {
		dir := "ASC"
		if q.Order.Descending {
			dir = "DESC"
		}
		if q.Order.Column == remote.IDColumn {
			sql += ` ORDER BY id ` + dir
		} else {
			sql += ` ORDER BY data->>` + a.add(q.Order.Column) + ` ` + dir + `, id ASC`
		}
	}
	return sql, a
}

func insertSQL(name string, upsert bool) string {
	sql := `INSERT INTO ` + ident(name) + ` (id, data) VALUES ($1, $2::jsonb)`
	if upsert {
		sql += ` ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`
	}
	return sql + ` RETURNING data`
}

func updateSQL(name, patch string, filters []remote.Filter) (string, []any) {
	var a args
	p := a.add(patch)
	sql := `UPDATE ` + ident(name) + ` SET data = data || ` + p + `::jsonb` + where(&a, filters) + ` RETURNING data`
	return sql, a
}

func deleteSQL(name string, filters []remote.Filter) (string, []any) {
	var a args
	sql := `DELETE FROM ` + ident(name) + where(&a, filters)
	return sql, a
}
