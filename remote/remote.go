// Package remote describes the hosted backend the site keeps its data in:
// a table-oriented CRUD interface returning JSON rows, plus blob storage
// for images. Drivers live in the subpackages.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
)

// Table names used by the site.
const (
	TableMilestones = "timeline_milestones"
	TableSongs      = "songs"
	TableLetters    = "letters"
)

// Tables lists every collection a driver must be able to serve.
var Tables = []string{TableMilestones, TableSongs, TableLetters}

// IDColumn is the primary key of every table.
const IDColumn = "id"

// Row is one record as the store returns it.
type Row map[string]any

// ID returns the row's identifier, or "" when it has none.
func (r Row) ID() string {
	s, _ := r[IDColumn].(string)
	return s
}

// Filter matches rows whose Column equals Value.
type Filter struct {
	Column string
	Value  string
}

// Eq builds an equality filter.
func Eq(column, value string) Filter {
	return Filter{Column: column, Value: value}
}

// Order sorts a selection by one column.
type Order struct {
	Column     string
	Descending bool
}

// Query is a select with optional filters and ordering.
type Query struct {
	Filters []Filter
	Order   *Order
}

// Table is the CRUD surface of one collection.
type Table interface {
	Select(ctx context.Context, q Query) ([]Row, error)
	// Insert fails if a row with the same id already exists.
	Insert(ctx context.Context, rows ...Row) ([]Row, error)
	// Upsert inserts rows, replacing existing rows with the same id.
	Upsert(ctx context.Context, rows ...Row) ([]Row, error)
	// Update merges patch into every row matching filters and returns the
	// rows as stored afterwards. Matching nothing is not an error.
	Update(ctx context.Context, patch Row, filters ...Filter) ([]Row, error)
	// Delete removes every row matching filters. Matching nothing is not an
	// error.
	Delete(ctx context.Context, filters ...Filter) error
}

// Bucket is blob storage addressed by path.
type Bucket interface {
	Upload(ctx context.Context, path string, r io.Reader, contentType string) error
	PublicURL(path string) string
}

// Client is a connection to the backend.
type Client interface {
	From(table string) Table
	Bucket(name string) Bucket
	Ping(ctx context.Context) error
	Close() error
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdent reports whether s is safe to use as a table or column name.
func ValidIdent(s string) bool {
	return identRe.MatchString(s)
}

// CheckQuery validates every identifier referenced by q.
func CheckQuery(q Query) error {
	if err := CheckFilters(q.Filters); err != nil {
		return err
	}
	if q.Order != nil && !ValidIdent(q.Order.Column) {
		return fmt.Errorf("invalid order column %q", q.Order.Column)
	}
	return nil
}

// CheckFilters validates filter columns.
func CheckFilters(filters []Filter) error {
	for _, f := range filters {
		if !ValidIdent(f.Column) {
			return fmt.Errorf("invalid filter column %q", f.Column)
		}
	}
	return nil
}

// ToRow converts a record into a Row through its JSON form.
func ToRow(v any) (Row, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	var r Row
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	return r, nil
}

// FromRow decodes a Row into a record.
func FromRow[T any](r Row) (T, error) {
	var out T
	b, err := json.Marshal(r)
	if err != nil {
		return out, fmt.Errorf("decode row: %w", err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, fmt.Errorf("decode row: %w", err)
	}
	return out, nil
}

// FromRows decodes every row.
func FromRows[T any](rows []Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		v, err := FromRow[T](r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
