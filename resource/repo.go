package resource

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/remote"
)

// ErrMissingID is returned when an update or delete names no record.
var ErrMissingID = errors.New("id is required")

// Repo performs one store call per operation on a Kind's table.
type Repo[T any] struct {
	kind  Kind[T]
	table remote.Table
	newID func() string
}

// NewRepo binds kind to its table on c.
func NewRepo[T any](kind Kind[T], c remote.Client) *Repo[T] {
	return &Repo[T]{kind: kind, table: c.From(kind.Table), newID: uuid.NewString}
}

// Kind returns the collection descriptor.
func (r *Repo[T]) Kind() Kind[T] { return r.kind }

// List returns every record in the collection's order.
func (r *Repo[T]) List(ctx context.Context) ([]T, error) {
	order := r.kind.Order
	rows, err := r.table.Select(ctx, remote.Query{Order: &order})
	if err != nil {
		return nil, err
	}
	return remote.FromRows[T](rows)
}

// Get returns the record with id, or model.ErrNotFound.
func (r *Repo[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	rows, err := r.table.Select(ctx, remote.Query{Filters: []remote.Filter{remote.Eq(remote.IDColumn, id)}})
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, model.ErrNotFound
	}
	return remote.FromRow[T](rows[0])
}

// Create inserts rec, generating an id when it has none, and returns the
// record as the store read it back.
func (r *Repo[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	if id := r.kind.ID(&rec); *id == "" {
		*id = r.newID()
	}
	row, err := remote.ToRow(rec)
	if err != nil {
		return zero, err
	}
	rows, err := r.table.Insert(ctx, row)
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return rec, nil
	}
	return remote.FromRow[T](rows[0])
}

// Update writes rec over the stored record with the same id. Updating an
// id that does not exist changes nothing and returns rec unchanged.
func (r *Repo[T]) Update(ctx context.Context, rec T) (T, error) {
	var zero T
	id := *r.kind.ID(&rec)
	if id == "" {
		return zero, ErrMissingID
	}
	row, err := remote.ToRow(rec)
	if err != nil {
		return zero, err
	}
	rows, err := r.table.Update(ctx, row, remote.Eq(remote.IDColumn, id))
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return rec, nil
	}
	return remote.FromRow[T](rows[0])
}

// Delete removes the record with id. A missing id is not an error.
func (r *Repo[T]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	return r.table.Delete(ctx, remote.Eq(remote.IDColumn, id))
}
