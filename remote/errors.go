package remote

import (
	"errors"
	"fmt"

	"github.com/ourstory/ourstory/model"
)

// StoreError is a failure reported by a driver. It matches
// model.ErrStoreUnavailable.
type StoreError struct {
	Op    string
	Table string
	Err   error
}

func (e *StoreError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is reports a match against model.ErrStoreUnavailable.
func (e *StoreError) Is(target error) bool {
	return target == model.ErrStoreUnavailable
}

// Wrap tags err as a store failure. A nil err stays nil.
func Wrap(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Table: table, Err: err}
}

// Message returns the message the store itself reported, without the
// operation prefix, so it can be handed back to API callers.
func Message(err error) string {
	var se *StoreError
	if errors.As(err, &se) && se.Err != nil {
		return se.Err.Error()
	}
	return err.Error()
}
