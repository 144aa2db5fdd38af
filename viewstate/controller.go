// Package viewstate keeps the client-side copy of one collection. Every
// mutation waits for the server's answer before the local copy changes;
// failures raise a notification and leave the copy as it was.
package viewstate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/notify"
)

// State is the lifecycle of a controller.
type State int

const (
	Loading State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "loading"
}

// API is the server side of a collection. key is the idempotency key of
// the mutation.
type API[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, rec T, key string) (T, error)
	Update(ctx context.Context, rec T, key string) (T, error)
	Delete(ctx context.Context, id, key string) error
}

// Message is the text of a notification.
type Message struct {
	Title       string
	Description string
}

// Messages are the notifications a controller raises.
type Messages[T any] struct {
	LoadFailed   Message
	Added        func(T) Message
	AddFailed    Message
	Updated      Message
	UpdateFailed Message
	Deleted      Message
	DeleteFailed Message
}

// Config wires a controller.
type Config[T any] struct {
	Kind     string
	API      API[T]
	ID       func(*T) *string
	Validate func(T) error
	// Prepend puts created records first instead of last.
	Prepend  bool
	Messages Messages[T]
	Notifier notify.Notifier
	Logger   zerolog.Logger
	NewID    func() string
	NewKey   func() string
}

// Controller holds one collection and its load state.
type Controller[T any] struct {
	cfg    Config[T]
	log    zerolog.Logger
	flight singleflight.Group

	mu    sync.RWMutex
	state State
	items []T
}

// New returns a controller in the Loading state.
func New[T any](cfg Config[T]) *Controller[T] {
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Discard
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.NewKey == nil {
		cfg.NewKey = uuid.NewString
	}
	return &Controller[T]{
		cfg: cfg,
		log: cfg.Logger.With().Str("kind", cfg.Kind).Logger(),
	}
}

// State reports whether the first load has completed.
func (c *Controller[T]) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Items returns a copy of the collection.
func (c *Controller[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]T(nil), c.items...)
}

// Find returns the record with id.
func (c *Controller[T]) Find(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.items {
		if *c.cfg.ID(&c.items[i]) == id {
			return c.items[i], true
		}
	}
	var zero T
	return zero, false
}

// Load fetches the collection and replaces the local copy. On failure
// the state is left unchanged.
func (c *Controller[T]) Load(ctx context.Context) error {
	items, err := c.cfg.API.List(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("load failed")
		c.notify(c.cfg.Messages.LoadFailed)
		return err
	}
	c.mu.Lock()
	c.items = items
	c.state = Ready
	c.mu.Unlock()
	return nil
}

// Add validates rec, creates it on the server and inserts the server's
// copy. Concurrent calls with the same record share one request.
func (c *Controller[T]) Add(ctx context.Context, rec T) (T, error) {
	var zero T
	if err := c.validate(rec); err != nil {
		return zero, err
	}
	v, err, _ := c.flight.Do("add:"+c.fingerprint(rec), func() (any, error) {
		if id := c.cfg.ID(&rec); *id == "" {
			*id = c.cfg.NewID()
		}
		out, err := c.cfg.API.Create(ctx, rec, c.cfg.NewKey())
		if err != nil {
			c.log.Error().Err(err).Msg("add failed")
			c.notify(c.cfg.Messages.AddFailed)
			return zero, err
		}
		c.mu.Lock()
		if c.cfg.Prepend {
			c.items = append([]T{out}, c.items...)
		} else {
			c.items = append(c.items, out)
		}
		c.mu.Unlock()
		if c.cfg.Messages.Added != nil {
			c.notify(c.cfg.Messages.Added(out))
		}
		return out, nil
	})
	return v.(T), err
}

// Update validates rec, sends it and replaces the local record with the
// server's copy.
func (c *Controller[T]) Update(ctx context.Context, rec T) (T, error) {
	var zero T
	id := *c.cfg.ID(&rec)
	if id == "" {
		return zero, errors.New("update: record has no id")
	}
	if err := c.validate(rec); err != nil {
		return zero, err
	}
	v, err, _ := c.flight.Do("update:"+id, func() (any, error) {
		out, err := c.cfg.API.Update(ctx, rec, c.cfg.NewKey())
		if err != nil {
			c.log.Error().Err(err).Str("id", id).Msg("update failed")
			c.notify(c.cfg.Messages.UpdateFailed)
			return zero, err
		}
		c.replace(out)
		c.notify(c.cfg.Messages.Updated)
		return out, nil
	})
	return v.(T), err
}

// Remove deletes the record on the server, then locally.
func (c *Controller[T]) Remove(ctx context.Context, id string) error {
	_, err, _ := c.flight.Do("remove:"+id, func() (any, error) {
		if err := c.cfg.API.Delete(ctx, id, c.cfg.NewKey()); err != nil {
			c.log.Error().Err(err).Str("id", id).Msg("delete failed")
			c.notify(c.cfg.Messages.DeleteFailed)
			return nil, err
		}
		c.mu.Lock()
		kept := c.items[:0]
		for _, it := range c.items {
			if *c.cfg.ID(&it) != id {
				kept = append(kept, it)
			}
		}
		c.items = kept
		c.mu.Unlock()
		c.notify(c.cfg.Messages.Deleted)
		return nil, nil
	})
	return err
}

func (c *Controller[T]) replace(rec T) {
	id := *c.cfg.ID(&rec)
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if *c.cfg.ID(&c.items[i]) == id {
			c.items[i] = rec
			return
		}
	}
}

func (c *Controller[T]) validate(rec T) error {
	if c.cfg.Validate == nil {
		return nil
	}
	err := c.cfg.Validate(rec)
	if err == nil {
		return nil
	}
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		c.notify(Message{Title: ve.Title, Description: ve.Description})
	}
	return err
}

func (c *Controller[T]) notify(m Message) {
	if m.Title == "" && m.Description == "" {
		return
	}
	c.cfg.Notifier.Notify(m.Title, m.Description)
}

// fingerprint identifies a submission by its content.
func (c *Controller[T]) fingerprint(rec T) string {
	b, err := json.Marshal(rec)
	if err != nil {
		return c.cfg.NewKey()
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
