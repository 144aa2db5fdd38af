// Package notify holds the transient notifications ("toasts") raised by
// the view state controllers. A Queue is created by its owner and passed
// to each controller.
package notify

import (
	"strconv"
	"sync"
	"time"
)

// DefaultLimit is the number of toasts visible at once.
const DefaultLimit = 1

// Toast is one notification.
type Toast struct {
	ID          string
	Title       string
	Description string
	At          time.Time
}

// Notifier receives notifications.
type Notifier interface {
	Notify(title, description string)
}

// Queue keeps the newest toasts up to a limit. Adding a toast beyond the
// limit drops the oldest.
type Queue struct {
	mu     sync.Mutex
	limit  int
	seq    int
	toasts []Toast
	subs   map[int]func([]Toast)
	nextID int
}

// NewQueue returns a queue showing at most limit toasts. A limit below
// one uses DefaultLimit.
func NewQueue(limit int) *Queue {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &Queue{limit: limit, subs: make(map[int]func([]Toast))}
}

// Notify implements Notifier.
func (q *Queue) Notify(title, description string) {
	q.Push(title, description)
}

// Push adds a toast in front and returns its id.
func (q *Queue) Push(title, description string) string {
	q.mu.Lock()
	q.seq++
	t := Toast{
		ID:          strconv.Itoa(q.seq),
		Title:       title,
		Description: description,
		At:          time.Now(),
	}
	q.toasts = append([]Toast{t}, q.toasts...)
	if len(q.toasts) > q.limit {
		q.toasts = q.toasts[:q.limit]
	}
	snap, subs := q.snapshot()
	q.mu.Unlock()

	publish(subs, snap)
	return t.ID
}

// Dismiss removes the toast with id, or every toast when id is empty.
func (q *Queue) Dismiss(id string) {
	q.mu.Lock()
	if id == "" {
		q.toasts = nil
	} else {
		kept := q.toasts[:0]
		for _, t := range q.toasts {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		q.toasts = kept
	}
	snap, subs := q.snapshot()
	q.mu.Unlock()

	publish(subs, snap)
}

// Toasts returns the visible toasts, newest first.
func (q *Queue) Toasts() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Toast(nil), q.toasts...)
}

// Subscribe calls fn with the visible toasts after every change. The
// returned func removes the subscription.
func (q *Queue) Subscribe(fn func([]Toast)) func() {
	q.mu.Lock()
	id := q.nextID
	q.nextID++
	q.subs[id] = fn
	q.mu.Unlock()
	return func() {
		q.mu.Lock()
		delete(q.subs, id)
		q.mu.Unlock()
	}
}

// snapshot must be called with q.mu held.
func (q *Queue) snapshot() ([]Toast, []func([]Toast)) {
	snap := append([]Toast(nil), q.toasts...)
	subs := make([]func([]Toast), 0, len(q.subs))
	for _, fn := range q.subs {
		subs = append(subs, fn)
	}
	return snap, subs
}

func publish(subs []func([]Toast), snap []Toast) {
	for _, fn := range subs {
		fn(snap)
	}
}

// Discard drops every notification.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(string, string) {}
