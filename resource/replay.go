package resource

import (
	"sync"
	"time"
)

// Response is a finished API response kept for idempotent replay.
// Digest identifies the request payload that produced it.
type Response struct {
	Status int
	Body   []byte
	Digest string
}

type replayEntry struct {
	resp Response
	at   time.Time
}

// Replay remembers the response sent for each idempotency key for a
// fixed window. A nil *Replay remembers nothing.
type Replay struct {
	mu      sync.Mutex
	entries map[string]replayEntry
	window  time.Duration
	done    chan struct{}
	once    sync.Once
}

// DefaultReplayWindow is used when NewReplay is given a non-positive window.
const DefaultReplayWindow = 10 * time.Minute

// NewReplay creates a Replay that keeps responses for window and starts
// its cleanup loop. Call Close to stop the loop.
func NewReplay(window time.Duration) *Replay {
	if window <= 0 {
		window = DefaultReplayWindow
	}
	r := &Replay{
		entries: make(map[string]replayEntry),
		window:  window,
		done:    make(chan struct{}),
	}
	go r.cleanup()
	return r
}

func (r *Replay) cleanup() {
	ticker := time.NewTicker(r.window)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case now := <-ticker.C:
			r.prune(now)
		}
	}
}

func (r *Replay) prune(now time.Time) {
	cutoff := now.Add(-r.window)
	r.mu.Lock()
	for key, e := range r.entries {
		if !e.at.After(cutoff) {
			delete(r.entries, key)
		}
	}
	r.mu.Unlock()
}

// Get returns the response stored for key if it is still inside the window.
func (r *Replay) Get(key string) (Response, bool) {
	if r == nil {
		return Response{}, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return Response{}, false
	}
	if time.Since(e.at) >= r.window {
		delete(r.entries, key)
		return Response{}, false
	}
	return e.resp, true
}

// Put records resp for key.
func (r *Replay) Put(key string, resp Response) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.entries[key] = replayEntry{resp: resp, at: time.Now()}
	r.mu.Unlock()
}

// Len reports how many keys are held.
func (r *Replay) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Close stops the cleanup loop.
func (r *Replay) Close() {
	if r == nil {
		return
	}
	r.once.Do(func() { close(r.done) })
}
