// Package specialdates keeps a short list of dates to count down to or
// back from. The list lives only with the client: in a local file for the
// command-line tool and in a signed cookie for the browser.
package specialdates

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Key names the stored list, in files and cookies alike.
const Key = "specialDates"

// Icon decorates a date.
type Icon string

const (
	Heart Icon = "heart"
	Gift  Icon = "gift"
	Star  Icon = "star"
)

// Icons lists the choices in picker order.
var Icons = []Icon{Heart, Gift, Star}

// Valid reports whether i is one of Icons.
func (i Icon) Valid() bool {
	return i == Heart || i == Gift || i == Star
}

// SpecialDate is one remembered date. ID is the creation time in
// milliseconds.
type SpecialDate struct {
	ID          int64     `json:"id"`
	Date        time.Time `json:"date"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Icon        Icon      `json:"icon"`
}

// Store loads and saves the whole list.
type Store interface {
	Load() ([]SpecialDate, error)
	Save([]SpecialDate) error
}

// ErrTitleRequired is returned by Add for a blank title.
var ErrTitleRequired = errors.New("title is required")

// Book is the list plus the rules for editing it.
type Book struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time
	dates []SpecialDate
}

// Open loads the list from store.
func Open(store Store) (*Book, error) {
	return open(store, time.Now)
}

func open(store Store, now func() time.Time) (*Book, error) {
	dates, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Book{store: store, now: now, dates: dates}, nil
}

// Add appends a date and saves the list. An unknown icon becomes Heart.
func (b *Book) Add(date time.Time, title, description string, icon Icon) (SpecialDate, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return SpecialDate{}, ErrTitleRequired
	}
	if !icon.Valid() {
		icon = Heart
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.now().UnixMilli()
	for b.has(id) {
		id++
	}
	d := SpecialDate{
		ID:          id,
		Date:        date,
		Title:       title,
		Description: strings.TrimSpace(description),
		Icon:        icon,
	}
	next := append(append([]SpecialDate(nil), b.dates...), d)
	if err := b.store.Save(next); err != nil {
		return SpecialDate{}, err
	}
	b.dates = next
	return d, nil
}

// Remove drops the date with id and saves the list, including when the
// list becomes empty.
func (b *Book) Remove(id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := make([]SpecialDate, 0, len(b.dates))
	for _, d := range b.dates {
		if d.ID != id {
			next = append(next, d)
		}
	}
	if err := b.store.Save(next); err != nil {
		return err
	}
	b.dates = next
	return nil
}

// List returns upcoming dates first, then past ones, each closest first.
func (b *Book) List() []SpecialDate {
	b.mu.Lock()
	out := make([]SpecialDate, len(b.dates))
	copy(out, b.dates)
	now := b.now()
	b.mu.Unlock()
	Sort(out, now)
	return out
}

func (b *Book) has(id int64) bool {
	for _, d := range b.dates {
		if d.ID == id {
			return true
		}
	}
	return false
}

// Sort orders dates relative to now: today and future dates first, then
// past dates, each by distance from now.
func Sort(dates []SpecialDate, now time.Time) {
	sort.SliceStable(dates, func(i, j int) bool {
		di, dj := DaysBetween(now, dates[i].Date), DaysBetween(now, dates[j].Date)
		pi, pj := di < 0, dj < 0
		if pi != pj {
			return !pi
		}
		return abs(di) < abs(dj)
	})
}

// DaysBetween counts calendar days from now to date in now's location.
// It is negative for past dates.
func DaysBetween(now, date time.Time) int {
	y1, m1, d1 := now.Date()
	y2, m2, d2 := date.In(now.Location()).Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// DaysText describes date relative to now.
func DaysText(date, now time.Time) string {
	n := DaysBetween(now, date)
	switch {
	case n == 0:
		return "Today!"
	case n < 0:
		return strconv.Itoa(-n) + " days ago"
	default:
		return strconv.Itoa(n) + " days from now"
	}
}

// Status is "today", "past" or "upcoming"; pages use it to pick a color.
func Status(date, now time.Time) string {
	n := DaysBetween(now, date)
	switch {
	case n == 0:
		return "today"
	case n < 0:
		return "past"
	default:
		return "upcoming"
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
