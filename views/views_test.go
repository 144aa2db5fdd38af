package views

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/specialdates"
)

var site = SiteConfig{Name: "Our Story", URL: "https://example.com"}

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		base     string
		segs     []string
		expected string
	}{
		{"https://example.com", nil, "https://example.com/"},
		{"https://example.com", []string{"letters", "abc"}, "https://example.com/letters/abc"},
		{"https://example.com/site/", []string{"music"}, "https://example.com/site/music"},
	}
	for _, tt := range tests {
		if got := BuildURL(tt.base, tt.segs...); got != tt.expected {
			t.Errorf("BuildURL(%q, %v) = %q, want %q", tt.base, tt.segs, got, tt.expected)
		}
	}
}

func TestTimelineGroupsByYear(t *testing.T) {
	groups := model.GroupByYear([]model.Milestone{
		{ID: "1", Date: "2023-04-02", Title: "officially dating", Song: model.SongSnapshot{Title: "Fly Love", URL: "https://youtu.be/x"}},
		{ID: "2", Date: "2024-01-01", Title: "trip <3"},
	})
	got := renderString(t, Timeline(site, groups))
	if !strings.Contains(got, "<h2 class=\"year-heading\">2023</h2>") || !strings.Contains(got, ">2024</h2>") {
		t.Errorf("missing year headings: %s", got)
	}
	if strings.Index(got, "2023") > strings.Index(got, "2024</h2>") {
		t.Error("years out of order")
	}
	if !strings.Contains(got, "trip &lt;3") {
		t.Error("title not escaped")
	}
	if !strings.Contains(got, "April 2, 2023") {
		t.Error("display date not derived from date")
	}
	if !strings.Contains(got, `href="https://youtu.be/x"`) {
		t.Error("song link missing")
	}
}

func TestLettersFilterPills(t *testing.T) {
	letters := []model.Letter{{ID: "a b", Title: "hi", Date: "2025-02-14", Category: model.CategoryMemory, Content: "**remember**"}}
	got := renderString(t, Letters(site, letters, model.CategoryMemory))
	if !strings.Contains(got, `href="/letters?category=Memory" class="pill pill-active"`) {
		t.Errorf("active pill missing: %s", got)
	}
	if !strings.Contains(got, `href="/letters/a%20b"`) {
		t.Error("letter link not escaped")
	}
	if !strings.Contains(got, "<p>remember</p>") {
		t.Error("excerpt should be plain text")
	}

	empty := renderString(t, Letters(site, nil, model.CategoryApology))
	if !strings.Contains(empty, "No letters in this category.") {
		t.Error("empty category message missing")
	}
}

func TestLetterRendersMarkdown(t *testing.T) {
	got := renderString(t, Letter(site, model.Letter{ID: "1", Title: "for you", Content: "line one\nline two"}))
	if !strings.Contains(got, "<p>line one<br/>line two</p>") {
		t.Errorf("body not rendered: %s", got)
	}
	if !strings.Contains(got, "<title>for you · Our Story</title>") {
		t.Error("title missing")
	}
}

func TestSpecialDatesCountdown(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	dates := []specialdates.SpecialDate{
		{ID: 42, Date: time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), Title: "trip", Icon: specialdates.Gift},
	}
	got := renderString(t, SpecialDates(site, dates, now, "tok"))
	for _, want := range []string{"3 days from now", "date-upcoming", `value="42"`, "🎁", `name="_csrf" value="tok"`} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestErrorPages(t *testing.T) {
	if got := renderString(t, NotFound(site)); !strings.Contains(got, "Page not found") {
		t.Error("not found page")
	}
	if got := renderString(t, ServerError(site)); !strings.Contains(got, "Something went wrong") {
		t.Error("server error page")
	}
}

func TestLayoutWrapsPageAndMarksActiveSection(t *testing.T) {
	got := renderString(t, Playlist(site, nil))
	for _, want := range []string{
		"<!doctype html>",
		`<a href="/music" class="active" aria-current="page">Music</a>`,
		`<a href="/">Timeline</a>`,
		`<link rel="canonical" href="https://example.com/music">`,
		`<main class="container"><h1 class="title">Our Playlist</h1><p class="empty">No songs yet.</p></main>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %s", want, got)
		}
	}
}
