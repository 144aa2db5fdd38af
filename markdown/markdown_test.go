package markdown

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func render(md string) string {
	var buf bytes.Buffer
	Render(&buf, md)
	return buf.String()
}

func TestInlineEmphasis(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"**bold**", "<strong>bold</strong>"},
		{"*soft*", "<em>soft</em>"},
		{"so _very_ much", "so <em>very</em> much"},
		{"**bold *and* soft**", "<strong>bold <em>and</em> soft</strong>"},
		{"snake_case_name", "snake_case_name"},
	}
	for _, tt := range tests {
		if got := Inline(tt.input); got != tt.expected {
			t.Errorf("Inline(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestInlineEscapesHTML(t *testing.T) {
	got := Inline(`<script>alert("x")</script>`)
	if strings.Contains(got, "<script>") {
		t.Errorf("Inline did not escape: %q", got)
	}
}

func TestInlineLinks(t *testing.T) {
	got := Inline("[our song](https://youtu.be/x_y_z)")
	want := `<a href="https://youtu.be/x_y_z" rel="noopener noreferrer">our song</a>`
	if got != want {
		t.Errorf("Inline link = %q, want %q", got, want)
	}
	if got := Inline("[click](javascript:alert(1))"); strings.Contains(got, "<a") {
		t.Errorf("unsafe link rendered: %q", got)
	}
}

func TestRenderKeepsLineBreaks(t *testing.T) {
	got := render("Dear you,\nI miss you.\n\nLove,\nme")
	want := "<p>Dear you,<br/>I miss you.</p><p>Love,<br/>me</p>"
	if got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}

func TestRenderQuoteListAndRule(t *testing.T) {
	got := render("> you said this\n> and this\n- one\n- two\n---\nend")
	for _, want := range []string{
		"<blockquote>you said this<br/>and this</blockquote>",
		"<ul><li>one</li><li>two</li></ul>",
		"<hr/>",
		"<p>end</p>",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("render missing %q in %q", want, got)
		}
	}
}

func TestMarkdownComponent(t *testing.T) {
	var buf bytes.Buffer
	if err := Markdown("hi **there**").Render(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "<p>hi <strong>there</strong></p>" {
		t.Errorf("component = %q", got)
	}
}

func TestExcerpt(t *testing.T) {
	if got := Excerpt("**short** note", 40); got != "short note" {
		t.Errorf("Excerpt short = %q", got)
	}
	got := Excerpt("I have been thinking about you\nall day long", 20)
	if got != "I have been thinking…" {
		t.Errorf("Excerpt cut = %q", got)
	}
	if got := Excerpt("see [this](https://x.y)", 40); got != "see this" {
		t.Errorf("Excerpt link = %q", got)
	}
}
