// Package markdown renders letter bodies as HTML. Letters are written like
// handwritten notes, so single line breaks are kept and only a small set of
// markup is recognised: emphasis, links, quotes, bullet lists and rules.
package markdown

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/a-h/templ"
)

var (
	reBold   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reItalic = regexp.MustCompile(`\*([^*]+)\*`)
	reUnder  = regexp.MustCompile(`(^|[\s(])_([^_]+)_`)
	reLink   = regexp.MustCompile(`\[([^\]]*)\]\(([^)]*)\)`)
	reMarks  = regexp.MustCompile(`\*\*|\*|\[([^\]]*)\]\([^)]*\)`)
)

// Markdown returns a component that renders content as HTML.
func Markdown(content string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		Render(&buf, content)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

type block int

const (
	none block = iota
	para
	quote
	list
)

var closers = map[block]string{para: "</p>", quote: "</blockquote>", list: "</ul>"}

type renderer struct {
	buf  *bytes.Buffer
	open block
	// lines written into the open paragraph or quote
	lines int
}

func (r *renderer) enter(b block, tag string) {
	if r.open == b {
		return
	}
	r.close()
	r.buf.WriteString(tag)
	r.open = b
	r.lines = 0
}

func (r *renderer) close() {
	if r.open != none {
		r.buf.WriteString(closers[r.open])
	}
	r.open = none
	r.lines = 0
}

func (r *renderer) text(s string) {
	if r.lines > 0 {
		r.buf.WriteString("<br/>")
	}
	r.buf.WriteString(Inline(s))
	r.lines++
}

// Render writes the HTML form of md to buf.
func Render(buf *bytes.Buffer, md string) {
	r := &renderer{buf: buf}
	for _, raw := range strings.Split(md, "\n") {
		line := strings.TrimRight(raw, "\r \t")
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			r.close()
		case trimmed == "---" || trimmed == "***":
			r.close()
			buf.WriteString("<hr/>")
		case strings.HasPrefix(trimmed, ">"):
			r.enter(quote, "<blockquote>")
			r.text(strings.TrimSpace(strings.TrimPrefix(trimmed, ">")))
		case strings.HasPrefix(trimmed, "- "), strings.HasPrefix(trimmed, "* "):
			r.enter(list, "<ul>")
			buf.WriteString("<li>")
			buf.WriteString(Inline(strings.TrimSpace(trimmed[2:])))
			buf.WriteString("</li>")
		default:
			r.enter(para, "<p>")
			r.text(trimmed)
		}
	}
	r.close()
}

// Inline escapes s and applies emphasis and links.
func Inline(s string) string {
	out := html.EscapeString(s)
	out = reLink.ReplaceAllStringFunc(out, func(m string) string {
		sub := reLink.FindStringSubmatch(m)
		href := SafeURL(sub[2])
		if href == "" {
			return sub[1]
		}
		return `<a href="` + href + `" rel="noopener noreferrer">` + sub[1] + `</a>`
	})
	return outsideTags(out, func(seg string) string {
		seg = reBold.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reItalic.ReplaceAllString(seg, "<em>$1</em>")
		return reUnder.ReplaceAllString(seg, "$1<em>$2</em>")
	})
}

// outsideTags applies fn to the text between HTML tags so that emphasis
// never rewrites an href.
func outsideTags(s string, fn func(string) string) string {
	var b strings.Builder
	for s != "" {
		lt := strings.IndexByte(s, '<')
		if lt < 0 {
			b.WriteString(fn(s))
			break
		}
		b.WriteString(fn(s[:lt]))
		gt := strings.IndexByte(s[lt:], '>')
		if gt < 0 {
			b.WriteString(s[lt:])
			break
		}
		b.WriteString(s[lt : lt+gt+1])
		s = s[lt+gt+1:]
	}
	return b.String()
}

// SafeURL returns raw escaped for an attribute, or "" when its scheme is
// not one a letter may link to.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	u, err := url.Parse(val)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "mailto":
		return html.EscapeString(val)
	}
	return ""
}

// Excerpt strips markup from md and cuts it to at most n runes, ending
// with an ellipsis when anything was dropped.
func Excerpt(md string, n int) string {
	plain := reMarks.ReplaceAllString(md, "$1")
	var words []string
	for _, line := range strings.Split(plain, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), ">-"))
		if line == "---" {
			continue
		}
		words = append(words, strings.Fields(line)...)
	}
	text := strings.Join(words, " ")
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:n])
	if runes[n] != ' ' {
		if i := strings.LastIndexByte(cut, ' '); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}
