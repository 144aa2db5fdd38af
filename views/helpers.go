package views

import (
	"encoding/json"
	"net/url"
	"path"

	"github.com/ourstory/ourstory/markdown"
	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/specialdates"
)

const excerptLength = 160

// BuildURL joins path segments onto a base URL.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join("/", u.Path, path.Join(pathSegments...))
	return u.String()
}

// PathEscape wraps url.PathEscape for building links.
func PathEscape(s string) string {
	return url.PathEscape(s)
}

// PageTitle is the document title of a page.
func PageTitle(site SiteConfig, meta PageMeta) string {
	if meta.Title == "" {
		return site.Name
	}
	return meta.Title + " · " + site.Name
}

// PageDescription falls back to the site description.
func PageDescription(site SiteConfig, meta PageMeta) string {
	if meta.Description != "" {
		return meta.Description
	}
	return site.Description
}

// MilestoneDate is the date shown on a milestone card.
func MilestoneDate(m model.Milestone) string {
	if m.FormattedDate != "" {
		return m.FormattedDate
	}
	return model.FormatDisplayDate(m.Date)
}

// SongHref returns href when it is a safe video link, "" otherwise.
func SongHref(href string) string {
	if markdown.SafeURL(href) == "" || !model.IsVideoURL(href) {
		return ""
	}
	return href
}

// LetterPath is the path of a letter's page.
func LetterPath(l model.Letter) string {
	return "/letters/" + PathEscape(l.ID)
}

// LetterMeta describes a letter page; the excerpt doubles as description.
func LetterMeta(l model.Letter) PageMeta {
	return PageMeta{
		Title:       l.Title,
		Description: markdown.Excerpt(l.Content, excerptLength),
		Path:        LetterPath(l),
	}
}

// CategoryHref links to the letters list filtered by c. The zero category
// links to the unfiltered list.
func CategoryHref(c model.Category) string {
	if c == "" {
		return "/letters"
	}
	return "/letters?category=" + url.QueryEscape(string(c))
}

// PillClass returns the CSS classes of a filter pill.
func PillClass(active bool) string {
	if active {
		return "pill pill-active"
	}
	return "pill"
}

// IconGlyph maps a special-date icon to the character shown for it.
func IconGlyph(i specialdates.Icon) string {
	switch i {
	case specialdates.Gift:
		return "🎁"
	case specialdates.Star:
		return "⭐"
	}
	return "❤"
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     cfg.Name,
		"url":      BuildURL(cfg.URL),
	}
	if cfg.Description != "" {
		data["description"] = cfg.Description
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
