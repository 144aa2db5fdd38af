package views

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.960 generate

// SiteConfig holds the site-wide values every page needs.
type SiteConfig struct {
	Name        string // SITE_NAME (default "Our Story")
	URL         string // SITE_URL (default "http://localhost:3000")
	Description string
}

// PageMeta carries per-page metadata into the <head>.
type PageMeta struct {
	Title       string
	Description string
	Path        string // canonical path, joined onto SiteConfig.URL
}

// NavItem is one entry of the top navigation.
type NavItem struct {
	Label string
	Href  string
}

// Nav lists the site sections in display order.
var Nav = []NavItem{
	{Label: "Timeline", Href: "/"},
	{Label: "Music", Href: "/music"},
	{Label: "Letters", Href: "/letters"},
	{Label: "Special Dates", Href: "/special-dates"},
}
