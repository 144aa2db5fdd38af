package ourstory

import (
	"encoding/xml"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ourstory/ourstory/markdown"
	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/views"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Category    string `xml:"category,omitempty"`
	PubDate     string `xml:"pubDate,omitempty"`
	GUID        string `xml:"guid"`
}

// renderRSS writes the letters feed, newest first as the store lists them.
func (a *App) renderRSS(c echo.Context, letters []model.Letter) error {
	base := a.Config.URL
	items := make([]rssItem, 0, len(letters))
	for _, l := range letters {
		pubDate := ""
		if t, err := time.Parse(model.DateLayout, l.Date); err == nil {
			pubDate = t.Format(time.RFC1123Z)
		}
		link := views.BuildURL(base, "letters", views.PathEscape(l.ID))
		items = append(items, rssItem{
			Title:       l.Title,
			Link:        link,
			Description: markdown.Excerpt(l.Content, 280),
			Category:    string(l.Category),
			PubDate:     pubDate,
			GUID:        link,
		})
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       a.Config.Name + " · Letters",
			Link:        views.BuildURL(base, "letters"),
			Description: a.Config.Description,
			Items:       items,
		},
	}
	return renderXML(c, "application/rss+xml; charset=utf-8", feed)
}
