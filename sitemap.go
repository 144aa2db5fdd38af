package ourstory

import (
	"encoding/xml"

	"github.com/labstack/echo/v4"

	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/views"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func (a *App) renderSitemap(c echo.Context, letters []model.Letter) error {
	base := a.Config.URL
	urls := []sitemapURL{
		{Loc: views.BuildURL(base)},
		{Loc: views.BuildURL(base, "music")},
		{Loc: views.BuildURL(base, "letters")},
		{Loc: views.BuildURL(base, "special-dates")},
	}
	for _, l := range letters {
		urls = append(urls, sitemapURL{
			Loc:     views.BuildURL(base, "letters", views.PathEscape(l.ID)),
			LastMod: l.Date,
		})
	}
	return renderXML(c, "application/xml; charset=utf-8", sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	})
}
