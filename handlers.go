package ourstory

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/remote"
	"github.com/ourstory/ourstory/specialdates"
)

func (a *App) handleTimeline(c echo.Context) error {
	items, err := a.timelineCache.List(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, a.Views.Timeline(a.Config.Site(), model.GroupByYear(items)))
}

func (a *App) handleMusic(c echo.Context) error {
	songs, err := a.songCache.List(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, a.Views.Playlist(a.Config.Site(), songs))
}

func (a *App) handleLetters(c echo.Context) error {
	letters, err := a.letterCache.List(c.Request().Context())
	if err != nil {
		return err
	}
	// an unknown category shows every letter
	active := model.Category(c.QueryParam("category"))
	if !active.Valid() {
		active = ""
	}
	return Render(c, a.Views.Letters(a.Config.Site(), model.FilterByCategory(letters, active), active))
}

func (a *App) handleLetter(c echo.Context) error {
	letter, err := a.letters.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, model.ErrNotFound) {
		return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.Config.Site()))
	}
	if err != nil {
		return err
	}
	return Render(c, a.Views.Letter(a.Config.Site(), letter))
}

func (a *App) handleFeed(c echo.Context) error {
	letters, err := a.letterCache.List(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, letters)
}

func (a *App) handleSitemap(c echo.Context) error {
	letters, err := a.letterCache.List(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, letters)
}

func (a *App) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := a.Remote.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  remote.Message(err),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Special dates live in the visitor's session cookie only.

func (a *App) openDates(c echo.Context) (*specialdates.Book, error) {
	return specialdates.Open(specialdates.NewCookieStore(c, sessionName))
}

func wantsJSON(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

func (a *App) handleSpecialDates(c echo.Context) error {
	book, err := a.openDates(c)
	if err != nil {
		return err
	}
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, book.List())
	}
	return Render(c, a.Views.SpecialDates(a.Config.Site(), book.List(), a.now(), CsrfToken(c)))
}

type specialDateForm struct {
	Date        string `json:"date" form:"date"`
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Icon        string `json:"icon" form:"icon"`
}

// parseDate accepts a calendar date from a date input or a full RFC 3339
// timestamp from a JSON client.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(model.DateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (a *App) handleSpecialDateAdd(c echo.Context) error {
	var f specialDateForm
	if err := c.Bind(&f); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	date, err := parseDate(strings.TrimSpace(f.Date))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	book, err := a.openDates(c)
	if err != nil {
		return err
	}
	added, err := book.Add(date, f.Title, f.Description, specialdates.Icon(f.Icon))
	if errors.Is(err, specialdates.ErrTitleRequired) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err != nil {
		return err
	}
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, added)
	}
	return c.Redirect(http.StatusSeeOther, "/special-dates")
}

func (a *App) handleSpecialDateRemove(c echo.Context) error {
	raw := c.FormValue("id")
	if raw == "" {
		raw = c.QueryParam("id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is required")
	}
	book, err := a.openDates(c)
	if err != nil {
		return err
	}
	if err := book.Remove(id); err != nil {
		return err
	}
	if wantsJSON(c) {
		return c.JSON(http.StatusOK, map[string]bool{"success": true})
	}
	return c.Redirect(http.StatusSeeOther, "/special-dates")
}

type apiError struct {
	Error string `json:"error"`
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := remote.Message(err)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		} else {
			msg = http.StatusText(code)
		}
	}
	if code >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("server error")
	}

	if strings.HasPrefix(c.Request().URL.Path, "/api/") || wantsJSON(c) {
		_ = c.JSON(code, apiError{Error: msg})
		return
	}
	switch {
	case code == http.StatusNotFound:
		_ = RenderStatus(c, code, a.Views.NotFound(a.Config.Site()))
	case code >= http.StatusInternalServerError:
		_ = RenderStatus(c, code, a.Views.ServerError(a.Config.Site()))
	default:
		_ = c.String(code, msg)
	}
}
