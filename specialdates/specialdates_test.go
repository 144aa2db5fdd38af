package specialdates

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}

func TestDaysText(t *testing.T) {
	tests := []struct {
		date time.Time
		want string
	}{
		{day(2025, 3, 10), "Today!"},
		{day(2025, 3, 7), "3 days ago"},
		{day(2025, 3, 11), "1 days from now"},
		{day(2026, 3, 10), "365 days from now"},
	}
	for _, tt := range tests {
		if got := DaysText(tt.date, now); got != tt.want {
			t.Errorf("DaysText(%s) = %q, want %q", tt.date.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestStatus(t *testing.T) {
	assert.Equal(t, "today", Status(day(2025, 3, 10), now))
	assert.Equal(t, "past", Status(day(2024, 1, 1), now))
	assert.Equal(t, "upcoming", Status(day(2025, 12, 25), now))
}

func TestSortUpcomingFirstThenClosest(t *testing.T) {
	dates := []SpecialDate{
		{ID: 1, Date: day(2024, 3, 10)},
		{ID: 2, Date: day(2025, 12, 25)},
		{ID: 3, Date: day(2025, 3, 9)},
		{ID: 4, Date: day(2025, 4, 1)},
		{ID: 5, Date: day(2025, 3, 10)},
	}
	Sort(dates, now)
	var ids []int64
	for _, d := range dates {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []int64{5, 4, 2, 3, 1}, ids)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local", "storage.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{"theme":"dark"}`), 0o644))
	store := FileStore{Path: path}

	dates, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, dates)

	require.NoError(t, store.Save([]SpecialDate{{ID: 7, Date: day(2025, 6, 1), Title: "Anniversary", Icon: Heart}}))
	dates, err = store.Load()
	require.NoError(t, err)
	require.Len(t, dates, 1)
	assert.Equal(t, "Anniversary", dates[0].Title)
	assert.True(t, dates[0].Date.Equal(day(2025, 6, 1)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"theme": "dark"`)
	assert.Contains(t, string(data), `"specialDates"`)
}

func TestBookAddRemovePersists(t *testing.T) {
	store := FileStore{Path: filepath.Join(t.TempDir(), "dates.json")}
	b, err := open(store, func() time.Time { return now })
	require.NoError(t, err)

	_, err = b.Add(day(2025, 5, 1), "   ", "", Star)
	assert.ErrorIs(t, err, ErrTitleRequired)

	first, err := b.Add(day(2025, 5, 1), " First date ", " coffee ", Icon("moon"))
	require.NoError(t, err)
	assert.Equal(t, "First date", first.Title)
	assert.Equal(t, "coffee", first.Description)
	assert.Equal(t, Heart, first.Icon)

	second, err := b.Add(day(2025, 7, 1), "Trip", "", Gift)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	reopened, err := Open(store)
	require.NoError(t, err)
	assert.Len(t, reopened.List(), 2)

	require.NoError(t, b.Remove(first.ID))
	require.NoError(t, b.Remove(second.ID))
	reopened, err = Open(store)
	require.NoError(t, err)
	assert.Empty(t, reopened.List(), "removing the last date must persist the empty list")
}

func TestCookieStore(t *testing.T) {
	e := echo.New()
	e.Use(session.Middleware(sessions.NewCookieStore([]byte("test-secret"))))
	e.POST("/dates", func(c echo.Context) error {
		b, err := Open(NewCookieStore(c, "special"))
		if err != nil {
			return err
		}
		if _, err := b.Add(day(2025, 2, 14), "Valentine", "", Heart); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/dates", func(c echo.Context) error {
		b, err := Open(NewCookieStore(c, "special"))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, b.List())
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/dates", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/dates", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Valentine")

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dates", nil))
	assert.Equal(t, "[]", trim(rec.Body.String()))
}

func trim(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s
}
