package specialdates

import (
	"encoding/json"
	"fmt"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

// CookieStore keeps the list in the request's session cookie. The echo
// session middleware must be installed.
type CookieStore struct {
	c    echo.Context
	name string
}

// NewCookieStore binds a store to one request.
func NewCookieStore(c echo.Context, sessionName string) *CookieStore {
	return &CookieStore{c: c, name: sessionName}
}

// Load decodes the list from the cookie. A missing or unreadable cookie
// yields an empty list.
func (s *CookieStore) Load() ([]SpecialDate, error) {
	sess, err := session.Get(s.name, s.c)
	if err != nil {
		return nil, nil
	}
	raw, ok := sess.Values[Key].(string)
	if !ok || raw == "" {
		return nil, nil
	}
	var dates []SpecialDate
	if err := json.Unmarshal([]byte(raw), &dates); err != nil {
		return nil, nil
	}
	return dates, nil
}

// Save writes the list into the cookie on the response.
func (s *CookieStore) Save(dates []SpecialDate) error {
	// An undecodable cookie still yields a fresh session to write into.
	sess, err := session.Get(s.name, s.c)
	if sess == nil {
		return fmt.Errorf("special dates session: %w", err)
	}
	if dates == nil {
		dates = []SpecialDate{}
	}
	raw, err := json.Marshal(dates)
	if err != nil {
		return err
	}
	sess.Values[Key] = string(raw)
	return sess.Save(s.c.Request(), s.c.Response())
}
