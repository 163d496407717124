package api

import (
	"net/http"
	"time"

	"github.com/intelvis/intelvis/internal/server/config"
)

// SessionCookie writes and clears the session cookie from one attribute set,
// so a logout always targets the cookie the login created.
type SessionCookie struct {
	cfg config.CookieConfig
}

func NewSessionCookie(cfg config.CookieConfig) *SessionCookie {
	return &SessionCookie{cfg: cfg}
}

func (c *SessionCookie) Name() string {
	return c.cfg.Name
}

func (c *SessionCookie) Set(w http.ResponseWriter, token string) {
	cookie := c.base()
	cookie.Value = token
	cookie.MaxAge = int(c.cfg.MaxAge.Seconds())
	cookie.Expires = time.Now().Add(c.cfg.MaxAge)
	http.SetCookie(w, cookie)
}

func (c *SessionCookie) Clear(w http.ResponseWriter) {
	cookie := c.base()
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, cookie)
}

func (c *SessionCookie) base() *http.Cookie {
	return &http.Cookie{
		Name:     c.cfg.Name,
		Domain:   c.cfg.Domain,
		Path:     c.cfg.Path,
		SameSite: c.cfg.SameSite,
		Secure:   c.cfg.Secure,
		HttpOnly: true,
	}
}
