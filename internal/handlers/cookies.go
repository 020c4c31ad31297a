package handlers

import (
	"net/http"
	"time"
)

const DefaultRefreshCookieName = "refresh_token"

type CookieConfig struct {
	Name   string
	Secure bool
}

func (cc CookieConfig) name() string {
	if cc.Name == "" {
		return DefaultRefreshCookieName
	}
	return cc.Name
}

// RefreshCookie holds the refresh token out of reach of scripts.
func (cc CookieConfig) RefreshCookie(token string, ttl time.Duration, now time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     cc.name(),
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		Expires:  now.Add(ttl),
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (cc CookieConfig) ClearedCookie() *http.Cookie {
	return &http.Cookie{
		Name:     cc.name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
