package httpapi

import (
	"net/http"
	"time"

	"github.com/and161185/chirper/internal/model"
)

const (
	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
)

func sessionCookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

func setSessionCookies(w http.ResponseWriter, t model.Tokens) {
	http.SetCookie(w, sessionCookie(accessCookie, t.AccessToken, t.AccessExpiresAt))
	http.SetCookie(w, sessionCookie(refreshCookie, t.RefreshToken, t.RefreshExpiresAt))
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessCookie, refreshCookie} {
		c := sessionCookie(name, "", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

// cookieValue returns the named cookie value or "".
func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
