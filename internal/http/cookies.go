package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"saasbooks/internal/service"
)

const (
	SessionCookieName      = "session_token"
	OAuthStateCookieName   = "google_oauth_state"
	CodeVerifierCookieName = "google_code_verifier"
	oauthCookieTTL         = 10 * time.Minute
)

// CookieWriter centraliza los atributos de las cookies. Secure depende del
// entorno.
type CookieWriter struct {
	secure bool
}

func NewCookieWriter(secure bool) CookieWriter {
	return CookieWriter{secure: secure}
}

func (w CookieWriter) set(c *gin.Context, name, value string, maxAge time.Duration) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   w.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (w CookieWriter) clear(c *gin.Context, name string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   w.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (w CookieWriter) SetSessionToken(c *gin.Context, token string) {
	w.set(c, SessionCookieName, token, service.SessionTTL)
}

func (w CookieWriter) DeleteSessionToken(c *gin.Context) {
	w.clear(c, SessionCookieName)
}

func (w CookieWriter) SetOAuthCookies(c *gin.Context, state, verifier string) {
	w.set(c, OAuthStateCookieName, state, oauthCookieTTL)
	w.set(c, CodeVerifierCookieName, verifier, oauthCookieTTL)
}

func (w CookieWriter) DeleteOAuthCookies(c *gin.Context) {
	w.clear(c, OAuthStateCookieName)
	w.clear(c, CodeVerifierCookieName)
}

func readCookie(c *gin.Context, name string) string {
	v, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return v
}
