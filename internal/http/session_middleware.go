package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"saasbooks/internal/domain"
	"saasbooks/internal/service"
)

const (
	authUserKey    = "auth_user"
	authSessionKey = "auth_session"
)

// RequireSession valida la cookie contra la base. Si la sesion se renovo,
// re-emite la cookie con el nuevo Max-Age.
func RequireSession(logger *zap.Logger, sessions *service.SessionService, cookies CookieWriter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !resolveSession(c, logger, sessions, cookies) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequirePageSession es la variante para paginas: redirige al login.
func RequirePageSession(logger *zap.Logger, sessions *service.SessionService, cookies CookieWriter, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !resolveSession(c, logger, sessions, cookies) {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

func resolveSession(c *gin.Context, logger *zap.Logger, sessions *service.SessionService, cookies CookieWriter) bool {
	token := readCookie(c, SessionCookieName)
	if token == "" {
		return false
	}
	result, err := sessions.ValidateSessionToken(c.Request.Context(), token)
	if err != nil {
		logger.Error("validate session failed", zap.Error(err))
		return false
	}
	if !result.Valid() {
		cookies.DeleteSessionToken(c)
		return false
	}
	if result.Renewed {
		cookies.SetSessionToken(c, token)
	}
	c.Set(authUserKey, *result.User)
	c.Set(authSessionKey, *result.Session)
	return true
}

// CurrentUser obtiene el usuario autenticado desde el contexto.
func CurrentUser(c *gin.Context) (domain.User, bool) {
	val, ok := c.Get(authUserKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := val.(domain.User)
	return user, ok
}

func CurrentSession(c *gin.Context) (domain.Session, bool) {
	val, ok := c.Get(authSessionKey)
	if !ok {
		return domain.Session{}, false
	}
	session, ok := val.(domain.Session)
	return session, ok
}
