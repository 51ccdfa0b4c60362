package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"saasbooks/internal/service"
)

// AccessGate es un filtro barato: solo mira que la cookie de sesion tenga
// forma valida. La validacion real la hacen RequireSession y los handlers.
type AccessGate struct {
	prefixes  []string
	loginPath string
}

func NewAccessGate(prefixes []string, loginPath string) *AccessGate {
	cleaned := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = strings.TrimSpace(p)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if loginPath == "" {
		loginPath = "/auth/login"
	}
	return &AccessGate{prefixes: cleaned, loginPath: loginPath}
}

// Protected indica si el path cae bajo algun prefijo protegido. "/app"
// cubre "/app" y "/app/..." pero no "/application".
func (g *AccessGate) Protected(path string) bool {
	for _, p := range g.prefixes {
		if path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}

func (g *AccessGate) Allow(path, sessionToken string) bool {
	if !g.Protected(path) {
		return true
	}
	return service.IsPlausibleSessionToken(sessionToken)
}

func (g *AccessGate) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.Allow(c.Request.URL.Path, readCookie(c, SessionCookieName)) {
			c.Next()
			return
		}
		c.Redirect(http.StatusFound, g.loginPath)
		c.Abort()
	}
}
