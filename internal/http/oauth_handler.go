package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"saasbooks/internal/service"
)

// OAuthHandler maneja el login con Google.
type OAuthHandler struct {
	logger        *zap.Logger
	oauth         *service.OAuthService
	cookies       CookieWriter
	dashboardPath string
}

func NewOAuthHandler(logger *zap.Logger, oauth *service.OAuthService, cookies CookieWriter, dashboardPath string) *OAuthHandler {
	if dashboardPath == "" {
		dashboardPath = "/app/dashboard"
	}
	return &OAuthHandler{
		logger:        logger,
		oauth:         oauth,
		cookies:       cookies,
		dashboardPath: dashboardPath,
	}
}

// Start maneja GET /auth/google.
func (h *OAuthHandler) Start(c *gin.Context) {
	req, err := h.oauth.Begin()
	if err != nil {
		h.logger.Error("begin google oauth failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	h.cookies.SetOAuthCookies(c, req.State, req.CodeVerifier)
	c.Redirect(http.StatusFound, req.URL)
}

// Callback maneja GET /auth/google/callback. Las cookies de state y
// verifier se borran siempre.
func (h *OAuthHandler) Callback(c *gin.Context) {
	in := service.CallbackInput{
		Code:         c.Query("code"),
		State:        c.Query("state"),
		StoredState:  readCookie(c, OAuthStateCookieName),
		CodeVerifier: readCookie(c, CodeVerifierCookieName),
	}
	h.cookies.DeleteOAuthCookies(c)

	result, err := h.oauth.Complete(c.Request.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOAuthMissingCode),
			errors.Is(err, service.ErrOAuthStateMismatch),
			errors.Is(err, service.ErrOAuthMissingVerifier),
			errors.Is(err, service.ErrOAuthIdentityIncomplete):
			h.logger.Warn("rejected google callback", zap.Error(err))
			c.Status(http.StatusBadRequest)
		default:
			h.logger.Error("google callback failed", zap.Error(err))
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	h.cookies.SetSessionToken(c, result.SessionToken)
	h.logger.Info("google login", zap.String("user_id", result.User.ID))
	c.Redirect(http.StatusFound, h.dashboardPath)
}
