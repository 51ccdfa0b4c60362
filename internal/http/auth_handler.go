package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"saasbooks/internal/domain"
	"saasbooks/internal/service"
)

// AuthHandler maneja registro, login con password y logout.
type AuthHandler struct {
	logger   *zap.Logger
	users    *service.UserService
	sessions *service.SessionService
	cookies  CookieWriter
}

func NewAuthHandler(logger *zap.Logger, users *service.UserService, sessions *service.SessionService, cookies CookieWriter) *AuthHandler {
	return &AuthHandler{
		logger:   logger,
		users:    users,
		sessions: sessions,
		cookies:  cookies,
	}
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name, Image: u.Image}
}

// Register maneja POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
		Name     string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid auth request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "A valid email and a password are required"})
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
		case errors.Is(err, service.ErrInvalidEmail), errors.Is(err, service.ErrWeakPassword):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("register failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	if !h.startSession(c, user) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "user": toUserResponse(user)})
}

// Login maneja POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid auth request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "A valid email and a password are required"})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		case errors.Is(err, service.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		default:
			h.logger.Error("login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	if !h.startSession(c, user) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": toUserResponse(user)})
}

func (h *AuthHandler) startSession(c *gin.Context, user domain.User) bool {
	token, err := service.GenerateSessionToken()
	if err == nil {
		_, err = h.sessions.CreateSession(c.Request.Context(), token, user.ID)
	}
	if err != nil {
		h.logger.Error("create session failed", zap.Error(err), zap.String("user_id", user.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return false
	}
	h.cookies.SetSessionToken(c, token)
	return true
}

// LogoutAPI maneja POST /auth/logout.
func (h *AuthHandler) LogoutAPI(c *gin.Context) {
	if err := h.invalidateCurrent(c); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// LogoutRedirect maneja GET /auth/logout.
func (h *AuthHandler) LogoutRedirect(c *gin.Context) {
	if err := h.invalidateCurrent(c); err != nil {
		h.logger.Warn("logout invalidate failed", zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) invalidateCurrent(c *gin.Context) error {
	token := readCookie(c, SessionCookieName)
	if token == "" {
		return nil
	}
	if err := h.sessions.InvalidateSession(c.Request.Context(), service.HashSessionToken(token)); err != nil {
		return err
	}
	h.cookies.DeleteSessionToken(c)
	return nil
}

// Me maneja GET /api/me.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUserResponse(user)})
}
