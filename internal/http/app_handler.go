package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"saasbooks/internal/service"
)

// AppHandler sirve el payload de la pantalla principal.
type AppHandler struct {
	logger *zap.Logger
	stripe *service.StripeService
	drive  *service.DriveService
}

func NewAppHandler(logger *zap.Logger, stripe *service.StripeService, drive *service.DriveService) *AppHandler {
	return &AppHandler{logger: logger, stripe: stripe, drive: drive}
}

// Dashboard maneja GET /app/dashboard.
func (h *AppHandler) Dashboard(c *gin.Context) {
	user, _ := CurrentUser(c)
	accounts, err := h.stripe.ListAccounts(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("dashboard accounts failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	// El README es best-effort: un Drive sin configurar o caido no bloquea
	// la pantalla.
	driveConnected := h.drive != nil && h.drive.EnsureUserReadme(c.Request.Context(), user.ID)
	c.JSON(http.StatusOK, gin.H{
		"user":            toUserResponse(user),
		"accounts":        accounts,
		"drive_connected": driveConnected,
	})
}

// Pinger lo implementa el pool de la base.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Healthz maneja GET /healthz.
func Healthz(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
