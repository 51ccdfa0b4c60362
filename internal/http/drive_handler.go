package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"saasbooks/internal/service"
)

type DriveHandler struct {
	logger *zap.Logger
	drive  *service.DriveService
}

func NewDriveHandler(logger *zap.Logger, drive *service.DriveService) *DriveHandler {
	return &DriveHandler{logger: logger, drive: drive}
}

// Verify maneja GET /api/drive/verify.
func (h *DriveHandler) Verify(c *gin.Context) {
	user, _ := CurrentUser(c)
	report, err := h.drive.VerifyOrRepair(c.Request.Context(), user.ID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDriveNotConfigured):
			c.JSON(http.StatusNotFound, gin.H{"error": "No Drive configuration found"})
		case errors.Is(err, service.ErrDriveReauthRequired):
			c.JSON(http.StatusUnauthorized, gin.H{"error": service.ErrDriveReauthRequired.Error()})
		default:
			h.logger.Error("verify drive folder failed", zap.Error(err), zap.String("user_id", user.ID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}
	c.JSON(http.StatusOK, report)
}
