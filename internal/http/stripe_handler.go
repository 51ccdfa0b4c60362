package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"saasbooks/internal/service"
)

// StripeHandler expone la administracion de cuentas y las series de volumen.
type StripeHandler struct {
	logger *zap.Logger
	stripe *service.StripeService
}

func NewStripeHandler(logger *zap.Logger, stripe *service.StripeService) *StripeHandler {
	return &StripeHandler{logger: logger, stripe: stripe}
}

// ListAccounts maneja GET /api/stripe/accounts.
func (h *StripeHandler) ListAccounts(c *gin.Context) {
	user, _ := CurrentUser(c)
	accounts, err := h.stripe.ListAccounts(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("list stripe accounts failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch Stripe accounts"})
		return
	}
	c.JSON(http.StatusOK, accounts)
}

// GetAccount maneja GET /api/stripe/accounts/:id.
func (h *StripeHandler) GetAccount(c *gin.Context) {
	user, _ := CurrentUser(c)
	account, err := h.stripe.GetAccount(c.Request.Context(), c.Param("id"), user.ID)
	if err != nil {
		h.writeError(c, err, "Failed to fetch Stripe account")
		return
	}
	c.JSON(http.StatusOK, account)
}

// AddAccount maneja POST /api/stripe/accounts.
func (h *StripeHandler) AddAccount(c *gin.Context) {
	user, _ := CurrentUser(c)
	var req struct {
		Name   string `json:"name"`
		APIKey string `json:"apiKey"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.APIKey) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and API key are required"})
		return
	}

	account, err := h.stripe.AddAccount(c.Request.Context(), user.ID, req.Name, req.APIKey)
	if err != nil {
		h.writeError(c, err, "Failed to add Stripe account")
		return
	}
	c.JSON(http.StatusCreated, account)
}

// UpdateAccount maneja PATCH /api/stripe/accounts/:id.
func (h *StripeHandler) UpdateAccount(c *gin.Context) {
	user, _ := CurrentUser(c)
	var req struct {
		Name     *string `json:"name"`
		APIKey   *string `json:"apiKey"`
		IsActive *bool   `json:"isActive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	account, err := h.stripe.UpdateAccount(c.Request.Context(), c.Param("id"), user.ID, service.StripeAccountUpdate{
		Name:     req.Name,
		APIKey:   req.APIKey,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.writeError(c, err, "Failed to update Stripe account")
		return
	}
	c.JSON(http.StatusOK, account)
}

// DeleteAccount maneja DELETE /api/stripe/accounts/:id.
func (h *StripeHandler) DeleteAccount(c *gin.Context) {
	user, _ := CurrentUser(c)
	if err := h.stripe.DeleteAccount(c.Request.Context(), c.Param("id"), user.ID); err != nil {
		h.writeError(c, err, "Failed to delete Stripe account")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Volume maneja GET /api/stripe/volume.
func (h *StripeHandler) Volume(c *gin.Context) {
	user, _ := CurrentUser(c)
	accountID := c.Query("accountId")
	if accountID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "accountId parameter is required"})
		return
	}

	series, err := h.stripe.VolumeForAccount(c.Request.Context(), accountID, user.ID, c.Query("period"))
	if err != nil {
		h.writeError(c, err, "Failed to fetch volume data")
		return
	}
	c.JSON(http.StatusOK, series)
}

// Gross maneja GET /api/stripe/gross.
func (h *StripeHandler) Gross(c *gin.Context) {
	user, _ := CurrentUser(c)
	accountID := c.Query("accountId")
	if accountID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "accountId parameter is required"})
		return
	}

	amount, err := h.stripe.GrossVolumeForAccount(c.Request.Context(), accountID, user.ID, c.Query("period"))
	if err != nil {
		h.writeError(c, err, "Failed to calculate gross volume")
		return
	}
	c.JSON(http.StatusOK, gin.H{"amount": amount})
}

func (h *StripeHandler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrStripeAccountNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Stripe account not found"})
	case errors.Is(err, service.ErrInvalidPeriod):
		c.JSON(http.StatusBadRequest, gin.H{"error": "period must be one of 7d, 30d, 90d, ytd, all"})
	case errors.Is(err, service.ErrInvalidStripeKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid Stripe API key"})
	case errors.Is(err, service.ErrStripeMissingPermission):
		c.JSON(http.StatusBadRequest, gin.H{"error": "The API key is missing required permissions. Please ensure the key has the \"Balance transaction source read\" (rak_balance_transaction_source_read) permission."})
	case errors.Is(err, service.ErrInvalidAccountName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error(strings.ToLower(fallback), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
