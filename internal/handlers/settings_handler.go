package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"klarna-payments-backend/internal/models"
	"klarna-payments-backend/internal/service"
)

// SettingsHandler exposes the gateway configuration to the admin API.
type SettingsHandler struct {
	settings *service.SettingsService
}

func NewSettingsHandler(settings *service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Get returns the current gateway settings.
func (h *SettingsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.settings.Settings())
}

// Update replaces the gateway settings.
func (h *SettingsHandler) Update(c *gin.Context) {
	var settings models.GatewaySettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.settings.Update(settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save settings"})
		return
	}

	c.JSON(http.StatusOK, h.settings.Settings())
}
