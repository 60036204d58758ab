package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"attendance-backend/internal/model"
)

// GetSettings returns the system settings.
func (h *Handler) GetSettings(c *gin.Context) {
	ctx := c.Request.Context()
	result := gin.H{}
	for _, key := range []string{
		model.SettingMaxOccupancy,
		model.SettingAutoCheckoutTime,
		model.SettingAutoCheckoutEnabled,
	} {
		value, err := h.store.Setting(ctx, key)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		result[key] = value
	}
	c.JSON(http.StatusOK, result)
}

type updateSettingsRequest struct {
	MaxOccupancy        *int    `json:"max_occupancy"`
	AutoCheckoutTime    *string `json:"auto_checkout_time"`
	AutoCheckoutEnabled *bool   `json:"auto_checkout_enabled"`
}

// UpdateSettings updates any subset of the system settings. Values are
// validated before being written so the scheduler never reads a corrupt
// cutoff.
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if req.MaxOccupancy != nil {
		if *req.MaxOccupancy < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_occupancy must not be negative"})
			return
		}
		if err := h.store.PutSetting(ctx, model.SettingMaxOccupancy, fmt.Sprintf("%d", *req.MaxOccupancy)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	if req.AutoCheckoutTime != nil {
		if !validClock(*req.AutoCheckoutTime) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "auto_checkout_time must be HH:MM"})
			return
		}
		if err := h.store.PutSetting(ctx, model.SettingAutoCheckoutTime, *req.AutoCheckoutTime); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	if req.AutoCheckoutEnabled != nil {
		value := "0"
		if *req.AutoCheckoutEnabled {
			value = "1"
		}
		if err := h.store.PutSetting(ctx, model.SettingAutoCheckoutEnabled, value); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func validClock(raw string) bool {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return false
	}
	var hour, minute int
	if _, err := fmt.Sscanf(raw, "%d:%d", &hour, &minute); err != nil {
		return false
	}
	return hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59
}
