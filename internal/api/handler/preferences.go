package handler

import (
	"net/http"

	"dapbuddy/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// GetRevealWarningPreference reports whether the caller opted out of the
// one-time credential risk warning.
func (h *Handler) GetRevealWarningPreference(c *gin.Context) {
	value, err := h.Storage.GetPreference(c.GetString("userID"), models.PrefHideRevealWarning)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hide_reveal_warning": value == "true"})
}

type revealWarningInput struct {
	Hide bool `json:"hide"`
}

// SetRevealWarningPreference persists the warning opt-out as an explicit
// per-user record, so it follows the user across tabs and devices.
func (h *Handler) SetRevealWarningPreference(c *gin.Context) {
	var input revealWarningInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	value := "false"
	if input.Hide {
		value = "true"
	}
	pref := &models.UserPreference{
		UserID: c.GetString("userID"),
		Key:    models.PrefHideRevealWarning,
		Value:  value,
	}
	if err := h.Storage.SavePreference(pref); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"hide_reveal_warning": input.Hide})
}
