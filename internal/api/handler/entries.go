package handler

import (
	"log"
	"net/http"
	"strconv"

	"dapbuddy/backend/internal/config"
	"dapbuddy/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// requireParticipant resolves the booking and the caller's role in it.
func (h *Handler) requireParticipant(c *gin.Context) (*models.Booking, string, bool) {
	booking, err := h.Storage.GetBookingByID(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return nil, "", false
	}
	role := booking.RoleOf(c.GetString("userID"))
	if role == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return nil, "", false
	}
	return booking, role, true
}

// ListEntries serves one backward page of the booking log: entries
// strictly older than ?before=, ascending, newest page when before is
// absent. Repeated calls walk the full log with no duplicates and no gaps.
func (h *Handler) ListEntries(c *gin.Context) {
	booking, _, ok := h.requireParticipant(c)
	if !ok {
		return
	}

	var beforeID uint
	if raw := c.Query("before"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before cursor"})
			return
		}
		beforeID = uint(parsed)
	}

	limit := config.DefaultPageSize
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		if parsed > config.MaxPageSize {
			parsed = config.MaxPageSize
		}
		limit = parsed
	}

	rows, err := h.Storage.ListEntriesBefore(booking.BookingID, beforeID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	entries := make([]models.ChatEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, models.WireEntry(&rows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "has_more": len(rows) == limit})
}

type appendEntryInput struct {
	TempID string `json:"temp_id" binding:"required"`
	Text   string `json:"text" binding:"required"`
}

// AppendEntry persists a free-text entry and returns the authoritative
// row echoing the client temp id, so the sender reconciles its optimistic
// entry in place. Delivery to other participants goes over the booking's
// push channel.
func (h *Handler) AppendEntry(c *gin.Context) {
	booking, _, ok := h.requireParticipant(c)
	if !ok {
		return
	}

	var input appendEntryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "temp_id and text are required"})
		return
	}
	if len(input.Text) > config.MaxMessageLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message too long"})
		return
	}

	row := &models.LogEntry{
		BookingID: booking.BookingID,
		ActorID:   c.GetString("userID"),
		Text:      input.Text,
		Kind:      config.EntryKindMessage,
		TempID:    input.TempID,
	}
	if err := h.Storage.AppendEntry(row); err != nil {
		// the optimistic entry stays on the client marked failed
		c.JSON(http.StatusInternalServerError, gin.H{"error": "append_failed", "temp_id": input.TempID})
		return
	}

	wire := models.WireEntry(row)
	if err := h.Storage.PublishFrame(booking.BookingID, models.Frame{
		Type:  models.FrameEntry,
		Entry: &wire,
	}); err != nil {
		log.Printf("ERROR: Failed to publish entry %d for booking %s: %v", row.ID, booking.BookingID, err)
	}
	c.JSON(http.StatusOK, gin.H{"entry": wire})
}

type markReadInput struct {
	LastSeenLogID uint `json:"last_seen_log_id" binding:"required"`
}

// MarkRead advances the caller's read pointer. Stale pointers from racing
// tabs are accepted and ignored.
func (h *Handler) MarkRead(c *gin.Context) {
	booking, _, ok := h.requireParticipant(c)
	if !ok {
		return
	}

	var input markReadInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "last_seen_log_id is required"})
		return
	}

	moved, err := h.Tracker.MarkRead(booking.BookingID, c.GetString("userID"), input.LastSeenLogID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"moved": moved})
}

// UnreadCount serves the unread badge value for the caller.
func (h *Handler) UnreadCount(c *gin.Context) {
	booking, _, ok := h.requireParticipant(c)
	if !ok {
		return
	}

	count, err := h.Tracker.UnreadCount(booking.BookingID, c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": count})
}
