package handler

import (
	"errors"
	"log"
	"net/http"

	"dapbuddy/backend/internal/dispute"
	"dapbuddy/backend/internal/exchange"
	"dapbuddy/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// writeExchangeError maps domain errors to HTTP responses. Invalid
// transitions are guard failures: logged server-side, answered with a
// generic conflict rather than raw internals.
func writeExchangeError(c *gin.Context, err error) {
	var verr *exchange.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "fields": verr.Fields})
	case errors.Is(err, exchange.ErrWarningRequired):
		c.JSON(http.StatusPreconditionRequired, gin.H{"error": "warning_required"})
	case errors.Is(err, exchange.ErrInvalidTransition):
		log.Printf("WARN: invalid transition rejected: %v", err)
		c.JSON(http.StatusConflict, gin.H{"error": "action_not_available"})
	case errors.Is(err, exchange.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, exchange.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	default:
		log.Printf("ERROR: exchange operation failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}

type sendDetailsInput struct {
	Details map[string]string `json:"details" binding:"required"`
}

// SendDetails stores the host's joining details for the exchange.
func (h *Handler) SendDetails(c *gin.Context) {
	var input sendDetailsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	rec, err := h.Machine.SendDetails(c.GetString("userID"), c.Param("exchangeID"), models.JoiningDetails(input.Details))
	if err != nil {
		writeExchangeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchange": rec})
}

type revealInput struct {
	WarningAcknowledged bool `json:"warning_acknowledged"`
}

// Reveal commits the member's reveal on a specific exchange record.
func (h *Handler) Reveal(c *gin.Context) {
	var input revealInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	rec, err := h.Machine.Reveal(c.GetString("userID"), c.Param("exchangeID"), input.WarningAcknowledged)
	if err != nil {
		writeExchangeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchange": rec})
}

// MarkAsSeen is the booking-scoped reveal commit: it resolves the active
// exchange record and stamps the member's first view on it.
func (h *Handler) MarkAsSeen(c *gin.Context) {
	var input revealInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	rec, err := h.Storage.GetActiveExchangeForBooking(c.Param("bookingID"))
	if err != nil {
		writeExchangeError(c, err)
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}

	updated, err := h.Machine.Reveal(c.GetString("userID"), rec.ID, input.WarningAcknowledged)
	if err != nil {
		writeExchangeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchange": updated})
}

// FetchCredential answers the gated credential read with a distinct state
// for expired and stale references; callers must not cache past expiry.
func (h *Handler) FetchCredential(c *gin.Context) {
	result, err := h.Machine.FetchCredential(c.GetString("userID"), c.Param("exchangeID"))
	if err != nil {
		writeExchangeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ConfirmAccess is called by the member once the shared details worked.
func (h *Handler) ConfirmAccess(c *gin.Context) {
	rec, err := h.Machine.ConfirmAccess(c.GetString("userID"), c.Param("exchangeID"))
	if err != nil {
		writeExchangeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchange": rec})
}

type reportIssueInput struct {
	Reason string `json:"reason" binding:"required"`
}

// ReportIssue files the member's issue and returns the fresh re-request
// record that chains the flow back to the host.
func (h *Handler) ReportIssue(c *gin.Context) {
	var input reportIssueInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reason is required"})
		return
	}

	successor, err := h.Disputes.ReportIssue(c.GetString("userID"), c.Param("exchangeID"), input.Reason)
	if err != nil {
		writeExchangeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchange": successor})
}

// HostConfirm resolves the exchange from the host's side.
func (h *Handler) HostConfirm(c *gin.Context) {
	rec, err := h.Machine.HostConfirm(c.GetString("userID"), c.Param("exchangeID"))
	if err != nil {
		writeExchangeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchange": rec})
}

// ReportMismatch runs the host's two-strike escalation. The terminal
// state is spelled out so the UI tells the user mediation has taken over
// instead of offering another automatic action.
func (h *Handler) ReportMismatch(c *gin.Context) {
	rec, err := h.Disputes.ReportMismatch(c.GetString("userID"), c.Param("exchangeID"))
	if err != nil {
		writeExchangeError(c, err)
		return
	}
	resp := gin.H{"exchange": rec}
	if rec.Status == models.StatusHumanIntervention {
		resp["mediation"] = "A support mediator will review this booking. No further automatic actions are available."
	}
	c.JSON(http.StatusOK, resp)
}

// RequestAgain re-enters pending_host after expiry with a fresh record.
func (h *Handler) RequestAgain(c *gin.Context) {
	booking, err := h.Storage.GetBookingByID(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	if booking.RoleOf(c.GetString("userID")) == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	rec, err := h.Machine.Open(booking)
	if err != nil {
		writeExchangeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exchange": rec})
}

// Actions returns the caller's permitted action set for the booking's
// active exchange, plus the shape the service expects from a send.
func (h *Handler) Actions(c *gin.Context) {
	userID := c.GetString("userID")
	booking, err := h.Storage.GetBookingByID(c.Param("bookingID"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	role := booking.RoleOf(userID)
	if role == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	rec, err := h.Storage.GetActiveExchangeForBooking(booking.BookingID)
	if err != nil {
		writeExchangeError(c, err)
		return
	}

	rule := exchange.RuleFor(booking.ServiceID)
	resp := gin.H{
		"role":            role,
		"required_fields": rule.RequiredFields,
		"issue_reasons":   dispute.ReasonsFor(rule.Method),
	}
	if rec == nil {
		resp["actions"] = []string{}
	} else {
		status := rec.EffectiveStatus(h.Machine.Now())
		resp["actions"] = exchange.PermittedActions(status, rec.Revealed(), role)
		resp["exchange_id"] = rec.ID
		resp["status"] = status
	}
	c.JSON(http.StatusOK, resp)
}
