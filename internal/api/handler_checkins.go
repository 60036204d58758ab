package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"attendance-backend/internal/attendance"
	"attendance-backend/internal/store"
)

// currentCheckinResponse is one row of the live occupancy display.
type currentCheckinResponse struct {
	MemberID        int64     `json:"member_id"`
	Name            string    `json:"name"`
	StudentID       string    `json:"student_id"`
	AssignedTask    string    `json:"assigned_task"`
	CheckIn         time.Time `json:"check_in"`
	DurationMinutes int       `json:"duration_minutes"`
}

// GetCurrentCheckins returns all members currently inside, most recent
// arrival first, together with the configured occupancy cap.
func (h *Handler) GetCurrentCheckins(c *gin.Context) {
	entries, err := h.store.CurrentlyOpen(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve check-ins"})
		return
	}

	now := time.Now()
	rows := make([]currentCheckinResponse, len(entries))
	for i, entry := range entries {
		rows[i] = currentCheckinResponse{
			MemberID:        entry.Member.ID,
			Name:            entry.Member.Name,
			StudentID:       entry.Member.StudentID,
			AssignedTask:    entry.Member.AssignedTask,
			CheckIn:         entry.Session.CheckIn,
			DurationMinutes: int(entry.Session.Duration(now).Minutes()),
		}
	}

	maxOccupancy, err := h.store.MaxOccupancy(c.Request.Context())
	if err != nil {
		log.Printf("Error reading max occupancy: %v", err)
		maxOccupancy = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"checkins":      rows,
		"count":         len(rows),
		"max_occupancy": maxOccupancy,
	})
}

type manualCheckinRequest struct {
	MemberID int64  `json:"member_id" binding:"required"`
	Action   string `json:"action" binding:"required,oneof=checkin checkout"`
}

// ManualCheckin applies an explicit admin check-in or check-out. Acting in
// the direction the member is already in is rejected, not silently flipped.
func (h *Handler) ManualCheckin(c *gin.Context) {
	var req manualCheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.engine.ManualAction(c.Request.Context(), req.MemberID, attendance.Action(req.Action), time.Now())
	switch {
	case errors.Is(err, store.ErrMemberNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
	case errors.Is(err, store.ErrAlreadyOpen):
		c.JSON(http.StatusConflict, gin.H{"error": "member is already checked in"})
	case errors.Is(err, store.ErrNotOpen):
		c.JSON(http.StatusConflict, gin.H{"error": "member is not checked in"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"outcome": result.Outcome, "member": result.Member})
	}
}

type scanRequest struct {
	CardUID string `json:"card_uid" binding:"required"`
}

// Scan feeds one card scan through the attendance toggle. Used by networked
// readers and for admin testing without the polling loop.
func (h *Handler) Scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.engine.Scan(c.Request.Context(), req.CardUID, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if result.Outcome == attendance.OutcomeUnknown {
		c.JSON(http.StatusNotFound, gin.H{"outcome": result.Outcome, "error": "card not registered"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": result.Outcome, "member": result.Member})
}

// TriggerAutoCheckout force-closes all open sessions immediately.
func (h *Handler) TriggerAutoCheckout(c *gin.Context) {
	count, err := h.scheduler.Sweep(c.Request.Context(), time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
