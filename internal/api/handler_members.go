package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"attendance-backend/internal/bus"
	"attendance-backend/internal/model"
	"attendance-backend/internal/store"
)

type createMemberRequest struct {
	CardUID        string `json:"card_uid" binding:"required"`
	Name           string `json:"name" binding:"required"`
	StudentID      string `json:"student_id" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	GraduatingYear int    `json:"graduating_year"`
	AssignedTask   string `json:"assigned_task"`
	Position       string `json:"position"`
	Admin          bool   `json:"admin"`
}

// CreateMember enrolls a new member with their card assignment.
func (h *Handler) CreateMember(c *gin.Context) {
	var req createMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member := model.Member{
		CardUID:        req.CardUID,
		Name:           req.Name,
		StudentID:      req.StudentID,
		Email:          req.Email,
		GraduatingYear: req.GraduatingYear,
		AssignedTask:   req.AssignedTask,
		Position:       req.Position,
		Admin:          req.Admin,
	}
	if member.AssignedTask == "" {
		member.AssignedTask = "No task assigned"
	}

	if err := h.store.CreateMember(c.Request.Context(), &member); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, member)
}

// ListMembers returns all enrolled members.
func (h *Handler) ListMembers(c *gin.Context) {
	members, err := h.store.ListMembers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, members)
}

type updateMemberRequest struct {
	Name           string `json:"name"`
	StudentID      string `json:"student_id"`
	Email          string `json:"email"`
	GraduatingYear int    `json:"graduating_year"`
	AssignedTask   string `json:"assigned_task"`
	Position       string `json:"position"`
	Admin          *bool  `json:"admin"`
}

// UpdateMember updates member profile fields. The card UID is the member's
// identity and cannot be changed.
func (h *Handler) UpdateMember(c *gin.Context) {
	id, ok := memberIDParam(c)
	if !ok {
		return
	}

	member, err := h.store.MemberByID(c.Request.Context(), id)
	if errors.Is(err, store.ErrMemberNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var req updateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != "" {
		member.Name = req.Name
	}
	if req.StudentID != "" {
		member.StudentID = req.StudentID
	}
	if req.Email != "" {
		member.Email = req.Email
	}
	if req.GraduatingYear != 0 {
		member.GraduatingYear = req.GraduatingYear
	}
	if req.AssignedTask != "" {
		member.AssignedTask = req.AssignedTask
	}
	if req.Position != "" {
		member.Position = req.Position
	}
	if req.Admin != nil {
		member.Admin = *req.Admin
	}

	if err := h.store.UpdateMember(c.Request.Context(), member); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	evt := bus.NewEvent(bus.KindMemberUpdated, time.Now())
	evt.MemberID = member.ID
	evt.MemberName = member.Name
	h.hub.Publish(evt)

	c.JSON(http.StatusOK, member)
}

// DeleteMember removes a member and all of their sessions.
func (h *Handler) DeleteMember(c *gin.Context) {
	id, ok := memberIDParam(c)
	if !ok {
		return
	}

	err := h.store.DeleteMember(c.Request.Context(), id)
	if errors.Is(err, store.ErrMemberNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "member not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	evt := bus.NewEvent(bus.KindMemberDeleted, time.Now())
	evt.MemberID = id
	h.hub.Publish(evt)

	c.Status(http.StatusNoContent)
}

// memberHistoryEntry is one row of a member's attendance history.
type memberHistoryEntry struct {
	CheckIn         time.Time  `json:"check_in"`
	CheckOut        *time.Time `json:"check_out"`
	DurationMinutes *int       `json:"duration_minutes"`
	AutoCheckout    bool       `json:"auto_checkout"`
}

// MemberHistory returns the member's sessions, most recent first.
func (h *Handler) MemberHistory(c *gin.Context) {
	id, ok := memberIDParam(c)
	if !ok {
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	sessions, err := h.store.History(c.Request.Context(), id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	entries := make([]memberHistoryEntry, len(sessions))
	for i, sess := range sessions {
		entry := memberHistoryEntry{
			CheckIn:      sess.CheckIn,
			CheckOut:     sess.CheckOut,
			AutoCheckout: sess.AutoCheckout,
		}
		if sess.CheckOut != nil {
			minutes := int(sess.CheckOut.Sub(sess.CheckIn).Minutes())
			entry.DurationMinutes = &minutes
		}
		entries[i] = entry
	}
	c.JSON(http.StatusOK, entries)
}

func memberIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return 0, false
	}
	return id, true
}
