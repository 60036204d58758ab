package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"attendance-backend/internal/auth"
	"attendance-backend/internal/model"
	"attendance-backend/internal/store"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies admin credentials and issues a token pair.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	admin, err := h.store.AdminByUsername(c.Request.Context(), req.Username)
	if errors.Is(err, store.ErrAdminNotFound) || (err == nil && !auth.CheckPassword(admin.PasswordHash, req.Password)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	tokens, err := auth.Issue(admin.Username, admin.FullName, h.cfg.Auth.Issuer, h.cfg.Auth.SigningKey, h.cfg.Auth.AccessTTL, h.cfg.Auth.RefreshTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, tokens)
}

type setupAdminRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
}

// SetupAdmin creates the first admin account. It only works while no admin
// accounts exist.
func (h *Handler) SetupAdmin(c *gin.Context) {
	count, err := h.store.CountAdmins(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if count > 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin accounts already exist"})
		return
	}

	var req setupAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	admin := model.Admin{Username: req.Username, PasswordHash: hash, FullName: req.FullName}
	if err := h.store.CreateAdmin(c.Request.Context(), &admin); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": admin.ID})
}
