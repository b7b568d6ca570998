package handlers

import (
	"net/http"

	"fintab-pos/internal/membership"
	"fintab-pos/internal/middleware"
	"fintab-pos/internal/models"

	"github.com/gin-gonic/gin"
)

type RegisterBusinessRequest struct {
	Name     string                  `json:"name" binding:"required"`
	Settings models.BusinessSettings `json:"settings"`
}

// --- GET: /api/businesses ---
func (h *Handler) ListBusinesses(c *gin.Context) {
	list, err := h.Members.Businesses(c.Request.Context(), middleware.Identity(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// --- POST: /api/businesses ---
func (h *Handler) RegisterBusiness(c *gin.Context) {
	var req RegisterBusinessRequest
	if !bind(c, &req) {
		return
	}
	biz, err := h.Members.RegisterBusiness(c.Request.Context(), middleware.Identity(c), req.Name, req.Settings)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, biz)
}

// --- GET: /api/business ---
func (h *Handler) GetBusiness(c *gin.Context) {
	biz, err := h.Members.Business(c.Request.Context(), actor(c).BusinessID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, biz)
}

// --- PUT: /api/business/settings ---
func (h *Handler) UpdateSettings(c *gin.Context) {
	var settings models.BusinessSettings
	if !bind(c, &settings) {
		return
	}
	if err := h.Members.UpdateSettings(c.Request.Context(), actor(c), settings); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Settings updated successfully", "settings": settings})
}

// --- POST: /api/invitations ---
// The token is shown once; only its hash is kept.
func (h *Handler) Invite(c *gin.Context) {
	var in membership.InviteInput
	if !bind(c, &in) {
		return
	}
	inv, token, err := h.Members.Invite(c.Request.Context(), actor(c), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"invitation": inv, "token": token})
}

type RedeemRequest struct {
	Token string `json:"token" binding:"required"`
}

// --- POST: /api/invitations/redeem ---
func (h *Handler) RedeemInvitation(c *gin.Context) {
	var req RedeemRequest
	if !bind(c, &req) {
		return
	}
	m, err := h.Members.Redeem(c.Request.Context(), middleware.Identity(c), req.Token)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// --- GET: /api/members ---
func (h *Handler) ListMembers(c *gin.Context) {
	list, err := h.Members.Members(c.Request.Context(), actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// --- PUT: /api/members/:id ---
func (h *Handler) UpdateMember(c *gin.Context) {
	var in membership.MemberUpdate
	if !bind(c, &in) {
		return
	}
	m, err := h.Members.UpdateMember(c.Request.Context(), actor(c), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}
