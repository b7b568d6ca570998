package handlers

import (
	"net/http"

	"fintab-pos/internal/models"

	"github.com/gin-gonic/gin"
)

// --- GET: /api/approvals/definitions ---
func (h *Handler) GetApprovalDefinitions(c *gin.Context) {
	c.JSON(http.StatusOK, h.Approvals.Definitions())
}

type SubmitApprovalRequest struct {
	Kind    string                 `json:"kind" binding:"required"`
	Payload models.ApprovalPayload `json:"payload"`
	Note    string                 `json:"note"`
}

// --- POST: /api/approvals ---
func (h *Handler) SubmitApproval(c *gin.Context) {
	var req SubmitApprovalRequest
	if !bind(c, &req) {
		return
	}
	rec, err := h.Approvals.Submit(c.Request.Context(), actor(c), req.Kind, req.Payload, req.Note)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// AdvanceRequest names the stage the caller saw, so a verifier who lost a race gets a conflict.
type AdvanceRequest struct {
	From string `json:"from" binding:"required"`
	To   string `json:"to" binding:"required"`
	Note string `json:"note"`
}

// --- POST: /api/approvals/:id/advance ---
func (h *Handler) AdvanceApproval(c *gin.Context) {
	var req AdvanceRequest
	if !bind(c, &req) {
		return
	}
	rec, err := h.Approvals.Advance(c.Request.Context(), actor(c), c.Param("id"), req.From, req.To, req.Note)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type FinalizeRequest struct {
	Outcome string `json:"outcome" binding:"required"`
	Note    string `json:"note"`
}

// --- POST: /api/approvals/:id/finalize ---
func (h *Handler) FinalizeApproval(c *gin.Context) {
	var req FinalizeRequest
	if !bind(c, &req) {
		return
	}
	rec, err := h.Approvals.Finalize(c.Request.Context(), actor(c), c.Param("id"), req.Outcome, req.Note)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// --- GET: /api/approvals/:id ---
func (h *Handler) GetApproval(c *gin.Context) {
	rec, err := h.Approvals.Get(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// --- GET: /api/approvals?kind=&status= ---
func (h *Handler) GetApprovals(c *gin.Context) {
	list, err := h.Approvals.List(c.Request.Context(), actor(c), c.Query("kind"), c.Query("status"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
