package handlers

import (
	"net/http"

	"fintab-pos/internal/utils"

	"github.com/gin-gonic/gin"
)

// GetSystemStatus reports the terminal id support uses to identify this install.
func (h *Handler) GetSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"terminal_id": utils.TerminalID(),
		"time":        h.now(),
	})
}

// --- GET: /api/system/incidents ---
func (h *Handler) GetIncidents(c *gin.Context) {
	c.JSON(http.StatusOK, h.Incidents.List())
}

// --- DELETE: /api/system/incidents ---
func (h *Handler) ClearIncidents(c *gin.Context) {
	h.Incidents.Clear()
	c.JSON(http.StatusOK, gin.H{"message": "Incident log cleared"})
}
