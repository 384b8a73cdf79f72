package handlers

import (
	"net/http"

	"github.com/calstars/calories-backend/internal/auth"
	"github.com/calstars/calories-backend/internal/summary"
	"github.com/gin-gonic/gin"
)

// ProfileHandler serves account profile data.
type ProfileHandler struct {
	svc      *summary.Service
	tzOffset int
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(svc *summary.Service, tzOffset int) *ProfileHandler {
	return &ProfileHandler{svc: svc, tzOffset: tzOffset}
}

// Get returns the user's daily goal and the deployment timezone offset.
func (h *ProfileHandler) Get(c *gin.Context) {
	telegramID := auth.TelegramID(c)

	goal, errGoal := h.svc.Goal(c.Request.Context(), telegramID)
	if errGoal != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load profile failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"goal": goal, "tzOffset": h.tzOffset})
}
