package handlers

import (
	"net/http"
	"time"

	"github.com/calstars/calories-backend/internal/auth"
	"github.com/calstars/calories-backend/internal/summary"
	"github.com/gin-gonic/gin"
)

// SummaryHandler serves day and month calorie summaries.
type SummaryHandler struct {
	svc *summary.Service
}

// NewSummaryHandler constructs a SummaryHandler.
func NewSummaryHandler(svc *summary.Service) *SummaryHandler {
	return &SummaryHandler{svc: svc}
}

// Get dispatches on the period query parameter.
func (h *SummaryHandler) Get(c *gin.Context) {
	telegramID := auth.TelegramID(c)
	now := time.Now().UTC()

	switch c.DefaultQuery("period", summary.PeriodDay) {
	case summary.PeriodDay:
		day, errDay := h.svc.Day(c.Request.Context(), telegramID, now)
		if errDay != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "load summary failed"})
			return
		}
		c.JSON(http.StatusOK, day)
	case summary.PeriodMonth:
		month, errMonth := h.svc.Month(c.Request.Context(), telegramID, now)
		if errMonth != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "load summary failed"})
			return
		}
		c.JSON(http.StatusOK, month)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "period must be 'day' or 'month'"})
	}
}
