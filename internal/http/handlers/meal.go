package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/calstars/calories-backend/internal/ai"
	"github.com/calstars/calories-backend/internal/auth"
	"github.com/calstars/calories-backend/internal/ingest"
	"github.com/gin-gonic/gin"
)

// MealHandler serves the manual and free-text meal entry paths.
type MealHandler struct {
	store     *ingest.Store
	estimator ai.Estimator
}

// NewMealHandler constructs a MealHandler.
func NewMealHandler(store *ingest.Store, estimator ai.Estimator) *MealHandler {
	return &MealHandler{store: store, estimator: estimator}
}

type addMealRequest struct {
	Calories    int    `json:"calories"`
	Description string `json:"description"`
}

// Add stores a hand-entered meal.
func (h *MealHandler) Add(c *gin.Context) {
	var req addMealRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	telegramID := auth.TelegramID(c)
	if errAdd := h.store.AddManual(c.Request.Context(), telegramID, req.Calories, req.Description); errAdd != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save meal failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type aiAddRequest struct {
	Text string `json:"text"`
}

// AIAdd estimates calories for a free-text description and stores every
// recognized item.
func (h *MealHandler) AIAdd(c *gin.Context) {
	var req aiAddRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	telegramID := auth.TelegramID(c)
	estimate := h.estimator.EstimateText(c.Request.Context(), text)
	if errAdd := h.store.AddEstimate(c.Request.Context(), telegramID, text, estimate); errAdd != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save meal failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"items":      estimate.Items,
		"total_kcal": estimate.TotalKcal,
	})
}

// Delete removes one of the caller's meals. Unknown IDs and meals owned by
// someone else both report deleted: 0.
func (h *MealHandler) Delete(c *gin.Context) {
	mealID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meal id"})
		return
	}
	telegramID := auth.TelegramID(c)
	deleted, errDelete := h.store.Delete(c.Request.Context(), mealID, telegramID)
	if errDelete != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete meal failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "deleted": deleted})
}
