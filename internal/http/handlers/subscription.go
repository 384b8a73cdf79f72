package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/calstars/calories-backend/internal/access"
	"github.com/calstars/calories-backend/internal/auth"
	"github.com/calstars/calories-backend/internal/models"
	"github.com/calstars/calories-backend/internal/telegram"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Telegram Stars invoice for one month of PRO.
const (
	invoiceTitle       = "Calories PRO — 1 month"
	invoiceDescription = "Photo and receipt recognition for 30 days"
	invoiceCurrency    = "XTR"
	invoicePriceStars  = 599
)

// SubscriptionHandler serves subscription status and invoice creation.
type SubscriptionHandler struct {
	db *gorm.DB
	tg *telegram.Client
}

// NewSubscriptionHandler constructs a SubscriptionHandler.
func NewSubscriptionHandler(db *gorm.DB, tg *telegram.Client) *SubscriptionHandler {
	return &SubscriptionHandler{db: db, tg: tg}
}

// Status reports the caller's plan, stored expiry timestamps and remaining
// trial days.
func (h *SubscriptionHandler) Status(c *gin.Context) {
	telegramID := auth.TelegramID(c)

	var user models.User
	errFind := h.db.WithContext(c.Request.Context()).
		Where("telegram_id = ?", telegramID).
		First(&user).Error
	if errFind != nil && !errors.Is(errFind, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load account failed"})
		return
	}

	var trialDaysLeft *int
	if days, ok := access.TrialDaysLeft(user, time.Now().UTC()); ok {
		trialDaysLeft = &days
	}
	c.JSON(http.StatusOK, gin.H{
		"plan":            user.Plan,
		"trial_until":     user.TrialUntil,
		"renews_at":       user.RenewsAt,
		"trial_days_left": trialDaysLeft,
	})
}

// Create issues a Telegram Stars invoice link for one month of PRO.
func (h *SubscriptionHandler) Create(c *gin.Context) {
	telegramID := auth.TelegramID(c)
	if telegramID == auth.AnonymousID {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return
	}

	payload := fmt.Sprintf("sub_monthly:%d:%d", telegramID, time.Now().Unix())
	link, errCreate := h.tg.CreateInvoiceLink(c.Request.Context(), invoiceTitle, invoiceDescription, payload, invoiceCurrency, []telegram.LabeledPrice{
		{Label: "Monthly PRO", Amount: invoicePriceStars},
	})
	if errCreate != nil {
		if errors.Is(errCreate, telegram.ErrBotTokenNotSet) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server misconfigured"})
			return
		}
		log.WithError(errCreate).Error("subscription: invoice creation failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "invoice creation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice_link": link})
}
