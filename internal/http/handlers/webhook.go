package handlers

import (
	"net/http"
	"time"

	"github.com/calstars/calories-backend/internal/models"
	"github.com/calstars/calories-backend/internal/telegram"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// proPeriod is the paid period granted per confirmed payment.
const proPeriod = 30 * 24 * time.Hour

// paymentProviderStars names Telegram Stars in stored rows.
const paymentProviderStars = "stars"

// WebhookHandler consumes Bot API updates delivered to the payment webhook.
type WebhookHandler struct {
	db *gorm.DB
	tg *telegram.Client
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(db *gorm.DB, tg *telegram.Client) *WebhookHandler {
	return &WebhookHandler{db: db, tg: tg}
}

// Post handles one webhook update. Updates that carry neither a checkout
// query nor a payment confirmation are acknowledged and dropped; Telegram
// retries on non-200 answers, so the handler only errors when persistence
// fails.
func (h *WebhookHandler) Post(c *gin.Context) {
	var update telegram.Update
	if errBind := c.ShouldBindJSON(&update); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
		return
	}

	if update.PreCheckoutQuery != nil {
		if errAnswer := h.tg.AnswerPreCheckoutQuery(c.Request.Context(), update.PreCheckoutQuery.ID, true); errAnswer != nil {
			log.WithError(errAnswer).Error("webhook: pre-checkout answer failed")
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if update.Message != nil && update.Message.SuccessfulPayment != nil && update.Message.From != nil {
		if errConfirm := h.confirmPayment(c, update.Message.From.ID, update.Message.SuccessfulPayment); errConfirm != nil {
			log.WithError(errConfirm).Error("webhook: payment confirmation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "payment confirmation failed"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// confirmPayment switches the payer to PRO for one period and appends the
// audit row, atomically.
func (h *WebhookHandler) confirmPayment(c *gin.Context, telegramID int64, payment *telegram.SuccessfulPayment) error {
	now := time.Now().UTC()
	renewsAt := now.Add(proPeriod).Format(time.RFC3339Nano)

	return h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		user := models.User{
			TelegramID:       telegramID,
			DailyGoal:        models.DefaultDailyGoal,
			Plan:             models.PlanPro,
			RenewsAt:         renewsAt,
			PaymentsProvider: paymentProviderStars,
		}
		if errUpsert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "telegram_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"plan", "renews_at", "payments_provider", "updated_at"}),
		}).Create(&user).Error; errUpsert != nil {
			return errUpsert
		}

		row := models.Payment{
			TelegramID:      telegramID,
			CreatedAt:       now,
			Provider:        paymentProviderStars,
			Amount:          payment.TotalAmount,
			Currency:        payment.Currency,
			PeriodMonths:    1,
			Status:          models.PaymentStatusPaid,
			ProviderPayload: datatypes.JSON(payment.Raw()),
		}
		return tx.Create(&row).Error
	})
}
