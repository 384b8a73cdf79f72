package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calstars/calories-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnonymousID is the sentinel identity used when authentication is not
// required and no valid initData is present. It never gets a user row.
const AnonymousID int64 = 0

// ErrBotTokenRequired indicates strict authentication is enabled without a
// configured bot token. This is a deployment error, not a request error.
var ErrBotTokenRequired = errors.New("auth: bot token required when require-auth is enabled")

// Resolver validates session payloads and provisions first-time users.
type Resolver struct {
	db          *gorm.DB
	botToken    string
	requireAuth bool
	now         func() time.Time
}

// NewResolver constructs a Resolver.
func NewResolver(db *gorm.DB, botToken string, requireAuth bool) *Resolver {
	return &Resolver{db: db, botToken: botToken, requireAuth: requireAuth, now: time.Now}
}

// Resolve turns an initData payload into a Telegram user ID. An empty or
// invalid payload yields the anonymous identity unless strict authentication
// is enabled, in which case it fails with ErrInvalidInitData.
func (r *Resolver) Resolve(ctx context.Context, initData string) (int64, error) {
	if r.requireAuth && r.botToken == "" {
		return 0, ErrBotTokenRequired
	}

	if initData != "" {
		id, errVerify := VerifyInitData(initData, r.botToken)
		if errVerify == nil {
			if errProvision := r.provision(ctx, id); errProvision != nil {
				return 0, errProvision
			}
			return id, nil
		}
		if r.requireAuth {
			return 0, ErrInvalidInitData
		}
	} else if r.requireAuth {
		return 0, ErrInvalidInitData
	}

	return AnonymousID, nil
}

// provision inserts a trial user row on first sighting. The insert is a no-op
// when the row exists, so an established trial start is never overwritten.
func (r *Resolver) provision(ctx context.Context, telegramID int64) error {
	now := r.now().UTC()
	user := models.User{
		TelegramID: telegramID,
		DailyGoal:  models.DefaultDailyGoal,
		Plan:       models.PlanTrial,
		TrialUntil: now.Add(models.TrialDuration).Format(time.RFC3339Nano),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if errCreate := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoNothing: true,
	}).Create(&user).Error; errCreate != nil {
		return fmt.Errorf("auth: provision user: %w", errCreate)
	}
	return nil
}
