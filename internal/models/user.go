package models

import "time"

// Plan values a user account can hold.
const (
	// PlanTrial is the time-boxed free plan granted at first sighting.
	PlanTrial = "trial"
	// PlanPro is the paid plan activated by a confirmed payment.
	PlanPro = "pro"
)

// DefaultDailyGoal is the calorie goal assigned to new users.
const DefaultDailyGoal = 2000

// TrialDuration is the free-access window granted at first sighting.
const TrialDuration = 7 * 24 * time.Hour

// User represents a tracker account keyed by its Telegram identity.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TelegramID int64 `gorm:"not null;uniqueIndex"` // Durable Telegram user ID.

	DailyGoal int `gorm:"not null;default:2000"` // Daily calorie goal.

	Plan string `gorm:"type:text;not null;default:'trial'"` // Subscription plan: trial or pro.

	// Plan timestamps are kept as ISO-8601 text so an unparseable value is
	// observable; the access policy treats parse failures as granted.
	TrialUntil string `gorm:"type:text"` // Trial expiry, RFC 3339.
	RenewsAt   string `gorm:"type:text"` // Paid-period renewal time, RFC 3339.

	PaymentsProvider string `gorm:"type:text"` // Payment provider reference.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
