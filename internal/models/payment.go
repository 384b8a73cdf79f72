package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentStatusPaid marks a confirmed payment row.
const PaymentStatusPaid = "paid"

// Payment is an append-only audit entry for a confirmed payment. Rows are
// never updated or deleted.
type Payment struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TelegramID int64 `gorm:"not null;index"` // Paying Telegram user ID.

	CreatedAt time.Time `gorm:"not null"` // Confirmation timestamp, UTC.

	Provider     string `gorm:"type:text;not null"`    // Payment provider name.
	Amount       int    `gorm:"not null"`              // Charged amount in provider units.
	Currency     string `gorm:"type:text;not null"`    // Provider currency code.
	PeriodMonths int    `gorm:"not null;default:1"`    // Purchased period length.
	Status       string `gorm:"type:text;not null"`    // Provider-reported status.

	ProviderPayload datatypes.JSON `gorm:"type:text"` // Opaque provider payload.
}
