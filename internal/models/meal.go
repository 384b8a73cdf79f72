package models

import (
	"time"

	"gorm.io/datatypes"
)

// Meal source tags.
const (
	// SourceManual marks a meal entered by hand.
	SourceManual = "manual"
	// SourceVision marks a meal derived from AI text or photo analysis.
	SourceVision = "vision"
	// SourceOCR marks a meal derived from a receipt photo.
	SourceOCR = "ocr"
)

// Meal records a single consumed item for a user.
type Meal struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TelegramID int64 `gorm:"not null;index"` // Owning Telegram user ID.

	// TS is the UTC capture instant and the only field windowing queries use.
	TS time.Time `gorm:"not null;index"` // Record timestamp, UTC.

	Calories int `gorm:"not null;default:0"` // Estimated calories.

	Description string `gorm:"type:text"` // Free-text description.
	ItemName    string `gorm:"type:text"` // Item display name.
	Grams       int    `gorm:"not null;default:0"` // Estimated portion weight.

	Source string `gorm:"type:text;not null;default:'manual'"` // Origin: manual, vision or ocr.

	PhotoURL string `gorm:"type:text"` // Served path of the source photo, if any.

	RawJSON datatypes.JSON `gorm:"type:text"` // Verbatim AI response kept for audit.

	// LocalTS preserves a receipt-printed date for display only; it is never
	// consulted by aggregation.
	LocalTS *string `gorm:"type:text"` // Receipt-local timestamp string.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
