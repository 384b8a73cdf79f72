// Package ingest persists meal records produced by the manual, free-text and
// photo entry paths.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/calstars/calories-backend/internal/ai"
	"github.com/calstars/calories-backend/internal/models"
	"github.com/calstars/calories-backend/internal/timewindow"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxDescriptionLength bounds the stored free-text description.
const maxDescriptionLength = 240

// Used-time markers reported by the photo path.
const (
	// UsedTimeNow marks records stamped with the capture instant.
	UsedTimeNow = "now"
	// UsedTimeReceipt marks records stamped from a printed receipt date.
	UsedTimeReceipt = "receipt"
)

// IngestedItem reports one persisted record back to the caller.
type IngestedItem struct {
	Name  string `json:"name"`
	Grams int    `json:"grams"`
	Kcal  int    `json:"kcal"`
	TS    string `json:"ts"`
}

// Store writes meal records.
type Store struct {
	db   *gorm.DB
	calc timewindow.Calculator
	now  func() time.Time
}

// NewStore constructs a Store.
func NewStore(db *gorm.DB, calc timewindow.Calculator) *Store {
	return &Store{db: db, calc: calc, now: time.Now}
}

// ensureUser lazily creates a bare account row so meals entered before the
// first authenticated visit still have an owner. Existing rows are untouched.
func (s *Store) ensureUser(ctx context.Context, tx *gorm.DB, telegramID int64) error {
	user := models.User{
		TelegramID: telegramID,
		DailyGoal:  models.DefaultDailyGoal,
		Plan:       models.PlanTrial,
	}
	if errCreate := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoNothing: true,
	}).Create(&user).Error; errCreate != nil {
		return fmt.Errorf("ingest: ensure user: %w", errCreate)
	}
	return nil
}

// AddManual stores a hand-entered meal.
func (s *Store) AddManual(ctx context.Context, telegramID int64, calories int, description string) error {
	if calories < 0 {
		calories = 0
	}
	ts := s.now().UTC()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errEnsure := s.ensureUser(ctx, tx, telegramID); errEnsure != nil {
			return errEnsure
		}
		meal := models.Meal{
			TelegramID:  telegramID,
			TS:          ts,
			Calories:    calories,
			Description: truncate(description, maxDescriptionLength),
			ItemName:    truncate(description, maxDescriptionLength),
			Source:      models.SourceManual,
		}
		if errCreate := tx.WithContext(ctx).Create(&meal).Error; errCreate != nil {
			return fmt.Errorf("ingest: insert manual meal: %w", errCreate)
		}
		return nil
	})
}

// AddEstimate stores every item of a free-text estimation. All rows share the
// capture instant and the verbatim AI payload; the insert is atomic.
func (s *Store) AddEstimate(ctx context.Context, telegramID int64, text string, estimate ai.Estimate) error {
	ts := s.now().UTC()
	raw := marshalRaw(estimate)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errEnsure := s.ensureUser(ctx, tx, telegramID); errEnsure != nil {
			return errEnsure
		}
		for _, item := range estimate.Items {
			meal := models.Meal{
				TelegramID:  telegramID,
				TS:          ts,
				Calories:    item.Kcal,
				Description: truncate(text, maxDescriptionLength),
				ItemName:    item.Name,
				Grams:       item.Grams,
				Source:      models.SourceVision,
				RawJSON:     raw,
			}
			if errCreate := tx.WithContext(ctx).Create(&meal).Error; errCreate != nil {
				return fmt.Errorf("ingest: insert estimated meal: %w", errCreate)
			}
		}
		return nil
	})
}

// AddPhotoItems stores every item recognized on a photo. Receipt photos with
// a parseable printed timestamp are stamped at that local instant converted
// to UTC; anything else falls back to the capture instant, so a malformed
// receipt date never blocks ingestion. The insert is atomic across items.
func (s *Store) AddPhotoItems(ctx context.Context, telegramID int64, kind ai.PhotoKind, result ai.VisionResult, photoURL string) ([]IngestedItem, string, error) {
	baseTS := s.now().UTC()
	usedTime := UsedTimeNow
	var localTS *string

	if kind == ai.PhotoReceipt && result.Date != "" && result.Time != "" {
		if parsed, ok := s.parseReceiptTimestamp(result.Date, result.Time); ok {
			baseTS = parsed
			usedTime = UsedTimeReceipt
			display := result.Date + " " + result.Time
			localTS = &display
		}
	}

	source := models.SourceVision
	if kind == ai.PhotoReceipt {
		source = models.SourceOCR
	}
	raw := marshalRaw(result)

	items := make([]IngestedItem, 0, len(result.Items))
	errTx := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if errEnsure := s.ensureUser(ctx, tx, telegramID); errEnsure != nil {
			return errEnsure
		}
		for _, item := range result.Items {
			name := item.Name
			if name == "" {
				name = "Dish"
			}
			meal := models.Meal{
				TelegramID:  telegramID,
				TS:          baseTS,
				Calories:    item.Kcal,
				Description: "from photo",
				ItemName:    name,
				Grams:       item.Grams,
				Source:      source,
				PhotoURL:    photoURL,
				RawJSON:     raw,
				LocalTS:     localTS,
			}
			if errCreate := tx.WithContext(ctx).Create(&meal).Error; errCreate != nil {
				return fmt.Errorf("ingest: insert photo meal: %w", errCreate)
			}
			items = append(items, IngestedItem{
				Name:  name,
				Grams: item.Grams,
				Kcal:  item.Kcal,
				TS:    baseTS.Format(time.RFC3339Nano),
			})
		}
		return nil
	})
	if errTx != nil {
		return nil, "", errTx
	}
	return items, usedTime, nil
}

// Delete removes a meal scoped to its owner. Deleting someone else's meal or
// a missing ID affects zero rows and is not an error.
func (s *Store) Delete(ctx context.Context, mealID uint64, telegramID int64) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("id = ? AND telegram_id = ?", mealID, telegramID).
		Delete(&models.Meal{})
	if res.Error != nil {
		return 0, fmt.Errorf("ingest: delete meal: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// parseReceiptTimestamp interprets a printed receipt date and time as a
// user-local instant and converts it to UTC.
func (s *Store) parseReceiptTimestamp(date, clock string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 15:04:05"} {
		if local, errParse := time.Parse(layout, date+" "+clock); errParse == nil {
			offset := time.Duration(s.calc.OffsetHours()) * time.Hour
			return local.Add(-offset), true
		}
	}
	return time.Time{}, false
}

// marshalRaw serializes an AI payload for the audit column.
func marshalRaw(payload any) datatypes.JSON {
	raw, errMarshal := json.Marshal(payload)
	if errMarshal != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

// truncate limits a string to n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
