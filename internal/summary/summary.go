// Package summary folds persisted meal records into calendar-aligned day and
// month reports. All range queries run against the UTC timestamp column; the
// receipt-local display timestamp is never consulted, so a mis-parsed receipt
// date cannot shift totals between days.
package summary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/calstars/calories-backend/internal/models"
	"github.com/calstars/calories-backend/internal/timewindow"
	"gorm.io/gorm"
)

// Periods accepted by the engine.
const (
	PeriodDay   = "day"
	PeriodMonth = "month"
)

// DayItem is a single record in a day summary.
type DayItem struct {
	ID   uint64 `json:"id"`
	Time string `json:"time"` // Local time of day, HH:MM.
	Kcal int    `json:"kcal"`
	Item string `json:"item"`
}

// DaySummary reports one user-local calendar day.
type DaySummary struct {
	DateISO   string    `json:"dateISO"`
	Total     int       `json:"total"`
	Goal      int       `json:"goal"`
	Remaining int       `json:"remaining"` // Clamped at zero.
	Items     []DayItem `json:"items"`
}

// MonthSummary reports one user-local calendar month.
type MonthSummary struct {
	YM        string  `json:"ym"` // YYYY-MM.
	Total     int     `json:"total"`
	AvgPerDay float64 `json:"avgPerDay"`
}

// Service computes summaries from stored meal records.
type Service struct {
	db   *gorm.DB
	calc timewindow.Calculator
}

// NewService constructs a Service.
func NewService(db *gorm.DB, calc timewindow.Calculator) *Service {
	return &Service{db: db, calc: calc}
}

// Goal returns the user's daily calorie goal, falling back to the default
// when no account row exists.
func (s *Service) Goal(ctx context.Context, telegramID int64) (int, error) {
	var user models.User
	errFind := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return models.DefaultDailyGoal, nil
		}
		return 0, fmt.Errorf("summary: load goal: %w", errFind)
	}
	if user.DailyGoal <= 0 {
		return models.DefaultDailyGoal, nil
	}
	return user.DailyGoal, nil
}

// Day summarizes the current user-local calendar day.
func (s *Service) Day(ctx context.Context, telegramID int64, now time.Time) (DaySummary, error) {
	goal, errGoal := s.Goal(ctx, telegramID)
	if errGoal != nil {
		return DaySummary{}, errGoal
	}

	year, month, day := s.calc.LocalDate(now)
	start, end := s.calc.Day(year, month, day)

	var rows []models.Meal
	if errFind := s.db.WithContext(ctx).
		Where("telegram_id = ? AND ts >= ? AND ts < ?", telegramID, start, end).
		Order("ts ASC").
		Find(&rows).Error; errFind != nil {
		return DaySummary{}, fmt.Errorf("summary: day query: %w", errFind)
	}

	total := 0
	items := make([]DayItem, 0, len(rows))
	for _, row := range rows {
		total += row.Calories
		items = append(items, DayItem{
			ID:   row.ID,
			Time: s.calc.ToLocal(row.TS).Format("15:04"),
			Kcal: row.Calories,
			Item: row.ItemName,
		})
	}

	remaining := goal - total
	if remaining < 0 {
		remaining = 0
	}

	return DaySummary{
		DateISO:   fmt.Sprintf("%04d-%02d-%02d", year, int(month), day),
		Total:     total,
		Goal:      goal,
		Remaining: remaining,
		Items:     items,
	}, nil
}

// Month summarizes the current user-local calendar month.
func (s *Service) Month(ctx context.Context, telegramID int64, now time.Time) (MonthSummary, error) {
	year, month, _ := s.calc.LocalDate(now)
	start, end, days := s.calc.Month(year, month)

	var total int64
	if errSum := s.db.WithContext(ctx).
		Model(&models.Meal{}).
		Where("telegram_id = ? AND ts >= ? AND ts < ?", telegramID, start, end).
		Select("COALESCE(SUM(calories), 0)").
		Scan(&total).Error; errSum != nil {
		return MonthSummary{}, fmt.Errorf("summary: month query: %w", errSum)
	}

	avg := 0.0
	if days > 0 {
		avg = float64(total) / float64(days)
	}

	return MonthSummary{
		YM:        fmt.Sprintf("%04d-%02d", year, int(month)),
		Total:     int(total),
		AvgPerDay: avg,
	}, nil
}
