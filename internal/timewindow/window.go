// Package timewindow converts user-local calendar periods into half-open UTC
// intervals for record queries. Local time is UTC plus a fixed signed hour
// offset shared by all users; IANA timezone rules and daylight saving are
// deliberately not modeled, so stored data never migrates between days when
// rules change.
package timewindow

import "time"

// Calculator derives UTC query windows for a fixed hour offset.
type Calculator struct {
	offsetHours int
}

// New constructs a Calculator for the given offset (local = UTC + offset).
func New(offsetHours int) Calculator {
	return Calculator{offsetHours: offsetHours}
}

// OffsetHours returns the configured offset.
func (c Calculator) OffsetHours() int { return c.offsetHours }

// offset returns the configured offset as a duration.
func (c Calculator) offset() time.Duration {
	return time.Duration(c.offsetHours) * time.Hour
}

// ToLocal shifts a UTC instant into user-local time.
func (c Calculator) ToLocal(utc time.Time) time.Time {
	return utc.UTC().Add(c.offset())
}

// LocalDate returns the user-local calendar date of a UTC instant.
func (c Calculator) LocalDate(utc time.Time) (year int, month time.Month, day int) {
	return c.ToLocal(utc).Date()
}

// Day returns the half-open UTC interval [start, end) covering the user-local
// calendar day. End is always exactly 24 hours after start.
func (c Calculator) Day(year int, month time.Month, day int) (start, end time.Time) {
	localMidnight := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	start = localMidnight.Add(-c.offset())
	end = start.Add(24 * time.Hour)
	return start, end
}

// Today returns the UTC interval for the current user-local calendar day.
func (c Calculator) Today(now time.Time) (start, end time.Time) {
	year, month, day := c.LocalDate(now)
	return c.Day(year, month, day)
}

// Month returns the half-open UTC interval covering the user-local calendar
// month along with the number of days in that month. December rolls over to
// January of the following year.
func (c Calculator) Month(year int, month time.Month) (start, end time.Time, days int) {
	localStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	var localNext time.Time
	if month == time.December {
		localNext = time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	} else {
		localNext = time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	}
	start = localStart.Add(-c.offset())
	end = localNext.Add(-c.offset())
	days = int(localNext.Sub(localStart) / (24 * time.Hour))
	return start, end, days
}
