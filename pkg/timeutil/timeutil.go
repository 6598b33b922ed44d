// Package timeutil provides timezone utilities for the school's local time
// (Almaty, UTC+5). Domain timestamps are stored in UTC; local time is used for
// presentation (certificate dates, receipts) and notification timing.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// SchoolTZ is the school's local timezone (UTC+5, no DST).
// Kazakhstan abolished DST in 2005, so this is constant year-round.
var SchoolTZ = time.FixedZone("Asia/Almaty", 5*60*60)

// Now returns the current time in school local timezone.
func Now() time.Time {
	return time.Now().In(SchoolTZ)
}

// ToLocal converts a time to school local timezone.
func ToLocal(t time.Time) time.Time {
	return t.In(SchoolTZ)
}

// ToUTC converts a time to UTC.
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// Date creates a time in school local timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, SchoolTZ)
}

// DateTime creates a time in school local timezone with the given date and time.
func DateTime(year, month, day, hour, min, sec int) time.Time {
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, SchoolTZ)
}

// StartOfDay returns the start of the day (00:00:00) in school local timezone.
func StartOfDay(t time.Time) time.Time {
	local := ToLocal(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, SchoolTZ)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in school local timezone.
func EndOfDay(t time.Time) time.Time {
	local := ToLocal(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, SchoolTZ)
}

// StartOfMonth returns the start of the month in school local timezone.
func StartOfMonth(t time.Time) time.Time {
	local := ToLocal(t)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, SchoolTZ)
}

// EndOfMonth returns the end of the month in school local timezone.
func EndOfMonth(t time.Time) time.Time {
	start := StartOfMonth(t)
	return EndOfDay(start.AddDate(0, 1, -1))
}

// IsToday checks if the given time is today in school local timezone.
func IsToday(t time.Time) bool {
	return IsSameDay(t, Now())
}

// IsSameDay checks if two times are on the same day in school local timezone.
func IsSameDay(t1, t2 time.Time) bool {
	l1, l2 := ToLocal(t1), ToLocal(t2)
	return l1.Year() == l2.Year() && l1.YearDay() == l2.YearDay()
}

// DaysSince calculates the number of days since the given time.
func DaysSince(t time.Time) int {
	now := StartOfDay(Now())
	then := StartOfDay(t)
	duration := now.Sub(then)
	return int(duration.Hours() / 24)
}

// DaysBetween calculates the number of days between two times.
func DaysBetween(t1, t2 time.Time) int {
	l1 := StartOfDay(t1)
	l2 := StartOfDay(t2)
	duration := l2.Sub(l1)
	days := int(duration.Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// Common date/time formats.
const (
	// FormatDate is the standard date format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatTime is the standard time format (HH:MM).
	FormatTime = "15:04"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatDateTimeSeconds includes seconds.
	FormatDateTimeSeconds = "2006-01-02 15:04:05"
	// FormatRussianDate is the Russian date format (DD.MM.YYYY).
	FormatRussianDate = "02.01.2006"
	// FormatHumanDate is a human-readable format used on certificates.
	FormatHumanDate = "2 January 2006"
)

// FormatLocal formats a time in school local timezone with the given layout.
func FormatLocal(t time.Time, layout string) string {
	return ToLocal(t).Format(layout)
}

// FormatDateStr formats a time as a date string (YYYY-MM-DD) in school local timezone.
func FormatDateStr(t time.Time) string {
	return FormatLocal(t, FormatDate)
}

// FormatDateTimeStr formats a time as datetime string in school local timezone.
func FormatDateTimeStr(t time.Time) string {
	return FormatLocal(t, FormatDateTime)
}

// FormatRussian formats a time in Russian format (DD.MM.YYYY).
func FormatRussian(t time.Time) string {
	return FormatLocal(t, FormatRussianDate)
}

// FormatRelative returns a human-readable relative time string.
func FormatRelative(t time.Time) string {
	now := Now()
	local := ToLocal(t)
	duration := now.Sub(local)

	if duration < 0 {
		duration = -duration
		return formatFutureDuration(duration)
	}

	return formatPastDuration(duration)
}

func formatPastDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "только что"
	case d < time.Hour:
		mins := int(d.Minutes())
		return fmt.Sprintf("%d мин назад", mins)
	case d < 24*time.Hour:
		hours := int(d.Hours())
		return fmt.Sprintf("%d ч назад", hours)
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "вчера"
		}
		return fmt.Sprintf("%d дн назад", days)
	case d < 30*24*time.Hour:
		weeks := int(d.Hours() / 24 / 7)
		return fmt.Sprintf("%d нед назад", weeks)
	default:
		months := int(d.Hours() / 24 / 30)
		if months < 12 {
			return fmt.Sprintf("%d мес назад", months)
		}
		years := months / 12
		return fmt.Sprintf("%d г назад", years)
	}
}

func formatFutureDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "сейчас"
	case d < time.Hour:
		mins := int(d.Minutes())
		return fmt.Sprintf("через %d мин", mins)
	case d < 24*time.Hour:
		hours := int(d.Hours())
		return fmt.Sprintf("через %d ч", hours)
	default:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "завтра"
		}
		return fmt.Sprintf("через %d дн", days)
	}
}

// ParseLocal parses a time string in school local timezone.
func ParseLocal(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, SchoolTZ)
}

// ParseDateLocal parses a date string (YYYY-MM-DD) in school local timezone.
func ParseDateLocal(value string) (time.Time, error) {
	return ParseLocal(FormatDate, value)
}

// Notification timing helpers.

// IsSafeNotificationTime checks if it's appropriate to send notifications (9:00-22:00).
func IsSafeNotificationTime(t time.Time) bool {
	local := ToLocal(t)
	hour := local.Hour()
	return hour >= 9 && hour < 22
}

// NextSafeNotificationTime returns the next time when notifications are appropriate.
func NextSafeNotificationTime(t time.Time) time.Time {
	local := ToLocal(t)
	hour := local.Hour()

	if hour < 9 {
		// Before 9 AM - return 9 AM today
		return DateTime(local.Year(), int(local.Month()), local.Day(), 9, 0, 0)
	} else if hour >= 22 {
		// After 10 PM - return 9 AM tomorrow
		tomorrow := local.AddDate(0, 0, 1)
		return DateTime(tomorrow.Year(), int(tomorrow.Month()), tomorrow.Day(), 9, 0, 0)
	}

	// Already in safe time window
	return local
}
