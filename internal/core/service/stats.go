package service

import (
	"math"
	"time"
)

// DayLabel renders a date as the weekday name shown in the snapshot.
func DayLabel(t time.Time) string {
	return t.Weekday().String()
}

// ExhaustionTime converts a minutes-until-empty estimate into an absolute
// timestamp. An estimate of 0 means unknown and yields an empty string.
func ExhaustionTime(now time.Time, minutes int) string {
	if minutes <= 0 {
		return ""
	}
	return now.Add(time.Duration(minutes) * time.Minute).Format(time.RFC3339)
}

// HoursFromMinutes renders a minute count as fractional hours with one
// decimal, the unit the time-remaining sensor reports.
func HoursFromMinutes(minutes int) float64 {
	return math.Round(float64(minutes)/60*10) / 10
}
