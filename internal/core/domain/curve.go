package domain

import "time"

const (
	HoursPerDay = 24
	DateFormat  = "2006-01-02"
)

// HourlyCurve maps an hour of day (0-23) to an integer quantity
// (watt-hours for energy, watts for load).
type HourlyCurve map[int]int

// RatioTable maps an hour of day (0-23) to a dimensionless correction factor.
type RatioTable map[int]float64

// ForecastArchive maps a calendar date (YYYY-MM-DD) to an hourly PV curve.
type ForecastArchive map[string]HourlyCurve

// HistoryArchive maps a calendar date to hourly mean telemetry values.
type HistoryArchive map[string]HourlyCurve

func NewHourlyCurve(fill int) HourlyCurve {
	c := make(HourlyCurve, HoursPerDay)
	for hour := 0; hour < HoursPerDay; hour++ {
		c[hour] = fill
	}
	return c
}

func NewRatioTable(fill float64) RatioTable {
	t := make(RatioTable, HoursPerDay)
	for hour := 0; hour < HoursPerDay; hour++ {
		t[hour] = fill
	}
	return t
}

// Get returns the value for hour, or def when the hour is missing.
func (c HourlyCurve) Get(hour, def int) int {
	if v, ok := c[hour]; ok {
		return v
	}
	return def
}

func (t RatioTable) Get(hour int, def float64) float64 {
	if v, ok := t[hour]; ok {
		return v
	}
	return def
}

// Total sums all hours of the curve.
func (c HourlyCurve) Total() int {
	total := 0
	for _, v := range c {
		total += v
	}
	return total
}

// IsZero reports whether the curve is empty or every hour is zero.
func (c HourlyCurve) IsZero() bool {
	for _, v := range c {
		if v != 0 {
			return false
		}
	}
	return true
}

// ForDate returns the curve stored under the date key of t, or an empty
// curve when no entry exists.
func (a ForecastArchive) ForDate(t time.Time) HourlyCurve {
	return a[t.Format(DateFormat)]
}

// Prune drops archive entries older than maxDays before today.
func (a ForecastArchive) Prune(now time.Time, maxDays int) {
	cutoff := now.AddDate(0, 0, -maxDays).Format(DateFormat)
	for date := range a {
		if date < cutoff {
			delete(a, date)
		}
	}
}
