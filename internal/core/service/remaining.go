package service

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/acasal/gridboost2mqtt/internal/core/domain"
)

// RemainingTimeEstimator forward-simulates the battery from its current
// charge and predicts when it runs empty.
type RemainingTimeEstimator struct {
	Logger *zap.Logger
}

// estimateHorizonDays bounds the walk when net production keeps the
// battery full indefinitely.
const estimateHorizonDays = 14

// Estimate returns the minutes until the battery reaches empty, walking
// adjusted PV minus average load hour by hour. The current partial hour is
// scaled by its remaining fraction. Returns 0 when battery, load data or
// the forecast lookup is not yet available.
func (e *RemainingTimeEstimator) Estimate(now time.Time, battery domain.BatteryProfile,
	loads domain.HourlyCurve, ratios domain.RatioTable,
	forecastFor func(time.Time) domain.HourlyCurve) int {

	if battery.CapacityWh <= 0 || len(loads) == 0 || forecastFor == nil {
		return 0
	}

	remaining := battery.RemainingWh()
	if remaining <= 0 {
		return 0
	}

	minutes := 0.0
	t := now

	// Current partial hour, scaled to the time left before the boundary.
	boundary := t.Truncate(time.Hour).Add(time.Hour)
	fraction := boundary.Sub(t).Minutes() / 60
	net := e.netChangeWh(t, loads, ratios, forecastFor) * fraction
	remaining = math.Min(remaining+net, battery.CapacityWh)
	minutes += fraction * 60
	if remaining <= 0 {
		return backOut(minutes, remaining, net, fraction*60)
	}
	t = boundary

	for hour := 0; hour < estimateHorizonDays*domain.HoursPerDay; hour++ {
		net = e.netChangeWh(t, loads, ratios, forecastFor)
		remaining = math.Min(remaining+net, battery.CapacityWh)
		minutes += 60
		if remaining <= 0 {
			return backOut(minutes, remaining, net, 60)
		}
		t = t.Add(time.Hour)
	}

	e.Logger.Debug("battery time estimate hit horizon",
		zap.Int("days", estimateHorizonDays))
	return int(math.Round(minutes))
}

func (e *RemainingTimeEstimator) netChangeWh(t time.Time, loads domain.HourlyCurve,
	ratios domain.RatioTable, forecastFor func(time.Time) domain.HourlyCurve) float64 {

	hour := t.Hour()
	pv := float64(forecastFor(t).Get(hour, 0)) * ratios.Get(hour, 1.0)
	load := float64(loads.Get(hour, domain.DefaultLoadEstimateWatt))
	return pv - load
}

// backOut removes the overshot fraction of the final span. remaining and
// net are both negative here, so the correction is positive time removed.
func backOut(minutes, remaining, net, spanMinutes float64) int {
	if net < 0 {
		minutes -= remaining / net * spanMinutes
	}
	if minutes < 0 {
		return 0
	}
	return int(math.Round(minutes))
}
