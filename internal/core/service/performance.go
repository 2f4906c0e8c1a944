package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/acasal/gridboost2mqtt/internal/core/domain"
)

// PerformanceRatioModel computes, per hour of day, a correction factor
// between forecast and observed PV production over a window of recent days.
type PerformanceRatioModel struct {
	MaxDays                int
	SaturationThresholdPct int
	Logger                 *zap.Logger
}

// Compute builds the ratio table from the last MaxDays days ending
// yesterday. A day missing from any of the three archives is skipped
// entirely. Within a usable day, an hour contributes actual/forecast only
// when there was forecast production and the battery was not saturated;
// every other hour contributes 1.0.
func (m *PerformanceRatioModel) Compute(now time.Time,
	forecasts domain.ForecastArchive, soc domain.HistoryArchive,
	actualPV domain.HistoryArchive) domain.RatioTable {

	sums := make(map[int]float64, domain.HoursPerDay)
	usableDays := 0

	for d := 1; d <= m.MaxDays; d++ {
		date := now.AddDate(0, 0, -d).Format(domain.DateFormat)

		fcDay, okF := forecasts[date]
		socDay, okS := soc[date]
		pvDay, okP := actualPV[date]
		if !okF || !okS || !okP {
			continue
		}
		usableDays++

		for hour := 0; hour < domain.HoursPerDay; hour++ {
			ratio := 1.0
			fc, okF := fcDay[hour]
			socHour, okS := socDay[hour]
			actual, okA := pvDay[hour]
			if okF && okS && okA && fc > 0 && socHour < m.SaturationThresholdPct {
				ratio = float64(actual) / float64(fc)
			}
			sums[hour] += ratio
		}
	}

	if usableDays == 0 {
		m.Logger.Debug("performance ratios: no usable history, defaulting to 1.0")
		return domain.NewRatioTable(1.0)
	}

	table := make(domain.RatioTable, domain.HoursPerDay)
	for hour := 0; hour < domain.HoursPerDay; hour++ {
		table[hour] = sums[hour] / float64(usableDays)
	}
	m.Logger.Debug("performance ratios computed", zap.Int("usable_days", usableDays))
	return table
}
