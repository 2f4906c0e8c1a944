package service

import (
	"math"

	"go.uber.org/zap"

	"github.com/acasal/gridboost2mqtt/internal/core/domain"
)

// LoadAverager computes the per-hour-of-day mean household load from
// recorded telemetry.
type LoadAverager struct {
	DefaultLoadWatt int
	Logger          *zap.Logger
}

// Compute takes per-day hourly load means and produces a flat average per
// hour bucket over all (day, hour) samples. Hours with no samples fall back
// to DefaultLoadWatt.
func (la *LoadAverager) Compute(history domain.HistoryArchive) domain.HourlyCurve {

	sums := make(map[int]int, domain.HoursPerDay)
	counts := make(map[int]int, domain.HoursPerDay)

	for _, day := range history {
		for hour, watts := range day {
			sums[hour] += watts
			counts[hour]++
		}
	}

	curve := make(domain.HourlyCurve, domain.HoursPerDay)
	for hour := 0; hour < domain.HoursPerDay; hour++ {
		if counts[hour] > 0 {
			curve[hour] = int(math.Round(float64(sums[hour]) / float64(counts[hour])))
		} else {
			curve[hour] = la.DefaultLoadWatt
		}
	}
	la.Logger.Debug("load averages computed", zap.Int("days", len(history)))
	return curve
}
