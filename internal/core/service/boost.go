package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/acasal/gridboost2mqtt/internal/core/domain"
	"github.com/acasal/gridboost2mqtt/internal/core/port"
)

// BoostSimulator finds the minimum starting SoC that keeps the battery
// above the configured floor through the un-boosted part of the day.
type BoostSimulator struct {
	EfficiencyPct       float64
	MinimumSoCPct       int
	DontBoostBeforeHour int
	Logger              *zap.Logger
}

// RequiredBoostSoC walks hours 6 through 23 on the adjusted PV and load
// curves, tracking the delta-SoC trajectory from zero, and derives the
// starting SoC that would have kept the trajectory above the minimum.
// Returns nil when the forecast is not ready (empty or all-zero PV) or the
// local hour is too early for tomorrow's forecast to be trusted.
func (s *BoostSimulator) RequiredBoostSoC(pv domain.HourlyCurve, loads domain.HourlyCurve,
	battery domain.BatteryProfile, now time.Time) *uint {

	if pv.IsZero() {
		s.Logger.Debug("boost simulation deferred: no PV forecast data yet")
		return nil
	}
	if now.Hour() < s.DontBoostBeforeHour {
		s.Logger.Debug("boost simulation deferred: too early",
			zap.Int("hour", now.Hour()), zap.Int("not_before", s.DontBoostBeforeHour))
		return nil
	}

	whPerPercent := battery.CapacityWh / 100

	// First pass: delta-SoC trajectory starting from zero. The most
	// negative point is how far the battery would dip without a boost.
	running := 0.0
	lowest := 0.0
	for hour := s.DontBoostBeforeHour; hour < domain.HoursPerDay; hour++ {
		loadWh := float64(loads.Get(hour, domain.DefaultLoadEstimateWatt)) * 100 / s.EfficiencyPct
		pvWh := float64(pv.Get(hour, 0))
		ending := math.Min(running+pvWh-loadWh, battery.CapacityWh)
		if delta := ending / whPerPercent; delta < lowest {
			lowest = delta
		}
		running = ending
	}

	required := math.Ceil(-lowest + float64(s.MinimumSoCPct))
	if required < 0 {
		required = 0
	}
	if required > domain.MaxBoostSoCPercent {
		required = domain.MaxBoostSoCPercent
	}
	boost := uint(required)

	s.verify(boost, pv, loads, battery)

	return &boost
}

// verify re-runs the walk from the computed boost and logs the trajectory
// as a table. Diagnostic only, the returned value is already decided.
func (s *BoostSimulator) verify(boost uint, pv domain.HourlyCurve, loads domain.HourlyCurve,
	battery domain.BatteryProfile) {

	whPerPercent := battery.CapacityWh / 100
	running := float64(boost) * whPerPercent

	var table strings.Builder
	table.WriteString(fmt.Sprintf("boost verification, start SoC %d%%\n", boost))
	table.WriteString("hour | start Wh |  load Wh |    pv Wh |   end Wh |  SoC\n")

	for hour := s.DontBoostBeforeHour; hour < domain.HoursPerDay; hour++ {
		loadWh := float64(loads.Get(hour, domain.DefaultLoadEstimateWatt)) * 100 / s.EfficiencyPct
		pvWh := float64(pv.Get(hour, 0))
		starting := running
		running = math.Min(starting+pvWh-loadWh, battery.CapacityWh)
		soc := running / whPerPercent
		if soc > 100 {
			soc = 100
		}
		flag := ""
		if soc < float64(s.MinimumSoCPct) {
			flag = " <-- below minimum"
		}
		table.WriteString(fmt.Sprintf("  %2d | %8.0f | %8.0f | %8.0f | %8.0f | %3.0f%%%s\n",
			hour, starting, loadWh, pvWh, running, soc, flag))
	}
	s.Logger.Debug(table.String())
}

// ensure interface compliance
var _ port.BoostLogic = (*BoostSimulator)(nil)
