package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/acasal/gridboost2mqtt/internal/core/domain"
)

func testEstimator() *RemainingTimeEstimator {
	return &RemainingTimeEstimator{Logger: zap.NewNop()}
}

func noForecast(time.Time) domain.HourlyCurve {
	return nil
}

func TestEstimateUnknownWhenUninitialized(t *testing.T) {
	est := testEstimator()
	battery := domain.BatteryProfile{CapacityWh: 5000, StateOfCharge: 1}
	loads := constantLoad(1000)
	ratios := domain.NewRatioTable(1.0)

	assert.Equal(t, 0, est.Estimate(noon(), domain.BatteryProfile{}, loads, ratios, noForecast))
	assert.Equal(t, 0, est.Estimate(noon(), battery, nil, ratios, noForecast))
	assert.Equal(t, 0, est.Estimate(noon(), battery, loads, ratios, nil))
}

func TestEstimateConstantDrain(t *testing.T) {
	est := testEstimator()

	// full 5000 Wh battery, 1000 W constant load, no PV: exactly 5 hours
	battery := domain.BatteryProfile{CapacityWh: 5000, StateOfCharge: 1}
	minutes := est.Estimate(noon(), battery, constantLoad(1000), domain.NewRatioTable(1.0), noForecast)
	assert.Equal(t, 300, minutes)
}

func TestEstimateFractionalFinalHour(t *testing.T) {
	est := testEstimator()

	// 2500 Wh at 1000 W dies halfway through the third hour
	battery := domain.BatteryProfile{CapacityWh: 5000, StateOfCharge: 0.5}
	minutes := est.Estimate(noon(), battery, constantLoad(1000), domain.NewRatioTable(1.0), noForecast)
	assert.Equal(t, 150, minutes)
}

func TestEstimatePartialCurrentHour(t *testing.T) {
	est := testEstimator()

	// 45 minutes into the hour only a quarter of this hour's load applies:
	// 1000 Wh at 1000 W yields 15 min for the partial hour plus 45 whole
	// minutes into the next.
	now := time.Date(2026, 8, 25, 12, 45, 0, 0, time.UTC)
	battery := domain.BatteryProfile{CapacityWh: 5000, StateOfCharge: 0.2}
	minutes := est.Estimate(now, battery, constantLoad(1000), domain.NewRatioTable(1.0), noForecast)
	assert.Equal(t, 60, minutes)
}

func TestEstimatePVExtendsRuntime(t *testing.T) {
	est := testEstimator()
	battery := domain.BatteryProfile{CapacityWh: 5000, StateOfCharge: 0.5}

	pv := domain.NewHourlyCurve(0)
	for hour := 12; hour <= 15; hour++ {
		pv[hour] = 800
	}
	forecastFor := func(t time.Time) domain.HourlyCurve {
		if t.Day() == 25 {
			return pv
		}
		return nil
	}

	withPV := est.Estimate(noon(), battery, constantLoad(1000), domain.NewRatioTable(1.0), forecastFor)
	withoutPV := est.Estimate(noon(), battery, constantLoad(1000), domain.NewRatioTable(1.0), noForecast)
	assert.Greater(t, withPV, withoutPV)
}

func TestEstimateRatioScalesPV(t *testing.T) {
	est := testEstimator()
	battery := domain.BatteryProfile{CapacityWh: 5000, StateOfCharge: 0.5}

	pv := domain.NewHourlyCurve(800)
	forecastFor := func(time.Time) domain.HourlyCurve { return pv }

	full := est.Estimate(noon(), battery, constantLoad(1000), domain.NewRatioTable(1.0), forecastFor)
	halved := est.Estimate(noon(), battery, constantLoad(1000), domain.NewRatioTable(0.5), forecastFor)
	assert.Greater(t, full, halved)
}

func TestEstimateAlwaysTerminates(t *testing.T) {
	est := testEstimator()

	// PV forever exceeding load: the horizon bound stops the walk
	battery := domain.BatteryProfile{CapacityWh: 5000, StateOfCharge: 1}
	pv := domain.NewHourlyCurve(5000)
	forecastFor := func(time.Time) domain.HourlyCurve { return pv }

	minutes := est.Estimate(noon(), battery, constantLoad(100), domain.NewRatioTable(1.0), forecastFor)
	assert.GreaterOrEqual(t, minutes, 0)
}

func TestEstimateCapacityCeiling(t *testing.T) {
	est := testEstimator()

	// a massive PV hour cannot stretch runtime beyond what a full battery
	// plus that hour's production could deliver
	battery := domain.BatteryProfile{CapacityWh: 1000, StateOfCharge: 1}
	pv := domain.HourlyCurve{12: 100000}
	forecastFor := func(t time.Time) domain.HourlyCurve {
		if t.Day() == 25 {
			return pv
		}
		return nil
	}

	minutes := est.Estimate(noon(), battery, constantLoad(1000), domain.NewRatioTable(1.0), forecastFor)
	// hour 12 is clamped at full (1000 Wh), then one hour of 1000 W drains it
	assert.Equal(t, 120, minutes)
}
