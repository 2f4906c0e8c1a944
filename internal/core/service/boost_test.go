package service

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acasal/gridboost2mqtt/internal/core/domain"
)

func testSimulator() *BoostSimulator {
	return &BoostSimulator{
		EfficiencyPct:       96.6,
		MinimumSoCPct:       20,
		DontBoostBeforeHour: domain.DontBoostBeforeHour,
		Logger:              zap.NewNop(),
	}
}

func testBattery() domain.BatteryProfile {
	return domain.BatteryProfile{CapacityWh: 5000, StateOfCharge: 0.5}
}

func noon() time.Time {
	return time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
}

func constantLoad(watts int) domain.HourlyCurve {
	return domain.NewHourlyCurve(watts)
}

func TestEmptyPVDefers(t *testing.T) {
	sim := testSimulator()

	boost := sim.RequiredBoostSoC(nil, constantLoad(1000), testBattery(), noon())
	assert.Nil(t, boost)

	boost = sim.RequiredBoostSoC(domain.HourlyCurve{}, constantLoad(1000), testBattery(), noon())
	assert.Nil(t, boost)
}

func TestAllZeroPVDefers(t *testing.T) {
	sim := testSimulator()

	boost := sim.RequiredBoostSoC(domain.NewHourlyCurve(0), constantLoad(1000), testBattery(), noon())
	assert.Nil(t, boost, "an all-zero forecast means data is not ready, not that zero boost is needed")
}

func TestEarlyHourDefers(t *testing.T) {
	sim := testSimulator()

	pv := domain.NewHourlyCurve(0)
	pv[12] = 2000

	early := time.Date(2026, 8, 25, 5, 30, 0, 0, time.UTC)
	boost := sim.RequiredBoostSoC(pv, constantLoad(1000), testBattery(), early)
	assert.Nil(t, boost)

	boost = sim.RequiredBoostSoC(pv, constantLoad(1000), testBattery(), noon())
	assert.NotNil(t, boost)
}

func TestHeavyDeficitClampsToMax(t *testing.T) {
	sim := testSimulator()

	// 1000 W constant load for 18 hours against 5 hours of 1200 Wh PV on a
	// 5000 Wh battery: the pre-PV deficit alone exceeds the full battery.
	pv := domain.NewHourlyCurve(0)
	for hour := 10; hour <= 14; hour++ {
		pv[hour] = 1200
	}

	boost := sim.RequiredBoostSoC(pv, constantLoad(1000), testBattery(), noon())
	require.NotNil(t, boost)
	assert.Equal(t, uint(domain.MaxBoostSoCPercent), *boost)
}

func TestBoostAlwaysWithinRange(t *testing.T) {
	sim := testSimulator()

	scenarios := []struct {
		pvWh, loadW int
	}{
		{100, 100}, {5000, 200}, {1, 4000}, {20000, 1000}, {800, 0},
	}
	for _, sc := range scenarios {
		pv := domain.NewHourlyCurve(sc.pvWh)
		boost := sim.RequiredBoostSoC(pv, constantLoad(sc.loadW), testBattery(), noon())
		require.NotNil(t, boost)
		assert.LessOrEqual(t, *boost, uint(domain.MaxBoostSoCPercent))
	}
}

func TestKnownScenario(t *testing.T) {
	sim := testSimulator()

	// 200 W constant load, 800 Wh PV at hours 10-14. The deepest dip is at
	// hour 9: 4 hours of efficiency-inflated load (~207 Wh each) with no
	// production, about -16.6% on a 5000 Wh battery. Plus the 20% floor the
	// required boost rounds up to 37.
	pv := domain.NewHourlyCurve(0)
	for hour := 10; hour <= 14; hour++ {
		pv[hour] = 800
	}

	boost := sim.RequiredBoostSoC(pv, constantLoad(200), testBattery(), noon())
	require.NotNil(t, boost)
	assert.Equal(t, uint(37), *boost)
}

func TestVerificationClosesTheLoop(t *testing.T) {
	sim := testSimulator()
	battery := testBattery()

	pv := domain.NewHourlyCurve(0)
	for hour := 10; hour <= 14; hour++ {
		pv[hour] = 800
	}
	loads := constantLoad(200)

	boost := sim.RequiredBoostSoC(pv, loads, battery, noon())
	require.NotNil(t, boost)
	require.Less(t, *boost, uint(domain.MaxBoostSoCPercent), "scenario must not clamp")

	// Re-simulate from the computed boost: the trajectory must never fall
	// below the configured minimum by more than rounding error.
	whPerPercent := battery.CapacityWh / 100
	running := float64(*boost) * whPerPercent
	for hour := domain.DontBoostBeforeHour; hour < domain.HoursPerDay; hour++ {
		loadWh := float64(loads.Get(hour, domain.DefaultLoadEstimateWatt)) * 100 / sim.EfficiencyPct
		running = math.Min(running+float64(pv.Get(hour, 0))-loadWh, battery.CapacityWh)
		soc := running / whPerPercent
		assert.GreaterOrEqual(t, soc, float64(sim.MinimumSoCPct)-0.01, "hour %d", hour)
	}
}

func TestCapacityClipping(t *testing.T) {
	sim := testSimulator()
	battery := testBattery()

	// Extreme PV cannot push stored energy past the battery capacity, so
	// the evening drain after a huge PV spike still matters.
	pv := domain.NewHourlyCurve(0)
	pv[12] = 1000000

	loads := constantLoad(600)
	for hour := 6; hour <= 12; hour++ {
		loads[hour] = 100
	}

	boost := sim.RequiredBoostSoC(pv, loads, battery, noon())
	require.NotNil(t, boost)

	// With the spike clipped at 5000 Wh, eleven evening hours of ~621 Wh
	// load drain to about -36.6%, so boost is ceil(36.6 + 20) = 57. Without
	// the clip the battery would coast on phantom energy and only the small
	// morning dip (-12.4%) would count.
	assert.Equal(t, uint(57), *boost)
}
