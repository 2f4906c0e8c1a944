package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acasal/gridboost2mqtt/internal/core/domain"
	"github.com/acasal/gridboost2mqtt/internal/core/port"
	"github.com/acasal/gridboost2mqtt/pkg/deye_modbus"
)

type fakeProvider struct {
	name      string
	probeErr  error
	status    domain.Status
	forecasts domain.ForecastArchive
	updates   int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Probe(context.Context) error { return f.probeErr }

func (f *fakeProvider) UpdateData(context.Context, time.Time) error {
	f.updates++
	return nil
}

func (f *fakeProvider) Forecasts() domain.ForecastArchive { return f.forecasts }

func (f *fakeProvider) ForecastForDate(date time.Time) domain.HourlyCurve {
	return f.forecasts.ForDate(date)
}

func (f *fakeProvider) Status() domain.Status { return f.status }

func (f *fakeProvider) NextUpdate() time.Time { return time.Time{} }

var _ port.ForecastProvider = (*fakeProvider)(nil)

type fakeHistory struct {
	data map[string]domain.HistoryArchive
	err  error
}

func (f *fakeHistory) HourlyHistory(_ context.Context, entityId string, _ int) (domain.HistoryArchive, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.data[entityId], nil
}

type fakeInverter struct {
	controller *deye_modbus.TestInverterController
	setCalls   int
	dropWrites bool
}

func (f *fakeInverter) BatteryState(context.Context) (*deye_modbus.BatteryState, error) {
	return f.controller.GetBatteryState()
}

func (f *fakeInverter) PowerState(context.Context) (*deye_modbus.PowerState, error) {
	return f.controller.GetPowerState()
}

func (f *fakeInverter) CapacityPoint(context.Context) (uint8, error) {
	return f.controller.GetCapacityPoint()
}

func (f *fakeInverter) SetCapacityPoint(_ context.Context, percent uint8) error {
	f.setCalls++
	if f.dropWrites {
		return nil
	}
	return f.controller.SetCapacityPoint(percent)
}

func (f *fakeInverter) TimeOfUseEnabled(context.Context) (bool, error) {
	return f.controller.GetTimeOfUseEnabled()
}

func (f *fakeInverter) SetTimeOfUseEnabled(_ context.Context, enabled bool) error {
	if f.dropWrites {
		return nil
	}
	return f.controller.SetTimeOfUseEnabled(enabled)
}

var _ port.InverterGateway = (*fakeInverter)(nil)

func testSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		UpdateHour:          domain.DefaultUpdateHour,
		LoadDays:            domain.DefaultLoadAverageDays,
		PVMaxDays:           domain.DefaultPVMaxDays,
		MinimumSoCPct:       domain.DefaultMinimumSoCPercent,
		EfficiencyPct:       domain.DefaultInverterEfficiencyPct,
		DefaultLoadWatt:     domain.DefaultLoadEstimateWatt,
		DontBoostBeforeHour: domain.DontBoostBeforeHour,
		BoostStartHour:      0,
		BoostEndHour:        domain.DontBoostBeforeHour,
		LoadEntityId:        "sensor.load_power",
		SoCEntityId:         "sensor.battery_soc",
		PVEntityId:          "sensor.pv_power",
		InitialMode:         domain.BoostModeAutomatic,
		InitialManualSoC:    domain.DefaultBoostSoCPercent,
		ToURetryAttempts:    3,
		ToURetryDelay:       time.Millisecond,
		Location:            time.UTC,
	}
}

func testScheduler(t *testing.T, provider *fakeProvider, inverter *fakeInverter) *Scheduler {
	t.Helper()
	s, err := NewScheduler(testSchedulerConfig(), []port.ForecastProvider{provider},
		&fakeHistory{}, inverter, nil, zap.NewNop())
	require.NoError(t, err)
	return s
}

func heavyForecastProvider(now time.Time) *fakeProvider {
	tomorrow := now.AddDate(0, 0, 1).Format(domain.DateFormat)
	pv := domain.HourlyCurve{10: 1200, 11: 1200, 12: 1200, 13: 1200, 14: 1200}
	return &fakeProvider{
		name:      "solcast",
		status:    domain.StatusNormal,
		forecasts: domain.ForecastArchive{tomorrow: pv},
	}
}

func freshInverter() *fakeInverter {
	ctrl, _ := deye_modbus.CreateTestInverterController()
	return &fakeInverter{controller: ctrl.(*deye_modbus.TestInverterController)}
}

func TestTickReportsStartingUntilRunning(t *testing.T) {
	s := testScheduler(t, heavyForecastProvider(noon()), freshInverter())

	snap := s.Tick(context.Background(), noon())
	assert.Equal(t, domain.StatusStarting.String(), snap.Status)

	s.MarkRunning()
	snap = s.Tick(context.Background(), noon())
	assert.NotEqual(t, domain.StatusStarting.String(), snap.Status)
}

func TestTickNotConfiguredWithoutProvider(t *testing.T) {
	provider := &fakeProvider{name: "solcast", probeErr: errors.New("no api key")}
	s := testScheduler(t, provider, freshInverter())
	s.MarkRunning()

	snap := s.Tick(context.Background(), noon())
	assert.Equal(t, domain.StatusNotConfigured.String(), snap.Status)
}

func TestTickComputesAndWritesBoost(t *testing.T) {
	now := noon()
	inverter := freshInverter()
	s := testScheduler(t, heavyForecastProvider(now), inverter)
	s.MarkRunning()

	snap := s.Tick(context.Background(), now)

	assert.Equal(t, domain.StatusNormal.String(), snap.Status)
	// default loads against 5 hours of PV on the test battery's 5320 Wh
	// leave a deficit deeper than the battery, clamping to 99
	assert.Equal(t, domain.MaxBoostSoCPercent, snap.CalculatedSoC)
	assert.Equal(t, uint8(domain.MaxBoostSoCPercent), inverter.controller.CapacityPoint)
	assert.Equal(t, float64(domain.MaxBoostSoCPercent), snap.ActualSoC)
}

func TestBoostDeferredRetriesNextTick(t *testing.T) {
	now := noon()
	provider := heavyForecastProvider(now)
	provider.forecasts = domain.ForecastArchive{} // no data yet
	inverter := freshInverter()
	s := testScheduler(t, provider, inverter)
	s.MarkRunning()

	snap := s.Tick(context.Background(), now)
	assert.Equal(t, 0, snap.CalculatedSoC)
	assert.Equal(t, 0, inverter.setCalls)

	// data shows up, next tick picks it up without waiting for the cadence
	tomorrow := now.AddDate(0, 0, 1).Format(domain.DateFormat)
	provider.forecasts = domain.ForecastArchive{tomorrow: {12: 1200}}
	s.ForceRefresh()
	snap = s.Tick(context.Background(), now.Add(10*time.Second))
	assert.Greater(t, snap.CalculatedSoC, 0)
}

func TestOffModeNeverWrites(t *testing.T) {
	now := noon()
	inverter := freshInverter()
	s := testScheduler(t, heavyForecastProvider(now), inverter)
	s.MarkRunning()
	s.SetMode(domain.BoostModeOff)

	snap := s.Tick(context.Background(), now)

	assert.Equal(t, domain.MaxBoostSoCPercent, snap.CalculatedSoC)
	assert.Equal(t, 0, inverter.setCalls)
	assert.Equal(t, uint8(20), inverter.controller.CapacityPoint)
}

func TestManualModeWritesOperatorValue(t *testing.T) {
	now := noon()
	inverter := freshInverter()
	s := testScheduler(t, heavyForecastProvider(now), inverter)
	s.MarkRunning()
	s.SetMode(domain.BoostModeManual)
	s.SetManualSoC(42)

	s.Tick(context.Background(), now)

	assert.Equal(t, uint8(42), inverter.controller.CapacityPoint)
}

func TestActuatorOffStatus(t *testing.T) {
	now := noon()
	inverter := freshInverter()
	inverter.controller.TimeOfUse = false
	s := testScheduler(t, heavyForecastProvider(now), inverter)
	s.MarkRunning()

	snap := s.Tick(context.Background(), now)

	assert.Equal(t, domain.StatusActuatorOff.String(), snap.Status)
	assert.Equal(t, 0, inverter.setCalls)
}

func TestCapacityWriteConfirmRetries(t *testing.T) {
	now := noon()
	inverter := freshInverter()
	inverter.dropWrites = true
	s := testScheduler(t, heavyForecastProvider(now), inverter)
	s.MarkRunning()

	snap := s.Tick(context.Background(), now)

	assert.Equal(t, domain.StatusFault.String(), snap.Status)
	assert.Equal(t, testSchedulerConfig().ToURetryAttempts, inverter.setCalls)
}

func TestSetTimeOfUseConfirmFailure(t *testing.T) {
	inverter := freshInverter()
	inverter.dropWrites = true
	inverter.controller.TimeOfUse = false
	s := testScheduler(t, heavyForecastProvider(noon()), inverter)
	s.MarkRunning()

	err := s.SetTimeOfUse(context.Background(), true)
	assert.Error(t, err)
}

func TestRateLimitedStatusSurfaces(t *testing.T) {
	now := noon()
	provider := heavyForecastProvider(now)
	provider.status = domain.StatusRateLimited
	s := testScheduler(t, provider, freshInverter())
	s.MarkRunning()

	snap := s.Tick(context.Background(), now)
	assert.Equal(t, domain.StatusRateLimited.String(), snap.Status)
	assert.Equal(t, domain.StatusRateLimited.String(), snap.ForecasterStatus)
}

func TestUpdateCycleGatedByCadence(t *testing.T) {
	now := noon()
	provider := heavyForecastProvider(now)
	s := testScheduler(t, provider, freshInverter())
	s.MarkRunning()

	s.Tick(context.Background(), now)
	updates := provider.updates
	assert.Equal(t, 1, updates)

	// subsequent ticks before the next cadence do not refresh
	s.Tick(context.Background(), now.Add(10*time.Second))
	s.Tick(context.Background(), now.Add(20*time.Second))
	assert.Equal(t, updates, provider.updates)

	// at the configured update hour the gate opens again
	updateHour := time.Date(2026, 8, 25, domain.DefaultUpdateHour, 0, 1, 0, time.UTC)
	s.Tick(context.Background(), updateHour)
	assert.Equal(t, updates+1, provider.updates)
}
