package actor

import (
	"context"
	"fmt"
	"testing"
	"time"

	adactor "github.com/acasal/gridboost2mqtt/internal/adapter/actor"
	"github.com/acasal/gridboost2mqtt/internal/core/domain"
	"github.com/acasal/gridboost2mqtt/internal/core/port"
	"github.com/acasal/gridboost2mqtt/internal/core/service"
	"github.com/acasal/gridboost2mqtt/internal/util"
	"github.com/acasal/gridboost2mqtt/pkg/deye_modbus"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubProvider struct {
	forecasts domain.ForecastArchive
}

func (s *stubProvider) Name() string { return "solcast" }

func (s *stubProvider) Probe(context.Context) error { return nil }

func (s *stubProvider) UpdateData(context.Context, time.Time) error { return nil }

func (s *stubProvider) Forecasts() domain.ForecastArchive { return s.forecasts }

func (s *stubProvider) ForecastForDate(date time.Time) domain.HourlyCurve {
	return s.forecasts.ForDate(date)
}

func (s *stubProvider) Status() domain.Status { return domain.StatusNormal }

func (s *stubProvider) NextUpdate() time.Time { return time.Time{} }

type stubHistory struct{}

func (stubHistory) HourlyHistory(context.Context, string, int) (domain.HistoryArchive, error) {
	return nil, nil
}

func testGridSchedulerProvider(cfg *service.SchedulerConfig, logger *zap.Logger) GridSchedulerProvider {
	return func(gateway port.InverterGateway) (*service.Scheduler, error) {
		return service.NewScheduler(*cfg, []port.ForecastProvider{&stubProvider{}},
			stubHistory{}, gateway, nil, logger)
	}
}

func testMasterSchedulerConfig(cfg *service.SchedulerConfig) {
	cfg.UpdateHour = domain.DefaultUpdateHour
	cfg.LoadDays = domain.DefaultLoadAverageDays
	cfg.PVMaxDays = domain.DefaultPVMaxDays
	cfg.MinimumSoCPct = domain.DefaultMinimumSoCPercent
	cfg.EfficiencyPct = domain.DefaultInverterEfficiencyPct
	cfg.DefaultLoadWatt = domain.DefaultLoadEstimateWatt
	cfg.DontBoostBeforeHour = domain.DontBoostBeforeHour
	cfg.BoostEndHour = 23
	cfg.LoadEntityId = "sensor.load_power"
	cfg.SoCEntityId = "sensor.battery_soc"
	cfg.PVEntityId = "sensor.pv_power"
	cfg.InitialMode = domain.BoostModeAutomatic
	cfg.InitialManualSoC = domain.DefaultBoostSoCPercent
	cfg.ToURetryAttempts = 3
	cfg.ToURetryDelay = time.Millisecond
	cfg.Location = time.UTC
}

func TestMasterActor(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	var schedCfg service.SchedulerConfig
	testMasterSchedulerConfig(&schedCfg)

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, func() *adactor.ModbusActor {
			inv, _ := deye_modbus.CreateTestInverterController()
			return adactor.NewModbusActor(inv, logger)
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, es, logger)
		}, testGridSchedulerProvider(&schedCfg, logger), logger)
	})
	pid, err := context.SpawnNamed(props, "master")
	if err != nil {
		t.Error(err)
		return
	}

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	fmt.Printf("Health response: %+v\n", healthResp)
	assert.NotNil(t, healthResp)

	assert.True(t, healthResp.Healthy, "healthy is true")

	context.Stop(pid)

	as.Shutdown()
}

func TestMasterActorSnapshot(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logger := zap.NewNop()

	var schedCfg service.SchedulerConfig
	testMasterSchedulerConfig(&schedCfg)

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, func() *adactor.ModbusActor {
			inv, _ := deye_modbus.CreateTestInverterController()
			return adactor.NewModbusActor(inv, logger)
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, es, logger)
		}, testGridSchedulerProvider(&schedCfg, logger), logger)
	})
	pid, err := context.SpawnNamed(props, "master")
	if err != nil {
		t.Error(err)
		return
	}

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, domain.GetSnapshotRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	snapResp, ok := res.(domain.GetSnapshotResponse)
	assert.True(t, ok)
	assert.False(t, snapResp.HasResponseError())
	assert.NotNil(t, snapResp.Snapshot)
	assert.Equal(t, domain.BoostModeAutomatic, snapResp.Snapshot.Mode)

	context.Stop(pid)

	as.Shutdown()
}
