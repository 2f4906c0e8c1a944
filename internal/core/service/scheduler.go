package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"

	"github.com/acasal/gridboost2mqtt/internal/core/domain"
	"github.com/acasal/gridboost2mqtt/internal/core/port"
	"github.com/acasal/gridboost2mqtt/internal/util"
)

type SchedulerConfig struct {
	UpdateHour          int
	LoadDays            int
	PVMaxDays           int
	MinimumSoCPct       int
	EfficiencyPct       float64
	DefaultLoadWatt     int
	DontBoostBeforeHour int
	BoostStartHour      int
	BoostEndHour        int
	LoadEntityId        string
	SoCEntityId         string
	PVEntityId          string
	InitialMode         domain.BoostMode
	InitialManualSoC    uint
	ToURetryAttempts    int
	ToURetryDelay       time.Duration
	Location            *time.Location
}

// Scheduler drives the daily boost pipeline: refresh forecasts and
// telemetry on a dual cadence, recompute the boost at the configured hour
// and write it to the inverter. Public methods are safe to call from the
// actor loop and the HTTP layer concurrently.
type Scheduler struct {
	cfg       SchedulerConfig
	providers []port.ForecastProvider
	history   port.TelemetryHistory
	inverter  port.InverterGateway
	boost     port.BoostLogic
	logger    *zap.Logger

	ratioModel *PerformanceRatioModel
	loadAvg    *LoadAverager
	estimator  *RemainingTimeEstimator

	midnightTrigger   quartz.Trigger
	updateHourTrigger quartz.Trigger

	mu sync.Mutex

	running          bool
	active           port.ForecastProvider
	status           domain.Status
	mode             domain.BoostMode
	manualSoC        uint
	calculatedSoC    int
	actualSoC        float64
	battery          domain.BatteryProfile
	loadAverages     domain.HourlyCurve
	pvRatios         domain.RatioTable
	adjustedToday    domain.HourlyCurve
	adjustedTomorrow domain.HourlyCurve
	nextFullUpdate   time.Time
	nextBoostUpdate  time.Time
	snapshot         *domain.Snapshot
}

func NewScheduler(cfg SchedulerConfig, providers []port.ForecastProvider,
	history port.TelemetryHistory, inverter port.InverterGateway,
	boost port.BoostLogic, logger *zap.Logger) (*Scheduler, error) {

	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	midnight, err := quartz.NewCronTriggerWithLoc("0 2 0 * * *", cfg.Location)
	if err != nil {
		return nil, err
	}
	updateHour, err := quartz.NewCronTriggerWithLoc(
		fmt.Sprintf("0 0 %d * * *", cfg.UpdateHour), cfg.Location)
	if err != nil {
		return nil, err
	}

	if boost == nil {
		boost = &BoostSimulator{
			EfficiencyPct:       cfg.EfficiencyPct,
			MinimumSoCPct:       cfg.MinimumSoCPct,
			DontBoostBeforeHour: cfg.DontBoostBeforeHour,
			Logger:              logger,
		}
	}

	return &Scheduler{
		cfg:       cfg,
		providers: providers,
		history:   history,
		inverter:  inverter,
		boost:     boost,
		logger:    logger.With(zap.String("service", "scheduler")),
		ratioModel: &PerformanceRatioModel{
			MaxDays:                cfg.PVMaxDays,
			SaturationThresholdPct: domain.SoCSaturationThresholdPct,
			Logger:                 logger,
		},
		loadAvg: &LoadAverager{
			DefaultLoadWatt: cfg.DefaultLoadWatt,
			Logger:          logger,
		},
		estimator:         &RemainingTimeEstimator{Logger: logger},
		midnightTrigger:   midnight,
		updateHourTrigger: updateHour,
		status:            domain.StatusStarting,
		mode:              cfg.InitialMode,
		manualSoC:         cfg.InitialManualSoC,
	}, nil
}

// MarkRunning releases the startup gate. Until called, ticks report
// STARTING and do no work.
func (s *Scheduler) MarkRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
}

// Tick is the poll entry point, called every few seconds. Expensive work
// only runs when a cadence gate has fired; the rest of the tick refreshes
// cheap derived state and rebuilds the snapshot.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) *domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now = now.In(s.cfg.Location)

	if !s.running {
		s.status = domain.StatusStarting
		return s.rebuildSnapshot(now)
	}

	if s.active == nil {
		s.selectProvider(ctx)
		if s.active == nil {
			s.status = domain.StatusNotConfigured
			return s.rebuildSnapshot(now)
		}
	}

	s.status = domain.StatusNormal

	if err := s.refreshBattery(ctx); err != nil {
		s.logger.Warn("battery refresh failed", zap.Error(err))
		s.status = domain.StatusFault
		return s.rebuildSnapshot(now)
	}

	if !now.Before(s.nextFullUpdate) {
		if err := s.runUpdateCycle(ctx, now); err != nil {
			s.logger.Warn("update cycle failed", zap.Error(err))
			s.status = domain.StatusFault
		} else {
			s.nextFullUpdate = s.nextFire(now)
		}
	}

	if !now.Before(s.nextBoostUpdate) {
		deferred, err := s.runBoostCycle(ctx, now)
		switch {
		case err != nil:
			s.logger.Warn("boost cycle failed", zap.Error(err))
			s.status = domain.StatusFault
		case deferred:
			// forecast not ready yet, retried on the next tick
		default:
			s.nextBoostUpdate = s.nextBoostFire(now)
		}
	}

	if s.active.Status() == domain.StatusRateLimited && s.status == domain.StatusNormal {
		s.status = domain.StatusRateLimited
	}

	return s.rebuildSnapshot(now)
}

// selectProvider probes the priority-ordered provider list and activates
// the first one that responds.
func (s *Scheduler) selectProvider(ctx context.Context) {
	for _, p := range s.providers {
		if err := p.Probe(ctx); err != nil {
			s.logger.Debug("forecast provider not available",
				zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		s.logger.Info("forecast provider selected", zap.String("provider", p.Name()))
		s.active = p
		return
	}
}

func (s *Scheduler) refreshBattery(ctx context.Context) error {
	state, err := s.inverter.BatteryState(ctx)
	if err != nil {
		return err
	}
	s.battery = domain.BatteryProfile{
		CapacityWh:    float64(state.CapacityAh) * state.FloatChargeVoltage,
		StateOfCharge: state.StateOfChargePct / 100,
	}
	return nil
}

// runUpdateCycle refreshes the forecast archive and recomputes the ratio
// table, load averages and adjusted curves. On failure the cadence gate is
// left open so the next tick retries.
func (s *Scheduler) runUpdateCycle(ctx context.Context, now time.Time) error {
	if err := s.active.UpdateData(ctx, now); err != nil {
		return fmt.Errorf("forecast update: %w", err)
	}

	socHist, err := s.history.HourlyHistory(ctx, s.cfg.SoCEntityId, s.cfg.PVMaxDays)
	if err != nil {
		return fmt.Errorf("soc history: %w", err)
	}
	pvHist, err := s.history.HourlyHistory(ctx, s.cfg.PVEntityId, s.cfg.PVMaxDays)
	if err != nil {
		return fmt.Errorf("pv history: %w", err)
	}
	loadHist, err := s.history.HourlyHistory(ctx, s.cfg.LoadEntityId, s.cfg.LoadDays)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	s.pvRatios = s.ratioModel.Compute(now, s.active.Forecasts(), socHist, pvHist)
	s.loadAverages = s.loadAvg.Compute(loadHist)
	s.adjustedToday = AdjustForecast(s.active.ForecastForDate(now), s.pvRatios)
	s.adjustedTomorrow = AdjustForecast(s.active.ForecastForDate(now.AddDate(0, 0, 1)), s.pvRatios)

	s.logger.Info("update cycle complete",
		zap.String("provider", s.active.Name()),
		zap.Int("pv_today_wh", s.adjustedToday.Total()),
		zap.Int("pv_tomorrow_wh", s.adjustedTomorrow.Total()))
	return nil
}

// runBoostCycle recomputes the required boost and, mode permitting, writes
// it to the inverter. deferred means the forecast was not ready.
func (s *Scheduler) runBoostCycle(ctx context.Context, now time.Time) (bool, error) {
	calc := s.boost.RequiredBoostSoC(s.adjustedTomorrow, s.loadAverages, s.battery, now)
	if calc == nil {
		return true, nil
	}
	s.calculatedSoC = int(*calc)

	if !s.mode.WritesToActuator() {
		if point, err := s.inverter.CapacityPoint(ctx); err == nil {
			s.actualSoC = float64(point)
		}
		return false, nil
	}

	enabled, err := s.inverter.TimeOfUseEnabled(ctx)
	if err != nil {
		return false, fmt.Errorf("time of use read: %w", err)
	}
	if !enabled {
		s.logger.Warn("time of use disabled on inverter, boost not applied")
		s.status = domain.StatusActuatorOff
		return false, nil
	}

	target := uint8(s.calculatedSoC)
	if s.mode == domain.BoostModeManual {
		target = uint8(s.manualSoC)
	}
	if err := s.writeCapacityPoint(ctx, target); err != nil {
		return false, err
	}
	s.actualSoC = float64(target)
	s.logger.Info("boost applied",
		zap.Uint8("target_soc", target), zap.String("mode", string(s.mode)))
	return false, nil
}

// writeCapacityPoint writes the boost target and confirms it took effect,
// with a bounded retry. A half-applied boost setting is unsafe to leave.
func (s *Scheduler) writeCapacityPoint(ctx context.Context, target uint8) error {
	current, err := s.inverter.CapacityPoint(ctx)
	if err != nil {
		return fmt.Errorf("capacity point read: %w", err)
	}
	if current == target {
		return nil
	}
	return util.Retry(ctx, s.cfg.ToURetryAttempts, s.cfg.ToURetryDelay,
		func(ctx context.Context) error {
			if err := s.inverter.SetCapacityPoint(ctx, target); err != nil {
				return err
			}
			readBack, err := s.inverter.CapacityPoint(ctx)
			if err != nil {
				return err
			}
			if readBack != target {
				return fmt.Errorf("capacity point write not confirmed: wrote %d, read %d",
					target, readBack)
			}
			return nil
		})
}

// nextFire returns the earlier of the two full-update cadences.
func (s *Scheduler) nextFire(now time.Time) time.Time {
	next := nextTrigger(s.midnightTrigger, now)
	if u := nextTrigger(s.updateHourTrigger, now); u.Before(next) {
		next = u
	}
	return next
}

func (s *Scheduler) nextBoostFire(now time.Time) time.Time {
	return nextTrigger(s.updateHourTrigger, now)
}

func nextTrigger(t quartz.Trigger, now time.Time) time.Time {
	nanos, err := t.NextFireTime(now.UnixNano())
	if err != nil {
		// cron triggers for fixed daily times cannot run out of fires
		return now.Add(time.Hour)
	}
	return time.Unix(0, nanos)
}

// SetMode switches the boost mode. Takes effect on the next boost cycle.
func (s *Scheduler) SetMode(mode domain.BoostMode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == mode {
		return false
	}
	s.logger.Info("boost mode changed",
		zap.String("from", string(s.mode)), zap.String("to", string(mode)))
	s.mode = mode
	s.nextBoostUpdate = time.Time{}
	return true
}

// SetManualSoC updates the operator boost target used in manual mode.
func (s *Scheduler) SetManualSoC(soc uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if soc > domain.MaxBoostSoCPercent {
		soc = domain.MaxBoostSoCPercent
	}
	s.manualSoC = soc
	s.nextBoostUpdate = time.Time{}
}

// SetTimeOfUse toggles the inverter's time-of-use switch, confirming the
// write with a bounded retry before reporting failure.
func (s *Scheduler) SetTimeOfUse(ctx context.Context, enable bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := util.Retry(ctx, s.cfg.ToURetryAttempts, s.cfg.ToURetryDelay,
		func(ctx context.Context) error {
			if err := s.inverter.SetTimeOfUseEnabled(ctx, enable); err != nil {
				return err
			}
			readBack, err := s.inverter.TimeOfUseEnabled(ctx)
			if err != nil {
				return err
			}
			if readBack != enable {
				return fmt.Errorf("time of use write not confirmed: wanted %t, read %t",
					enable, readBack)
			}
			return nil
		})
	if err != nil {
		s.status = domain.StatusFault
		return err
	}
	return nil
}

// ForceRefresh re-opens both cadence gates so the next tick runs a full
// cycle.
func (s *Scheduler) ForceRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextFullUpdate = time.Time{}
	s.nextBoostUpdate = time.Time{}
}

// Snapshot returns the record built on the last tick.
func (s *Scheduler) Snapshot() *domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

func (s *Scheduler) rebuildSnapshot(now time.Time) *domain.Snapshot {
	forecasterStatus := domain.StatusNotConfigured
	forecasterName := ""
	forecastFor := func(t time.Time) domain.HourlyCurve { return nil }
	if s.active != nil {
		forecasterStatus = s.active.Status()
		forecasterName = s.active.Name()
		forecastFor = s.active.ForecastForDate
	}

	var minutes int
	if s.running && s.active != nil {
		minutes = s.estimator.Estimate(now, s.battery, s.loadAverages, s.pvRatios, forecastFor)
	}

	snap := &domain.Snapshot{
		Status:           s.status.String(),
		ForecasterStatus: forecasterStatus.String(),
		ForecasterName:   forecasterName,
		Mode:             s.mode,
		CalculatedSoC:    s.calculatedSoC,
		ManualSoC:        int(s.manualSoC),
		ActualSoC:        s.actualSoC,
		BatterySoC:       s.battery.StateOfCharge * 100,
		MinimumSoC:       s.cfg.MinimumSoCPct,
		LoadDays:         s.cfg.LoadDays,
		UpdateHour:       s.cfg.UpdateHour,
		BoostStartHour:   s.cfg.BoostStartHour,
		BoostEndHour:     s.cfg.BoostEndHour,
		BatteryTimeLeft:  HoursFromMinutes(minutes),
		BatteryExhausted: ExhaustionTime(now, minutes),
		CalculatedPVNow:  s.adjustedToday.Get(now.Hour(), 0),
		LoadAverages:     s.loadAverages,
		PVRatios:         s.pvRatios,
		PVToday:          s.adjustedToday,
		PVTodayTotal:     s.adjustedToday.Total(),
		PVTodayLabel:     DayLabel(now),
		PVTomorrow:       s.adjustedTomorrow,
		PVTomorrowTotal:  s.adjustedTomorrow.Total(),
		PVTomorrowLabel:  DayLabel(now.AddDate(0, 0, 1)),
	}
	s.snapshot = snap
	return snap
}

// Mode returns the current boost mode.
func (s *Scheduler) Mode() domain.BoostMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}
