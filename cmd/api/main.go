package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	adactor "github.com/acasal/gridboost2mqtt/internal/adapter/actor"
	"github.com/acasal/gridboost2mqtt/internal/adapter/forecast"
	"github.com/acasal/gridboost2mqtt/internal/adapter/history"
	"github.com/acasal/gridboost2mqtt/internal/config"
	"github.com/acasal/gridboost2mqtt/internal/core/actor"
	"github.com/acasal/gridboost2mqtt/internal/core/domain"
	"github.com/acasal/gridboost2mqtt/internal/core/port"
	"github.com/acasal/gridboost2mqtt/internal/core/service"
	"github.com/acasal/gridboost2mqtt/internal/server"
	"github.com/acasal/gridboost2mqtt/internal/storage"
	"github.com/acasal/gridboost2mqtt/internal/util/actorutil"
	"github.com/acasal/gridboost2mqtt/pkg/deye_modbus"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	// init Modbus actor provider
	modbusProv, err := modbusActorProvider(cfg, logger)
	if err != nil {
		panic(err)
	}

	// init grid scheduler provider
	gridProv, err := gridSchedulerProvider(cfg, logger)
	if err != nil {
		panic(err)
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, modbusProv, mqttActorProvider(cfg, logger), gridProv, logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => GRIDBOOST_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("GRIDBOOST_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("gridboost")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check bounds
	if _, err := domain.ParseBoostMode(cfg.Boost.Mode); err != nil {
		return nil, fmt.Errorf("config param boost.mode: %w", err)
	}
	if cfg.Boost.UpdateHour < 0 || cfg.Boost.UpdateHour > 23 {
		return nil, errors.New("config param boost.update_hour should be in 0..23")
	}
	if cfg.Boost.MinimumSoC < 0 || cfg.Boost.MinimumSoC > int(domain.MaxBoostSoCPercent) {
		return nil, fmt.Errorf("config param boost.minimum_soc should be in 0..%d", domain.MaxBoostSoCPercent)
	}
	if cfg.Boost.ManualSoC > domain.MaxBoostSoCPercent {
		return nil, fmt.Errorf("config param boost.manual_soc should be <= %d", domain.MaxBoostSoCPercent)
	}
	if cfg.Boost.EfficiencyPct <= 0 || cfg.Boost.EfficiencyPct > 100 {
		return nil, errors.New("config param boost.efficiency_pct should be in (0, 100]")
	}
	if cfg.Boost.LoadDays <= 0 || cfg.Boost.PVMaxDays <= 0 {
		return nil, errors.New("config params boost.load_days and boost.pv_max_days should be > 0")
	}
	if cfg.MonitorConfig.PollIntervalMillis < 1000 {
		return nil, errors.New("config param monitor.poll_interval_millis should be >= 1000")
	}

	return &cfg, nil
}

func modbusActorProvider(cfg *config.Config, logger *zap.Logger) (actor.ModbusActorProvider, error) {

	timeout := time.Duration(cfg.InverterModbusTcp.TimeoutMillis) * time.Millisecond
	if timeout <= 0 {
		timeout = 1 * time.Second
	}

	inv, err := deye_modbus.CreateDeyeInverterController(cfg.InverterModbusTcp.Host,
		cfg.InverterModbusTcp.Port, uint8(cfg.InverterModbusTcp.UnitId), timeout, logger, nil)

	if err != nil {
		return nil, err
	}

	return func() *adactor.ModbusActor {
		return adactor.NewModbusActor(inv, logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func gridSchedulerProvider(cfg *config.Config, logger *zap.Logger) (actor.GridSchedulerProvider, error) {

	store, err := storage.NewStore(cfg.StorageDir, logger)
	if err != nil {
		return nil, err
	}

	loc := boostLocation(cfg)

	// priority order: Solcast, Forecast.Solar, Open-Meteo
	var providers []port.ForecastProvider
	if cfg.Forecast.Solcast.Configured() {
		providers = append(providers, forecast.NewSolcast(forecast.SolcastConfig{
			APIKey:     cfg.Forecast.Solcast.APIKey,
			SiteId:     cfg.Forecast.Solcast.SiteId,
			Percentile: int(cfg.Forecast.Solcast.Percentile),
			Location:   loc,
		}, store, logger))
	}
	if cfg.Forecast.ForecastSolar.Configured() {
		providers = append(providers, forecast.NewForecastSolar(forecast.ForecastSolarConfig{
			Latitude:       cfg.Forecast.ForecastSolar.Latitude,
			Longitude:      cfg.Forecast.ForecastSolar.Longitude,
			DeclinationDeg: cfg.Forecast.ForecastSolar.DeclinationDeg,
			AzimuthDeg:     cfg.Forecast.ForecastSolar.AzimuthDeg,
			KWp:            cfg.Forecast.ForecastSolar.KWp,
			APIKey:         cfg.Forecast.ForecastSolar.APIKey,
			Location:       loc,
		}, store, logger))
	}
	if cfg.Forecast.OpenMeteo.Configured() {
		providers = append(providers, forecast.NewOpenMeteo(forecast.OpenMeteoConfig{
			Latitude:   cfg.Forecast.OpenMeteo.Latitude,
			Longitude:  cfg.Forecast.OpenMeteo.Longitude,
			TiltDeg:    cfg.Forecast.OpenMeteo.TiltDeg,
			AzimuthDeg: cfg.Forecast.OpenMeteo.AzimuthDeg,
			KWp:        cfg.Forecast.OpenMeteo.KWp,
			Location:   loc,
		}, store, logger))
	}

	haHistory := history.NewClient(history.Config{
		BaseURL:  cfg.HomeAssistant.BaseURL,
		Token:    cfg.HomeAssistant.Token,
		Location: loc,
	}, logger)

	initialMode, err := domain.ParseBoostMode(cfg.Boost.Mode)
	if err != nil {
		return nil, err
	}

	schedulerCfg := service.SchedulerConfig{
		UpdateHour:          cfg.Boost.UpdateHour,
		LoadDays:            cfg.Boost.LoadDays,
		PVMaxDays:           cfg.Boost.PVMaxDays,
		MinimumSoCPct:       cfg.Boost.MinimumSoC,
		EfficiencyPct:       cfg.Boost.EfficiencyPct,
		DefaultLoadWatt:     cfg.Boost.DefaultLoadWatt,
		DontBoostBeforeHour: domain.DontBoostBeforeHour,
		BoostStartHour:      domain.DontBoostBeforeHour,
		BoostEndHour:        23,
		LoadEntityId:        cfg.HomeAssistant.LoadEntityId,
		SoCEntityId:         cfg.HomeAssistant.SoCEntityId,
		PVEntityId:          cfg.HomeAssistant.PVEntityId,
		InitialMode:         initialMode,
		InitialManualSoC:    cfg.Boost.ManualSoC,
		ToURetryAttempts:    cfg.Boost.WriteRetryAttempts,
		ToURetryDelay:       2 * time.Second,
		Location:            loc,
	}

	return func(gateway port.InverterGateway) (*service.Scheduler, error) {
		return service.NewScheduler(schedulerCfg, providers, haHistory, gateway, nil, logger)
	}, nil
}

func boostLocation(cfg *config.Config) *time.Location {
	if cfg.Boost.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(cfg.Boost.Timezone)
	if err != nil {
		slog.Warn("invalid boost.timezone, using local time", "timezone", cfg.Boost.Timezone)
		return time.Local
	}
	return loc
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "gridboost")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("monitor.poll_interval_millis", 10000)
	viper.SetDefault("storage_dir", "./data")
	viper.SetDefault("boost.mode", string(domain.BoostModeAutomatic))
	viper.SetDefault("boost.manual_soc", domain.DefaultBoostSoCPercent)
	viper.SetDefault("boost.update_hour", domain.DefaultUpdateHour)
	viper.SetDefault("boost.minimum_soc", domain.DefaultMinimumSoCPercent)
	viper.SetDefault("boost.load_days", domain.DefaultLoadAverageDays)
	viper.SetDefault("boost.pv_max_days", domain.DefaultPVMaxDays)
	viper.SetDefault("boost.efficiency_pct", domain.DefaultInverterEfficiencyPct)
	viper.SetDefault("boost.default_load_watt", domain.DefaultLoadEstimateWatt)
	viper.SetDefault("boost.write_retry_attempts", 5)
	viper.SetDefault("forecast.solcast.percentile", 25)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	cfg.HomeAssistant.Token = "*redacted*"
	cfg.Forecast.Solcast.APIKey = "*redacted*"
	cfg.Forecast.ForecastSolar.APIKey = "*redacted*"
	slog.Info("Using", "config", cfg)
}
