package util

import (
	"go.uber.org/zap"

	"github.com/acasal/gridboost2mqtt/internal/config"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		InverterModbusTcp: config.InverterModbusTCPConfig{
			Host:   "-.-.-.-",
			Port:   502,
			UnitId: 1,
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "gridboost",
		},
		HomeAssistant: config.HomeAssistantConfig{
			BaseURL:      "http://localhost:8123",
			Token:        "test",
			LoadEntityId: "sensor.load_power",
			SoCEntityId:  "sensor.battery_soc",
			PVEntityId:   "sensor.pv_power",
		},
		Boost: config.BoostConfig{
			Mode:               "automatic",
			ManualSoC:          50,
			UpdateHour:         22,
			MinimumSoC:         20,
			LoadDays:           4,
			PVMaxDays:          21,
			EfficiencyPct:      96.6,
			DefaultLoadWatt:    1000,
			WriteRetryAttempts: 5,
		},
		MonitorConfig: config.MonitorConfig{
			PollIntervalMillis: 5000,
		},
		StorageDir: "/tmp/gridboost_test",
		Port:       8080,
	}
}
