package config

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel          zapcore.Level
	InverterModbusTcp InverterModbusTCPConfig `mapstructure:"inverter_modbus_tcp"`
	MQTT              MQTTConfig              `mapstructure:"mqtt"`
	HomeAssistant     HomeAssistantConfig     `mapstructure:"home_assistant"`
	Forecast          ForecastConfig          `mapstructure:"forecast"`
	Boost             BoostConfig             `mapstructure:"boost"`
	MonitorConfig     MonitorConfig           `mapstructure:"monitor"`
	StorageDir        string                  `mapstructure:"storage_dir"`
	Port              uint                    `mapstructure:"port"`
	HttpLog           bool                    `mapstructure:"http_log"`
}

type InverterModbusTCPConfig struct {
	Host          string
	Port          uint
	UnitId        uint   `mapstructure:"unit_id"`
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
}

type MonitorConfig struct {
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
}

type HomeAssistantConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	Token        string
	LoadEntityId string `mapstructure:"load_entity_id"`
	SoCEntityId  string `mapstructure:"soc_entity_id"`
	PVEntityId   string `mapstructure:"pv_entity_id"`
}

// ForecastConfig holds one section per vendor. A vendor is considered
// configured when its required credentials or coordinates are set; the
// scheduler probes them in the order below and activates the first that
// responds.
type ForecastConfig struct {
	Solcast       SolcastConfig       `mapstructure:"solcast"`
	ForecastSolar ForecastSolarConfig `mapstructure:"forecast_solar"`
	OpenMeteo     OpenMeteoConfig     `mapstructure:"open_meteo"`
}

type SolcastConfig struct {
	APIKey     string `mapstructure:"api_key"`
	SiteId     string `mapstructure:"site_id"`
	Percentile uint   `mapstructure:"percentile"`
}

func (c SolcastConfig) Configured() bool {
	return c.APIKey != "" && c.SiteId != ""
}

type ForecastSolarConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	Latitude       float64 `mapstructure:"latitude"`
	Longitude      float64 `mapstructure:"longitude"`
	DeclinationDeg int     `mapstructure:"declination_deg"`
	AzimuthDeg     int     `mapstructure:"azimuth_deg"`
	KWp            float64 `mapstructure:"kwp"`
}

func (c ForecastSolarConfig) Configured() bool {
	return c.KWp > 0 && (c.Latitude != 0 || c.Longitude != 0)
}

type OpenMeteoConfig struct {
	Latitude   float64 `mapstructure:"latitude"`
	Longitude  float64 `mapstructure:"longitude"`
	TiltDeg    int     `mapstructure:"tilt_deg"`
	AzimuthDeg int     `mapstructure:"azimuth_deg"`
	KWp        float64 `mapstructure:"kwp"`
}

func (c OpenMeteoConfig) Configured() bool {
	return c.KWp > 0 && (c.Latitude != 0 || c.Longitude != 0)
}

type BoostConfig struct {
	Mode               string  `mapstructure:"mode"`
	ManualSoC          uint    `mapstructure:"manual_soc"`
	UpdateHour         int     `mapstructure:"update_hour"`
	MinimumSoC         int     `mapstructure:"minimum_soc"`
	LoadDays           int     `mapstructure:"load_days"`
	PVMaxDays          int     `mapstructure:"pv_max_days"`
	EfficiencyPct      float64 `mapstructure:"efficiency_pct"`
	DefaultLoadWatt    int     `mapstructure:"default_load_watt"`
	WriteRetryAttempts int     `mapstructure:"write_retry_attempts"`
	Timezone           string  `mapstructure:"timezone"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
