package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/acasal/gridboost2mqtt/internal/core/domain"
	"github.com/acasal/gridboost2mqtt/internal/core/port"
	"github.com/acasal/gridboost2mqtt/internal/storage"
)

const (
	forecastSolarDefaultBaseURL  = "https://api.forecast.solar"
	forecastSolarDefaultInterval = time.Hour
	forecastSolarTimeFormat      = "2006-01-02 15:04:05"
)

type ForecastSolarConfig struct {
	Latitude       float64
	Longitude      float64
	DeclinationDeg int
	AzimuthDeg     int
	KWp            float64
	APIKey         string // optional, personal plans get more calls
	BaseURL        string
	UpdateInterval time.Duration
	Location       *time.Location
}

// ForecastSolar reads the forecast.solar estimate endpoint. The public
// tier rate limits aggressively, which surfaces as RATE_LIMITED status.
type ForecastSolar struct {
	providerBase
	cfg ForecastSolarConfig
}

func NewForecastSolar(cfg ForecastSolarConfig, store *storage.Store, logger *zap.Logger) *ForecastSolar {
	if cfg.BaseURL == "" {
		cfg.BaseURL = forecastSolarDefaultBaseURL
	}
	if cfg.UpdateInterval == 0 {
		cfg.UpdateInterval = forecastSolarDefaultInterval
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &ForecastSolar{
		providerBase: newProviderBase("forecast_solar", store, cfg.UpdateInterval, logger),
		cfg:          cfg,
	}
}

func (f *ForecastSolar) Probe(ctx context.Context) error {
	if f.cfg.Latitude == 0 && f.cfg.Longitude == 0 {
		return errors.New("forecast.solar: site coordinates required")
	}
	if f.cfg.KWp <= 0 {
		return errors.New("forecast.solar: panel kWp required")
	}
	return nil
}

func (f *ForecastSolar) UpdateData(ctx context.Context, now time.Time) error {
	if !f.dueForUpdate(now) {
		return nil
	}

	url := fmt.Sprintf("%s%s/estimate/watthoursperiod/%.4f/%.4f/%d/%d/%.3f",
		f.cfg.BaseURL, f.keyPath(), f.cfg.Latitude, f.cfg.Longitude,
		f.cfg.DeclinationDeg, f.cfg.AzimuthDeg, f.cfg.KWp)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.fault()
		return fmt.Errorf("forecast.solar: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		f.rateLimited(now)
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		f.fault()
		return fmt.Errorf("forecast.solar: unexpected status %d", resp.StatusCode)
	}

	var payload forecastSolarResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		f.fault()
		return fmt.Errorf("forecast.solar: decode: %w", err)
	}

	days, err := f.bucketByDay(payload)
	if err != nil {
		f.fault()
		return err
	}
	f.storeDays(now, days)
	return nil
}

func (f *ForecastSolar) keyPath() string {
	if f.cfg.APIKey != "" {
		return "/" + f.cfg.APIKey
	}
	return ""
}

type forecastSolarResponse struct {
	Result struct {
		WattHoursPeriod map[string]int `json:"watt_hours_period"`
	} `json:"result"`
}

// bucketByDay maps the "YYYY-MM-DD HH:MM:SS" period keys to local hourly
// watt-hours.
func (f *ForecastSolar) bucketByDay(payload forecastSolarResponse) (map[string]domain.HourlyCurve, error) {
	days := map[string]domain.HourlyCurve{}
	for stamp, wh := range payload.Result.WattHoursPeriod {
		t, err := time.ParseInLocation(forecastSolarTimeFormat, stamp, f.cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("forecast.solar: bad period %q: %w", stamp, err)
		}
		date := t.Format(domain.DateFormat)
		if days[date] == nil {
			days[date] = domain.HourlyCurve{}
		}
		days[date][t.Hour()] += wh
	}
	return days, nil
}

// ensure interface compliance
var _ port.ForecastProvider = (*ForecastSolar)(nil)
