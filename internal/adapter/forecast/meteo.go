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
	openMeteoDefaultBaseURL  = "https://api.open-meteo.com"
	openMeteoDefaultInterval = time.Hour
	openMeteoForecastDays    = 3
	openMeteoTimeFormat      = "2006-01-02T15:04"
)

type OpenMeteoConfig struct {
	Latitude       float64
	Longitude      float64
	TiltDeg        int
	AzimuthDeg     int
	KWp            float64
	BaseURL        string
	UpdateInterval time.Duration
	Location       *time.Location
}

// OpenMeteo derives a PV estimate from Open-Meteo's tilted irradiance
// forecast. No account needed, so it serves as the fallback provider.
type OpenMeteo struct {
	providerBase
	cfg OpenMeteoConfig
}

func NewOpenMeteo(cfg OpenMeteoConfig, store *storage.Store, logger *zap.Logger) *OpenMeteo {
	if cfg.BaseURL == "" {
		cfg.BaseURL = openMeteoDefaultBaseURL
	}
	if cfg.UpdateInterval == 0 {
		cfg.UpdateInterval = openMeteoDefaultInterval
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &OpenMeteo{
		providerBase: newProviderBase("open_meteo", store, cfg.UpdateInterval, logger),
		cfg:          cfg,
	}
}

func (m *OpenMeteo) Probe(ctx context.Context) error {
	if m.cfg.Latitude == 0 && m.cfg.Longitude == 0 {
		return errors.New("open-meteo: site coordinates required")
	}
	if m.cfg.KWp <= 0 {
		return errors.New("open-meteo: panel kWp required")
	}
	return nil
}

func (m *OpenMeteo) UpdateData(ctx context.Context, now time.Time) error {
	if !m.dueForUpdate(now) {
		return nil
	}

	url := fmt.Sprintf("%s/v1/forecast?latitude=%.4f&longitude=%.4f"+
		"&hourly=global_tilted_irradiance&tilt=%d&azimuth=%d&forecast_days=%d&timezone=%s",
		m.cfg.BaseURL, m.cfg.Latitude, m.cfg.Longitude,
		m.cfg.TiltDeg, m.cfg.AzimuthDeg, openMeteoForecastDays, m.cfg.Location.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := m.client.Do(req)
	if err != nil {
		m.fault()
		return fmt.Errorf("open-meteo: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		m.rateLimited(now)
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		m.fault()
		return fmt.Errorf("open-meteo: unexpected status %d", resp.StatusCode)
	}

	var payload openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		m.fault()
		return fmt.Errorf("open-meteo: decode: %w", err)
	}

	days, err := m.bucketByDay(payload)
	if err != nil {
		m.fault()
		return err
	}
	m.storeDays(now, days)
	return nil
}

type openMeteoResponse struct {
	Hourly struct {
		Time                   []string  `json:"time"`
		GlobalTiltedIrradiance []float64 `json:"global_tilted_irradiance"`
	} `json:"hourly"`
}

// bucketByDay converts tilted irradiance (W/m2) to hourly PV watt-hours:
// a kWp of panels produces roughly kWp watts per W/m2 of irradiance over
// the reference 1000 W/m2.
func (m *OpenMeteo) bucketByDay(payload openMeteoResponse) (map[string]domain.HourlyCurve, error) {
	if len(payload.Hourly.Time) != len(payload.Hourly.GlobalTiltedIrradiance) {
		return nil, errors.New("open-meteo: time and irradiance series length mismatch")
	}

	days := map[string]domain.HourlyCurve{}
	for i, stamp := range payload.Hourly.Time {
		t, err := time.ParseInLocation(openMeteoTimeFormat, stamp, m.cfg.Location)
		if err != nil {
			return nil, fmt.Errorf("open-meteo: bad timestamp %q: %w", stamp, err)
		}
		wh := payload.Hourly.GlobalTiltedIrradiance[i] * m.cfg.KWp
		date := t.Format(domain.DateFormat)
		if days[date] == nil {
			days[date] = domain.HourlyCurve{}
		}
		days[date][t.Hour()] += int(wh)
	}
	return days, nil
}

// ensure interface compliance
var _ port.ForecastProvider = (*OpenMeteo)(nil)
