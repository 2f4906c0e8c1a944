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
	solcastDefaultBaseURL  = "https://api.solcast.com.au"
	solcastDefaultInterval = 6 * time.Hour
	solcastForecastHours   = 72
)

type SolcastConfig struct {
	APIKey         string
	SiteId         string
	Percentile     int // 10-90, which pv estimate band to read
	BaseURL        string
	UpdateInterval time.Duration
	Location       *time.Location
}

// Solcast reads rooftop forecasts from the Solcast API. Free accounts have
// a very small daily request budget, so the update interval is long.
type Solcast struct {
	providerBase
	cfg SolcastConfig
}

func NewSolcast(cfg SolcastConfig, store *storage.Store, logger *zap.Logger) *Solcast {
	if cfg.BaseURL == "" {
		cfg.BaseURL = solcastDefaultBaseURL
	}
	if cfg.UpdateInterval == 0 {
		cfg.UpdateInterval = solcastDefaultInterval
	}
	if cfg.Percentile == 0 {
		cfg.Percentile = 25
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Solcast{
		providerBase: newProviderBase("solcast", store, cfg.UpdateInterval, logger),
		cfg:          cfg,
	}
}

func (s *Solcast) Probe(ctx context.Context) error {
	if s.cfg.APIKey == "" || s.cfg.SiteId == "" {
		return errors.New("solcast: api key and site id required")
	}
	return nil
}

func (s *Solcast) UpdateData(ctx context.Context, now time.Time) error {
	if !s.dueForUpdate(now) {
		return nil
	}

	url := fmt.Sprintf("%s/rooftop_sites/%s/forecasts?format=json&hours=%d",
		s.cfg.BaseURL, s.cfg.SiteId, solcastForecastHours)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		s.fault()
		return fmt.Errorf("solcast: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		s.rateLimited(now)
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		s.fault()
		return fmt.Errorf("solcast: unexpected status %d", resp.StatusCode)
	}

	var payload solcastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.fault()
		return fmt.Errorf("solcast: decode: %w", err)
	}

	s.storeDays(now, s.bucketByDay(payload))
	return nil
}

type solcastResponse struct {
	Forecasts []solcastPeriod `json:"forecasts"`
}

type solcastPeriod struct {
	PvEstimate   float64   `json:"pv_estimate"`   // kW, P50
	PvEstimate10 float64   `json:"pv_estimate10"` // kW, P10
	PvEstimate90 float64   `json:"pv_estimate90"` // kW, P90
	PeriodEnd    time.Time `json:"period_end"`
	Period       string    `json:"period"` // ISO 8601 duration, PT30M
}

// bucketByDay folds the 30-minute periods into local hourly watt-hours at
// the configured percentile.
func (s *Solcast) bucketByDay(payload solcastResponse) map[string]domain.HourlyCurve {
	days := map[string]domain.HourlyCurve{}
	acc := map[string]map[int]float64{}

	for _, p := range payload.Forecasts {
		duration := periodDuration(p.Period)
		start := p.PeriodEnd.Add(-duration).In(s.cfg.Location)
		kw := interpolatePercentile(s.cfg.Percentile, p.PvEstimate10, p.PvEstimate, p.PvEstimate90)
		wh := kw * 1000 * duration.Hours()

		date := start.Format(domain.DateFormat)
		if acc[date] == nil {
			acc[date] = map[int]float64{}
		}
		acc[date][start.Hour()] += wh
	}

	for date, hours := range acc {
		curve := domain.HourlyCurve{}
		for hour, wh := range hours {
			curve[hour] = int(wh)
		}
		days[date] = curve
	}
	return days
}

// interpolatePercentile linearly interpolates between the P10/P50/P90
// estimate bands Solcast provides.
func interpolatePercentile(percentile int, pv10, pv50, pv90 float64) float64 {
	p := float64(percentile)
	if p <= 50 {
		return pv10 + (p-10)/40*(pv50-pv10)
	}
	return pv50 + (p-50)/40*(pv90-pv50)
}

func periodDuration(period string) time.Duration {
	switch period {
	case "PT1H":
		return time.Hour
	case "PT15M":
		return 15 * time.Minute
	default:
		return 30 * time.Minute
	}
}

// ensure interface compliance
var _ port.ForecastProvider = (*Solcast)(nil)
