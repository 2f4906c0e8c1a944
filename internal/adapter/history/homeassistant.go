// Package history reads recorded sensor telemetry from a Home Assistant
// instance through its REST history API.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/acasal/gridboost2mqtt/internal/core/domain"
	"github.com/acasal/gridboost2mqtt/internal/core/port"
)

const defaultHTTPTimeout = 30 * time.Second

type Config struct {
	BaseURL  string // e.g. http://homeassistant.local:8123
	Token    string // long-lived access token
	Location *time.Location
}

type Client struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: defaultHTTPTimeout},
		logger: logger.With(zap.String("component", "ha_history")),
	}
}

type stateChange struct {
	State       string    `json:"state"`
	LastChanged time.Time `json:"last_changed"`
}

// HourlyHistory fetches the entity's recorded states for the given number
// of days ending yesterday and aggregates them to per-day hourly means.
// Non-numeric states (unavailable, unknown) are skipped with a warning.
func (c *Client) HourlyHistory(ctx context.Context, entityId string, days int) (domain.HistoryArchive, error) {

	now := time.Now().In(c.cfg.Location)
	todayMidnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.cfg.Location)
	start := todayMidnight.AddDate(0, 0, -days)

	endpoint := fmt.Sprintf("%s/api/history/period/%s?%s",
		c.cfg.BaseURL, url.PathEscape(start.Format(time.RFC3339)),
		url.Values{
			"filter_entity_id": {entityId},
			"end_time":         {todayMidnight.Format(time.RFC3339)},
			"minimal_response": {""},
		}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ha history: fetch %s: %w", entityId, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ha history: unexpected status %d for %s", resp.StatusCode, entityId)
	}

	var payload [][]stateChange
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("ha history: decode %s: %w", entityId, err)
	}

	return c.aggregate(entityId, payload), nil
}

func (c *Client) aggregate(entityId string, payload [][]stateChange) domain.HistoryArchive {
	type bucket struct {
		sum   float64
		count int
	}
	buckets := map[string]map[int]*bucket{}

	for _, series := range payload {
		for _, change := range series {
			value, err := strconv.ParseFloat(change.State, 64)
			if err != nil {
				c.logger.Warn("skipping non-numeric state",
					zap.String("entity", entityId), zap.String("state", change.State))
				continue
			}
			local := change.LastChanged.In(c.cfg.Location)
			date := local.Format(domain.DateFormat)
			if buckets[date] == nil {
				buckets[date] = map[int]*bucket{}
			}
			b := buckets[date][local.Hour()]
			if b == nil {
				b = &bucket{}
				buckets[date][local.Hour()] = b
			}
			b.sum += value
			b.count++
		}
	}

	archive := domain.HistoryArchive{}
	for date, hours := range buckets {
		curve := domain.HourlyCurve{}
		for hour, b := range hours {
			curve[hour] = int(math.Round(b.sum / float64(b.count)))
		}
		archive[date] = curve
	}
	return archive
}

// ensure interface compliance
var _ port.TelemetryHistory = (*Client)(nil)
