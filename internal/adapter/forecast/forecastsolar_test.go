package forecast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acasal/gridboost2mqtt/internal/core/domain"
)

const forecastSolarFixture = `{
	"result": {
		"watt_hours_period": {
			"2026-08-26 11:00:00": 500,
			"2026-08-26 12:00:00": 700,
			"2026-08-27 11:00:00": 450
		}
	},
	"message": {"type": "success"}
}`

func testForecastSolar(t *testing.T, handler http.HandlerFunc) *ForecastSolar {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewForecastSolar(ForecastSolarConfig{
		Latitude:  43.36,
		Longitude: -8.41,
		KWp:       5.5,
		BaseURL:   server.URL,
		Location:  time.UTC,
	}, nil, zap.NewNop())
}

func TestForecastSolarParsesEstimate(t *testing.T) {
	f := testForecastSolar(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(forecastSolarFixture))
	})

	now := time.Date(2026, 8, 25, 22, 0, 0, 0, time.UTC)
	require.NoError(t, f.UpdateData(context.Background(), now))

	day := f.ForecastForDate(time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC))
	require.NotNil(t, day)
	assert.Equal(t, 500, day[11])
	assert.Equal(t, 700, day[12])

	nextDay := f.ForecastForDate(time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC))
	require.NotNil(t, nextDay)
	assert.Equal(t, 450, nextDay[11])
}

func TestForecastSolarRateLimit(t *testing.T) {
	f := testForecastSolar(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	now := time.Date(2026, 8, 25, 22, 0, 0, 0, time.UTC)
	require.NoError(t, f.UpdateData(context.Background(), now))
	assert.Equal(t, domain.StatusRateLimited, f.Status())
}

func TestForecastSolarProbe(t *testing.T) {
	f := NewForecastSolar(ForecastSolarConfig{}, nil, zap.NewNop())
	assert.Error(t, f.Probe(context.Background()))

	f = NewForecastSolar(ForecastSolarConfig{Latitude: 43.36, Longitude: -8.41, KWp: 5.5}, nil, zap.NewNop())
	assert.NoError(t, f.Probe(context.Background()))
}
