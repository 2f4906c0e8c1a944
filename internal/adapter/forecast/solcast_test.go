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

const solcastFixture = `{
	"forecasts": [
		{"pv_estimate": 2.0, "pv_estimate10": 1.0, "pv_estimate90": 3.0,
		 "period_end": "2026-08-26T11:30:00Z", "period": "PT30M"},
		{"pv_estimate": 2.0, "pv_estimate10": 1.0, "pv_estimate90": 3.0,
		 "period_end": "2026-08-26T12:00:00Z", "period": "PT30M"},
		{"pv_estimate": 1.0, "pv_estimate10": 0.5, "pv_estimate90": 1.5,
		 "period_end": "2026-08-26T12:30:00Z", "period": "PT30M"}
	]
}`

func testSolcast(t *testing.T, handler http.HandlerFunc) (*Solcast, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewSolcast(SolcastConfig{
		APIKey:     "key",
		SiteId:     "site",
		Percentile: 50,
		BaseURL:    server.URL,
		Location:   time.UTC,
	}, nil, zap.NewNop()), server
}

func TestSolcastParsesForecast(t *testing.T) {
	var gotAuth string
	s, _ := testSolcast(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(solcastFixture))
	})

	now := time.Date(2026, 8, 25, 22, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpdateData(context.Background(), now))

	assert.Equal(t, "Bearer key", gotAuth)
	assert.Equal(t, domain.StatusNormal, s.Status())

	day := s.ForecastForDate(time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC))
	require.NotNil(t, day)
	// two 30-minute periods of 2 kW land in hour 11
	assert.Equal(t, 2000, day[11])
	// one 30-minute period of 1 kW lands in hour 12
	assert.Equal(t, 500, day[12])
}

func TestSolcastPercentileInterpolation(t *testing.T) {
	assert.InDelta(t, 1.0, interpolatePercentile(10, 1.0, 2.0, 3.0), 1e-9)
	assert.InDelta(t, 2.0, interpolatePercentile(50, 1.0, 2.0, 3.0), 1e-9)
	assert.InDelta(t, 3.0, interpolatePercentile(90, 1.0, 2.0, 3.0), 1e-9)
	assert.InDelta(t, 1.375, interpolatePercentile(25, 1.0, 2.0, 3.0), 1e-9)
	assert.InDelta(t, 2.5, interpolatePercentile(70, 1.0, 2.0, 3.0), 1e-9)
}

func TestSolcastRateLimitBacksOff(t *testing.T) {
	s, _ := testSolcast(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	now := time.Date(2026, 8, 25, 22, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpdateData(context.Background(), now))

	assert.Equal(t, domain.StatusRateLimited, s.Status())
	assert.Equal(t, now.Add(rateLimitBackoff), s.NextUpdate())
}

func TestSolcastThrottlesRequests(t *testing.T) {
	requests := 0
	s, _ := testSolcast(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(solcastFixture))
	})

	now := time.Date(2026, 8, 25, 22, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpdateData(context.Background(), now))
	require.NoError(t, s.UpdateData(context.Background(), now.Add(time.Minute)))

	assert.Equal(t, 1, requests)
}

func TestSolcastProbeRequiresCredentials(t *testing.T) {
	s := NewSolcast(SolcastConfig{}, nil, zap.NewNop())
	assert.Error(t, s.Probe(context.Background()))

	s = NewSolcast(SolcastConfig{APIKey: "key", SiteId: "site"}, nil, zap.NewNop())
	assert.NoError(t, s.Probe(context.Background()))
}
