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
)

const openMeteoFixture = `{
	"hourly": {
		"time": ["2026-08-26T11:00", "2026-08-26T12:00"],
		"global_tilted_irradiance": [600.0, 800.0]
	}
}`

func testOpenMeteo(t *testing.T, handler http.HandlerFunc) *OpenMeteo {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOpenMeteo(OpenMeteoConfig{
		Latitude:  43.36,
		Longitude: -8.41,
		KWp:       5.0,
		BaseURL:   server.URL,
		Location:  time.UTC,
	}, nil, zap.NewNop())
}

func TestOpenMeteoParsesIrradiance(t *testing.T) {
	m := testOpenMeteo(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(openMeteoFixture))
	})

	now := time.Date(2026, 8, 25, 22, 0, 0, 0, time.UTC)
	require.NoError(t, m.UpdateData(context.Background(), now))

	day := m.ForecastForDate(time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC))
	require.NotNil(t, day)
	// 600 W/m2 on 5 kWp is about 3000 Wh for the hour
	assert.Equal(t, 3000, day[11])
	assert.Equal(t, 4000, day[12])
}

func TestOpenMeteoSeriesMismatch(t *testing.T) {
	m := testOpenMeteo(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"hourly": {"time": ["2026-08-26T11:00"], "global_tilted_irradiance": []}}`))
	})

	now := time.Date(2026, 8, 25, 22, 0, 0, 0, time.UTC)
	assert.Error(t, m.UpdateData(context.Background(), now))
}

func TestOpenMeteoProbe(t *testing.T) {
	m := NewOpenMeteo(OpenMeteoConfig{}, nil, zap.NewNop())
	assert.Error(t, m.Probe(context.Background()))

	m = NewOpenMeteo(OpenMeteoConfig{Latitude: 1, Longitude: 1, KWp: 5}, nil, zap.NewNop())
	assert.NoError(t, m.Probe(context.Background()))
}
