package history

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const historyFixture = `[[
	{"state": "800", "last_changed": "2026-08-24T07:10:00Z"},
	{"state": "1200", "last_changed": "2026-08-24T07:40:00Z"},
	{"state": "unavailable", "last_changed": "2026-08-24T08:00:00Z"},
	{"state": "500", "last_changed": "2026-08-25T07:20:00Z"}
]]`

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		BaseURL:  server.URL,
		Token:    "token",
		Location: time.UTC,
	}, zap.NewNop())
}

func TestHourlyHistoryAggregatesMeans(t *testing.T) {
	var gotPath, gotAuth string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "sensor.load_power", r.URL.Query().Get("filter_entity_id"))
		w.Write([]byte(historyFixture))
	})

	archive, err := c.HourlyHistory(context.Background(), "sensor.load_power", 4)
	require.NoError(t, err)

	assert.Equal(t, "Bearer token", gotAuth)
	assert.True(t, strings.HasPrefix(gotPath, "/api/history/period/"))

	// two samples in the same hour average to 1000, the non-numeric state
	// is skipped entirely
	assert.Equal(t, 1000, archive["2026-08-24"][7])
	_, hasHour8 := archive["2026-08-24"][8]
	assert.False(t, hasHour8)
	assert.Equal(t, 500, archive["2026-08-25"][7])
}

func TestHourlyHistoryErrorStatus(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.HourlyHistory(context.Background(), "sensor.load_power", 4)
	assert.Error(t, err)
}
