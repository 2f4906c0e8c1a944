package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/acasal/gridboost2mqtt/internal/core/domain"
)

func TestAdjustMultipliesAndTruncates(t *testing.T) {
	raw := domain.HourlyCurve{10: 1000, 11: 333}
	ratios := domain.RatioTable{10: 0.5, 11: 0.7}

	adjusted := AdjustForecast(raw, ratios)

	assert.Equal(t, 500, adjusted[10])
	assert.Equal(t, 233, adjusted[11]) // 233.1 truncated
}

func TestAdjustMissingRatioPassesThrough(t *testing.T) {
	raw := domain.HourlyCurve{10: 1000}

	adjusted := AdjustForecast(raw, domain.RatioTable{})
	assert.Equal(t, 1000, adjusted[10])

	adjusted = AdjustForecast(raw, nil)
	assert.Equal(t, 1000, adjusted[10])
}

func TestAdjustEmptyForecast(t *testing.T) {
	adjusted := AdjustForecast(nil, domain.NewRatioTable(1.0))
	assert.Empty(t, adjusted)
	assert.True(t, adjusted.IsZero())
}
