package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/acasal/gridboost2mqtt/internal/core/domain"
)

func testRatioModel() *PerformanceRatioModel {
	return &PerformanceRatioModel{
		MaxDays:                domain.DefaultPVMaxDays,
		SaturationThresholdPct: domain.SoCSaturationThresholdPct,
		Logger:                 zap.NewNop(),
	}
}

func dateKey(now time.Time, daysAgo int) string {
	return now.AddDate(0, 0, -daysAgo).Format(domain.DateFormat)
}

func TestNoUsableDaysDefaultsToOne(t *testing.T) {
	model := testRatioModel()

	table := model.Compute(noon(), domain.ForecastArchive{}, domain.HistoryArchive{}, domain.HistoryArchive{})

	assert.Len(t, table, domain.HoursPerDay)
	for hour := 0; hour < domain.HoursPerDay; hour++ {
		assert.Equal(t, 1.0, table[hour])
	}
}

func TestRatioFromSingleDay(t *testing.T) {
	model := testRatioModel()
	now := noon()
	yesterday := dateKey(now, 1)

	forecasts := domain.ForecastArchive{yesterday: {10: 1000}}
	soc := domain.HistoryArchive{yesterday: {10: 50}}
	actual := domain.HistoryArchive{yesterday: {10: 500}}

	table := model.Compute(now, forecasts, soc, actual)
	assert.Equal(t, 0.5, table[10])
	// hours without forecast coverage contribute 1.0
	assert.Equal(t, 1.0, table[11])
}

func TestRatioIsMeanAcrossDays(t *testing.T) {
	model := testRatioModel()
	now := noon()
	d1, d2 := dateKey(now, 1), dateKey(now, 2)

	forecasts := domain.ForecastArchive{d1: {10: 1000}, d2: {10: 1000}}
	soc := domain.HistoryArchive{d1: {10: 50}, d2: {10: 60}}
	actual := domain.HistoryArchive{d1: {10: 500}, d2: {10: 1000}}

	table := model.Compute(now, forecasts, soc, actual)
	assert.InDelta(t, 0.75, table[10], 1e-9)
}

func TestSaturationGuard(t *testing.T) {
	model := testRatioModel()
	now := noon()
	yesterday := dateKey(now, 1)

	// SoC at the threshold: the recorded PV is untrustworthy because a full
	// battery caps it, so the hour contributes 1.0 despite the mismatch.
	forecasts := domain.ForecastArchive{yesterday: {10: 1000}}
	soc := domain.HistoryArchive{yesterday: {10: domain.SoCSaturationThresholdPct}}
	actual := domain.HistoryArchive{yesterday: {10: 100}}

	table := model.Compute(now, forecasts, soc, actual)
	assert.Equal(t, 1.0, table[10])
}

func TestDayMissingFromAnyArchiveIsSkipped(t *testing.T) {
	model := testRatioModel()
	now := noon()
	d1, d2 := dateKey(now, 1), dateKey(now, 2)

	// d1 has no actual PV entry at all: the whole day must be skipped, so
	// only d2's ratio shows up.
	forecasts := domain.ForecastArchive{d1: {10: 1000}, d2: {10: 1000}}
	soc := domain.HistoryArchive{d1: {10: 50}, d2: {10: 50}}
	actual := domain.HistoryArchive{d2: {10: 200}}

	table := model.Compute(now, forecasts, soc, actual)
	assert.InDelta(t, 0.2, table[10], 1e-9)
}

func TestPartialHourlyCoverageContributesOne(t *testing.T) {
	model := testRatioModel()
	now := noon()
	yesterday := dateKey(now, 1)

	// The day is present in all three archives but hour 11 is missing from
	// the SoC record, so hour 11 stays at 1.0.
	forecasts := domain.ForecastArchive{yesterday: {10: 1000, 11: 1000}}
	soc := domain.HistoryArchive{yesterday: {10: 50}}
	actual := domain.HistoryArchive{yesterday: {10: 500, 11: 500}}

	table := model.Compute(now, forecasts, soc, actual)
	assert.Equal(t, 0.5, table[10])
	assert.Equal(t, 1.0, table[11])
}

func TestDaysOutsideWindowIgnored(t *testing.T) {
	model := testRatioModel()
	now := noon()
	tooOld := dateKey(now, domain.DefaultPVMaxDays+1)

	forecasts := domain.ForecastArchive{tooOld: {10: 1000}}
	soc := domain.HistoryArchive{tooOld: {10: 50}}
	actual := domain.HistoryArchive{tooOld: {10: 500}}

	table := model.Compute(now, forecasts, soc, actual)
	assert.Equal(t, 1.0, table[10])
}
