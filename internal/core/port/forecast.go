package port

import (
	"context"
	"time"

	"github.com/acasal/gridboost2mqtt/internal/core/domain"
)

// ForecastProvider is a PV production forecaster. Implementations wrap a
// vendor API plus the on-disk archive of past forecasts.
type ForecastProvider interface {
	// Name identifies the vendor ("solcast", "forecast.solar", "open-meteo").
	Name() string

	// Probe checks credentials and site parameters without consuming the
	// vendor's rate budget more than once.
	Probe(ctx context.Context) error

	// UpdateData fetches a fresh forecast if the provider's cadence allows
	// it, archiving the result per day. It is safe to call often.
	UpdateData(ctx context.Context, now time.Time) error

	// Forecasts returns the archive of hourly forecasts keyed by date.
	Forecasts() domain.ForecastArchive

	// ForecastForDate returns the hourly forecast for one day, or nil if
	// the archive has no data for it.
	ForecastForDate(date time.Time) domain.HourlyCurve

	// Status reports the provider's health, including RATE_LIMITED while a
	// vendor backoff is in effect.
	Status() domain.Status

	// NextUpdate is the earliest time UpdateData will contact the vendor.
	NextUpdate() time.Time
}
