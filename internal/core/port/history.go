package port

import (
	"context"

	"github.com/acasal/gridboost2mqtt/internal/core/domain"
)

// TelemetryHistory reads recorded sensor history for the ratio and load
// calculations. The Home Assistant recorder is the reference backend.
type TelemetryHistory interface {
	// HourlyHistory returns per-day hourly curves for an entity covering
	// the given number of days ending yesterday. Days without recorded
	// data are absent from the result.
	HourlyHistory(ctx context.Context, entityId string, days int) (domain.HistoryArchive, error)
}
