package port

import (
	"time"

	"github.com/acasal/gridboost2mqtt/internal/core/domain"
)

// BoostLogic computes boost requirements from adjusted forecasts and load
// averages. It lets the scheduler actor be tested against a stub.
type BoostLogic interface {
	// RequiredBoostSoC returns the SoC percent the battery must hold at the
	// start of the day to survive until PV covers the load, or nil when no
	// boost can be derived (no PV data, or too early in the day).
	RequiredBoostSoC(pv domain.HourlyCurve, loads domain.HourlyCurve, battery domain.BatteryProfile, now time.Time) *uint
}
