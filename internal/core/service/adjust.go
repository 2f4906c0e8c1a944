package service

import (
	"github.com/acasal/gridboost2mqtt/internal/core/domain"
)

// AdjustForecast scales a raw forecast curve by the matching hour's
// performance ratio, truncating to integer watt-hours. Hours without a
// ratio pass through unchanged.
func AdjustForecast(raw domain.HourlyCurve, ratios domain.RatioTable) domain.HourlyCurve {
	adjusted := make(domain.HourlyCurve, len(raw))
	for hour, wh := range raw {
		adjusted[hour] = int(float64(wh) * ratios.Get(hour, 1.0))
	}
	return adjusted
}
