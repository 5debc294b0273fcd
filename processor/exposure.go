package processor

import "gexflow/models"

// notionalMultiplier is the contract multiplier and dollar-notional scaling
// applied to gamma*OI: 100 shares per contract, spot squared, 1% move.
func notionalMultiplier(spot float64) float64 {
	return 100 * spot * spot * 0.01
}

// ApplyExposure computes the signed exposure for both sides of every strike:
// calls are non-negative, puts non-positive. The input aggregates are
// returned as a new map; inputs are not modified.
func ApplyExposure(aggs map[float64]*models.StrikeAggregate, spot float64) map[float64]*models.StrikeAggregate {
	mult := notionalMultiplier(spot)
	out := make(map[float64]*models.StrikeAggregate, len(aggs))
	for strike, agg := range aggs {
		next := *agg
		next.CallExposure = next.CallGamma * float64(next.CallOI) * mult
		next.PutExposure = -(next.PutGamma * float64(next.PutOI) * mult)
		out[strike] = &next
	}
	return out
}
