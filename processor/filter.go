package processor

import "gexflow/models"

// FilterActive drops strikes whose open interest is below minimumOI on both
// sides. A strike with one liquid side is retained; the illiquid side keeps
// zero OI, gamma and exposure. The input map is not modified.
func FilterActive(aggs map[float64]*models.StrikeAggregate, minimumOI int64) map[float64]*models.StrikeAggregate {
	out := make(map[float64]*models.StrikeAggregate, len(aggs))
	for strike, agg := range aggs {
		if agg.CallOI < minimumOI && agg.PutOI < minimumOI {
			continue
		}
		kept := *agg
		if kept.CallOI < minimumOI {
			kept.CallOI = 0
			kept.CallGamma = 0
		}
		if kept.PutOI < minimumOI {
			kept.PutOI = 0
			kept.PutGamma = 0
		}
		out[strike] = &kept
	}
	return out
}
