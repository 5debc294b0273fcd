package processor

import (
	"sort"

	"gexflow/models"
)

// sortedStrikes returns the aggregate strikes in ascending order.
func sortedStrikes(aggs map[float64]*models.StrikeAggregate) []float64 {
	strikes := make([]float64, 0, len(aggs))
	for s := range aggs {
		strikes = append(strikes, s)
	}
	sort.Float64s(strikes)
	return strikes
}

// ExtractLevels finds the open-interest and exposure extrema among the
// filtered strikes. Levels with no qualifying strike default to the
// underlying price. Ties break to the lowest strike: the scan runs in
// ascending strike order and only a strictly better value replaces the
// current extremum.
func ExtractLevels(aggs map[float64]*models.StrikeAggregate, spot float64) models.LevelSet {
	levels := models.LevelSet{
		CallOI:           spot,
		PutOI:            spot,
		PositiveExposure: spot,
		NegativeExposure: spot,
		UnderlyingPrice:  spot,
	}

	var (
		maxCallOI  int64
		maxPutOI   int64
		maxCallExp float64
		minPutExp  float64
	)
	for _, strike := range sortedStrikes(aggs) {
		agg := aggs[strike]
		levels.NetExposure += agg.NetExposure()

		if agg.CallOI > 0 && agg.CallOI > maxCallOI {
			maxCallOI = agg.CallOI
			levels.CallOI = strike
		}
		if agg.PutOI > 0 && agg.PutOI > maxPutOI {
			maxPutOI = agg.PutOI
			levels.PutOI = strike
		}
		if agg.CallExposure > 0 && agg.CallExposure > maxCallExp {
			maxCallExp = agg.CallExposure
			levels.PositiveExposure = strike
		}
		if agg.PutExposure < 0 && agg.PutExposure < minPutExp {
			minPutExp = agg.PutExposure
			levels.NegativeExposure = strike
		}
	}
	return levels
}
