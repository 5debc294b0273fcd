package processor

import (
	"math"

	"gexflow/models"
)

// Ratio derives the conversion ratio between the correlated instrument and
// the underlying. A missing or non-positive live price selects the
// configured fallback constant.
func Ratio(spot, correlatedPrice, fallback float64) models.ConversionRatio {
	if correlatedPrice > 0 && spot > 0 {
		return models.ConversionRatio{Value: correlatedPrice / spot, Source: models.RatioLive}
	}
	return models.ConversionRatio{Value: fallback, Source: models.RatioFallback}
}

// MapLevels rescales each level onto the correlated instrument and rounds to
// the tick size. NetExposure and the underlying price stay unmapped on the
// LevelSet; the mapped spot is carried for display.
func MapLevels(levels models.LevelSet, ratio models.ConversionRatio, tickSize int64) models.MappedLevelSet {
	return models.MappedLevelSet{
		CallOI:           roundToTick(levels.CallOI*ratio.Value, tickSize),
		PutOI:            roundToTick(levels.PutOI*ratio.Value, tickSize),
		PositiveExposure: roundToTick(levels.PositiveExposure*ratio.Value, tickSize),
		NegativeExposure: roundToTick(levels.NegativeExposure*ratio.Value, tickSize),
		ZeroCrossing:     roundToTick(levels.ZeroCrossing*ratio.Value, tickSize),
		Spot:             roundToTick(levels.UnderlyingPrice*ratio.Value, tickSize),
		TickSize:         tickSize,
		Ratio:            ratio,
	}
}

func roundToTick(v float64, tick int64) int64 {
	if tick <= 0 {
		tick = 1
	}
	return int64(math.Round(v/float64(tick))) * tick
}
