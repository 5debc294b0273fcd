// Package processor derives gamma exposure levels from a single options
// chain snapshot. The whole computation is a pure, synchronous batch
// transformation: given the same snapshot and parameters it always produces
// the same levels, so distinct snapshots can be computed in parallel without
// coordination.
package processor

import (
	"time"

	"github.com/google/uuid"

	"gexflow/models"
)

// Params is the recognized configuration surface of the level engine.
type Params struct {
	MinimumOI     int64
	TickSize      int64
	SearchBand    float64 // fraction of spot; zero searches the full domain
	Scope         models.ExpirationScope
	FallbackRatio float64
}

// Defaults for the QQQ -> NQ domain.
const (
	DefaultMinimumOI     int64   = 100
	DefaultTickSize      int64   = 25
	DefaultSearchBand    float64 = 0.05
	DefaultFallbackRatio float64 = 41.36
)

// DefaultParams returns the documented tunables for the QQQ/NQ setup.
func DefaultParams() Params {
	return Params{
		MinimumOI:     DefaultMinimumOI,
		TickSize:      DefaultTickSize,
		SearchBand:    DefaultSearchBand,
		Scope:         models.ScopeAllExpirations,
		FallbackRatio: DefaultFallbackRatio,
	}
}

// DataError reports a snapshot the engine refuses to compute on.
type DataError struct {
	Reason string
}

func (e *DataError) Error() string {
	return "gex: " + e.Reason
}

// Compute runs the full pipeline over one snapshot: normalize, filter,
// exposure, level extraction, zero-crossing search, cross-instrument
// mapping. Failure modes inside the pipeline are recoverable and surface as
// diagnostic flags on the result; only an empty or invalid snapshot returns
// an error.
func Compute(snap *models.ChainSnapshot, p Params) (*models.ComputationResult, error) {
	if snap == nil || snap.UnderlyingPrice <= 0 || len(snap.Contracts) == 0 {
		return nil, &DataError{Reason: "empty or invalid snapshot"}
	}
	if p.TickSize <= 0 {
		p.TickSize = DefaultTickSize
	}
	if p.FallbackRatio <= 0 {
		p.FallbackRatio = DefaultFallbackRatio
	}

	spot := snap.UnderlyingPrice
	aggs, substituted := Normalize(snap, p.Scope)
	active := FilterActive(aggs, p.MinimumOI)
	ratio := Ratio(spot, snap.CorrelatedPrice, p.FallbackRatio)

	res := &models.ComputationResult{
		ComputationID: uuid.New().String(),
		Symbol:        snap.Symbol,
		GeneratedAt:   time.Now().UTC(),
		Substituted:   substituted,
	}

	if len(active) == 0 {
		// Nothing survived the activity filter: every level collapses
		// to the underlying price and the caller is told.
		res.Degraded = true
		res.Levels = models.LevelSet{
			CallOI:           spot,
			PutOI:            spot,
			PositiveExposure: spot,
			NegativeExposure: spot,
			ZeroCrossing:     spot,
			UnderlyingPrice:  spot,
		}
		res.Mapped = MapLevels(res.Levels, ratio, p.TickSize)
		return res, nil
	}

	exposed := ApplyExposure(active, spot)
	levels := ExtractLevels(exposed, spot)
	levels.ZeroCrossing = ZeroCrossing(exposed, spot, p.SearchBand)

	res.Levels = levels
	res.Mapped = MapLevels(levels, ratio, p.TickSize)
	res.Strikes = make([]models.StrikeAggregate, 0, len(exposed))
	for _, strike := range sortedStrikes(exposed) {
		res.Strikes = append(res.Strikes, *exposed[strike])
	}
	return res, nil
}
