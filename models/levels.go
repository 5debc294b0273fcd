package models

import "time"

// RatioSource records how the conversion ratio was obtained.
type RatioSource string

const (
	RatioLive     RatioSource = "live"
	RatioFallback RatioSource = "fallback"
)

// ConversionRatio rescales underlying strikes onto the correlated instrument.
type ConversionRatio struct {
	Value  float64     `json:"value"`
	Source RatioSource `json:"source"`
}

// LevelSet holds the five computed levels in underlying terms.
// NetExposure and UnderlyingPrice are carried through unmapped.
type LevelSet struct {
	CallOI           float64 `json:"call_oi"`
	PutOI            float64 `json:"put_oi"`
	PositiveExposure float64 `json:"positive_exposure"`
	NegativeExposure float64 `json:"negative_exposure"`
	ZeroCrossing     float64 `json:"zero_crossing"`
	NetExposure      float64 `json:"net_exposure"`
	UnderlyingPrice  float64 `json:"underlying_price"`
}

// MappedLevelSet is the LevelSet rescaled onto the correlated instrument and
// rounded to the configured tick size.
type MappedLevelSet struct {
	CallOI           int64           `json:"call_oi"`
	PutOI            int64           `json:"put_oi"`
	PositiveExposure int64           `json:"positive_exposure"`
	NegativeExposure int64           `json:"negative_exposure"`
	ZeroCrossing     int64           `json:"zero_crossing"`
	Spot             int64           `json:"spot"`
	TickSize         int64           `json:"tick_size"`
	Ratio            ConversionRatio `json:"ratio"`
}

// ComputationResult is the full output of one level computation, handed to
// the report and archive writers.
type ComputationResult struct {
	ComputationID string            `json:"computation_id"`
	Symbol        string            `json:"symbol"`
	GeneratedAt   time.Time         `json:"generated_at"`
	Levels        LevelSet          `json:"levels"`
	Mapped        MappedLevelSet    `json:"mapped"`
	Strikes       []StrikeAggregate `json:"strikes"`
	// Degraded reports that no strike survived the activity filter and
	// every level defaulted to the underlying price.
	Degraded bool `json:"degraded"`
	// Substituted reports that the requested expiration scope was
	// unavailable and the nearest expiration was used instead.
	Substituted bool `json:"substituted"`
}
