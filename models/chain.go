package models

import (
	"fmt"
	"strings"
	"time"
)

// Right identifies the side of an option contract.
type Right string

const (
	RightCall Right = "CALL"
	RightPut  Right = "PUT"
)

// ExpirationScope selects which expirations of the chain participate in a
// computation.
type ExpirationScope string

const (
	// ScopeAllExpirations sums open interest and gamma per strike across
	// every expiration in the snapshot.
	ScopeAllExpirations ExpirationScope = "all_expirations"
	// ScopeNearestExpiration uses only the chronologically nearest
	// expiration.
	ScopeNearestExpiration ExpirationScope = "nearest_expiration"
	// ScopeZeroDTEOnly uses only same-day expirations and falls back to
	// the nearest one when none exist.
	ScopeZeroDTEOnly ExpirationScope = "zero_dte_only"
)

// ParseExpirationScope maps a configuration string onto an ExpirationScope.
func ParseExpirationScope(s string) (ExpirationScope, error) {
	switch ExpirationScope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeAllExpirations, "all":
		return ScopeAllExpirations, nil
	case ScopeNearestExpiration, "nearest":
		return ScopeNearestExpiration, nil
	case ScopeZeroDTEOnly, "0dte", "zero_dte":
		return ScopeZeroDTEOnly, nil
	}
	return "", fmt.Errorf("unknown expiration scope %q", s)
}

// OptionContract is a single contract taken verbatim from the upstream
// snapshot. It is never mutated after decoding.
type OptionContract struct {
	Strike        float64 `json:"strike"`
	ExpirationKey string  `json:"expiration_key"`
	Right         Right   `json:"right"`
	OpenInterest  int64   `json:"open_interest"`
	Gamma         float64 `json:"gamma"`
}

// ChainSnapshot is one fetch of the options chain for a single underlying.
// It is created once per fetch and treated as immutable for the lifetime of
// a computation.
type ChainSnapshot struct {
	Symbol          string           `json:"symbol"`
	UnderlyingPrice float64          `json:"underlying_price"`
	// CorrelatedPrice is the live price of the mapped instrument.
	// Zero means no live quote was available.
	CorrelatedPrice float64          `json:"correlated_price,omitempty"`
	FetchedAt       time.Time        `json:"fetched_at"`
	Contracts       []OptionContract `json:"contracts"`
}

// StrikeAggregate collects both sides of a single strike after the
// expiration-scope policy has been applied. Exposure fields are populated by
// the exposure stage.
type StrikeAggregate struct {
	Strike       float64 `json:"strike"`
	CallOI       int64   `json:"call_oi"`
	PutOI        int64   `json:"put_oi"`
	CallGamma    float64 `json:"call_gamma"`
	PutGamma     float64 `json:"put_gamma"`
	CallExposure float64 `json:"call_exposure"`
	PutExposure  float64 `json:"put_exposure"`
}

// NetExposure is the signed sum of both sides at this strike.
func (a StrikeAggregate) NetExposure() float64 {
	return a.CallExposure + a.PutExposure
}
