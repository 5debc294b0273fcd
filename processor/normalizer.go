package processor

import (
	"math"

	"gexflow/models"
)

// Normalize flattens the snapshot's contracts into one StrikeAggregate per
// distinct strike, applying the expiration-scope policy. Exposure fields are
// left zero for the exposure stage. The returned flag reports that the
// zero-DTE scope was unavailable and the nearest expiration was substituted.
func Normalize(snap *models.ChainSnapshot, scope models.ExpirationScope) (map[float64]*models.StrikeAggregate, bool) {
	included, substituted := includedExpirations(snap.Contracts, scope)

	aggs := make(map[float64]*models.StrikeAggregate)
	for _, c := range snap.Contracts {
		if _, ok := included[c.ExpirationKey]; !ok {
			continue
		}

		agg, ok := aggs[c.Strike]
		if !ok {
			agg = &models.StrikeAggregate{Strike: c.Strike}
			aggs[c.Strike] = agg
		}

		// Sum across expirations; with a single included expiration
		// this degenerates to direct assignment.
		switch c.Right {
		case models.RightCall:
			agg.CallOI += c.OpenInterest
			agg.CallGamma += c.Gamma
		case models.RightPut:
			agg.PutOI += c.OpenInterest
			agg.PutGamma += c.Gamma
		}
	}
	return aggs, substituted
}

// includedExpirations resolves the scope policy to the set of expiration keys
// that participate in the computation.
func includedExpirations(contracts []models.OptionContract, scope models.ExpirationScope) (map[string]struct{}, bool) {
	dtes := make(map[string]int)
	for _, c := range contracts {
		if _, seen := dtes[c.ExpirationKey]; seen {
			continue
		}
		dte, err := models.ExpirationKeyDTE(c.ExpirationKey)
		if err != nil {
			// Keys without a DTE suffix cannot be ranked; treat them
			// as far-dated so they only survive the all scope.
			dte = math.MaxInt32
		}
		dtes[c.ExpirationKey] = dte
	}

	switch scope {
	case models.ScopeNearestExpiration:
		return nearestExpiration(dtes), false
	case models.ScopeZeroDTEOnly:
		zero := make(map[string]struct{})
		for key, dte := range dtes {
			if dte == 0 {
				zero[key] = struct{}{}
			}
		}
		if len(zero) > 0 {
			return zero, false
		}
		// Non-expiration day: fall back to the nearest expiration and
		// report the substitution.
		return nearestExpiration(dtes), true
	default: // ScopeAllExpirations
		all := make(map[string]struct{}, len(dtes))
		for key := range dtes {
			all[key] = struct{}{}
		}
		return all, false
	}
}

func nearestExpiration(dtes map[string]int) map[string]struct{} {
	best := ""
	bestDTE := math.MaxInt32
	for key, dte := range dtes {
		if dte < bestDTE || (dte == bestDTE && key < best) {
			best = key
			bestDTE = dte
		}
	}
	out := make(map[string]struct{}, 1)
	if best != "" {
		out[best] = struct{}{}
	}
	return out
}
