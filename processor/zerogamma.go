package processor

import "gexflow/models"

// strikeNet is one point of the net exposure curve.
type strikeNet struct {
	strike float64
	net    float64
}

// ZeroCrossing locates the price at which net exposure crosses zero by
// linear interpolation between adjacent strikes. When band is positive the
// search domain is restricted to strikes within that fraction of spot; an
// empty window widens back to the full filtered domain. With no sign change
// anywhere the crossing defaults to spot.
func ZeroCrossing(aggs map[float64]*models.StrikeAggregate, spot, band float64) float64 {
	full := make([]strikeNet, 0, len(aggs))
	for _, strike := range sortedStrikes(aggs) {
		full = append(full, strikeNet{strike: strike, net: aggs[strike].NetExposure()})
	}

	domain := full
	if band > 0 {
		lo, hi := spot*(1-band), spot*(1+band)
		window := make([]strikeNet, 0, len(full))
		for _, p := range full {
			if p.strike >= lo && p.strike <= hi {
				window = append(window, p)
			}
		}
		if len(window) > 0 {
			domain = window
		}
	}

	// First bracket in ascending strike order wins.
	for i := 0; i+1 < len(domain); i++ {
		s1, g1 := domain[i].strike, domain[i].net
		s2, g2 := domain[i+1].strike, domain[i+1].net
		if (g1 <= 0 && 0 <= g2) || (g2 <= 0 && 0 <= g1) {
			if g1 == g2 {
				return s1
			}
			return s1 + (s2-s1)*(-g1)/(g2-g1)
		}
	}
	return spot
}
