package processor

import (
	"testing"

	"gexflow/models"
)

func TestApplyExposureFormula(t *testing.T) {
	spot := 602.0
	aggs := map[float64]*models.StrikeAggregate{
		600: {Strike: 600, CallOI: 500, CallGamma: 0.05},
		605: {Strike: 605, PutOI: 800, PutGamma: 0.06},
	}

	exposed := ApplyExposure(aggs, spot)

	mult := 100 * spot * spot * 0.01
	wantCall := 0.05 * 500 * mult
	if got := exposed[600].CallExposure; !closeTo(got, wantCall, 1e-6) {
		t.Errorf("call exposure = %f, want %f", got, wantCall)
	}
	wantPut := -(0.06 * 800 * mult)
	if got := exposed[605].PutExposure; !closeTo(got, wantPut, 1e-6) {
		t.Errorf("put exposure = %f, want %f", got, wantPut)
	}
	if exposed[600].CallExposure < 0 {
		t.Errorf("call exposure must be non-negative")
	}
	if exposed[605].PutExposure > 0 {
		t.Errorf("put exposure must be non-positive")
	}
	if aggs[600].CallExposure != 0 {
		t.Errorf("input aggregates must not be modified")
	}
}

// Scaling a contract's gamma by a positive factor scales its exposure
// contribution by the same factor.
func TestApplyExposureGammaLinearity(t *testing.T) {
	const k = 3.5
	base := map[float64]*models.StrikeAggregate{
		600: {Strike: 600, CallOI: 200, CallGamma: 0.02, PutOI: 300, PutGamma: 0.04},
	}
	scaled := map[float64]*models.StrikeAggregate{
		600: {Strike: 600, CallOI: 200, CallGamma: 0.02 * k, PutOI: 300, PutGamma: 0.04 * k},
	}

	b := ApplyExposure(base, 610)[600]
	s := ApplyExposure(scaled, 610)[600]

	if !closeTo(s.CallExposure, k*b.CallExposure, 1e-6) {
		t.Errorf("call exposure not linear in gamma: %f vs %f", s.CallExposure, k*b.CallExposure)
	}
	if !closeTo(s.PutExposure, k*b.PutExposure, 1e-6) {
		t.Errorf("put exposure not linear in gamma: %f vs %f", s.PutExposure, k*b.PutExposure)
	}
}

func TestApplyExposureZeroGamma(t *testing.T) {
	aggs := map[float64]*models.StrikeAggregate{
		600: {Strike: 600, CallOI: 5000, PutOI: 5000},
	}
	exposed := ApplyExposure(aggs, 602)
	if exposed[600].CallExposure != 0 || exposed[600].PutExposure != 0 {
		t.Errorf("zero gamma must produce zero exposure on both sides")
	}
}
