package processor

import (
	"testing"

	"gexflow/models"
)

func closeTo(got, want, tol float64) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff <= tol
}

func TestFilterActiveDropsIlliquidStrikes(t *testing.T) {
	aggs := map[float64]*models.StrikeAggregate{
		600: {Strike: 600, CallOI: 500, PutOI: 0, CallGamma: 0.05},
		602: {Strike: 602, CallOI: 20, PutOI: 30, CallGamma: 0.01, PutGamma: 0.01},
		605: {Strike: 605, CallOI: 0, PutOI: 800, PutGamma: 0.06},
	}

	active := FilterActive(aggs, 100)
	if len(active) != 2 {
		t.Fatalf("expected 2 surviving strikes, got %d", len(active))
	}
	if _, ok := active[602]; ok {
		t.Errorf("strike below threshold on both sides must be dropped")
	}
	if aggs[602].CallOI != 20 {
		t.Errorf("input aggregates must not be modified")
	}
}

func TestFilterActiveZeroesIlliquidSide(t *testing.T) {
	aggs := map[float64]*models.StrikeAggregate{
		600: {Strike: 600, CallOI: 500, CallGamma: 0.05, PutOI: 50, PutGamma: 0.02},
	}

	active := FilterActive(aggs, 100)
	agg, ok := active[600]
	if !ok {
		t.Fatalf("one-sided liquid strike must be retained")
	}
	if agg.PutOI != 0 || agg.PutGamma != 0 {
		t.Errorf("illiquid side must be zeroed, got OI=%d gamma=%f", agg.PutOI, agg.PutGamma)
	}
	if agg.CallOI != 500 {
		t.Errorf("liquid side must be untouched, got %d", agg.CallOI)
	}
}

func TestFilterActiveZeroThresholdKeepsAll(t *testing.T) {
	aggs := map[float64]*models.StrikeAggregate{
		600: {Strike: 600, CallOI: 1},
		605: {Strike: 605},
	}
	active := FilterActive(aggs, 0)
	if len(active) != 2 {
		t.Fatalf("minimum 0 keeps every strike, got %d", len(active))
	}
}
