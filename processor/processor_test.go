package processor

import (
	"errors"
	"testing"

	"gexflow/models"
)

// Spot 602, active call wall at 600, active put wall at 605.
func TestComputeTwoStrikeScenario(t *testing.T) {
	snap := testSnapshot(602,
		call(600, "2025-10-28:0", 500, 0.05),
		put(605, "2025-10-28:0", 800, 0.06),
	)
	snap.CorrelatedPrice = 24900

	p := DefaultParams()
	res, err := Compute(snap, p)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if res.Degraded || res.Substituted {
		t.Fatalf("unexpected diagnostic flags: %+v", res)
	}

	if res.Levels.CallOI != 600 {
		t.Errorf("call OI level = %f, want 600", res.Levels.CallOI)
	}
	if res.Levels.PutOI != 605 {
		t.Errorf("put OI level = %f, want 605", res.Levels.PutOI)
	}
	if res.Levels.PositiveExposure != 600 {
		t.Errorf("positive exposure level = %f, want 600", res.Levels.PositiveExposure)
	}
	if res.Levels.NegativeExposure != 605 {
		t.Errorf("negative exposure level = %f, want 605", res.Levels.NegativeExposure)
	}

	// Both strikes sit inside the 5% search band and their exposures
	// oppose, so the crossing interpolates between them.
	if res.Levels.ZeroCrossing < 600 || res.Levels.ZeroCrossing > 605 {
		t.Errorf("zero crossing = %f, want within [600, 605]", res.Levels.ZeroCrossing)
	}

	mult := 100 * 602.0 * 602.0 * 0.01
	wantNet := 0.05*500*mult - 0.06*800*mult
	if !closeTo(res.Levels.NetExposure, wantNet, 1e-3) {
		t.Errorf("net exposure = %f, want %f", res.Levels.NetExposure, wantNet)
	}

	if res.Mapped.Ratio.Source != models.RatioLive {
		t.Errorf("expected live ratio, got %s", res.Mapped.Ratio.Source)
	}
	if res.Mapped.CallOI%p.TickSize != 0 {
		t.Errorf("mapped level %d not on tick grid", res.Mapped.CallOI)
	}
	if len(res.Strikes) != 2 {
		t.Errorf("expected 2 archived strikes, got %d", len(res.Strikes))
	}
	if res.ComputationID == "" {
		t.Errorf("computation ID missing")
	}
}

// Net exposure equals the sum of all per-strike exposures exactly.
func TestComputeNetExposureConsistency(t *testing.T) {
	snap := testSnapshot(610,
		call(595, "2025-10-28:0", 300, 0.01),
		call(600, "2025-10-28:0", 500, 0.05),
		call(610, "2025-10-28:0", 150, 0.02),
		put(600, "2025-10-28:0", 250, 0.03),
		put(605, "2025-10-28:0", 800, 0.06),
		put(615, "2025-10-28:0", 400, 0.02),
	)

	res, err := Compute(snap, DefaultParams())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	var sum float64
	for _, agg := range res.Strikes {
		sum += agg.CallExposure + agg.PutExposure
	}
	if !closeTo(res.Levels.NetExposure, sum, 1e-6) {
		t.Errorf("net exposure %f drifts from strike sum %f", res.Levels.NetExposure, sum)
	}
}

// A strike below the OI threshold on both sides never appears as a level.
func TestComputeFilteredStrikeNeverALevel(t *testing.T) {
	snap := testSnapshot(602,
		call(600, "2025-10-28:0", 500, 0.05),
		call(601, "2025-10-28:0", 99, 9.0), // huge gamma, illiquid
		put(601, "2025-10-28:0", 99, 9.0),
		put(605, "2025-10-28:0", 800, 0.06),
	)

	res, err := Compute(snap, DefaultParams())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for name, level := range map[string]float64{
		"call_oi":           res.Levels.CallOI,
		"put_oi":            res.Levels.PutOI,
		"positive_exposure": res.Levels.PositiveExposure,
		"negative_exposure": res.Levels.NegativeExposure,
	} {
		if level == 601 {
			t.Errorf("filtered strike surfaced as %s level", name)
		}
	}
	for _, agg := range res.Strikes {
		if agg.Strike == 601 {
			t.Errorf("filtered strike present in archive output")
		}
	}
}

// A lone zero-gamma strike leaves every level at the underlying price.
func TestComputeZeroGammaDefaults(t *testing.T) {
	snap := testSnapshot(602,
		call(600, "2025-10-28:0", 5000, 0),
		put(600, "2025-10-28:0", 5000, 0),
	)

	res, err := Compute(snap, DefaultParams())
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if res.Degraded {
		t.Fatalf("liquid strike must not degrade the result")
	}
	l := res.Levels
	for name, got := range map[string]float64{
		"call_oi":           l.CallOI,
		"put_oi":            l.PutOI,
		"positive_exposure": l.PositiveExposure,
		"negative_exposure": l.NegativeExposure,
	} {
		if got != 602 {
			t.Errorf("%s = %f, want spot 602", name, got)
		}
	}
	if l.ZeroCrossing != 602 {
		t.Errorf("zero crossing = %f, want spot 602", l.ZeroCrossing)
	}
	if l.NetExposure != 0 {
		t.Errorf("net exposure = %f, want 0", l.NetExposure)
	}
}

func TestComputeDegradedWhenNothingSurvives(t *testing.T) {
	snap := testSnapshot(602,
		call(600, "2025-10-28:0", 10, 0.05),
		put(605, "2025-10-28:0", 20, 0.06),
	)

	res, err := Compute(snap, DefaultParams())
	if err != nil {
		t.Fatalf("degenerate filter result must not fail: %v", err)
	}
	if !res.Degraded {
		t.Fatalf("expected degraded flag")
	}
	l := res.Levels
	if l.CallOI != 602 || l.PutOI != 602 || l.ZeroCrossing != 602 {
		t.Errorf("degraded levels must equal spot, got %+v", l)
	}
	if l.NetExposure != 0 {
		t.Errorf("degraded net exposure = %f, want 0", l.NetExposure)
	}
	if res.Mapped.Ratio.Source != models.RatioFallback {
		t.Errorf("missing correlated price must select the fallback ratio")
	}
}

func TestComputeRejectsInvalidSnapshots(t *testing.T) {
	cases := []struct {
		name string
		snap *models.ChainSnapshot
	}{
		{"nil", nil},
		{"no contracts", testSnapshot(602)},
		{"bad spot", testSnapshot(0, call(600, "2025-10-28:0", 500, 0.05))},
	}
	for _, c := range cases {
		_, err := Compute(c.snap, DefaultParams())
		var de *DataError
		if !errors.As(err, &de) {
			t.Errorf("%s: expected DataError, got %v", c.name, err)
		}
	}
}

func TestComputeSubstitutionSurfaces(t *testing.T) {
	snap := testSnapshot(602,
		call(600, "2025-10-31:3", 500, 0.05),
	)
	p := DefaultParams()
	p.Scope = models.ScopeZeroDTEOnly

	res, err := Compute(snap, p)
	if err != nil {
		t.Fatalf("substitution must not be fatal: %v", err)
	}
	if !res.Substituted {
		t.Errorf("expected substituted flag")
	}
}
