package rollout

import (
	"testing"

	"github.com/TimurManjosov/fbgo-sdk/internal/model"
)

func TestPercentageOfIsDeterministic(t *testing.T) {
	a := PercentageOf("flag-1user-a")
	b := PercentageOf("flag-1user-a")
	if a != b {
		t.Fatalf("expected deterministic hash, got %v and %v", a, b)
	}
	if a < 0 || a > 1 {
		t.Fatalf("expected percentage in [0,1], got %v", a)
	}
}

func TestBelongsToPercentageShortcut(t *testing.T) {
	if !BelongsToPercentage(0.999, 0, 1) {
		t.Error("expected [0,1] shortcut to always match")
	}
	if !BelongsToPercentage(0, 0, 1) {
		t.Error("expected [0,1] shortcut to match at lower bound")
	}
}

func TestBelongsToPercentageHalfOpen(t *testing.T) {
	if !BelongsToPercentage(0.2, 0.2, 0.4) {
		t.Error("expected lower bound to be inclusive")
	}
	if BelongsToPercentage(0.4, 0.2, 0.4) {
		t.Error("expected upper bound to be exclusive")
	}
}

func TestDispatchFindsOwningVariation(t *testing.T) {
	rr := model.RolloutRecord{
		DispatchKey: "keyid",
		Variations: []model.RolloutVariation{
			{ID: "v-true", Rollout: [2]float64{0, 0.5}},
			{ID: "v-false", Rollout: [2]float64{0.5, 1}},
		},
	}
	attr := func(name string) (string, bool) {
		if name == "keyid" {
			return "user-1", true
		}
		return "", false
	}

	first := Dispatch("ff-test", rr, attr, false)
	second := Dispatch("ff-test", rr, attr, false)
	if !first.Found || !second.Found {
		t.Fatalf("expected a variation match, got %+v and %+v", first, second)
	}
	if first.VariationID != second.VariationID {
		t.Fatalf("expected same (flag, user) pair to always land in the same variation")
	}
}

func TestDispatchExperimentInclusion(t *testing.T) {
	rr := model.RolloutRecord{
		DispatchKey:    "keyid",
		IncludedInExpt: true,
		Variations: []model.RolloutVariation{
			{ID: "v-all", Rollout: [2]float64{0, 1}, ExptRollout: 1},
		},
	}
	attr := func(string) (string, bool) { return "user-1", true }

	d := Dispatch("ff-test", rr, attr, false)
	if !d.Found {
		t.Fatalf("expected a match")
	}
	if !d.IsSendToExperiment {
		t.Errorf("expected full-width expt rollout to always send to experiment")
	}
}

func TestDispatchExptIncludeAllTargetsOverrides(t *testing.T) {
	rr := model.RolloutRecord{
		DispatchKey: "keyid",
		Variations: []model.RolloutVariation{
			{ID: "v-all", Rollout: [2]float64{0, 1}},
		},
	}
	attr := func(string) (string, bool) { return "user-1", true }

	d := Dispatch("ff-test", rr, attr, true)
	if !d.IsSendToExperiment {
		t.Errorf("expected exptIncludeAllTargets to force isSendToExperiment true")
	}
}

func TestDispatchNoMatch(t *testing.T) {
	rr := model.RolloutRecord{
		DispatchKey: "keyid",
		Variations: []model.RolloutVariation{
			{ID: "v-small", Rollout: [2]float64{0, 0}},
		},
	}
	attr := func(string) (string, bool) { return "user-1", true }

	d := Dispatch("ff-test", rr, attr, false)
	if d.Found {
		t.Fatalf("expected no variation to own a zero-width interval, got %+v", d)
	}
}
