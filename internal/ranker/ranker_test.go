package ranker

import "testing"

func TestScoreBreakdown(t *testing.T) {
	w := DefaultWeights()
	b := Score(1.0, 0.5, 0.0, w)
	want := 0.45*1.0 + 0.35*0.5 + 0.20*0.0
	if b.Score != want {
		t.Fatalf("Score = %v, want %v", b.Score, want)
	}
	if b.TextContribution != 0.45 {
		t.Fatalf("TextContribution = %v, want 0.45", b.TextContribution)
	}
}

func TestWeightsValidateRejectsNegative(t *testing.T) {
	w := Weights{Text: -0.1, Diff: 0.5, File: 0.6}
	if err := w.Validate(); err == nil {
		t.Fatal("expected error for negative weight")
	}
}

func TestWeightsValidateRejectsAllZero(t *testing.T) {
	w := Weights{}
	if err := w.Validate(); err == nil {
		t.Fatal("expected error for all-zero weights")
	}
}

func TestWeightsNormalized(t *testing.T) {
	w := Weights{Text: 1, Diff: 1, File: 2}
	n := w.Normalized()
	if n.Text != 0.25 || n.Diff != 0.25 || n.File != 0.5 {
		t.Fatalf("Normalized() = %+v", n)
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := (Thresholds{Duplicate: 0.9, Possible: 0.82}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Thresholds{Duplicate: 0.5, Possible: 0.82}).Validate(); err == nil {
		t.Fatal("expected error when duplicate < possible")
	}
	if err := (Thresholds{Duplicate: 1.5, Possible: 0.82}).Validate(); err == nil {
		t.Fatal("expected error when duplicate out of [0,1]")
	}
}

func TestDecideBoundaries(t *testing.T) {
	thresh := DefaultThresholds()
	cases := []struct {
		score float64
		want  Tier
	}{
		{0.90, TierDuplicate},
		{0.95, TierDuplicate},
		{0.82, TierPossible},
		{0.89, TierPossible},
		{0.81, TierUnique},
		{0, TierUnique},
	}
	for _, c := range cases {
		if got := Decide(c.score, thresh); got != c.want {
			t.Errorf("Decide(%v) = %v, want %v", c.score, got, c.want)
		}
	}
}

func TestBestPicksMaxScore(t *testing.T) {
	cands := []Candidate{
		{ID: 5, Breakdown: Breakdown{Score: 0.5}},
		{ID: 2, Breakdown: Breakdown{Score: 0.9}},
		{ID: 9, Breakdown: Breakdown{Score: 0.3}},
	}
	best, ok := Best(cands)
	if !ok || best.ID != 2 {
		t.Fatalf("Best() = %+v, %v, want ID 2", best, ok)
	}
}

func TestBestTieBreaksLowestID(t *testing.T) {
	cands := []Candidate{
		{ID: 7, Breakdown: Breakdown{Score: 0.9}},
		{ID: 3, Breakdown: Breakdown{Score: 0.9}},
		{ID: 9, Breakdown: Breakdown{Score: 0.9}},
	}
	best, ok := Best(cands)
	if !ok || best.ID != 3 {
		t.Fatalf("Best() = %+v, %v, want ID 3 (lowest of tied)", best, ok)
	}
}

func TestBestEmpty(t *testing.T) {
	if _, ok := Best(nil); ok {
		t.Fatal("expected ok=false for empty candidates")
	}
}
