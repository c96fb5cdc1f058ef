// Package ranker combines the three similarity signals the detector
// computes for a candidate (text, diff, file overlap) into a single
// score, and classifies that score against configurable thresholds.
package ranker

import "fmt"

// Weights are the nonnegative contributions of each similarity signal,
// normalized to sum to 1.0 when applied.
type Weights struct {
	Text float64
	Diff float64
	File float64
}

// DefaultWeights matches the detector's out-of-the-box configuration.
func DefaultWeights() Weights {
	return Weights{Text: 0.45, Diff: 0.35, File: 0.20}
}

// Validate rejects negative weights and the all-zero weight vector.
func (w Weights) Validate() error {
	if w.Text < 0 || w.Diff < 0 || w.File < 0 {
		return fmt.Errorf("ranker: weights must be nonnegative, got %+v", w)
	}
	if w.Text == 0 && w.Diff == 0 && w.File == 0 {
		return fmt.Errorf("ranker: weights cannot all be zero")
	}
	return nil
}

// Normalized returns w scaled so its components sum to 1.0. Panics-free:
// callers must Validate first since a zero sum cannot be normalized.
func (w Weights) Normalized() Weights {
	sum := w.Text + w.Diff + w.File
	if sum == 0 {
		return w
	}
	return Weights{Text: w.Text / sum, Diff: w.Diff / sum, File: w.File / sum}
}

// Breakdown is the full accounting for a single candidate's score:
// each raw similarity, each weighted contribution, and the final sum.
type Breakdown struct {
	TextSim float64
	DiffSim float64
	FileSim float64

	TextContribution float64
	DiffContribution float64
	FileContribution float64

	Score   float64
	Weights Weights
}

// Score combines three similarity scalars with w (assumed already
// normalized) into a full breakdown. Pure function; no allocation
// beyond the returned struct.
func Score(textSim, diffSim, fileSim float64, w Weights) Breakdown {
	textContribution := w.Text * textSim
	diffContribution := w.Diff * diffSim
	fileContribution := w.File * fileSim
	return Breakdown{
		TextSim:          textSim,
		DiffSim:          diffSim,
		FileSim:          fileSim,
		TextContribution: textContribution,
		DiffContribution: diffContribution,
		FileContribution: fileContribution,
		Score:            textContribution + diffContribution + fileContribution,
		Weights:          w,
	}
}

// Tier is the classification of a check result.
type Tier string

const (
	TierDuplicate Tier = "duplicate"
	TierPossible  Tier = "possible"
	TierUnique    Tier = "unique"
)

// Thresholds gate tier classification. Both values lie in [0,1] and
// Duplicate must be >= Possible.
type Thresholds struct {
	Duplicate float64
	Possible  float64
}

// DefaultThresholds matches the detector's out-of-the-box configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{Duplicate: 0.90, Possible: 0.82}
}

// Validate checks the invariant duplicate_threshold >= possible_threshold,
// both within [0,1].
func (t Thresholds) Validate() error {
	if t.Duplicate < 0 || t.Duplicate > 1 || t.Possible < 0 || t.Possible > 1 {
		return fmt.Errorf("ranker: thresholds must be in [0,1], got %+v", t)
	}
	if t.Duplicate < t.Possible {
		return fmt.Errorf("ranker: duplicate_threshold (%v) must be >= possible_threshold (%v)", t.Duplicate, t.Possible)
	}
	return nil
}

// Decide classifies score against t using >= boundary semantics: a
// score exactly equal to a threshold classifies at that tier.
func Decide(score float64, t Thresholds) Tier {
	switch {
	case score >= t.Duplicate:
		return TierDuplicate
	case score >= t.Possible:
		return TierPossible
	default:
		return TierUnique
	}
}

// Candidate pairs an identifier with its breakdown, for selecting the
// best match among several.
type Candidate struct {
	ID        int64
	Breakdown Breakdown
}

// Best returns the candidate with the maximum score, breaking ties by
// lowest identifier for determinism. Returns false if candidates is
// empty.
func Best(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Breakdown.Score > best.Breakdown.Score {
			best = c
		} else if c.Breakdown.Score == best.Breakdown.Score && c.ID < best.ID {
			best = c
		}
	}
	return best, true
}
