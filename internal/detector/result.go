package detector

import "github.com/prsense-labs/prsense/internal/ranker"

// CheckResult is the outcome of Check: a classification, a confidence
// score, and the identifier of the original record when the
// classification names one.
type CheckResult struct {
	Type         ranker.Tier
	Confidence   float64
	OriginalID   int64
	HasOriginal  bool
}

// DetailedResult additionally carries the full score breakdown for the
// winning candidate, and the candidates considered.
type DetailedResult struct {
	CheckResult
	Breakdown  ranker.Breakdown
	Candidates []ranker.Candidate
}

// BatchItem is one entry of check_many's result sequence.
type BatchItem struct {
	ID            int64
	Result        CheckResult
	ProcessingMs  float64
	Err           error
}

// SearchHit is one entry of search's result sequence.
type SearchHit struct {
	ID          int64
	Score       float64
	Title       string
	Description string
	CreatedAt   int64
	Files       []string
}

// Stats answers get_stats.
type Stats struct {
	TotalPRs        int
	BloomSize       uint64
	DuplicatePairs  int
	StorageBackend  string
}
