package embedder

import (
	"context"
	"math"
	"strings"
)

const (
	localDims     = 256
	localDiffDims = 256
)

// Local is the reference "no external service" embedder: a
// deterministic, content-dependent, hash-indexed bag-of-chars vector,
// L2-normalized. It exists so the detector core is usable without any
// remote dependency — tests and first-run setups use it by default.
//
// It is not semantically strong, but it is entirely deterministic,
// which is what repeatable duplicate-detection checks rely on.
type Local struct{}

// NewLocal constructs the reference local embedder.
func NewLocal() *Local { return &Local{} }

func (l *Local) Dims() int    { return localDims }
func (l *Local) Name() string { return "local-bagofchars-256" }

func (l *Local) EmbedText(_ context.Context, s string) ([]float32, error) {
	return hashBagOfChars(s, localDims), nil
}

func (l *Local) EmbedDiff(_ context.Context, s string) ([]float32, error) {
	prepared := PrepareDiff(s, maxDiffChars)
	return hashBagOfChars(prepared, localDiffDims), nil
}

// hashBagOfChars builds a fixed-length vector by hashing overlapping
// trigrams of s into buckets and accumulating counts, then L2
// normalizing. Two inputs that share substrings land partial weight in
// the same buckets, which is enough to make near-duplicate text score
// highly similar under cosine while unrelated text does not.
func hashBagOfChars(s string, dims int) []float32 {
	v := make([]float32, dims)
	lower := strings.ToLower(s)
	runes := []rune(lower)

	if len(runes) == 0 {
		return v
	}

	const gram = 3
	for i := 0; i < len(runes); i++ {
		end := i + gram
		if end > len(runes) {
			end = len(runes)
		}
		tok := string(runes[i:end])
		bucket := fnv32a(tok) % uint32(dims)
		v[bucket]++
	}

	return normalize(v)
}

func fnv32a(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for _, c := range []byte(s) {
		h ^= uint32(c)
		h *= prime32
	}
	return h
}

func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range v {
		v[i] /= norm
	}
	return v
}
