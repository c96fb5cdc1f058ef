// Package detector implements the duplicate-detection orchestrator:
// validation, cached embedding, bloom fingerprinting, candidate
// retrieval, multi-signal re-ranking, decision, and indexing.
package detector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/prsense-labs/prsense/internal/attribution"
	"github.com/prsense-labs/prsense/internal/bloom"
	"github.com/prsense-labs/prsense/internal/cache"
	"github.com/prsense-labs/prsense/internal/embedder"
	"github.com/prsense-labs/prsense/internal/logger"
	"github.com/prsense-labs/prsense/internal/ranker"
	"github.com/prsense-labs/prsense/internal/storage"
	"github.com/prsense-labs/prsense/internal/vectormath"
)

// Config configures a Detector at construction time.
type Config struct {
	Embedder       embedder.Embedder
	Storage        storage.Backend
	Thresholds     ranker.Thresholds
	Weights        ranker.Weights
	BloomSize      uint64
	BloomHashFuncs int
	MaxCandidates  int
	EnableCache    bool
	CacheSize      int
}

// mirrorEntry is the in-memory record of one indexed descriptor.
type mirrorEntry struct {
	Title         string
	Description   string
	Files         []string
	FileSet       map[string]struct{}
	TextEmbedding []float32
	DiffEmbedding []float32
	CreatedAt     int64
}

// Detector is the duplicate-detection core. Construct with New, then
// call Init before issuing checks.
type Detector struct {
	embedder embedder.Embedder
	storage  storage.Backend

	maxCandidates int

	mu         sync.RWMutex
	thresholds ranker.Thresholds
	weights    ranker.Weights

	mirrorMu sync.RWMutex
	mirror   map[int64]mirrorEntry

	bloomMu sync.Mutex
	filter  *bloom.Filter

	attribution *attribution.Graph

	argTextCache   *cache.ArgumentCache
	argDiffCache   *cache.ArgumentCache
	compositeCache *cache.CompositeCache
	cacheEnabled   bool
}

// New constructs a Detector. cfg.Embedder is required; everything else
// falls back to the detector's documented defaults.
func New(cfg Config) (*Detector, error) {
	if cfg.Embedder == nil {
		return nil, configurationError("embedder is required")
	}

	thresholds := cfg.Thresholds
	if thresholds == (ranker.Thresholds{}) {
		thresholds = ranker.DefaultThresholds()
	}
	if err := thresholds.Validate(); err != nil {
		return nil, configurationError("invalid thresholds: %v", err)
	}

	weights := cfg.Weights
	if weights == (ranker.Weights{}) {
		weights = ranker.DefaultWeights()
	}
	if err := weights.Validate(); err != nil {
		return nil, configurationError("invalid weights: %v", err)
	}
	weights = weights.Normalized()

	bloomSize := cfg.BloomSize
	if bloomSize == 0 {
		bloomSize = 8192
	}
	bloomHashFuncs := cfg.BloomHashFuncs
	if bloomHashFuncs == 0 {
		bloomHashFuncs = 5
	}

	maxCandidates := cfg.MaxCandidates
	if maxCandidates == 0 {
		maxCandidates = 20
	}

	cacheSize := cfg.CacheSize
	if cacheSize == 0 {
		cacheSize = 1000
	}

	d := &Detector{
		embedder:      cfg.Embedder,
		storage:       cfg.Storage,
		maxCandidates: maxCandidates,
		thresholds:    thresholds,
		weights:       weights,
		mirror:        make(map[int64]mirrorEntry),
		filter:        bloom.New(bloomSize, bloomHashFuncs),
		attribution:   attribution.New(),
		cacheEnabled:  cfg.EnableCache,
	}
	if d.cacheEnabled {
		d.argTextCache = cache.NewArgumentCache(cacheSize)
		d.argDiffCache = cache.NewArgumentCache(cacheSize)
		d.compositeCache = cache.NewCompositeCache(cacheSize)
	}
	return d, nil
}

// Init loads every record from the configured storage, repopulates the
// in-memory mirror, and inserts a content fingerprint for each record
// into the bloom filter. Stored records carry no diff text, so that
// fingerprint covers title and description only and differs from the
// one Check adds for a descriptor with a non-empty diff. A nil storage
// makes Init a no-op.
func (d *Detector) Init(ctx context.Context) error {
	if d.storage == nil {
		return nil
	}
	records, err := d.storage.GetAll(ctx)
	if err != nil {
		return storageError(err, "init: load records")
	}

	d.mirrorMu.Lock()
	defer d.mirrorMu.Unlock()
	for _, rec := range records {
		d.mirror[rec.ID] = mirrorEntry{
			Title:         rec.Title,
			Description:   rec.Description,
			Files:         rec.Files,
			FileSet:       vectormath.StringSet(rec.Files),
			TextEmbedding: rec.TextEmbedding,
			DiffEmbedding: rec.DiffEmbedding,
			CreatedAt:     rec.CreatedAtMilli,
		}
		d.bloomMu.Lock()
		d.filter.Add(contentFingerprint(rec.Title, rec.Description, ""))
		d.bloomMu.Unlock()
	}
	return nil
}

func contentFingerprint(title, description, diff string) string {
	h := sha256.New()
	h.Write([]byte(title))
	h.Write([]byte(description))
	h.Write([]byte(diff))
	return hex.EncodeToString(h.Sum(nil))
}

// Options controls a single check call.
type Options struct {
	DryRun bool
}

// Check runs the full pipeline and returns a coarse classification.
func (d *Detector) Check(ctx context.Context, desc Descriptor, opts Options) (CheckResult, error) {
	detailed, err := d.CheckDetailed(ctx, desc, opts)
	if err != nil {
		return CheckResult{}, err
	}
	return detailed.CheckResult, nil
}

// CheckDetailed runs the full nine-step pipeline and returns the
// classification plus a complete score breakdown.
func (d *Detector) CheckDetailed(ctx context.Context, desc Descriptor, opts Options) (DetailedResult, error) {
	// 1. Validation.
	if err := validateDescriptor(desc); err != nil {
		return DetailedResult{}, err
	}

	// 2. Sanitization.
	clean := sanitize(desc)

	// 3. Embedding (cached).
	textVec, diffVec, err := d.embedWithCache(ctx, clean)
	if err != nil {
		return DetailedResult{}, err
	}

	// 4. Fingerprint.
	fp := contentFingerprint(clean.Title, clean.Description, clean.Diff)
	d.bloomMu.Lock()
	d.filter.Add(fp)
	d.bloomMu.Unlock()

	// 5. Candidate retrieval.
	candidateIDs, err := d.retrieveCandidates(ctx, textVec)
	if err != nil {
		return DetailedResult{}, err
	}

	// 6. Re-ranking.
	w := d.getWeights()
	fileSet := vectormath.StringSet(clean.Files)
	candidates := d.rankCandidates(candidateIDs, textVec, diffVec, fileSet, w)

	// 7. Decision.
	thresholds := d.getThresholds()
	best, hasBest := ranker.Best(candidates)
	result := CheckResult{Type: ranker.TierUnique, Confidence: 0}
	if hasBest {
		result.Confidence = best.Breakdown.Score
		tier := ranker.Decide(best.Breakdown.Score, thresholds)
		result.Type = tier
		if tier == ranker.TierDuplicate || tier == ranker.TierPossible {
			result.OriginalID = best.ID
			result.HasOriginal = true
		}
	}

	// 8. Indexing.
	if !opts.DryRun {
		d.index(ctx, clean, textVec, diffVec, result)
	}

	// 9. Analytics.
	if !opts.DryRun {
		d.recordAnalytics(ctx, clean.ID, result)
	}

	detailed := DetailedResult{CheckResult: result, Candidates: candidates}
	if hasBest {
		detailed.Breakdown = best.Breakdown
	}
	return detailed, nil
}

// embedWithCache consults the composite cache first; on a miss it
// consults the per-argument caches for each of embed_text/embed_diff
// independently, invoking the embedder only for the pieces still
// missing, and populates every cache layer that was consulted.
func (d *Detector) embedWithCache(ctx context.Context, clean Descriptor) ([]float32, []float32, error) {
	text := clean.Title + "\n" + clean.Description

	if d.cacheEnabled {
		key := cache.CompositeKey(clean.Title, clean.Description, clean.Diff)
		if pair, ok := d.compositeCache.Get(key); ok {
			return pair.Text, pair.Diff, nil
		}

		textVec, diffVec, err := d.embedViaArgumentCache(ctx, text, clean.Diff)
		if err != nil {
			return nil, nil, err
		}
		d.compositeCache.Put(key, cache.Pair{Text: textVec, Diff: diffVec})
		return textVec, diffVec, nil
	}

	return d.embedUncached(ctx, text, clean.Diff)
}

func (d *Detector) embedViaArgumentCache(ctx context.Context, text, diff string) ([]float32, []float32, error) {
	textVec, ok := d.argTextCache.Get(text)
	if !ok {
		v, err := d.embedder.EmbedText(ctx, text)
		if err != nil {
			return nil, nil, embeddingError(err, "embed text")
		}
		if len(v) == 0 {
			return nil, nil, embeddingError(nil, "embedder returned empty text vector")
		}
		d.argTextCache.Put(text, v)
		textVec = v
	}

	diffVec, ok := d.argDiffCache.Get(diff)
	if !ok {
		v, err := d.embedder.EmbedDiff(ctx, diff)
		if err != nil {
			return nil, nil, embeddingError(err, "embed diff")
		}
		if len(v) == 0 {
			return nil, nil, embeddingError(nil, "embedder returned empty diff vector")
		}
		d.argDiffCache.Put(diff, v)
		diffVec = v
	}

	return textVec, diffVec, nil
}

func (d *Detector) embedUncached(ctx context.Context, text, diff string) ([]float32, []float32, error) {
	textVec, err := d.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, nil, embeddingError(err, "embed text")
	}
	if len(textVec) == 0 {
		return nil, nil, embeddingError(nil, "embedder returned empty text vector")
	}
	diffVec, err := d.embedder.EmbedDiff(ctx, diff)
	if err != nil {
		return nil, nil, embeddingError(err, "embed diff")
	}
	if len(diffVec) == 0 {
		return nil, nil, embeddingError(nil, "embedder returned empty diff vector")
	}
	return textVec, diffVec, nil
}

// retrieveCandidates delegates to storage search when available,
// falling back to a full in-memory scan on absence or failure.
func (d *Detector) retrieveCandidates(ctx context.Context, textVec []float32) ([]int64, error) {
	if d.storage != nil {
		scored, err := d.storage.Search(ctx, textVec, d.maxCandidates)
		if err == nil {
			ids := make([]int64, len(scored))
			for i, s := range scored {
				ids[i] = s.ID
			}
			return ids, nil
		}
		logger.Warn("storage search failed, falling back to in-memory scan", "error", err)
	}
	return d.scanMirrorTopK(textVec, d.maxCandidates), nil
}

func (d *Detector) scanMirrorTopK(textVec []float32, k int) []int64 {
	d.mirrorMu.RLock()
	defer d.mirrorMu.RUnlock()

	type scored struct {
		id    int64
		score float64
	}
	all := make([]scored, 0, len(d.mirror))
	for id, entry := range d.mirror {
		all = append(all, scored{id: id, score: vectormath.Cosine(textVec, entry.TextEmbedding)})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].id < all[j].id
	})
	if k > 0 && len(all) > k {
		all = all[:k]
	}
	ids := make([]int64, len(all))
	for i, s := range all {
		ids[i] = s.id
	}
	return ids
}

// rankCandidates retrieves each candidate's stored embeddings and file
// set, then scores it against the new descriptor's vectors.
func (d *Detector) rankCandidates(ids []int64, textVec, diffVec []float32, fileSet map[string]struct{}, w ranker.Weights) []ranker.Candidate {
	d.mirrorMu.RLock()
	defer d.mirrorMu.RUnlock()

	out := make([]ranker.Candidate, 0, len(ids))
	for _, id := range ids {
		entry, ok := d.mirror[id]
		if !ok {
			continue
		}
		sText := vectormath.Cosine(textVec, entry.TextEmbedding)
		sDiff := vectormath.Cosine(diffVec, entry.DiffEmbedding)
		sFile := vectormath.Jaccard(fileSet, entry.FileSet)
		out = append(out, ranker.Candidate{ID: id, Breakdown: ranker.Score(sText, sDiff, sFile, w)})
	}
	return out
}

func (d *Detector) index(ctx context.Context, clean Descriptor, textVec, diffVec []float32, result CheckResult) {
	now := time.Now().UnixMilli()
	fileSet := vectormath.StringSet(clean.Files)

	d.mirrorMu.Lock()
	d.mirror[clean.ID] = mirrorEntry{
		Title:         clean.Title,
		Description:   clean.Description,
		Files:         clean.Files,
		FileSet:       fileSet,
		TextEmbedding: textVec,
		DiffEmbedding: diffVec,
		CreatedAt:     now,
	}
	d.mirrorMu.Unlock()

	if result.Type == ranker.TierDuplicate {
		d.attribution.AddEdge(clean.ID, result.OriginalID)
	}

	if d.storage != nil {
		rec := storage.Record{
			ID:             clean.ID,
			Title:          clean.Title,
			Description:    clean.Description,
			Files:          clean.Files,
			TextEmbedding:  textVec,
			DiffEmbedding:  diffVec,
			CreatedAtMilli: now,
		}
		if err := d.storage.Save(ctx, rec); err != nil {
			logger.Error("storage save failed, in-memory mirror stands", "id", clean.ID, "error", err)
		}
	}
}

func (d *Detector) recordAnalytics(ctx context.Context, id int64, result CheckResult) {
	ab, ok := d.storage.(storage.AnalyticsBackend)
	if !ok {
		return
	}
	cr := storage.CheckResult{
		ID:             id,
		ResultType:     string(result.Type),
		Confidence:     result.Confidence,
		TimestampMilli: time.Now().UnixMilli(),
	}
	if result.HasOriginal {
		original := result.OriginalID
		cr.OriginalID = &original
	}
	if err := ab.SaveCheck(ctx, cr); err != nil {
		logger.Warn("save_check failed", "id", id, "error", err)
	}
}

// CheckMany processes descriptors in input order, never aborting on a
// single descriptor's failure: a failure is captured as a unique
// result with confidence 0 and logged.
func (d *Detector) CheckMany(ctx context.Context, descriptors []Descriptor, opts Options) ([]BatchItem, error) {
	if err := validateBatch(descriptors); err != nil {
		return nil, err
	}

	out := make([]BatchItem, len(descriptors))
	for i, desc := range descriptors {
		start := time.Now()
		result, err := d.Check(ctx, desc, opts)
		elapsedMs := float64(time.Since(start).Microseconds()) / 1000.0
		if err != nil {
			logger.Warn("check_many: descriptor failed", "id", desc.ID, "error", err)
			out[i] = BatchItem{
				ID:           desc.ID,
				Result:       CheckResult{Type: ranker.TierUnique, Confidence: 0},
				ProcessingMs: elapsedMs,
				Err:          err,
			}
			continue
		}
		out[i] = BatchItem{ID: desc.ID, Result: result, ProcessingMs: elapsedMs}
	}
	return out, nil
}

// Search embeds query via embed_text (the diff embedder is unused),
// retrieves candidates, and hydrates each hit from the in-memory
// mirror, falling through to storage.Get when a record isn't mirrored.
func (d *Detector) Search(ctx context.Context, queryText string, k int) ([]SearchHit, error) {
	queryVec, err := d.embedder.EmbedText(ctx, queryText)
	if err != nil {
		return nil, embeddingError(err, "embed search query")
	}
	if len(queryVec) == 0 {
		return nil, embeddingError(nil, "embedder returned empty query vector")
	}

	limit := k
	if limit <= 0 {
		limit = d.maxCandidates
	}
	ids, err := d.retrieveCandidatesForSearch(ctx, queryVec, limit)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(ids))
	for _, sid := range ids {
		hit, ok := d.hydrate(ctx, sid.ID, sid.Score)
		if !ok {
			continue
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (d *Detector) retrieveCandidatesForSearch(ctx context.Context, queryVec []float32, k int) ([]storage.ScoredID, error) {
	if d.storage != nil {
		scored, err := d.storage.Search(ctx, queryVec, k)
		if err == nil {
			return scored, nil
		}
		logger.Warn("storage search failed during search, falling back to in-memory scan", "error", err)
	}

	ids := d.scanMirrorTopK(queryVec, k)
	d.mirrorMu.RLock()
	defer d.mirrorMu.RUnlock()
	out := make([]storage.ScoredID, 0, len(ids))
	for _, id := range ids {
		entry := d.mirror[id]
		out = append(out, storage.ScoredID{ID: id, Score: vectormath.Cosine(queryVec, entry.TextEmbedding)})
	}
	return out, nil
}

func (d *Detector) hydrate(ctx context.Context, id int64, score float64) (SearchHit, bool) {
	d.mirrorMu.RLock()
	entry, ok := d.mirror[id]
	d.mirrorMu.RUnlock()
	if ok {
		return SearchHit{ID: id, Score: score, Title: entry.Title, Description: entry.Description, CreatedAt: entry.CreatedAt, Files: entry.Files}, true
	}

	if d.storage == nil {
		return SearchHit{}, false
	}
	rec, err := d.storage.Get(ctx, id)
	if err != nil {
		return SearchHit{}, false
	}
	return SearchHit{ID: id, Score: score, Title: rec.Title, Description: rec.Description, CreatedAt: rec.CreatedAtMilli, Files: rec.Files}, true
}

// SetWeights validates and normalizes w, then applies it.
func (d *Detector) SetWeights(w ranker.Weights) error {
	if err := w.Validate(); err != nil {
		return invalidInput("%v", err)
	}
	d.mu.Lock()
	d.weights = w.Normalized()
	d.mu.Unlock()
	return nil
}

func (d *Detector) GetWeights() ranker.Weights {
	return d.getWeights()
}

func (d *Detector) getWeights() ranker.Weights {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.weights
}

func (d *Detector) getThresholds() ranker.Thresholds {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.thresholds
}

// ExportState snapshots every mirrored record plus the bloom filter,
// independent of whichever storage back-end is configured.
func (d *Detector) ExportState() storage.Snapshot {
	d.mirrorMu.RLock()
	records := make([]storage.SnapshotRecord, 0, len(d.mirror))
	for id, entry := range d.mirror {
		records = append(records, storage.SnapshotRecord{
			ID:            id,
			Title:         entry.Title,
			Description:   entry.Description,
			Files:         entry.Files,
			TextEmbedding: entry.TextEmbedding,
			DiffEmbedding: entry.DiffEmbedding,
			CreatedAt:     entry.CreatedAt,
		})
	}
	d.mirrorMu.RUnlock()

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	d.bloomMu.Lock()
	bloomExport := d.filter.Export()
	d.bloomMu.Unlock()

	return storage.Snapshot{Records: records, Bloom: bloomExport}
}

// ImportState replaces the in-memory mirror and bloom filter with the
// contents of snap.
func (d *Detector) ImportState(snap storage.Snapshot) error {
	mirror := make(map[int64]mirrorEntry, len(snap.Records))
	for _, r := range snap.Records {
		mirror[r.ID] = mirrorEntry{
			Title:         r.Title,
			Description:   r.Description,
			Files:         r.Files,
			FileSet:       vectormath.StringSet(r.Files),
			TextEmbedding: r.TextEmbedding,
			DiffEmbedding: r.DiffEmbedding,
			CreatedAt:     r.CreatedAt,
		}
	}

	d.mirrorMu.Lock()
	d.mirror = mirror
	d.mirrorMu.Unlock()

	if snap.Bloom != "" {
		d.bloomMu.Lock()
		err := d.filter.Import(snap.Bloom)
		d.bloomMu.Unlock()
		if err != nil {
			return storageError(err, "import_state: bloom import")
		}
	}
	return nil
}

// GetStats answers a coarse summary of the detector's current state.
func (d *Detector) GetStats() Stats {
	d.mirrorMu.RLock()
	total := len(d.mirror)
	d.mirrorMu.RUnlock()

	backendName := "none"
	if d.storage != nil {
		backendName = d.storage.Name()
	}

	return Stats{
		TotalPRs:       total,
		BloomSize:      d.filter.M(),
		DuplicatePairs: len(d.attribution.Edges()),
		StorageBackend: backendName,
	}
}

// Close releases the configured storage, if any.
func (d *Detector) Close() error {
	if d.storage == nil {
		return nil
	}
	if err := d.storage.Close(); err != nil {
		return storageError(err, "close storage")
	}
	return nil
}
