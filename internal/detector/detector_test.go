package detector

import (
	"context"
	"testing"

	"github.com/prsense-labs/prsense/internal/embedder"
	"github.com/prsense-labs/prsense/internal/ranker"
	"github.com/prsense-labs/prsense/internal/storage"
)

func newTestDetector(t *testing.T, store storage.Backend) *Detector {
	t.Helper()
	d, err := New(Config{
		Embedder: embedder.NewLocal(),
		Storage:  store,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return d
}

func TestFirstEverDescriptorIsUnique(t *testing.T) {
	d := newTestDetector(t, storage.NewMemory())
	result, err := d.Check(context.Background(), Descriptor{
		ID:    1,
		Title: "fix login redirect loop",
	}, Options{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Type != ranker.TierUnique {
		t.Fatalf("Type = %v, want unique", result.Type)
	}
	if result.Confidence != 0 {
		t.Fatalf("Confidence = %v, want 0 for first-ever descriptor", result.Confidence)
	}
}

func TestExactReplayIsDuplicate(t *testing.T) {
	ctx := context.Background()
	d := newTestDetector(t, storage.NewMemory())

	desc := Descriptor{
		ID:          1,
		Title:       "fix login redirect loop after oauth callback",
		Description: "the redirect loop happens when the oauth provider returns an expired token",
		Files:       []string{"auth/login.go", "auth/oauth.go"},
		Diff:        "diff --git a/auth/login.go b/auth/login.go\n@@ -1,2 +1,2 @@\n-old\n+fixed the redirect loop\n",
	}
	if _, err := d.Check(ctx, desc, Options{}); err != nil {
		t.Fatalf("Check(first): %v", err)
	}

	replay := desc
	replay.ID = 2
	result, err := d.Check(ctx, replay, Options{})
	if err != nil {
		t.Fatalf("Check(replay): %v", err)
	}
	if result.Type != ranker.TierDuplicate {
		t.Fatalf("Type = %v, want duplicate", result.Type)
	}
	if !result.HasOriginal || result.OriginalID != 1 {
		t.Fatalf("OriginalID = %d, HasOriginal = %v, want 1, true", result.OriginalID, result.HasOriginal)
	}
}

func TestUnrelatedDescriptorsAreUnique(t *testing.T) {
	ctx := context.Background()
	d := newTestDetector(t, storage.NewMemory())

	if _, err := d.Check(ctx, Descriptor{ID: 1, Title: "fix login redirect loop", Files: []string{"auth/login.go"}}, Options{}); err != nil {
		t.Fatalf("Check(1): %v", err)
	}
	result, err := d.Check(ctx, Descriptor{ID: 2, Title: "migrate billing invoices to new currency table", Files: []string{"billing/invoices.go"}}, Options{})
	if err != nil {
		t.Fatalf("Check(2): %v", err)
	}
	if result.Type != ranker.TierUnique {
		t.Fatalf("Type = %v, want unique for unrelated descriptor", result.Type)
	}
}

func TestDryRunDoesNotIndex(t *testing.T) {
	ctx := context.Background()
	d := newTestDetector(t, storage.NewMemory())

	desc := Descriptor{ID: 1, Title: "fix login redirect loop", Files: []string{"auth/login.go"}}
	if _, err := d.Check(ctx, desc, Options{DryRun: true}); err != nil {
		t.Fatalf("Check: %v", err)
	}

	stats := d.GetStats()
	if stats.TotalPRs != 0 {
		t.Fatalf("TotalPRs = %d, want 0 after dry-run", stats.TotalPRs)
	}
}

func TestCheckValidatesInput(t *testing.T) {
	d := newTestDetector(t, storage.NewMemory())
	_, err := d.Check(context.Background(), Descriptor{ID: 0, Title: "x"}, Options{})
	if err == nil {
		t.Fatal("expected error for non-positive identifier")
	}
	if kind, ok := KindOf(err); !ok || kind != KindInvalidInput {
		t.Fatalf("KindOf = %v, %v, want invalid_input", kind, ok)
	}
}

func TestCheckManyPreservesOrderAndToleratesFailures(t *testing.T) {
	ctx := context.Background()
	d := newTestDetector(t, storage.NewMemory())

	batch := []Descriptor{
		{ID: 1, Title: "a valid title"},
		{ID: 0, Title: "invalid: zero id"},
		{ID: 3, Title: "another valid title"},
	}
	results, err := d.CheckMany(ctx, batch, Options{})
	if err != nil {
		t.Fatalf("CheckMany: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if results[0].ID != 1 || results[1].ID != 0 || results[2].ID != 3 {
		t.Fatalf("order not preserved: %+v", results)
	}
	if results[1].Err == nil {
		t.Fatal("expected error captured for invalid descriptor")
	}
	if results[1].Result.Type != ranker.TierUnique {
		t.Fatalf("failed descriptor Result.Type = %v, want unique", results[1].Result.Type)
	}
}

func TestCheckManyRejectsOversizedBatch(t *testing.T) {
	d := newTestDetector(t, storage.NewMemory())
	batch := make([]Descriptor, maxCheckManyBatch+1)
	for i := range batch {
		batch[i] = Descriptor{ID: int64(i + 1), Title: "x"}
	}
	if _, err := d.CheckMany(context.Background(), batch, Options{}); err == nil {
		t.Fatal("expected invalid_input for oversized batch")
	}
}

func TestSnapshotRestorePreservesState(t *testing.T) {
	ctx := context.Background()
	d := newTestDetector(t, storage.NewMemory())

	desc := Descriptor{
		ID:    1,
		Title: "fix login redirect loop",
		Files: []string{"auth/login.go"},
		Diff:  "diff --git a/auth/login.go b/auth/login.go\n@@ -1,2 +1,2 @@\n-old\n+fixed the redirect loop\n",
	}
	if _, err := d.Check(ctx, desc, Options{}); err != nil {
		t.Fatalf("Check: %v", err)
	}

	snap := d.ExportState()

	d2 := newTestDetector(t, storage.NewMemory())
	if err := d2.ImportState(snap); err != nil {
		t.Fatalf("ImportState: %v", err)
	}

	replay := desc
	replay.ID = 2
	result, err := d2.Check(ctx, replay, Options{})
	if err != nil {
		t.Fatalf("Check(replay after restore): %v", err)
	}
	if result.Type != ranker.TierDuplicate {
		t.Fatalf("Type = %v, want duplicate after snapshot restore", result.Type)
	}
}

func TestSearchFindsIndexedDescriptor(t *testing.T) {
	ctx := context.Background()
	d := newTestDetector(t, storage.NewMemory())

	desc := Descriptor{ID: 1, Title: "fix login redirect loop after oauth callback", Description: "oauth callback issue"}
	if _, err := d.Check(ctx, desc, Options{}); err != nil {
		t.Fatalf("Check: %v", err)
	}

	hits, err := d.Search(ctx, "fix login redirect loop after oauth callback", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) == 0 || hits[0].ID != 1 {
		t.Fatalf("hits = %+v, want first hit ID 1", hits)
	}
}

func TestSetWeightsRejectsInvalid(t *testing.T) {
	d := newTestDetector(t, storage.NewMemory())
	if err := d.SetWeights(ranker.Weights{Text: -1, Diff: 1, File: 0}); err == nil {
		t.Fatal("expected error for negative weight")
	}
}

func TestSetWeightsNormalizes(t *testing.T) {
	d := newTestDetector(t, storage.NewMemory())
	if err := d.SetWeights(ranker.Weights{Text: 2, Diff: 1, File: 1}); err != nil {
		t.Fatalf("SetWeights: %v", err)
	}
	w := d.GetWeights()
	if w.Text != 0.5 || w.Diff != 0.25 || w.File != 0.25 {
		t.Fatalf("weights not normalized: %+v", w)
	}
}

func TestInitRepopulatesMirrorFromStorage(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	store.Save(ctx, storage.Record{ID: 1, Title: "existing", TextEmbedding: []float32{1, 0, 0}})

	d, err := New(Config{Embedder: embedder.NewLocal(), Storage: store})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}

	stats := d.GetStats()
	if stats.TotalPRs != 1 {
		t.Fatalf("TotalPRs = %d, want 1 after init from storage", stats.TotalPRs)
	}
}
