package storage

import (
	"context"
	"testing"
)

func TestSQLiteSaveGetRoundTrip(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	rec := Record{
		ID:             1,
		Title:          "fix login bug",
		Description:    "users can't log in",
		Files:          []string{"auth/login.go"},
		TextEmbedding:  []float32{0.1, 0.2, 0.3},
		DiffEmbedding:  []float32{0.4, 0.5},
		CreatedAtMilli: 1700000000000,
	}
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != rec.Title || len(got.Files) != 1 || got.Files[0] != "auth/login.go" {
		t.Fatalf("got = %+v", got)
	}
	if len(got.TextEmbedding) != 3 || got.TextEmbedding[1] != float32(0.2) {
		t.Fatalf("TextEmbedding = %v", got.TextEmbedding)
	}
}

func TestSQLiteUpsert(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	s.Save(ctx, Record{ID: 1, Title: "v1", Files: []string{}})
	s.Save(ctx, Record{ID: 1, Title: "v2", Files: []string{}})

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 1 || all[0].Title != "v2" {
		t.Fatalf("all = %+v, want single v2 record", all)
	}
}

func TestSQLiteGetNotFound(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	if _, err := s.Get(context.Background(), 42); err != ErrNotFound {
		t.Fatalf("Get(missing) err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteSearch(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	s.Save(ctx, Record{ID: 1, Files: []string{}, TextEmbedding: []float32{1, 0}})
	s.Save(ctx, Record{ID: 2, Files: []string{}, TextEmbedding: []float32{0, 1}})

	results, err := s.Search(ctx, []float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != 1 {
		t.Fatalf("results = %+v, want [{1 ...}]", results)
	}
}

func TestSQLiteDelete(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	s.Save(ctx, Record{ID: 1, Files: []string{}})
	if err := s.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, 1); err != ErrNotFound {
		t.Fatalf("Get after delete err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteSaveCheckAndAnalytics(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	origID := int64(1)
	if err := s.SaveCheck(ctx, CheckResult{ID: 2, ResultType: "duplicate", OriginalID: &origID, Confidence: 0.95, TimestampMilli: 1700000000000}); err != nil {
		t.Fatalf("SaveCheck: %v", err)
	}
	if err := s.SaveCheck(ctx, CheckResult{ID: 3, ResultType: "unique", Confidence: 0, TimestampMilli: 1700000001000}); err != nil {
		t.Fatalf("SaveCheck: %v", err)
	}

	summary, err := s.GetAnalytics(ctx)
	if err != nil {
		t.Fatalf("GetAnalytics: %v", err)
	}
	if summary.TotalChecks != 2 || summary.DuplicateCount != 1 || summary.UniqueCount != 1 {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestEncodeDecodeVectorRoundTrip(t *testing.T) {
	v := []float32{0.1, -2.5, 3.333, 0}
	got := decodeVector(encodeVector(v))
	if len(got) != len(v) {
		t.Fatalf("len mismatch: %d vs %d", len(got), len(v))
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("index %d: %v != %v", i, got[i], v[i])
		}
	}
}
