package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLocalDeterministic(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	a, err := l.EmbedText(ctx, "fix login redirect loop")
	if err != nil {
		t.Fatalf("EmbedText: %v", err)
	}
	b, err := l.EmbedText(ctx, "fix login redirect loop")
	if err != nil {
		t.Fatalf("EmbedText: %v", err)
	}
	if len(a) != l.Dims() {
		t.Fatalf("len(a) = %d, want %d", len(a), l.Dims())
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("EmbedText not deterministic at index %d: %v != %v", i, a[i], b[i])
		}
	}
}

func TestLocalDistinguishesUnrelatedText(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	a, _ := l.EmbedText(ctx, "fix login redirect loop after oauth callback")
	b, _ := l.EmbedText(ctx, "migrate billing invoices to new currency table")

	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("unrelated text produced identical vectors")
	}
}

func TestLocalEmbedDiffAppliesPreprocessing(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	raw := "diff --git a/x.go b/x.go\nindex 111..222 100644\n--- a/x.go\n+++ b/x.go\n@@ -1,2 +1,2 @@\n-old line\n+new line\n"
	prepared := PrepareDiff(raw, maxDiffChars)

	a, err := l.EmbedDiff(ctx, raw)
	if err != nil {
		t.Fatalf("EmbedDiff: %v", err)
	}
	b, err := l.EmbedText(ctx, prepared)
	if err != nil {
		t.Fatalf("EmbedText: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("EmbedDiff(raw) != EmbedText(prepared) at index %d", i)
		}
	}
}

func TestRemoteEmbedHappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req remoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %q, want test-model", req.Model)
		}
		resp := remoteResponse{
			Data: []struct {
				Embedding []float32 `json:"embedding"`
			}{{Embedding: []float32{0.1, 0.2, 0.3}}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, "", "test-model", 3)
	vec, err := r.EmbedText(context.Background(), "hello")
	if err != nil {
		t.Fatalf("EmbedText: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Errorf("vec = %v, want [0.1 0.2 0.3]", vec)
	}
}

func TestRemoteEmbedNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, "", "test-model", 3)
	if _, err := r.EmbedText(context.Background(), "hello"); err == nil {
		t.Fatal("expected error on 500 response, got nil")
	}
}

func TestRemoteEmbedEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(remoteResponse{})
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, "", "test-model", 3)
	if _, err := r.EmbedText(context.Background(), "hello"); err == nil {
		t.Fatal("expected error on empty data, got nil")
	}
}

func TestRemoteNameAndDims(t *testing.T) {
	r := NewRemote("http://example.invalid", "key", "text-embedding-3-small", 1536)
	if r.Dims() != 1536 {
		t.Errorf("Dims() = %d, want 1536", r.Dims())
	}
	if r.Name() != "remote-text-embedding-3-small" {
		t.Errorf("Name() = %q, want remote-text-embedding-3-small", r.Name())
	}
}
