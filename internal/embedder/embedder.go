// Package embedder defines the pluggable embedding capability used by
// the detector core: a pair of operations that turn text into
// fixed-length vectors. Implementations are external collaborators —
// the core only depends on this interface.
package embedder

import "context"

// Embedder produces vectors from descriptive text and from diff text.
// Both operations are pure functions of their argument within a given
// process lifetime: same input, same output. Implementations may
// perform network I/O and must honor ctx cancellation.
type Embedder interface {
	// EmbedText embeds descriptive text (title + description).
	EmbedText(ctx context.Context, s string) ([]float32, error)

	// EmbedDiff embeds diff text. Implementations are expected to
	// preprocess the raw diff (see PrepareDiff) before vectorizing it.
	EmbedDiff(ctx context.Context, s string) ([]float32, error)

	// Dims returns the fixed embedding dimension this embedder produces.
	Dims() int

	// Name identifies the embedder, e.g. "local-bagofchars-256" or
	// "remote-text-embedding-3-small".
	Name() string
}
