package main

import (
	"fmt"

	"github.com/prsense-labs/prsense/internal/detector"
	"github.com/prsense-labs/prsense/internal/embedder"
	"github.com/prsense-labs/prsense/internal/storage"
)

// openDetector constructs a Detector wired to the backend named by
// --store, using the local reference embedder (no API key required
// for this harness).
func openDetector() (*detector.Detector, func(), error) {
	var backend storage.Backend
	var cleanup func()

	switch storeFlag {
	case "memory":
		backend = storage.NewMemory()
		cleanup = func() {}
	case "sqlite":
		s, err := storage.OpenSQLite(dsnFlag)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		backend = s
		cleanup = func() { s.Close() }
	default:
		return nil, nil, fmt.Errorf("unknown --store %q (want memory or sqlite)", storeFlag)
	}

	d, err := detector.New(detector.Config{
		Embedder: embedder.NewLocal(),
		Storage:  backend,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("construct detector: %w", err)
	}
	return d, cleanup, nil
}
