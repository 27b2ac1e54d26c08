package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/nvandessel/magloop/internal/knowledge"
	"github.com/nvandessel/magloop/internal/tagging"
)

// CoreStore builds a knowledge store from the seed definitions. It seeds a
// scratch directory and loads it back, exercising the same path a user's
// knowledge directory goes through.
func CoreStore(dict *tagging.Dictionary) (*knowledge.Store, error) {
	dir, err := os.MkdirTemp("", "magloop-seed-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(dir)

	if _, err := NewSeeder(dir).SeedDirectory(context.Background()); err != nil {
		return nil, fmt.Errorf("seeding scratch directory: %w", err)
	}

	store, err := knowledge.Load(dir, dict)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Definitions returns the seed definitions in write order.
func Definitions() []Definition {
	return coreEntries()
}
