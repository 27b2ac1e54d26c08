package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvandessel/magloop/internal/knowledge"
)

// Seeder writes the default knowledge base into a directory.
type Seeder struct {
	dir string
}

// NewSeeder creates a new Seeder for the given knowledge directory.
func NewSeeder(dir string) *Seeder {
	return &Seeder{dir: dir}
}

// SeedResult reports what the seeder did.
type SeedResult struct {
	Added   []string // paths of newly written seed files
	Updated []string // paths rewritten because of a version upgrade
	Skipped []string // paths skipped (up-to-date or disabled by the user)
	Total   int      // total number of seed definitions
}

// SeedDirectory ensures all seed files exist in the knowledge directory.
// It is idempotent: files at the current version are skipped, outdated
// files are rewritten, and files the user marked disabled are respected.
// Files without a seed_version are user-owned and never overwritten.
func (s *Seeder) SeedDirectory(ctx context.Context) (*SeedResult, error) {
	defs := coreEntries()
	result := &SeedResult{Total: len(defs)}

	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(s.dir, filepath.FromSlash(def.Path))

		state, err := readState(path)
		if err != nil {
			return nil, fmt.Errorf("checking seed %s: %w", def.Path, err)
		}

		switch {
		case !state.exists:
			if err := writeDefinition(path, def); err != nil {
				return nil, fmt.Errorf("adding seed %s: %w", def.Path, err)
			}
			result.Added = append(result.Added, def.Path)
		case state.disabled, state.version == "", state.version == SeedVersion:
			result.Skipped = append(result.Skipped, def.Path)
		default:
			if err := writeDefinition(path, def); err != nil {
				return nil, fmt.Errorf("updating seed %s: %w", def.Path, err)
			}
			result.Updated = append(result.Updated, def.Path)
		}
	}

	return result, nil
}

type fileState struct {
	exists   bool
	disabled bool
	version  string
}

func readState(path string) (fileState, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fileState{}, nil
	}
	if err != nil {
		return fileState{}, err
	}

	if filepath.Ext(path) == ".py" {
		header, _ := knowledge.ParseExampleHeader(data)
		return fileState{
			exists:   true,
			disabled: header["disabled"] == "true",
			version:  header["seed_version"],
		}, nil
	}

	fm, _, err := knowledge.ParseFrontMatter(data)
	if err != nil {
		// A hand-edited file with a broken header is left alone.
		return fileState{exists: true}, nil
	}
	return fileState{exists: true, disabled: fm.Disabled, version: fm.SeedVersion}, nil
}

// Render returns the file contents for a definition.
func (d Definition) Render() ([]byte, error) {
	fm := d.Front
	fm.SeedVersion = SeedVersion

	if filepath.Ext(d.Path) != ".py" {
		return knowledge.FormatFrontMatter(fm, d.Body)
	}

	var b strings.Builder
	if fm.ID != "" {
		fmt.Fprintf(&b, "# id: %s\n", fm.ID)
	}
	if fm.Title != "" {
		fmt.Fprintf(&b, "# title: %s\n", fm.Title)
	}
	if len(fm.Tags) > 0 {
		fmt.Fprintf(&b, "# tags: %s\n", strings.Join(fm.Tags, ", "))
	}
	if fm.Priority != nil {
		fmt.Fprintf(&b, "# priority: %d\n", *fm.Priority)
	}
	fmt.Fprintf(&b, "# seed_version: %s\n\n", fm.SeedVersion)
	b.WriteString(d.Body)
	b.WriteString("\n")
	return []byte(b.String()), nil
}

func writeDefinition(path string, def Definition) error {
	data, err := def.Render()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
