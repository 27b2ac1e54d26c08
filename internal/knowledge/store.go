// Package knowledge holds the curated knowledge base that grounds program
// generation: binding rules, glossary definitions and canonical examples.
//
// A Store is an immutable snapshot. It is built once (from a directory with
// Load, or from a slice with NewStore) and then shared read-only by any
// number of concurrent runs.
package knowledge

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/nvandessel/magloop/internal/models"
)

// Store is a read-only, ordered collection of knowledge entries.
// Insertion order is significant: it breaks ranking ties.
type Store struct {
	entries []*models.KnowledgeEntry
	byID    map[string]int
}

// NewStore builds a snapshot from entries, preserving their order.
// Entries are copied so later changes by the caller are not observed.
func NewStore(entries []models.KnowledgeEntry) (*Store, error) {
	s := &Store{
		entries: make([]*models.KnowledgeEntry, 0, len(entries)),
		byID:    make(map[string]int, len(entries)),
	}
	for i := range entries {
		e := entries[i]
		if e.ID == "" {
			return nil, fmt.Errorf("entry %d has no id", i)
		}
		if e.Kind.Priority() == 0 {
			return nil, fmt.Errorf("entry %s: unknown kind %q", e.ID, e.Kind)
		}
		if _, dup := s.byID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate entry id %q", e.ID)
		}
		e.Tags = append([]string(nil), e.Tags...)
		s.byID[e.ID] = len(s.entries)
		s.entries = append(s.entries, &e)
	}
	return s, nil
}

// Len returns the number of entries.
func (s *Store) Len() int { return len(s.entries) }

// Entries returns all entries in insertion order. The returned slice is a
// copy; the entries themselves must not be modified.
func (s *Store) Entries() []*models.KnowledgeEntry {
	out := make([]*models.KnowledgeEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Get returns the entry with the given ID, or nil.
func (s *Store) Get(id string) *models.KnowledgeEntry {
	if i, ok := s.byID[id]; ok {
		return s.entries[i]
	}
	return nil
}

// Position returns the insertion index of the entry with the given ID, or -1.
func (s *Store) Position(id string) int {
	if i, ok := s.byID[id]; ok {
		return i
	}
	return -1
}

// ByKind returns the entries of one kind in insertion order.
func (s *Store) ByKind(kind models.EntryKind) []*models.KnowledgeEntry {
	var out []*models.KnowledgeEntry
	for _, e := range s.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// GenericRules returns rule entries marked generic, highest priority first.
// Equal priorities keep insertion order.
func (s *Store) GenericRules() []*models.KnowledgeEntry {
	var out []*models.KnowledgeEntry
	for _, e := range s.entries {
		if e.Kind == models.EntryKindRule && e.Generic {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

// Tags returns the distinct tags used across the store, sorted.
func (s *Store) Tags() []string {
	seen := make(map[string]bool)
	var tags []string
	for _, e := range s.entries {
		for _, t := range e.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	return tags
}

// Search returns entries whose ID, title, tags or body match the regular
// expression, case-insensitively, in insertion order.
func (s *Store) Search(pattern string) ([]*models.KnowledgeEntry, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid search pattern: %w", err)
	}
	var out []*models.KnowledgeEntry
	for _, e := range s.entries {
		if re.MatchString(e.ID) || re.MatchString(e.Title) || re.MatchString(e.Body) || matchAny(re, e.Tags) {
			out = append(out, e)
		}
	}
	return out, nil
}

func matchAny(re *regexp.Regexp, values []string) bool {
	for _, v := range values {
		if re.MatchString(v) {
			return true
		}
	}
	return false
}
