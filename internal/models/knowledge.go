// Package models defines the core data types shared across the magloop pipeline.
package models

import "fmt"

// EntryKind categorizes knowledge base entries.
type EntryKind string

const (
	// EntryKindRule is a binding constraint on generated programs
	// (e.g. "magnetization values are in Tesla").
	EntryKindRule EntryKind = "rule"

	// EntryKindGlossary defines a domain term.
	EntryKindGlossary EntryKind = "glossary"

	// EntryKindExample is a canonical, known-good code sample.
	EntryKindExample EntryKind = "example"
)

// ValidEntryKinds returns all valid entry kinds.
func ValidEntryKinds() []EntryKind {
	return []EntryKind{EntryKindRule, EntryKindGlossary, EntryKindExample}
}

// ParseEntryKind converts a string into an EntryKind.
func ParseEntryKind(s string) (EntryKind, error) {
	for _, k := range ValidEntryKinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown entry kind %q (want rule, glossary or example)", s)
}

// Priority orders kinds for tie breaking: example > rule > glossary.
func (k EntryKind) Priority() int {
	switch k {
	case EntryKindExample:
		return 3
	case EntryKindRule:
		return 2
	case EntryKindGlossary:
		return 1
	default:
		return 0
	}
}

// KnowledgeEntry is one curated piece of domain knowledge.
// Entries are immutable once loaded and owned by the knowledge store.
type KnowledgeEntry struct {
	ID       string    `json:"id" yaml:"id"`
	Kind     EntryKind `json:"kind" yaml:"kind"`
	Tags     []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	Title    string    `json:"title,omitempty" yaml:"title,omitempty"`
	Body     string    `json:"body" yaml:"body"`
	Priority int       `json:"priority,omitempty" yaml:"priority,omitempty"`

	// Generic rules apply to every request and make up the retrieval fallback pool.
	Generic bool `json:"generic,omitempty" yaml:"generic,omitempty"`

	// Source is the file the entry was loaded from, relative to the knowledge directory.
	Source string `json:"source,omitempty" yaml:"-"`
}

// HasTag reports whether the entry carries the given tag.
func (e *KnowledgeEntry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Label returns the title when set, otherwise the ID.
func (e *KnowledgeEntry) Label() string {
	if e.Title != "" {
		return e.Title
	}
	return e.ID
}
