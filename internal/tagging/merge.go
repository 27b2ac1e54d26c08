package tagging

import (
	"sort"
	"strings"

	"github.com/nvandessel/magloop/internal/sanitize"
)

// MergeTags combines the tags a knowledge entry declares in its front matter
// with the tags inferred from its text.
//
// Declared tags are mapped to their canonical form when dict knows them
// ("spin-orbit torque" becomes "sot") and are otherwise kept sanitized. They
// are taken first, in declaration order, and inferred tags fill whatever is
// left of MaxTags. The result is sorted and free of duplicates; nil when empty.
func MergeTags(inferred, declared []string, dict *Dictionary) []string {
	if len(declared) == 0 {
		return inferred
	}

	var merged []string
	seen := make(map[string]bool, MaxTags)
	take := func(tag string) {
		if tag == "" || seen[tag] || len(merged) >= MaxTags {
			return
		}
		seen[tag] = true
		merged = append(merged, tag)
	}
	for _, t := range declared {
		take(canonicalTag(t, dict))
	}
	for _, t := range inferred {
		take(t)
	}

	if len(merged) == 0 {
		return nil
	}
	sort.Strings(merged)
	return merged
}

func canonicalTag(tag string, dict *Dictionary) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return ""
	}
	if dict != nil {
		if c, ok := dict.Lookup(tag); ok {
			return c
		}
	}
	return sanitize.Tag(tag)
}
