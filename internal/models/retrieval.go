package models

// RetrievedEntry pairs a knowledge entry with its relevance score.
type RetrievedEntry struct {
	Entry *KnowledgeEntry `json:"entry"`
	Score float64         `json:"score"`
}

// RetrievalResult is the ordered output of one retrieval.
// Item order is rank order. A result is built fresh for every request.
type RetrievalResult struct {
	Items []RetrievedEntry `json:"items"`

	// Fallback is set when no entry cleared the relevance threshold and the
	// items are generic rules instead.
	Fallback bool `json:"fallback,omitempty"`

	// Standing holds the generic rules that bind every request, whatever
	// their rank. They may also appear in Items.
	Standing []*KnowledgeEntry `json:"standing,omitempty"`
}

// Len returns the number of retrieved entries.
func (r RetrievalResult) Len() int { return len(r.Items) }

// IDs returns the entry IDs in rank order.
func (r RetrievalResult) IDs() []string {
	ids := make([]string, len(r.Items))
	for i, it := range r.Items {
		ids[i] = it.Entry.ID
	}
	return ids
}

// Rules returns the rule entries in rank order.
func (r RetrievalResult) Rules() []*KnowledgeEntry { return r.ofKind(EntryKindRule) }

// Constraints returns the rules a program must follow: standing rules first,
// then retrieved rules not already among them.
func (r RetrievalResult) Constraints() []*KnowledgeEntry {
	out := make([]*KnowledgeEntry, 0, len(r.Standing)+len(r.Items))
	seen := make(map[string]bool, len(r.Standing))
	for _, e := range r.Standing {
		if e == nil || seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		out = append(out, e)
	}
	for _, e := range r.Rules() {
		if !seen[e.ID] {
			seen[e.ID] = true
			out = append(out, e)
		}
	}
	return out
}

// Examples returns the example entries in rank order.
func (r RetrievalResult) Examples() []*KnowledgeEntry { return r.ofKind(EntryKindExample) }

// Glossary returns the glossary entries in rank order.
func (r RetrievalResult) Glossary() []*KnowledgeEntry { return r.ofKind(EntryKindGlossary) }

func (r RetrievalResult) ofKind(kind EntryKind) []*KnowledgeEntry {
	var out []*KnowledgeEntry
	for _, it := range r.Items {
		if it.Entry.Kind == kind {
			out = append(out, it.Entry)
		}
	}
	return out
}
