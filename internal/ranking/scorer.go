// Package ranking scores knowledge entries against a request and orders them
// deterministically.
package ranking

import (
	"sort"
	"strings"

	"github.com/nvandessel/magloop/internal/models"
)

// ScorerConfig configures the relevance scorer.
//
// The score blends three signals:
//   - TagScore (share of the entry's tags that the request also carries)
//   - TextScore (lexical similarity, normalised to 0-1 by the caller)
//   - PriorityScore (curator-assigned priority)
type ScorerConfig struct {
	// Weight for tag overlap (0.0-1.0)
	TagWeight float64

	// Weight for text similarity (0.0-1.0)
	TextWeight float64

	// Weight for entry priority (0.0-1.0)
	PriorityWeight float64

	// MinRelevance is the threshold below which entries are not retrieved.
	MinRelevance float64

	// KindBoosts are score multipliers for entry kinds
	KindBoosts map[models.EntryKind]float64
}

// DefaultScorerConfig returns the default scoring configuration.
// Weights: Tag 50%, Text 40%, Priority 10%
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		TagWeight:      0.5,
		TextWeight:     0.4,
		PriorityWeight: 0.1,
		MinRelevance:   0.15,
		KindBoosts: map[models.EntryKind]float64{
			models.EntryKindExample:  1.0,
			models.EntryKindRule:     1.0,
			models.EntryKindGlossary: 0.9, // definitions help less than rules or code
		},
	}
}

// RelevanceScorer calculates relevance scores for knowledge entries
type RelevanceScorer struct {
	config ScorerConfig
}

// NewRelevanceScorer creates a new relevance scorer with the given config
func NewRelevanceScorer(config ScorerConfig) *RelevanceScorer {
	totalWeight := config.TagWeight + config.TextWeight + config.PriorityWeight
	if totalWeight > 0 && totalWeight != 1.0 {
		config.TagWeight /= totalWeight
		config.TextWeight /= totalWeight
		config.PriorityWeight /= totalWeight
	}
	if totalWeight <= 0 {
		d := DefaultScorerConfig()
		config.TagWeight, config.TextWeight, config.PriorityWeight = d.TagWeight, d.TextWeight, d.PriorityWeight
	}

	if config.MinRelevance < 0 {
		config.MinRelevance = 0
	}

	if config.KindBoosts == nil {
		config.KindBoosts = DefaultScorerConfig().KindBoosts
	}

	return &RelevanceScorer{config: config}
}

// Config returns the normalised configuration in use.
func (s *RelevanceScorer) Config() ScorerConfig { return s.config }

// ScoredEntry is a knowledge entry with its calculated relevance score.
type ScoredEntry struct {
	Entry *models.KnowledgeEntry

	// Position is the entry's insertion index in the store; it breaks ties.
	Position int

	Score float64

	// Component scores for debugging/transparency
	TagScore      float64
	TextScore     float64
	PriorityScore float64
	KindBoost     float64
}

// Score calculates the relevance of one entry. textScore must already be in [0,1].
func (s *RelevanceScorer) Score(entry *models.KnowledgeEntry, position int, req models.Request, textScore float64) ScoredEntry {
	if entry == nil {
		return ScoredEntry{Position: position}
	}

	scored := ScoredEntry{
		Entry:         entry,
		Position:      position,
		TagScore:      tagScore(entry.Tags, req.Tags),
		TextScore:     clamp01(textScore),
		PriorityScore: priorityScore(entry.Priority),
		KindBoost:     s.kindBoost(entry.Kind),
	}

	baseScore := scored.TagScore*s.config.TagWeight +
		scored.TextScore*s.config.TextWeight +
		scored.PriorityScore*s.config.PriorityWeight

	scored.Score = baseScore * scored.KindBoost
	return scored
}

// Select drops entries below MinRelevance, ranks the rest and returns at most k.
// A non-positive k returns every entry that passed.
func (s *RelevanceScorer) Select(scored []ScoredEntry, k int) []ScoredEntry {
	var kept []ScoredEntry
	for _, se := range scored {
		if se.Entry != nil && se.Score >= s.config.MinRelevance {
			kept = append(kept, se)
		}
	}
	Rank(kept)
	if k > 0 && len(kept) > k {
		kept = kept[:k]
	}
	return kept
}

// Rank sorts scored entries in place: score descending, then kind priority
// (example > rule > glossary), then insertion position.
func Rank(scored []ScoredEntry) {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if pa, pb := a.Entry.Kind.Priority(), b.Entry.Kind.Priority(); pa != pb {
			return pa > pb
		}
		return a.Position < b.Position
	})
}

// tagScore is the fraction of entry tags present in the request (case-insensitive).
func tagScore(entryTags, requestTags []string) float64 {
	if len(entryTags) == 0 || len(requestTags) == 0 {
		return 0
	}
	want := make(map[string]bool, len(requestTags))
	for _, t := range requestTags {
		want[strings.ToLower(t)] = true
	}
	shared := 0
	for _, t := range entryTags {
		if want[strings.ToLower(t)] {
			shared++
		}
	}
	return float64(shared) / float64(len(entryTags))
}

// priorityScore normalizes priority to a 0-1 score
func priorityScore(priority int) float64 {
	if priority < 0 {
		priority = 0
	}
	if priority > 10 {
		priority = 10
	}
	return float64(priority) / 10.0
}

// kindBoost returns the score multiplier for an entry kind
func (s *RelevanceScorer) kindBoost(kind models.EntryKind) float64 {
	if boost, ok := s.config.KindBoosts[kind]; ok {
		return boost
	}
	return 1.0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
