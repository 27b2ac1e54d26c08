// Package assembly groups binding rules and compiles prompt sections.
package assembly

import (
	"strings"

	"github.com/nvandessel/magloop/internal/models"
)

// GeneralLabel is the label of the group holding generic and untagged rules.
const GeneralLabel = "General"

// OtherLabel is the label of the group holding rules that joined no cluster.
const OtherLabel = "Other"

// GroupConfig controls rule grouping.
type GroupConfig struct {
	// MinClusterSize is the minimum number of related rules that earn their
	// own labelled section. Default: 2.
	MinClusterSize int

	// MinSimilarity is the Jaccard tag similarity above which two rules are
	// related. Default: 0.5.
	MinSimilarity float64
}

// DefaultGroupConfig returns sensible defaults.
func DefaultGroupConfig() GroupConfig {
	return GroupConfig{
		MinClusterSize: 2,
		MinSimilarity:  0.5,
	}
}

// RuleGroup is a labelled set of rules that share tags.
type RuleGroup struct {
	// Label describes the group (e.g., "General" or "Pimm Fmr").
	Label string

	// SharedTags are tags common to all members.
	SharedTags []string

	// Rules keep their retrieval order.
	Rules []*models.KnowledgeEntry
}

// GroupRules partitions rules into labelled groups without dropping any.
//
// Algorithm:
//  1. Generic or untagged rules form the General group
//  2. The remaining rules are clustered greedily by tag overlap (Jaccard > MinSimilarity)
//  3. Clusters with >= MinClusterSize members become their own group,
//     labelled from the shared tags
//  4. Rules not in any cluster go to the Other group
//
// Groups come out in General, cluster (by first member's rank), Other order.
func GroupRules(rules []*models.KnowledgeEntry, cfg GroupConfig) []RuleGroup {
	if cfg.MinClusterSize < 1 {
		cfg.MinClusterSize = DefaultGroupConfig().MinClusterSize
	}
	if cfg.MinSimilarity <= 0 {
		cfg.MinSimilarity = DefaultGroupConfig().MinSimilarity
	}

	var general, tagged []*models.KnowledgeEntry
	for _, r := range rules {
		if r == nil {
			continue
		}
		if r.Generic || len(r.Tags) == 0 {
			general = append(general, r)
		} else {
			tagged = append(tagged, r)
		}
	}

	var groups []RuleGroup
	if len(general) > 0 {
		groups = append(groups, RuleGroup{Label: GeneralLabel, Rules: general})
	}

	clusters, rest := clusterByTags(tagged, cfg)
	groups = append(groups, clusters...)
	if len(rest) > 0 {
		groups = append(groups, RuleGroup{Label: OtherLabel, Rules: rest})
	}
	return groups
}

// clusterByTags clusters rules by tag overlap.
func clusterByTags(rules []*models.KnowledgeEntry, cfg GroupConfig) (clusters []RuleGroup, rest []*models.KnowledgeEntry) {
	n := len(rules)
	assigned := make([]bool, n)

	// Greedy: each unassigned rule collects every later unassigned neighbour.
	for i := 0; i < n; i++ {
		if assigned[i] {
			continue
		}

		candidate := []int{i}
		for j := i + 1; j < n; j++ {
			if !assigned[j] && jaccardSimilarity(rules[i].Tags, rules[j].Tags) > cfg.MinSimilarity {
				candidate = append(candidate, j)
			}
		}
		if len(candidate) < cfg.MinClusterSize {
			continue
		}

		shared := rules[candidate[0]].Tags
		members := make([]*models.KnowledgeEntry, 0, len(candidate))
		for _, idx := range candidate {
			assigned[idx] = true
			shared = intersectTags(shared, rules[idx].Tags)
			members = append(members, rules[idx])
		}

		clusters = append(clusters, RuleGroup{
			Label:      generateClusterLabel(shared),
			SharedTags: shared,
			Rules:      members,
		})
	}

	for i := 0; i < n; i++ {
		if !assigned[i] {
			rest = append(rest, rules[i])
		}
	}
	return clusters, rest
}

// jaccardSimilarity computes the Jaccard index between two string slices.
// Returns 0.0 if both are empty.
func jaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0.0
	}

	setA := make(map[string]bool, len(a))
	for _, s := range a {
		setA[s] = true
	}

	setB := make(map[string]bool, len(b))
	for _, s := range b {
		setB[s] = true
	}

	intersection := 0
	for s := range setA {
		if setB[s] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

// intersectTags returns the intersection of two tag slices, preserving order of the first slice.
func intersectTags(a, b []string) []string {
	setB := make(map[string]bool, len(b))
	for _, s := range b {
		setB[s] = true
	}

	var result []string
	for _, s := range a {
		if setB[s] {
			result = append(result, s)
		}
	}
	return result
}

// generateClusterLabel creates a human-readable label from shared tags.
// Short tags are acronyms (PIMM, SOT) and are upper-cased; longer ones are
// title-cased.
func generateClusterLabel(tags []string) string {
	if len(tags) == 0 {
		return "Related Rules"
	}

	titled := make([]string, len(tags))
	for i, tag := range tags {
		if len(tag) <= 4 {
			titled[i] = strings.ToUpper(tag)
		} else {
			titled[i] = titleCase(tag)
		}
	}

	return strings.Join(titled, " ")
}

// titleCase capitalizes the first letter of a string.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
