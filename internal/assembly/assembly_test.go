package assembly

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nvandessel/magloop/internal/models"
)

func rule(id string, generic bool, tags ...string) *models.KnowledgeEntry {
	return &models.KnowledgeEntry{ID: id, Kind: models.EntryKindRule, Tags: tags, Generic: generic, Body: id}
}

func groupIDs(groups []RuleGroup) map[string][]string {
	out := map[string][]string{}
	for _, g := range groups {
		for _, r := range g.Rules {
			out[g.Label] = append(out[g.Label], r.ID)
		}
	}
	return out
}

func TestGroupRules(t *testing.T) {
	rules := []*models.KnowledgeEntry{
		rule("imports", true, "cmtj"),
		rule("pimm-a", false, "pimm", "fmr"),
		rule("sot", false, "sot", "current"),
		rule("pimm-b", false, "pimm", "fmr", "plotting"),
		rule("untagged", false),
		nil,
	}

	groups := GroupRules(rules, DefaultGroupConfig())

	want := map[string][]string{
		GeneralLabel: {"imports", "untagged"},
		"PIMM FMR":   {"pimm-a", "pimm-b"},
		OtherLabel:   {"sot"},
	}
	if diff := cmp.Diff(want, groupIDs(groups)); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}

	var labels []string
	for _, g := range groups {
		labels = append(labels, g.Label)
	}
	if diff := cmp.Diff([]string{GeneralLabel, "PIMM FMR", OtherLabel}, labels); diff != "" {
		t.Errorf("group order mismatch (-want +got):\n%s", diff)
	}
}

func TestGroupRules_KeepsEveryRule(t *testing.T) {
	rules := []*models.KnowledgeEntry{
		rule("a", false, "x"), rule("b", false, "y"), rule("c", false, "z"), rule("d", true),
	}
	total := 0
	for _, g := range GroupRules(rules, GroupConfig{}) {
		total += len(g.Rules)
	}
	if total != len(rules) {
		t.Errorf("grouped %d rules, want %d", total, len(rules))
	}
}

func TestGroupRules_Empty(t *testing.T) {
	if got := GroupRules(nil, DefaultGroupConfig()); len(got) != 0 {
		t.Errorf("GroupRules(nil) = %v, want empty", got)
	}
}

func TestJaccardSimilarity(t *testing.T) {
	tests := []struct {
		a, b []string
		want float64
	}{
		{nil, nil, 0},
		{[]string{"a"}, []string{"a"}, 1},
		{[]string{"a", "b"}, []string{"b", "c"}, 1.0 / 3.0},
		{[]string{"a"}, []string{"b"}, 0},
	}
	for _, tt := range tests {
		if got := jaccardSimilarity(tt.a, tt.b); got != tt.want {
			t.Errorf("jaccardSimilarity(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestGenerateClusterLabel(t *testing.T) {
	tests := []struct {
		tags []string
		want string
	}{
		{nil, "Related Rules"},
		{[]string{"sot"}, "SOT"},
		{[]string{"field-sweep", "pma"}, "Field-sweep PMA"},
	}
	for _, tt := range tests {
		if got := generateClusterLabel(tt.tags); got != tt.want {
			t.Errorf("generateClusterLabel(%v) = %q, want %q", tt.tags, got, tt.want)
		}
	}
}

func TestCompiler_Compile_Empty(t *testing.T) {
	result := NewCompiler(0).Compile(nil)
	if result.Text != "" || len(result.Sections) != 0 || result.TotalTokens != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
}

func TestCompiler_Compile_Render(t *testing.T) {
	result := NewCompiler(0).Compile([]Section{
		{Title: "Task", Body: "Simulate PIMM."},
		{Title: "Skipped", Body: "   "},
		{Body: "Untitled line\n"},
	})
	want := "## Task\n\nSimulate PIMM.\n\nUntitled line\n"
	if result.Text != want {
		t.Errorf("Text = %q, want %q", result.Text, want)
	}
	if len(result.Sections) != 2 {
		t.Errorf("expected blank section to be skipped, got %d sections", len(result.Sections))
	}
}

func TestCompiler_Compile_DropsFromTheEnd(t *testing.T) {
	long := strings.Repeat("x", 400) // ~100 tokens
	sections := []Section{
		{Title: "Task", Body: "do it"},
		{Title: "Example 1", Body: long, Droppable: true},
		{Title: "Example 2", Body: long, Droppable: true},
		{Title: "Output", Body: "one python block"},
	}

	result := NewCompiler(150).Compile(sections)

	if result.Dropped != 1 {
		t.Fatalf("Dropped = %d, want 1", result.Dropped)
	}
	var titles []string
	for _, s := range result.Sections {
		titles = append(titles, s.Title)
	}
	if diff := cmp.Diff([]string{"Task", "Example 1", "Output"}, titles); diff != "" {
		t.Errorf("sections mismatch (-want +got):\n%s", diff)
	}
	if result.TotalTokens > 150 {
		t.Errorf("TotalTokens = %d, want <= 150", result.TotalTokens)
	}
}

func TestCompiler_Compile_RequiredSectionsStay(t *testing.T) {
	long := strings.Repeat("y", 800)
	result := NewCompiler(10).Compile([]Section{
		{Title: "Rules", Body: long},
		{Title: "Example", Body: "short", Droppable: true},
	})
	if len(result.Sections) != 1 || result.Sections[0].Title != "Rules" {
		t.Errorf("expected only the required section, got %+v", result.Sections)
	}
	if result.TotalTokens <= 10 {
		t.Errorf("expected result to exceed the budget, got %d tokens", result.TotalTokens)
	}
}
