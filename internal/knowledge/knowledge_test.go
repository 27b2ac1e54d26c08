package knowledge

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nvandessel/magloop/internal/models"
	"github.com/nvandessel/magloop/internal/tagging"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestParseFrontMatter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantID   string
		wantBody string
		wantErr  bool
	}{
		{"no header", "just a body\n", "", "just a body", false},
		{"header", "---\nid: units\npriority: 9\n---\n\nUse SI units.\n", "units", "Use SI units.", false},
		{"crlf fence", "---\r\nid: x\r\n---\r\nbody", "x", "body", false},
		{"unterminated", "---\nid: x\nbody", "", "", true},
		{"bad yaml", "---\nid: [x\n---\nbody", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, body, err := ParseFrontMatter([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if fm.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", fm.ID, tt.wantID)
			}
			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestFormatFrontMatter_RoundTrip(t *testing.T) {
	p := 7
	in := FrontMatter{ID: "r1", Kind: "rule", Tags: []string{"units"}, Priority: &p, SeedVersion: "1"}
	data, err := FormatFrontMatter(in, "Body text")
	if err != nil {
		t.Fatal(err)
	}
	out, body, err := ParseFrontMatter(data)
	if err != nil {
		t.Fatal(err)
	}
	if out.ID != "r1" || out.SeedVersion != "1" || *out.Priority != 7 || body != "Body text" {
		t.Errorf("round trip mismatch: %+v body=%q", out, body)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rules/10-imports.md", "---\ntitle: Import cmtj\ngeneric: true\npriority: 9\n---\nAlways import cmtj.\n")
	writeFile(t, dir, "rules/20-units.md", "---\nid: si-units\ntags: [units]\n---\nMagnetization is in Tesla.\n")
	writeFile(t, dir, "rules/30-off.md", "---\ndisabled: true\n---\nignored\n")
	writeFile(t, dir, "glossary/terms.yaml", "entries:\n  - id: pimm\n    title: PIMM\n    body: Pulse-induced microwave magnetometry.\n  - id: gone\n    body: x\n    disabled: true\n")
	writeFile(t, dir, "examples/pimm_spectrum.py", "# title: PIMM spectrum\n# tags: pimm\nimport cmtj\nj = cmtj.Junction([])\n")
	writeFile(t, dir, "README", "not knowledge")
	writeFile(t, dir, ".hidden/x.md", "---\nkind: rule\n---\nhidden\n")

	store, err := Load(dir, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Lexical walk order: examples/, glossary/, rules/.
	var ids []string
	for _, e := range store.Entries() {
		ids = append(ids, e.ID)
	}
	wantIDs := []string{"pimm_spectrum", "pimm", "10-imports", "si-units"}
	if !reflect.DeepEqual(ids, wantIDs) {
		t.Fatalf("ids = %v, want %v", ids, wantIDs)
	}

	ex := store.Get("pimm_spectrum")
	if ex.Kind != models.EntryKindExample || ex.Title != "PIMM spectrum" {
		t.Errorf("example = %+v", ex)
	}
	if ex.Body != "import cmtj\nj = cmtj.Junction([])" {
		t.Errorf("example body = %q", ex.Body)
	}
	if !reflect.DeepEqual(ex.Tags, []string{"pimm"}) {
		t.Errorf("example tags = %v", ex.Tags)
	}
	if ex.Source != "examples/pimm_spectrum.py" {
		t.Errorf("Source = %q", ex.Source)
	}

	if g := store.Get("pimm"); g.Kind != models.EntryKindGlossary {
		t.Errorf("pimm kind = %q, want glossary", g.Kind)
	}

	imports := store.Get("10-imports")
	if imports.Kind != models.EntryKindRule || !imports.Generic || imports.Priority != 9 {
		t.Errorf("imports = %+v", imports)
	}
	if units := store.Get("si-units"); units.Priority != DefaultPriority {
		t.Errorf("default priority = %d, want %d", units.Priority, DefaultPriority)
	}
}

func TestLoad_Deterministic(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c", "a", "b"} {
		writeFile(t, dir, "rules/"+name+".md", "rule "+name)
	}
	first, err := Load(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Load(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, e := range first.Entries() {
		if second.Entries()[i].ID != e.ID {
			t.Fatalf("load order differs at %d", i)
		}
	}
	if first.Entries()[0].ID != "a" {
		t.Errorf("first entry = %q, want a", first.Entries()[0].ID)
	}
}

func TestLoad_InfersTags(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rules/sot.md", "---\ntags: [Spin Orbit Torque]\n---\nThe heavy metal layer drives SOT.\n")

	store, err := Load(dir, tagging.NewDictionary())
	if err != nil {
		t.Fatal(err)
	}
	got := store.Get("sot").Tags
	want := []string{"layer", "sot"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tags = %v, want %v", got, want)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
	}{
		{"duplicate id", map[string]string{"rules/a.md": "---\nid: x\n---\none", "rules/b.md": "---\nid: x\n---\ntwo"}},
		{"unknown kind", map[string]string{"rules/a.md": "---\nkind: recipe\n---\nbody"}},
		{"kind not implied", map[string]string{"notes/a.md": "body"}},
		{"empty body", map[string]string{"rules/a.md": "---\nid: a\n---\n"}},
		{"bad yaml list", map[string]string{"glossary/g.yaml": "entries: [oops"}},
		{"yaml entry without id", map[string]string{"glossary/g.yaml": "entries:\n  - body: x\n"}},
		{"python wrong kind", map[string]string{"examples/a.py": "# kind: rule\nprint(1)\n"}},
		{"python bad priority", map[string]string{"examples/a.py": "# priority: high\nprint(1)\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for rel, content := range tt.files {
				writeFile(t, dir, rel, content)
			}
			_, err := Load(dir, nil)
			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("Load() error = %v, want *LoadError", err)
			}
		})
	}
}

func TestLoad_MissingDirectory(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"), nil)
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("error = %v, want *LoadError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped ErrNotExist, got %v", err)
	}
}

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore([]models.KnowledgeEntry{
		{ID: "r-low", Kind: models.EntryKindRule, Body: "low", Priority: 2, Generic: true, Tags: []string{"general"}},
		{ID: "g1", Kind: models.EntryKindGlossary, Title: "LLG", Body: "Landau-Lifshitz-Gilbert equation", Tags: []string{"llg"}},
		{ID: "r-high", Kind: models.EntryKindRule, Body: "high", Priority: 9, Generic: true},
		{ID: "r-specific", Kind: models.EntryKindRule, Body: "Use A/m for fields", Tags: []string{"units"}},
		{ID: "ex1", Kind: models.EntryKindExample, Body: "junction.runSimulation(5e-9)", Tags: []string{"pimm"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestStore_Lookups(t *testing.T) {
	s := testStore(t)

	if s.Len() != 5 {
		t.Errorf("Len() = %d, want 5", s.Len())
	}
	if s.Get("missing") != nil {
		t.Error("expected nil for unknown id")
	}
	if got := s.Position("r-high"); got != 2 {
		t.Errorf("Position() = %d, want 2", got)
	}
	if got := s.Position("missing"); got != -1 {
		t.Errorf("Position(missing) = %d, want -1", got)
	}
	if got := len(s.ByKind(models.EntryKindRule)); got != 3 {
		t.Errorf("ByKind(rule) = %d, want 3", got)
	}

	var generic []string
	for _, e := range s.GenericRules() {
		generic = append(generic, e.ID)
	}
	if !reflect.DeepEqual(generic, []string{"r-high", "r-low"}) {
		t.Errorf("GenericRules() = %v", generic)
	}

	if got := s.Tags(); !reflect.DeepEqual(got, []string{"general", "llg", "pimm", "units"}) {
		t.Errorf("Tags() = %v", got)
	}
}

func TestStore_Search(t *testing.T) {
	s := testStore(t)

	tests := []struct {
		pattern string
		want    []string
	}{
		{"landau", []string{"g1"}},
		{"^llg$", []string{"g1"}},
		{`runSimulation\(`, []string{"ex1"}},
		{"a/m", []string{"r-specific"}},
		{"nothing-matches-this", nil},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := s.Search(tt.pattern)
			if err != nil {
				t.Fatal(err)
			}
			var ids []string
			for _, e := range got {
				ids = append(ids, e.ID)
			}
			if !reflect.DeepEqual(ids, tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.pattern, ids, tt.want)
			}
		})
	}

	if _, err := s.Search("("); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestStore_Immutable(t *testing.T) {
	entries := []models.KnowledgeEntry{{ID: "a", Kind: models.EntryKindRule, Body: "x", Tags: []string{"t"}}}
	s, err := NewStore(entries)
	if err != nil {
		t.Fatal(err)
	}
	entries[0].Body = "changed"
	entries[0].Tags[0] = "changed"

	if got := s.Get("a"); got.Body != "x" || got.Tags[0] != "t" {
		t.Errorf("store observed caller mutation: %+v", got)
	}

	list := s.Entries()
	list[0] = nil
	if s.Entries()[0] == nil {
		t.Error("Entries() should return a copy")
	}
}

func TestNewStore_Errors(t *testing.T) {
	tests := []struct {
		name    string
		entries []models.KnowledgeEntry
	}{
		{"missing id", []models.KnowledgeEntry{{Kind: models.EntryKindRule}}},
		{"bad kind", []models.KnowledgeEntry{{ID: "a", Kind: "recipe"}}},
		{"duplicate", []models.KnowledgeEntry{{ID: "a", Kind: models.EntryKindRule}, {ID: "a", Kind: models.EntryKindRule}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewStore(tt.entries); err == nil {
				t.Error("expected error")
			}
		})
	}
}
