package knowledge

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/magloop/internal/models"
	"github.com/nvandessel/magloop/internal/tagging"
)

// LoadError reports a knowledge source that could not be loaded.
// It is fatal at startup.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading knowledge from %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// dirKinds maps conventional directory names to the kind of the entries inside.
var dirKinds = map[string]models.EntryKind{
	"rules":    models.EntryKindRule,
	"glossary": models.EntryKindGlossary,
	"examples": models.EntryKindExample,
}

// Load reads every knowledge file under dir into a Store.
//
// Files are visited in lexical path order, which becomes the store's insertion
// order. Markdown and text files carry YAML front matter; YAML files hold an
// "entries" list; Python files are examples with a "# key: value" comment
// header. Anything else is ignored.
//
// When dict is non-nil, declared tags are normalized through it and merged with
// tags inferred from each entry's title and body.
func Load(dir string, dict *tagging.Dictionary) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &LoadError{Path: dir, Err: fmt.Errorf("not a directory")}
	}

	var entries []models.KnowledgeEntry
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return &LoadError{Path: path, Err: walkErr}
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		var loaded []models.KnowledgeEntry
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".txt":
			loaded, err = loadDocument(path, rel)
		case ".yaml", ".yml":
			loaded, err = loadYAML(path, rel)
		case ".py":
			loaded, err = loadExample(path, rel)
		default:
			return nil
		}
		if err != nil {
			return &LoadError{Path: path, Err: err}
		}
		entries = append(entries, loaded...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range entries {
		entries[i].Tags = tagEntry(&entries[i], dict)
	}

	store, err := NewStore(entries)
	if err != nil {
		return nil, &LoadError{Path: dir, Err: err}
	}
	return store, nil
}

func tagEntry(e *models.KnowledgeEntry, dict *tagging.Dictionary) []string {
	if dict == nil {
		return tagging.MergeTags(nil, e.Tags, nil)
	}
	text := e.Title + "\n" + e.Body
	if e.Kind == models.EntryKindExample {
		// Code bodies mention Layer/Junction everywhere; only the title is descriptive.
		text = e.Title
	}
	return tagging.MergeTags(dict.InferTags(text), e.Tags, dict)
}

// kindFor resolves the entry kind from an explicit value or the top-level directory.
func kindFor(explicit, rel string) (models.EntryKind, error) {
	if explicit != "" {
		return models.ParseEntryKind(explicit)
	}
	top, _, _ := strings.Cut(rel, "/")
	if k, ok := dirKinds[top]; ok {
		return k, nil
	}
	return "", fmt.Errorf("kind not declared and directory %q does not imply one", top)
}

func stem(rel string) string {
	base := filepath.Base(rel)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func loadDocument(path, rel string) ([]models.KnowledgeEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fm, body, err := ParseFrontMatter(data)
	if err != nil {
		return nil, err
	}
	if fm.Disabled {
		return nil, nil
	}
	if body == "" {
		return nil, fmt.Errorf("empty body")
	}
	kind, err := kindFor(fm.Kind, rel)
	if err != nil {
		return nil, err
	}
	e := models.KnowledgeEntry{
		ID:       fm.ID,
		Kind:     kind,
		Tags:     fm.Tags,
		Title:    fm.Title,
		Body:     body,
		Priority: DefaultPriority,
		Generic:  fm.Generic,
		Source:   rel,
	}
	if e.ID == "" {
		e.ID = stem(rel)
	}
	if fm.Priority != nil {
		e.Priority = clampPriority(*fm.Priority)
	}
	return []models.KnowledgeEntry{e}, nil
}

// yamlEntry is one item of a YAML knowledge file.
type yamlEntry struct {
	ID       string   `yaml:"id"`
	Kind     string   `yaml:"kind"`
	Title    string   `yaml:"title"`
	Tags     []string `yaml:"tags"`
	Body     string   `yaml:"body"`
	Priority *int     `yaml:"priority"`
	Generic  bool     `yaml:"generic"`
	Disabled bool     `yaml:"disabled"`
}

type yamlFile struct {
	Kind    string      `yaml:"kind"`
	Entries []yamlEntry `yaml:"entries"`
}

func loadYAML(path, rel string) ([]models.KnowledgeEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	var out []models.KnowledgeEntry
	for i, y := range f.Entries {
		if y.Disabled {
			continue
		}
		explicit := y.Kind
		if explicit == "" {
			explicit = f.Kind
		}
		kind, err := kindFor(explicit, rel)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if y.ID == "" {
			return nil, fmt.Errorf("entry %d has no id", i)
		}
		body := strings.TrimSpace(y.Body)
		if body == "" {
			return nil, fmt.Errorf("entry %s: empty body", y.ID)
		}
		e := models.KnowledgeEntry{
			ID:       y.ID,
			Kind:     kind,
			Tags:     y.Tags,
			Title:    y.Title,
			Body:     body,
			Priority: DefaultPriority,
			Generic:  y.Generic,
			Source:   rel,
		}
		if y.Priority != nil {
			e.Priority = clampPriority(*y.Priority)
		}
		out = append(out, e)
	}
	return out, nil
}

// loadExample reads a Python example. The leading "# key: value" comments
// are metadata; the rest is the body.
func loadExample(path, rel string) ([]models.KnowledgeEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	header, body := ParseExampleHeader(data)
	if header["disabled"] == "true" {
		return nil, nil
	}
	if k, ok := header["kind"]; ok && k != string(models.EntryKindExample) {
		return nil, fmt.Errorf("python files must be examples, got kind %q", k)
	}
	if body == "" {
		return nil, fmt.Errorf("empty example")
	}

	e := models.KnowledgeEntry{
		ID:       stem(rel),
		Kind:     models.EntryKindExample,
		Title:    header["title"],
		Body:     body,
		Priority: DefaultPriority,
		Source:   rel,
	}
	if id := header["id"]; id != "" {
		e.ID = id
	}
	for _, t := range strings.Split(header["tags"], ",") {
		if t = strings.TrimSpace(t); t != "" {
			e.Tags = append(e.Tags, t)
		}
	}
	if v, ok := header["priority"]; ok {
		p, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid priority %q", v)
		}
		e.Priority = clampPriority(p)
	}
	return []models.KnowledgeEntry{e}, nil
}

// ParseExampleHeader splits a Python example into its "# key: value" header
// (id, title, tags, priority, disabled, kind, seed_version) and the trimmed body.
func ParseExampleHeader(data []byte) (map[string]string, string) {
	header := make(map[string]string)
	rest := data
	for len(rest) > 0 {
		line, next, _ := cutLine(rest)
		key, value, ok := parseHeaderLine(string(line))
		if !ok {
			break
		}
		header[key] = value
		rest = next
	}
	return header, strings.TrimSpace(string(rest))
}

// parseHeaderLine parses "# key: value". Only known keys count as header.
func parseHeaderLine(line string) (string, string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), "#")
	if !ok {
		return "", "", false
	}
	key, value, ok := strings.Cut(rest, ":")
	if !ok {
		return "", "", false
	}
	key = strings.ToLower(strings.TrimSpace(key))
	switch key {
	case "id", "title", "tags", "priority", "disabled", "kind", "seed_version":
		return key, strings.TrimSpace(value), true
	}
	return "", "", false
}

func clampPriority(p int) int {
	if p < 0 {
		return 0
	}
	if p > 10 {
		return 10
	}
	return p
}
