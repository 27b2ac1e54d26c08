package retrieval

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/nvandessel/magloop/internal/models"
)

// titleBoost weights title matches over body matches.
const titleBoost = 2.0

// indexedEntry is the document shape stored in the text index.
type indexedEntry struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tags  string `json:"tags"`
}

// TextIndex is an in-memory BM25 index over knowledge entries.
// It is written once at construction and only read afterwards, so concurrent
// searches are safe.
type TextIndex struct {
	index bleve.Index
	size  int
}

// NewTextIndex indexes every entry by ID.
func NewTextIndex(entries []*models.KnowledgeEntry) (*TextIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + stop words, no stemming) so "PIMM"
	// and symbols like "runSimulation" match as written.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	docMapping.AddFieldMappingsAt("body", textFieldMapping)
	docMapping.AddFieldMappingsAt("tags", textFieldMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("creating text index: %w", err)
	}

	batch := index.NewBatch()
	for _, e := range entries {
		doc := indexedEntry{Title: e.Title, Body: e.Body, Tags: strings.Join(e.Tags, " ")}
		if err := batch.Index(e.ID, doc); err != nil {
			return nil, fmt.Errorf("indexing %s: %w", e.ID, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		return nil, fmt.Errorf("writing text index: %w", err)
	}
	return &TextIndex{index: index, size: len(entries)}, nil
}

// Scores returns a relevance score in [0,1] for every entry that matches the
// query text, keyed by entry ID. Scores are normalised by the best hit.
func (t *TextIndex) Scores(text string) (map[string]float64, error) {
	text = strings.TrimSpace(text)
	if text == "" || t.size == 0 {
		return nil, nil
	}

	titleQ := bleve.NewMatchQuery(text)
	titleQ.SetField("title")
	titleQ.SetBoost(titleBoost)
	bodyQ := bleve.NewMatchQuery(text)
	bodyQ.SetField("body")
	tagsQ := bleve.NewMatchQuery(text)
	tagsQ.SetField("tags")

	req := bleve.NewSearchRequest(blevequery.NewDisjunctionQuery([]blevequery.Query{titleQ, bodyQ, tagsQ}))
	req.Size = t.size
	res, err := t.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("text search failed: %w", err)
	}
	if len(res.Hits) == 0 {
		return nil, nil
	}

	best := res.Hits[0].Score
	for _, h := range res.Hits {
		if h.Score > best {
			best = h.Score
		}
	}
	scores := make(map[string]float64, len(res.Hits))
	for _, h := range res.Hits {
		if best > 0 {
			scores[h.ID] = h.Score / best
		}
	}
	return scores, nil
}

// Close releases the index.
func (t *TextIndex) Close() error {
	return t.index.Close()
}
