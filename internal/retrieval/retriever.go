// Package retrieval selects the knowledge entries that ground one request.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/nvandessel/magloop/internal/knowledge"
	"github.com/nvandessel/magloop/internal/models"
	"github.com/nvandessel/magloop/internal/ranking"
)

// DefaultTopK is the number of entries returned when the caller passes k <= 0.
const DefaultTopK = 6

// Config configures a Retriever.
type Config struct {
	TopK   int
	Scorer ranking.ScorerConfig
}

// DefaultConfig returns the default retrieval configuration.
func DefaultConfig() Config {
	return Config{TopK: DefaultTopK, Scorer: ranking.DefaultScorerConfig()}
}

// Retriever ranks store entries against requests. It holds no per-request
// state and is safe for concurrent use.
type Retriever struct {
	store  *knowledge.Store
	index  *TextIndex
	scorer *ranking.RelevanceScorer
	topK   int
	logger *zap.Logger
}

// New builds a Retriever over a store snapshot. A nil logger is replaced by a no-op logger.
func New(store *knowledge.Store, cfg Config, logger *zap.Logger) (*Retriever, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	index, err := NewTextIndex(store.Entries())
	if err != nil {
		return nil, err
	}
	return &Retriever{
		store:  store,
		index:  index,
		scorer: ranking.NewRelevanceScorer(cfg.Scorer),
		topK:   cfg.TopK,
		logger: logger,
	}, nil
}

// Close releases the text index.
func (r *Retriever) Close() error {
	return r.index.Close()
}

// Retrieve returns up to k entries ranked by relevance to req, plus the
// store's generic rules as standing constraints.
//
// When no entry clears the relevance threshold the result falls back to
// generic rules (then any rules, then the first entries), so a non-empty
// store never yields an empty result. The same store, request and k always
// produce the same result.
func (r *Retriever) Retrieve(ctx context.Context, req models.Request, k int) (models.RetrievalResult, error) {
	if err := ctx.Err(); err != nil {
		return models.RetrievalResult{}, err
	}
	if k <= 0 {
		k = r.topK
	}

	textScores, err := r.index.Scores(req.Text)
	if err != nil {
		return models.RetrievalResult{}, fmt.Errorf("retrieving knowledge: %w", err)
	}

	entries := r.store.Entries()
	scored := make([]ranking.ScoredEntry, len(entries))
	for i, e := range entries {
		scored[i] = r.scorer.Score(e, i, req, textScores[e.ID])
	}

	selected := r.scorer.Select(scored, k)
	if len(selected) > 0 {
		r.logger.Debug("retrieved knowledge",
			zap.Int("count", len(selected)),
			zap.Strings("tags", req.Tags))
		return r.toResult(selected, false), nil
	}

	fallback := r.fallback(scored, k)
	r.logger.Debug("no entry passed the relevance threshold, using fallback",
		zap.Int("count", len(fallback)))
	return r.toResult(fallback, true), nil
}

// fallback picks generic rules, then any rules, then the first entries,
// ordered by priority and insertion position.
func (r *Retriever) fallback(scored []ranking.ScoredEntry, k int) []ranking.ScoredEntry {
	var pool []ranking.ScoredEntry
	for _, want := range []func(*models.KnowledgeEntry) bool{
		func(e *models.KnowledgeEntry) bool { return e.Kind == models.EntryKindRule && e.Generic },
		func(e *models.KnowledgeEntry) bool { return e.Kind == models.EntryKindRule },
	} {
		for _, se := range scored {
			if want(se.Entry) {
				pool = append(pool, se)
			}
		}
		if len(pool) > 0 {
			sort.SliceStable(pool, func(i, j int) bool {
				return pool[i].Entry.Priority > pool[j].Entry.Priority
			})
			break
		}
	}
	if len(pool) == 0 {
		pool = scored
	}
	if len(pool) > k {
		pool = pool[:k]
	}
	return pool
}

// toResult attaches the store's generic rules so they reach every prompt.
func (r *Retriever) toResult(scored []ranking.ScoredEntry, fallback bool) models.RetrievalResult {
	res := models.RetrievalResult{
		Fallback: fallback,
		Items:    make([]models.RetrievedEntry, len(scored)),
		Standing: r.store.GenericRules(),
	}
	for i, se := range scored {
		res.Items[i] = models.RetrievedEntry{Entry: se.Entry, Score: se.Score}
	}
	return res
}
