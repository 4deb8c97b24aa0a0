// Package engine composes the analysis pipeline, the inverted index,
// the ranker, and the substring fallback into the search API the
// storage layer embeds: index, remove, search, fallback search.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/quotelab/quotesearch/internal/analysis"
	"github.com/quotelab/quotesearch/internal/fallback"
	"github.com/quotelab/quotesearch/internal/index"
	"github.com/quotelab/quotesearch/internal/query"
	"github.com/quotelab/quotesearch/internal/rank"
	"github.com/quotelab/quotesearch/internal/vector"
	"github.com/quotelab/quotesearch/pkg/errors"
	"github.com/quotelab/quotesearch/pkg/tracing"
)

// Config is the engine's startup configuration. Invalid values fail
// construction, never an individual query.
type Config struct {
	// Locale selects the stopword set ("en" by default).
	Locale string
	// DefaultCombinator applies when a search names none.
	DefaultCombinator query.Combinator
	// Multipliers maps weight labels A-D to numeric multipliers.
	Multipliers vector.Multipliers
	// Workers bounds batch-build parallelism; <= 0 means GOMAXPROCS.
	Workers int
}

// Engine is the owned search engine instance: explicit construction,
// population, and optional snapshot reload, no ambient global state.
type Engine struct {
	cfg       Config
	analyzer  *analysis.Analyzer
	processor *query.Processor
	ix        atomic.Pointer[index.Inverted]

	docsMu sync.RWMutex
	docs   map[string]fallback.Document

	logger *slog.Logger
}

// New validates the configuration and returns an empty engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Multipliers == (vector.Multipliers{}) {
		cfg.Multipliers = vector.DefaultMultipliers()
	}
	if err := cfg.Multipliers.Validate(); err != nil {
		return nil, fmt.Errorf("validating weight multipliers: %w", err)
	}
	analyzer := analysis.NewAnalyzer(cfg.Locale)
	e := &Engine{
		cfg:       cfg,
		analyzer:  analyzer,
		processor: query.NewProcessor(analyzer, cfg.DefaultCombinator),
		docs:      make(map[string]fallback.Document),
		logger:    slog.Default().With("component", "search-engine"),
	}
	e.ix.Store(index.NewInverted())
	return e, nil
}

// IndexDocument builds the document's search vector and inserts it.
// Re-indexing an existing id rebuilds its postings wholesale; partial
// field updates are rejected so the index never holds a mix of old and
// new fields.
func (e *Engine) IndexDocument(docID string, fields map[string]string, weightLabels map[string]string) error {
	if docID == "" {
		return errors.Newf(errors.ErrInvalidInput, 0, "document id must not be empty")
	}
	if len(fields) == 0 {
		if e.ix.Load().Has(docID) {
			return errors.Newf(errors.ErrPartialUpdate, 0, "re-index of %q must supply the full field set", docID)
		}
		return errors.Newf(errors.ErrInvalidInput, 0, "document %q has no fields", docID)
	}
	weights, err := vector.ParseFieldWeights(weightLabels)
	if err != nil {
		return err
	}

	sv := vector.Build(e.analyzer, fields, weights)
	e.ix.Load().Insert(docID, sv)

	e.docsMu.Lock()
	e.docs[docID] = fallback.Document{ID: docID, Fields: copyFields(fields)}
	e.docsMu.Unlock()

	e.logger.Debug("document indexed",
		"doc_id", docID,
		"fields", len(fields),
		"terms", len(sv),
	)
	return nil
}

// RemoveDocument deletes every posting referencing docID. Removing an
// unknown id reports ErrUnknownDocument and changes nothing.
func (e *Engine) RemoveDocument(docID string) error {
	if err := e.ix.Load().Remove(docID); err != nil {
		return err
	}
	e.docsMu.Lock()
	delete(e.docs, docID)
	e.docsMu.Unlock()
	e.logger.Debug("document removed", "doc_id", docID)
	return nil
}

// BulkIndex indexes a corpus with the parallel batch builder and
// records the raw documents for fallback search.
func (e *Engine) BulkIndex(ctx context.Context, docs []index.Source, weightLabels map[string]string) (int, error) {
	weights, err := vector.ParseFieldWeights(weightLabels)
	if err != nil {
		return 0, err
	}
	builder := index.NewBuilder(e.analyzer, weights, e.cfg.Workers)
	n, err := builder.Build(ctx, e.ix.Load(), docs)
	if err != nil {
		return 0, err
	}
	e.docsMu.Lock()
	for _, doc := range docs {
		e.docs[doc.DocID] = fallback.Document{ID: doc.DocID, Fields: copyFields(doc.Fields)}
	}
	e.docsMu.Unlock()
	return n, nil
}

// SearchOptions tune one search request.
type SearchOptions struct {
	// Combinator overrides the configured default when non-nil.
	Combinator *query.Combinator
	// Threshold drops results scoring below it, after ranking.
	Threshold *float64
	// Limit and Offset paginate the ranked results. Limit <= 0 means
	// no cap.
	Limit  int
	Offset int
}

// SearchResult is the ranked answer envelope: the processed query, the
// total hit count before pagination, and the returned page.
type SearchResult struct {
	Query      string           `json:"query"`
	Terms      []string         `json:"terms"`
	Combinator string           `json:"combinator"`
	TotalHits  int              `json:"total_hits"`
	Results    []rank.ScoredDoc `json:"results"`
}

// Search answers a query: parse, look up candidates, rank, threshold,
// paginate. A query that reduces to no terms returns ErrEmptyQuery and
// an empty result set. "No results" is an empty slice and a nil error.
func (e *Engine) Search(ctx context.Context, rawQuery string, opts SearchOptions) ([]rank.ScoredDoc, error) {
	res, err := e.SearchPage(ctx, rawQuery, opts)
	if err != nil {
		return nil, err
	}
	return res.Results, nil
}

// SearchPage runs the same pipeline as Search and wraps the page in a
// SearchResult carrying the pre-pagination hit count.
func (e *Engine) SearchPage(ctx context.Context, rawQuery string, opts SearchOptions) (*SearchResult, error) {
	ctx, span := tracing.StartChildSpan(ctx, "engine.search")
	defer span.End()
	span.SetAttr("query", rawQuery)

	q, err := e.processor.Process(rawQuery, opts.Combinator)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &SearchResult{
		Query:      rawQuery,
		Terms:      q.Terms,
		Combinator: q.Combinator.String(),
		Results:    []rank.ScoredDoc{},
	}

	// One postings snapshot drives both candidate selection and
	// scoring, so a document re-indexed mid-query cannot be returned
	// for terms it no longer contains.
	ix := e.ix.Load()
	postings := ix.LookupAll(q.Terms)
	var candidates []string
	switch q.Combinator {
	case query.Or:
		candidates = index.UnionPostings(postings)
	default:
		candidates = index.IntersectPostings(postings, q.Terms)
	}
	if len(candidates) == 0 {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ranked := rank.Rank(q, candidates, postings, rank.Params{
		Multipliers: e.cfg.Multipliers,
		Threshold:   opts.Threshold,
		DocLength:   ix.OccurrenceCount,
	})
	span.SetAttr("candidates", len(candidates))
	span.SetAttr("results", len(ranked))

	res.TotalHits = len(ranked)
	res.Results = paginate(ranked, opts.Offset, opts.Limit)
	return res, nil
}

// FallbackSearch runs the baseline substring scan over the raw
// document store. Results are unscored, ordered by document id.
func (e *Engine) FallbackSearch(rawQuery string, fields []string) []string {
	e.docsMu.RLock()
	snapshot := make([]fallback.Document, 0, len(e.docs))
	for _, doc := range e.docs {
		snapshot = append(snapshot, doc)
	}
	e.docsMu.RUnlock()
	return fallback.Match(rawQuery, fields, snapshot)
}

// DocCount returns the number of indexed documents.
func (e *Engine) DocCount() int { return e.ix.Load().DocCount() }

// TermCount returns the number of distinct indexed terms.
func (e *Engine) TermCount() int { return e.ix.Load().TermCount() }

// DocTermCount returns the number of distinct terms docID is indexed
// under, or 0 for unknown ids.
func (e *Engine) DocTermCount(docID string) int { return e.ix.Load().DocTermCount(docID) }

// SaveSnapshot persists the index to path.
func (e *Engine) SaveSnapshot(path string) error {
	return index.Save(e.ix.Load(), path)
}

// LoadSnapshot replaces the live index with one loaded from path. The
// swap is atomic from the perspective of concurrent searches; the raw
// document store for fallback search is hydrated separately by the
// storage layer.
func (e *Engine) LoadSnapshot(path string) error {
	loaded, err := index.Load(path)
	if err != nil {
		return err
	}
	e.ix.Store(loaded)
	e.logger.Info("index snapshot loaded", "path", path, "docs", loaded.DocCount())
	return nil
}

func paginate(results []rank.ScoredDoc, offset, limit int) []rank.ScoredDoc {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) {
		return []rank.ScoredDoc{}
	}
	results = results[offset:]
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func copyFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
