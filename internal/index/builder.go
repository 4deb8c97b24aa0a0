package index

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/quotelab/quotesearch/internal/analysis"
	"github.com/quotelab/quotesearch/internal/vector"
)

// Source is one document handed to the batch builder.
type Source struct {
	DocID  string
	Fields map[string]string
}

// Builder performs the initial bulk build of a large corpus. Documents
// are sharded across workers that each compute search vectors without
// touching the shared index; a single merge pass then inserts them
// under the index's write lock. Vector construction is the expensive
// step, so this bounds build time without per-term locking during the
// hot phase.
type Builder struct {
	analyzer *analysis.Analyzer
	weights  map[string]vector.Weight
	workers  int
	logger   *slog.Logger
}

// NewBuilder creates a Builder. workers <= 0 means GOMAXPROCS.
func NewBuilder(a *analysis.Analyzer, weights map[string]vector.Weight, workers int) *Builder {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Builder{
		analyzer: a,
		weights:  weights,
		workers:  workers,
		logger:   slog.Default().With("component", "index-builder"),
	}
}

// Build vectorises every source document in parallel and inserts the
// results into ix. It returns the number of documents indexed. A
// cancelled context aborts the vectorising phase; nothing is merged in
// that case, leaving ix unchanged.
func (b *Builder) Build(ctx context.Context, ix *Inverted, docs []Source) (int, error) {
	type built struct {
		docID string
		sv    vector.SearchVector
	}
	results := make([]built, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc := docs[i]
			results[i] = built{
				docID: doc.DocID,
				sv:    vector.Build(b.analyzer, doc.Fields, b.weights),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	for _, r := range results {
		ix.Insert(r.docID, r.sv)
	}
	b.logger.Info("batch build complete",
		"docs", len(docs),
		"terms", ix.TermCount(),
		"workers", b.workers,
	)
	return len(docs), nil
}
