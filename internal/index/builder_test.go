package index

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/quotelab/quotesearch/internal/analysis"
	"github.com/quotelab/quotesearch/internal/vector"
)

func TestBuilderMatchesSequentialInserts(t *testing.T) {
	a := analysis.NewAnalyzer("en")
	weights := map[string]vector.Weight{"name": vector.WeightB, "quote": vector.WeightA}

	docs := make([]Source, 0, 500)
	for i := 0; i < 500; i++ {
		docs = append(docs, Source{
			DocID: fmt.Sprintf("doc-%04d", i),
			Fields: map[string]string{
				"name":  fmt.Sprintf("author %d", i),
				"quote": "a pony and a pony ride through the fields",
			},
		})
	}

	sequential := NewInverted()
	for _, doc := range docs {
		sequential.Insert(doc.DocID, vector.Build(a, doc.Fields, weights))
	}

	parallel := NewInverted()
	builder := NewBuilder(a, weights, 8)
	n, err := builder.Build(context.Background(), parallel, docs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if n != len(docs) {
		t.Errorf("Build indexed %d docs, want %d", n, len(docs))
	}
	if !reflect.DeepEqual(parallel.Entries(), sequential.Entries()) {
		t.Error("parallel build produced different index state than sequential inserts")
	}
}

func TestBuilderCancelledContext(t *testing.T) {
	a := analysis.NewAnalyzer("en")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ix := NewInverted()
	builder := NewBuilder(a, nil, 2)
	docs := []Source{{DocID: "1", Fields: map[string]string{"quote": "pony"}}}
	if _, err := builder.Build(ctx, ix, docs); err == nil {
		t.Error("Build with cancelled context should fail")
	}
	if ix.DocCount() != 0 {
		t.Error("cancelled build must leave the index unchanged")
	}
}
