package query

import (
	"reflect"
	"testing"

	"github.com/quotelab/quotesearch/internal/analysis"
	"github.com/quotelab/quotesearch/pkg/errors"
)

func newProcessor() *Processor {
	return NewProcessor(analysis.NewAnalyzer("en"), And)
}

func TestProcessStemsAndDeduplicates(t *testing.T) {
	p := newProcessor()
	q, err := p.Process("Ponies riding ponies", nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := []string{"pony", "rid"}
	if !reflect.DeepEqual(q.Terms, want) {
		t.Errorf("Terms = %v, want %v", q.Terms, want)
	}
	if q.Combinator != And {
		t.Errorf("Combinator = %v, want And", q.Combinator)
	}
}

func TestProcessStopwordsOnlyIsEmptyQuery(t *testing.T) {
	p := newProcessor()
	for _, raw := range []string{"the", "a and the", "", "   ", "!!!"} {
		_, err := p.Process(raw, nil)
		if !errors.Is(err, errors.ErrEmptyQuery) {
			t.Errorf("Process(%q) error = %v, want ErrEmptyQuery", raw, err)
		}
	}
}

func TestProcessCombinatorOverride(t *testing.T) {
	p := newProcessor()
	or := Or
	q, err := p.Process("pony ride", &or)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if q.Combinator != Or {
		t.Errorf("Combinator = %v, want Or", q.Combinator)
	}
}

func TestProcessMatchesIndexPipeline(t *testing.T) {
	// The exact text used at index time must parse to the same terms
	// at query time.
	a := analysis.NewAnalyzer("en")
	text := "Many ponies running through fields"
	indexed := make(map[string]struct{})
	for _, tok := range a.Analyze(text) {
		indexed[tok.Term] = struct{}{}
	}

	p := NewProcessor(a, And)
	q, err := p.Process(text, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	for _, term := range q.Terms {
		if _, ok := indexed[term]; !ok {
			t.Errorf("query term %q not produced by index-side analysis", term)
		}
	}
}

func TestParseCombinator(t *testing.T) {
	tests := []struct {
		in       string
		fallback Combinator
		want     Combinator
	}{
		{"AND", Or, And},
		{"or", And, Or},
		{" Or ", And, Or},
		{"", Or, Or},
		{"xor", And, And},
	}
	for _, tt := range tests {
		if got := ParseCombinator(tt.in, tt.fallback); got != tt.want {
			t.Errorf("ParseCombinator(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
