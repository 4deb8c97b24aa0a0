// Package query turns raw query strings into canonical term sets. It
// runs the exact analysis pipeline used at index time; that symmetry is
// what makes stemmed and stopword-filtered documents findable at all.
package query

import (
	"sort"
	"strings"

	"github.com/quotelab/quotesearch/internal/analysis"
	"github.com/quotelab/quotesearch/pkg/errors"
)

// Combinator selects how multiple query terms combine.
type Combinator int

const (
	// And requires every term to match (the stricter full-text
	// default).
	And Combinator = iota
	// Or matches documents containing any term.
	Or
)

func (c Combinator) String() string {
	if c == Or {
		return "OR"
	}
	return "AND"
}

// ParseCombinator reads "AND"/"OR" (case-insensitive); anything else
// falls back to the given default.
func ParseCombinator(s string, fallback Combinator) Combinator {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AND":
		return And
	case "OR":
		return Or
	default:
		return fallback
	}
}

// Query is a parsed query: the deduplicated, sorted set of stemmed
// terms plus the combinator. Queries are transient, rebuilt per search
// request.
type Query struct {
	Raw        string
	Terms      []string
	Combinator Combinator
}

// Processor parses raw queries with a fixed analyzer and default
// combinator.
type Processor struct {
	analyzer   *analysis.Analyzer
	defaultCmb Combinator
}

// NewProcessor creates a Processor around the same analyzer the index
// was built with.
func NewProcessor(a *analysis.Analyzer, defaultCmb Combinator) *Processor {
	return &Processor{analyzer: a, defaultCmb: defaultCmb}
}

// Process analyses the raw query. A query that reduces to zero terms
// (empty input, or stopwords only) returns ErrEmptyQuery: a distinct
// outcome the caller maps to an empty result set, never to a match-all.
func (p *Processor) Process(raw string, cmb *Combinator) (Query, error) {
	q := Query{Raw: raw, Combinator: p.defaultCmb}
	if cmb != nil {
		q.Combinator = *cmb
	}
	seen := make(map[string]struct{})
	for _, token := range p.analyzer.Analyze(raw) {
		if _, dup := seen[token.Term]; dup {
			continue
		}
		seen[token.Term] = struct{}{}
		q.Terms = append(q.Terms, token.Term)
	}
	if len(q.Terms) == 0 {
		return q, errors.ErrEmptyQuery
	}
	sort.Strings(q.Terms)
	return q, nil
}
