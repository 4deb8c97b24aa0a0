// Package analysis provides the text analysis pipeline for the search
// engine: tokenization, stopword elimination, and stemming. The same
// pipeline runs at index time and at query time; any asymmetry between
// the two breaks recall, so callers must always go through Analyze
// rather than composing the stages ad hoc.
package analysis

import (
	"strings"
	"unicode"
)

// Token is a single normalised term and its zero-based position within
// the field it was extracted from. Positions are assigned before
// stopword elimination and are never renumbered, so positional distance
// between surviving tokens reflects true textual distance.
type Token struct {
	Term     string
	Position int
}

// Tokenize splits text on non-alphanumeric boundaries, lowercases each
// unit, and discards empty units. It is a pure function: no stopword
// filtering and no stemming happen here.
func Tokenize(text string) []Token {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]Token, 0, len(words))
	for i, word := range words {
		tokens = append(tokens, Token{
			Term:     word,
			Position: i,
		})
	}
	return tokens
}

// Analyzer bundles a stopword set with the stemmer so that indexing and
// query parsing share one configuration.
type Analyzer struct {
	stopwords Stopwords
}

// NewAnalyzer returns an Analyzer using the stopword set for the given
// locale. Unknown locales get an empty stopword set rather than an
// error; stopword elimination is an optimisation, not a contract.
func NewAnalyzer(locale string) *Analyzer {
	return &Analyzer{stopwords: StopwordsForLocale(locale)}
}

// Analyze runs the full pipeline over one field's text: tokenize,
// remove stopwords, stem. Surviving tokens keep their original
// positions.
func (a *Analyzer) Analyze(text string) []Token {
	tokens := a.stopwords.Filter(Tokenize(text))
	for i := range tokens {
		tokens[i].Term = Stem(tokens[i].Term)
	}
	return tokens
}
