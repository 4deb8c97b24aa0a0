package vector

import (
	"sort"

	"github.com/quotelab/quotesearch/internal/analysis"
)

// Occurrence records one appearance of a term: which field it occurred
// in, that field's weight, and the token position within the field.
type Occurrence struct {
	Field    string `json:"f"`
	Weight   Weight `json:"w"`
	Position int    `json:"p"`
}

// SearchVector maps each stemmed term of a document to every place it
// occurs. It is built once per document at index time and rebuilt
// wholesale on update.
type SearchVector map[string][]Occurrence

// Build runs the analysis pipeline over every field of a document and
// folds the results into one vector. Fields absent from weights get
// WeightD. The fold is additive and commutative in field order: the
// occurrence lists are sorted by (field, position) at the end, so
// combining fields in any order yields the same vector.
func Build(a *analysis.Analyzer, fields map[string]string, weights map[string]Weight) SearchVector {
	sv := make(SearchVector)
	for field, text := range fields {
		weight := weights[field]
		for _, token := range a.Analyze(text) {
			sv[token.Term] = append(sv[token.Term], Occurrence{
				Field:    field,
				Weight:   weight,
				Position: token.Position,
			})
		}
	}
	for term := range sv {
		occs := sv[term]
		sort.Slice(occs, func(i, j int) bool {
			if occs[i].Field != occs[j].Field {
				return occs[i].Field < occs[j].Field
			}
			return occs[i].Position < occs[j].Position
		})
	}
	return sv
}

// TotalOccurrences returns the number of occurrences across all terms
// and fields, the document-length figure the ranker normalises by.
func (sv SearchVector) TotalOccurrences() int {
	total := 0
	for _, occs := range sv {
		total += len(occs)
	}
	return total
}

// Terms returns the vector's terms in sorted order.
func (sv SearchVector) Terms() []string {
	terms := make([]string, 0, len(sv))
	for term := range sv {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}
