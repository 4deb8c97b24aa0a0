// Package rank scores candidate documents against a processed query
// and produces a deterministic total order.
package rank

import (
	"math"
	"sort"

	"github.com/quotelab/quotesearch/internal/index"
	"github.com/quotelab/quotesearch/internal/query"
	"github.com/quotelab/quotesearch/internal/vector"
)

// ScoredDoc is one ranked result: the document, its relevance score,
// and the per-field contribution to the weighted term frequency.
type ScoredDoc struct {
	DocID       string             `json:"doc_id"`
	Score       float64            `json:"score"`
	FieldScores map[string]float64 `json:"field_scores,omitempty"`
}

// Params configures a ranking pass.
type Params struct {
	// Multipliers maps weight labels to numeric multipliers.
	Multipliers vector.Multipliers
	// Threshold, when non-nil, drops results scoring below it. It is
	// applied after scoring so surviving scores remain comparable.
	Threshold *float64
	// DocLength returns a document's total occurrence count across
	// all fields, used to normalise term frequency so short and long
	// documents are comparable.
	DocLength func(docID string) int
}

// Rank scores every candidate and returns them ordered by descending
// score, ties broken by ascending document id. The score combines
// three signals:
//
//	coverage x (weighted term frequency + proximity bonus)
//
// Coverage is the fraction of distinct query terms present in the
// document (always 1 under AND). Weighted term frequency sums each
// matched occurrence's field multiplier, normalised by document
// length. The proximity bonus rewards two distinct query terms
// co-occurring close together in the same field.
func Rank(q query.Query, candidates []string, postings map[string]index.PostingList, params Params) []ScoredDoc {
	byDoc := collectOccurrences(candidates, postings)

	results := make([]ScoredDoc, 0, len(byDoc))
	for docID, terms := range byDoc {
		docLen := 0
		if params.DocLength != nil {
			docLen = params.DocLength(docID)
		}
		sd := score(q, docID, terms, docLen, params.Multipliers)
		if params.Threshold != nil && sd.Score < *params.Threshold {
			continue
		}
		results = append(results, sd)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})
	return results
}

// collectOccurrences regroups term postings into per-candidate,
// per-term occurrence lists.
func collectOccurrences(candidates []string, postings map[string]index.PostingList) map[string]map[string][]vector.Occurrence {
	want := make(map[string]struct{}, len(candidates))
	for _, id := range candidates {
		want[id] = struct{}{}
	}
	byDoc := make(map[string]map[string][]vector.Occurrence, len(candidates))
	for term, pl := range postings {
		for _, p := range pl {
			if _, ok := want[p.DocID]; !ok {
				continue
			}
			terms, ok := byDoc[p.DocID]
			if !ok {
				terms = make(map[string][]vector.Occurrence)
				byDoc[p.DocID] = terms
			}
			terms[term] = p.Occurrences
		}
	}
	return byDoc
}

func score(q query.Query, docID string, terms map[string][]vector.Occurrence, docLen int, mult vector.Multipliers) ScoredDoc {
	fieldScores := make(map[string]float64)
	weighted := 0.0
	for _, occs := range terms {
		for _, occ := range occs {
			m := mult.Of(occ.Weight)
			weighted += m
			fieldScores[occ.Field] += m
		}
	}
	if docLen > 0 {
		weighted /= float64(docLen)
		for field := range fieldScores {
			fieldScores[field] /= float64(docLen)
		}
	}

	coverage := 1.0
	if len(q.Terms) > 0 {
		coverage = float64(len(terms)) / float64(len(q.Terms))
	}

	total := coverage * (weighted + proximityBonus(terms))
	return ScoredDoc{
		DocID:       docID,
		Score:       math.Round(total*10000) / 10000,
		FieldScores: fieldScores,
	}
}

// proximityBonus returns 1/minDistance over all pairs of distinct
// query terms co-occurring in the same field, or 0 when the query has
// fewer than two matched terms or no same-field co-occurrence exists.
// Positions survive stopword elimination unrenumbered, so the distance
// reflects real textual separation.
func proximityBonus(terms map[string][]vector.Occurrence) float64 {
	if len(terms) < 2 {
		return 0
	}
	minDist := math.MaxInt
	termList := make([][]vector.Occurrence, 0, len(terms))
	for _, occs := range terms {
		termList = append(termList, occs)
	}
	for i := 0; i < len(termList); i++ {
		for j := i + 1; j < len(termList); j++ {
			for _, a := range termList[i] {
				for _, b := range termList[j] {
					if a.Field != b.Field {
						continue
					}
					d := a.Position - b.Position
					if d < 0 {
						d = -d
					}
					if d < minDist {
						minDist = d
					}
				}
			}
		}
	}
	if minDist == math.MaxInt || minDist == 0 {
		return 0
	}
	return 1 / float64(minDist)
}
