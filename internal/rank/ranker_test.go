package rank

import (
	"testing"

	"github.com/quotelab/quotesearch/internal/index"
	"github.com/quotelab/quotesearch/internal/query"
	"github.com/quotelab/quotesearch/internal/vector"
)

func occ(field string, w vector.Weight, positions ...int) []vector.Occurrence {
	occs := make([]vector.Occurrence, 0, len(positions))
	for _, p := range positions {
		occs = append(occs, vector.Occurrence{Field: field, Weight: w, Position: p})
	}
	return occs
}

func params(docLens map[string]int) Params {
	return Params{
		Multipliers: vector.DefaultMultipliers(),
		DocLength: func(docID string) int {
			return docLens[docID]
		},
	}
}

func TestWeightMonotonicity(t *testing.T) {
	// Identical documents except the term sits in quote (A) for doc 1
	// and in name (B) for doc 2.
	q := query.Query{Terms: []string{"pony"}, Combinator: query.And}
	postings := map[string]index.PostingList{
		"pony": {
			{DocID: "1", Occurrences: occ("quote", vector.WeightA, 0)},
			{DocID: "2", Occurrences: occ("name", vector.WeightB, 0)},
		},
	}
	results := Rank(q, []string{"1", "2"}, postings, params(map[string]int{"1": 1, "2": 1}))
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].DocID != "1" {
		t.Errorf("document with term in higher-weighted field ranked %v", results)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("scores not strictly ordered: %v", results)
	}
}

func TestTieBreakByDocIDAscending(t *testing.T) {
	q := query.Query{Terms: []string{"pony"}, Combinator: query.And}
	postings := map[string]index.PostingList{
		"pony": {
			{DocID: "b", Occurrences: occ("quote", vector.WeightA, 0)},
			{DocID: "a", Occurrences: occ("quote", vector.WeightA, 0)},
			{DocID: "c", Occurrences: occ("quote", vector.WeightA, 0)},
		},
	}
	lens := map[string]int{"a": 1, "b": 1, "c": 1}
	first := Rank(q, []string{"a", "b", "c"}, postings, params(lens))
	if first[0].DocID != "a" || first[1].DocID != "b" || first[2].DocID != "c" {
		t.Errorf("equal scores not ordered by ascending doc id: %v", first)
	}
	for i := 0; i < 10; i++ {
		again := Rank(q, []string{"a", "b", "c"}, postings, params(lens))
		for j := range first {
			if again[j].DocID != first[j].DocID {
				t.Fatalf("ordering not deterministic across runs")
			}
		}
	}
}

func TestProximityBonusSameFieldOnly(t *testing.T) {
	q := query.Query{Terms: []string{"pony", "rid"}, Combinator: query.And}
	// Doc "near": terms adjacent in the same field.
	// Doc "far": terms nine positions apart in the same field.
	// Doc "split": terms in different fields, no bonus.
	postings := map[string]index.PostingList{
		"pony": {
			{DocID: "far", Occurrences: occ("quote", vector.WeightA, 0)},
			{DocID: "near", Occurrences: occ("quote", vector.WeightA, 0)},
			{DocID: "split", Occurrences: occ("quote", vector.WeightA, 0)},
		},
		"rid": {
			{DocID: "far", Occurrences: occ("quote", vector.WeightA, 9)},
			{DocID: "near", Occurrences: occ("quote", vector.WeightA, 1)},
			{DocID: "split", Occurrences: occ("name", vector.WeightA, 1)},
		},
	}
	lens := map[string]int{"near": 2, "far": 2, "split": 2}
	results := Rank(q, []string{"near", "far", "split"}, postings, params(lens))
	scores := make(map[string]float64, 3)
	for _, r := range results {
		scores[r.DocID] = r.Score
	}
	if !(scores["near"] > scores["far"]) {
		t.Errorf("adjacent terms should outrank distant terms: %v", scores)
	}
	if !(scores["far"] > scores["split"]) {
		t.Errorf("same-field co-occurrence should outrank split fields: %v", scores)
	}
}

func TestCoverageUnderOr(t *testing.T) {
	q := query.Query{Terms: []string{"pony", "rid"}, Combinator: query.Or}
	postings := map[string]index.PostingList{
		"pony": {
			{DocID: "both", Occurrences: occ("quote", vector.WeightA, 0)},
			{DocID: "one", Occurrences: occ("quote", vector.WeightA, 5)},
		},
		"rid": {
			{DocID: "both", Occurrences: occ("name", vector.WeightA, 3)},
		},
	}
	lens := map[string]int{"both": 2, "one": 1}
	results := Rank(q, []string{"both", "one"}, postings, params(lens))
	scores := make(map[string]float64, 2)
	for _, r := range results {
		scores[r.DocID] = r.Score
	}
	// "one" has full normalised frequency but only half coverage;
	// "both" covers every term.
	if !(scores["both"] > scores["one"]) {
		t.Errorf("full coverage should outrank partial coverage: %v", scores)
	}
}

func TestThresholdFiltersAfterScoring(t *testing.T) {
	q := query.Query{Terms: []string{"pony"}, Combinator: query.And}
	postings := map[string]index.PostingList{
		"pony": {
			{DocID: "strong", Occurrences: occ("quote", vector.WeightA, 0)},
			{DocID: "weak", Occurrences: occ("name", vector.WeightD, 0)},
		},
	}
	lens := map[string]int{"strong": 1, "weak": 1}

	p := params(lens)
	threshold := 0.5
	p.Threshold = &threshold
	results := Rank(q, []string{"strong", "weak"}, postings, p)
	if len(results) != 1 || results[0].DocID != "strong" {
		t.Errorf("threshold should keep only the strong match: %v", results)
	}

	// The surviving score must be identical with and without the
	// threshold: it is a post-ranking filter, not a pre-filter.
	p.Threshold = nil
	unfiltered := Rank(q, []string{"strong", "weak"}, postings, p)
	if unfiltered[0].Score != results[0].Score {
		t.Errorf("threshold changed the surviving score: %v vs %v", unfiltered[0], results[0])
	}
}

func TestFieldScoreBreakdown(t *testing.T) {
	q := query.Query{Terms: []string{"pony"}, Combinator: query.And}
	postings := map[string]index.PostingList{
		"pony": {
			{DocID: "1", Occurrences: append(occ("quote", vector.WeightA, 0, 3), occ("name", vector.WeightB, 0)...)},
		},
	}
	results := Rank(q, []string{"1"}, postings, params(map[string]int{"1": 3}))
	fs := results[0].FieldScores
	if len(fs) != 2 {
		t.Fatalf("FieldScores = %v, want quote and name entries", fs)
	}
	if !(fs["quote"] > fs["name"]) {
		t.Errorf("quote (two A occurrences) should dominate name (one B): %v", fs)
	}
}
