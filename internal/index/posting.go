// Package index implements the in-memory inverted index: a mapping
// from stemmed term to the ordered list of documents containing it,
// with per-occurrence field, weight, and position data. Lookup cost is
// proportional to the number of matching documents, never to corpus
// size; that is the whole argument for this structure over the
// substring fallback scan.
package index

import "github.com/quotelab/quotesearch/internal/vector"

// Posting records one document's occurrences of a term, copied from
// the document's search vector at insert time.
type Posting struct {
	DocID       string              `json:"d"`
	Occurrences []vector.Occurrence `json:"o"`
}

// PostingList is a list of postings kept sorted by ascending DocID so
// merges and intersections are deterministic.
type PostingList []Posting

// TermEntry pairs a term with its postings, the unit the snapshot
// writer serialises.
type TermEntry struct {
	Term     string
	Postings PostingList
}

// insertSorted returns the list with p added at its sorted slot,
// replacing any existing posting for the same document.
func (pl PostingList) insertSorted(p Posting) PostingList {
	lo, hi := 0, len(pl)
	for lo < hi {
		mid := (lo + hi) / 2
		if pl[mid].DocID < p.DocID {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(pl) && pl[lo].DocID == p.DocID {
		pl[lo] = p
		return pl
	}
	pl = append(pl, Posting{})
	copy(pl[lo+1:], pl[lo:])
	pl[lo] = p
	return pl
}

// removeDoc returns the list without docID's posting, and whether a
// posting was removed.
func (pl PostingList) removeDoc(docID string) (PostingList, bool) {
	for i, p := range pl {
		if p.DocID == docID {
			return append(pl[:i], pl[i+1:]...), true
		}
	}
	return pl, false
}
