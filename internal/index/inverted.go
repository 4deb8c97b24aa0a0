package index

import (
	"sort"
	"sync"

	"github.com/quotelab/quotesearch/internal/vector"
	"github.com/quotelab/quotesearch/pkg/errors"
)

// Inverted is the shared index instance. A single RWMutex guards the
// term map: writers stage a document's full posting set before taking
// the lock, so readers never observe a half-inserted document, and a
// failed insert or remove leaves prior state intact.
type Inverted struct {
	mu      sync.RWMutex
	terms   map[string]PostingList
	vectors map[string]vector.SearchVector
}

// NewInverted creates an empty index.
func NewInverted() *Inverted {
	return &Inverted{
		terms:   make(map[string]PostingList),
		vectors: make(map[string]vector.SearchVector),
	}
}

// Insert adds a document's search vector to the index. Inserting an
// existing id is remove-then-insert: the document's old postings are
// dropped and the new vector replaces them atomically under the write
// lock. Calling Insert twice with identical content is indistinguishable
// from a single call.
func (ix *Inverted) Insert(docID string, sv vector.SearchVector) {
	staged := make([]TermEntry, 0, len(sv))
	for term, occs := range sv {
		copied := make([]vector.Occurrence, len(occs))
		copy(copied, occs)
		staged = append(staged, TermEntry{
			Term:     term,
			Postings: PostingList{{DocID: docID, Occurrences: copied}},
		})
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if old, exists := ix.vectors[docID]; exists {
		ix.removeLocked(docID, old)
	}
	for _, entry := range staged {
		ix.terms[entry.Term] = ix.terms[entry.Term].insertSorted(entry.Postings[0])
	}
	ix.vectors[docID] = sv
}

// Remove deletes every posting referencing docID. Removing an unknown
// id returns ErrUnknownDocument and leaves the index untouched.
func (ix *Inverted) Remove(docID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	sv, exists := ix.vectors[docID]
	if !exists {
		return errors.ErrUnknownDocument
	}
	ix.removeLocked(docID, sv)
	delete(ix.vectors, docID)
	return nil
}

// removeLocked drops docID's postings for every term in its vector.
// Caller holds the write lock.
func (ix *Inverted) removeLocked(docID string, sv vector.SearchVector) {
	for term := range sv {
		pl, removed := ix.terms[term].removeDoc(docID)
		if !removed {
			continue
		}
		if len(pl) == 0 {
			delete(ix.terms, term)
		} else {
			ix.terms[term] = pl
		}
	}
}

// Lookup returns a copy of the postings for term, sorted by document
// id. An absent term yields an empty list, not an error.
func (ix *Inverted) Lookup(term string) PostingList {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.copyPostingsLocked(term)
}

// LookupAll returns a postings snapshot for every given term that has
// at least one posting. The snapshot is taken under one read lock, so a
// multi-term query scores against a single consistent index state.
func (ix *Inverted) LookupAll(terms []string) map[string]PostingList {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[string]PostingList, len(terms))
	for _, term := range terms {
		if pl := ix.copyPostingsLocked(term); len(pl) > 0 {
			out[term] = pl
		}
	}
	return out
}

func (ix *Inverted) copyPostingsLocked(term string) PostingList {
	pl, ok := ix.terms[term]
	if !ok {
		return PostingList{}
	}
	out := make(PostingList, len(pl))
	copy(out, pl)
	return out
}

// Intersect returns the ids of documents present in every term's
// postings, ascending. Cost is proportional to the smallest posting
// list plus the lookups it drives.
func (ix *Inverted) Intersect(terms []string) []string {
	return IntersectPostings(ix.LookupAll(terms), terms)
}

// Union returns the ids of documents present in any term's postings,
// ascending and deduplicated.
func (ix *Inverted) Union(terms []string) []string {
	return UnionPostings(ix.LookupAll(terms))
}

// IntersectPostings computes the intersection over an already-taken
// postings snapshot, so a caller that also scores against the snapshot
// sees one consistent index state: a document re-indexed after the
// snapshot cannot appear as a candidate for terms it no longer holds.
// terms is the query's term set; a term absent from the snapshot
// matched nothing and empties the intersection.
func IntersectPostings(snapshot map[string]PostingList, terms []string) []string {
	if len(terms) == 0 {
		return nil
	}
	if len(snapshot) < len(uniqueTerms(terms)) {
		return nil
	}
	var shortest PostingList
	for _, pl := range snapshot {
		if shortest == nil || len(pl) < len(shortest) {
			shortest = pl
		}
	}
	ids := make([]string, 0, len(shortest))
	for _, p := range shortest {
		inAll := true
		for _, pl := range snapshot {
			if !containsDoc(pl, p.DocID) {
				inAll = false
				break
			}
		}
		if inAll {
			ids = append(ids, p.DocID)
		}
	}
	sort.Strings(ids)
	return ids
}

// UnionPostings computes the deduplicated, ascending union over an
// already-taken postings snapshot.
func UnionPostings(snapshot map[string]PostingList) []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, pl := range snapshot {
		for _, p := range pl {
			if _, dup := seen[p.DocID]; dup {
				continue
			}
			seen[p.DocID] = struct{}{}
			ids = append(ids, p.DocID)
		}
	}
	sort.Strings(ids)
	return ids
}

// DocCount returns the number of indexed documents.
func (ix *Inverted) DocCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vectors)
}

// TermCount returns the number of distinct terms with postings.
func (ix *Inverted) TermCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.terms)
}

// OccurrenceCount returns the document's total occurrence count
// across all terms and fields, or 0 for unknown ids. The ranker uses
// it to normalise term frequency by document length.
func (ix *Inverted) OccurrenceCount(docID string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.vectors[docID].TotalOccurrences()
}

// DocTermCount returns the number of distinct terms in docID's vector,
// or 0 for unknown ids.
func (ix *Inverted) DocTermCount(docID string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.vectors[docID])
}

// Has reports whether docID is indexed.
func (ix *Inverted) Has(docID string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.vectors[docID]
	return ok
}

// Entries returns a sorted snapshot of every term's postings, the
// input to the snapshot writer.
func (ix *Inverted) Entries() []TermEntry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	entries := make([]TermEntry, 0, len(ix.terms))
	for term := range ix.terms {
		entries = append(entries, TermEntry{Term: term, Postings: ix.copyPostingsLocked(term)})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// containsDoc binary-searches a sorted posting list for docID.
func containsDoc(pl PostingList, docID string) bool {
	lo, hi := 0, len(pl)
	for lo < hi {
		mid := (lo + hi) / 2
		if pl[mid].DocID < docID {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo < len(pl) && pl[lo].DocID == docID
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0:0]
	for _, t := range terms {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
