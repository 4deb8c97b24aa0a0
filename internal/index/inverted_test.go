package index

import (
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/quotelab/quotesearch/internal/vector"
	"github.com/quotelab/quotesearch/pkg/errors"
)

func vec(terms ...string) vector.SearchVector {
	sv := make(vector.SearchVector)
	for i, term := range terms {
		sv[term] = append(sv[term], vector.Occurrence{
			Field:    "quote",
			Weight:   vector.WeightA,
			Position: i,
		})
	}
	return sv
}

func TestInsertAndLookup(t *testing.T) {
	ix := NewInverted()
	ix.Insert("2", vec("pony", "rid"))
	ix.Insert("1", vec("pony"))

	pl := ix.Lookup("pony")
	if len(pl) != 2 {
		t.Fatalf("Lookup(pony) returned %d postings, want 2", len(pl))
	}
	if pl[0].DocID != "1" || pl[1].DocID != "2" {
		t.Errorf("postings not sorted by doc id: %v", pl)
	}
}

func TestLookupAbsentTermReturnsEmpty(t *testing.T) {
	ix := NewInverted()
	ix.Insert("1", vec("pony"))
	if pl := ix.Lookup("unicorn"); len(pl) != 0 {
		t.Errorf("Lookup of absent term = %v, want empty", pl)
	}
}

func TestInsertRebuildIdempotent(t *testing.T) {
	ix := NewInverted()
	sv := vec("pony", "rid")
	ix.Insert("1", sv)
	once := ix.Entries()

	ix.Insert("1", vec("pony", "rid"))
	twice := ix.Entries()

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("double insert changed index state:\nfirst:  %v\nsecond: %v", once, twice)
	}
	if ix.DocCount() != 1 {
		t.Errorf("DocCount = %d, want 1", ix.DocCount())
	}
}

func TestInsertReplacesOldPostings(t *testing.T) {
	ix := NewInverted()
	ix.Insert("1", vec("pony"))
	ix.Insert("1", vec("hors"))

	if pl := ix.Lookup("pony"); len(pl) != 0 {
		t.Errorf("old term still has postings after re-index: %v", pl)
	}
	if pl := ix.Lookup("hors"); len(pl) != 1 {
		t.Errorf("new term missing postings after re-index: %v", pl)
	}
}

func TestRemoveRoundTrip(t *testing.T) {
	ix := NewInverted()
	ix.Insert("1", vec("pony", "rid"))
	ix.Insert("2", vec("pony"))

	if err := ix.Remove("1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if ix.Has("1") {
		t.Error("document still present after Remove")
	}
	for _, term := range []string{"pony", "rid"} {
		for _, p := range ix.Lookup(term) {
			if p.DocID == "1" {
				t.Errorf("term %q still references removed document", term)
			}
		}
	}
	if ix.TermCount() != 1 {
		t.Errorf("TermCount = %d, want 1 (rid postings should be gone)", ix.TermCount())
	}
}

func TestRemoveUnknownDocument(t *testing.T) {
	ix := NewInverted()
	ix.Insert("1", vec("pony"))
	err := ix.Remove("999")
	if !errors.Is(err, errors.ErrUnknownDocument) {
		t.Errorf("Remove of unknown id = %v, want ErrUnknownDocument", err)
	}
	if ix.DocCount() != 1 {
		t.Error("failed remove must leave index intact")
	}
}

func TestIntersect(t *testing.T) {
	ix := NewInverted()
	ix.Insert("1", vec("pony", "rid"))
	ix.Insert("2", vec("pony"))
	ix.Insert("3", vec("pony", "rid", "fast"))

	tests := []struct {
		terms []string
		want  []string
	}{
		{[]string{"pony"}, []string{"1", "2", "3"}},
		{[]string{"pony", "rid"}, []string{"1", "3"}},
		{[]string{"pony", "rid", "fast"}, []string{"3"}},
		{[]string{"pony", "unicorn"}, nil},
		{nil, nil},
	}
	for _, tt := range tests {
		if got := ix.Intersect(tt.terms); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Intersect(%v) = %v, want %v", tt.terms, got, tt.want)
		}
	}
}

func TestUnion(t *testing.T) {
	ix := NewInverted()
	ix.Insert("1", vec("pony"))
	ix.Insert("2", vec("rid"))
	ix.Insert("3", vec("pony", "rid"))

	got := ix.Union([]string{"pony", "rid", "unicorn"})
	want := []string{"1", "2", "3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Union = %v, want %v", got, want)
	}
}

// Readers must never see a half-inserted document: every lookup that
// finds doc "hot" under term "pony" must also find it under "rid" once
// the concurrent writer has finished its insert.
func TestConcurrentReadersAndWriters(t *testing.T) {
	ix := NewInverted()
	for i := 0; i < 100; i++ {
		ix.Insert(fmt.Sprintf("seed-%03d", i), vec("pony"))
	}

	var writers, readers sync.WaitGroup
	stop := make(chan struct{})
	for w := 0; w < 4; w++ {
		writers.Add(1)
		go func(w int) {
			defer writers.Done()
			for i := 0; i < 200; i++ {
				docID := fmt.Sprintf("writer-%d-%03d", w, i)
				ix.Insert(docID, vec("pony", "rid"))
				if i%2 == 0 {
					ix.Remove(docID)
				}
			}
		}(w)
	}
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			snapshot := ix.LookupAll([]string{"pony", "rid"})
			for _, p := range snapshot["rid"] {
				if !containsDoc(snapshot["pony"], p.DocID) {
					t.Errorf("partial document visible: %s has rid but not pony", p.DocID)
					return
				}
			}
		}
	}()

	writers.Wait()
	close(stop)
	readers.Wait()
}

// A document re-indexed after the postings snapshot was taken must not
// surface through candidate selection run on that snapshot for terms it
// only holds in the newer state, and must stay a full match for the
// state the snapshot captured.
func TestIntersectPostingsIsolatedFromLaterWrites(t *testing.T) {
	ix := NewInverted()
	ix.Insert("1", vec("pony", "rid"))
	ix.Insert("2", vec("pony"))

	snapshot := ix.LookupAll([]string{"pony", "rid"})

	// Concurrent writer drops "rid" from doc 1.
	ix.Insert("1", vec("pony"))

	got := IntersectPostings(snapshot, []string{"pony", "rid"})
	if !reflect.DeepEqual(got, []string{"1"}) {
		t.Errorf("IntersectPostings on snapshot = %v, want [1]", got)
	}
	if live := ix.Intersect([]string{"pony", "rid"}); len(live) != 0 {
		t.Errorf("Intersect on live index = %v, want empty after rewrite", live)
	}
}

func TestIntersectPostingsMissingTermEmptiesResult(t *testing.T) {
	ix := NewInverted()
	ix.Insert("1", vec("pony"))

	snapshot := ix.LookupAll([]string{"pony", "unicorn"})
	if got := IntersectPostings(snapshot, []string{"pony", "unicorn"}); len(got) != 0 {
		t.Errorf("IntersectPostings = %v, want empty when a term matched nothing", got)
	}
	if got := UnionPostings(snapshot); !reflect.DeepEqual(got, []string{"1"}) {
		t.Errorf("UnionPostings = %v, want [1]", got)
	}
}
