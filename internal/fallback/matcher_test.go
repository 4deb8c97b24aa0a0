package fallback

import (
	"reflect"
	"testing"
)

var docs = []Document{
	{ID: "3", Fields: map[string]string{"name": "Harpo", "quote": "I never forget a face"}},
	{ID: "1", Fields: map[string]string{"name": "Groucho Marx", "quote": "A pony is a small horse"}},
	{ID: "2", Fields: map[string]string{"name": "Pony Express", "quote": "many ponies running"}},
}

func TestMatchCaseInsensitiveAnyField(t *testing.T) {
	got := Match("PONY", nil, docs)
	want := []string{"1", "2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Match = %v, want %v", got, want)
	}
}

func TestMatchRestrictedFields(t *testing.T) {
	got := Match("pony", []string{"name"}, docs)
	want := []string{"2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Match restricted to name = %v, want %v", got, want)
	}
}

func TestMatchInsideLongerWords(t *testing.T) {
	// The baseline deliberately matches substrings of unrelated
	// words: "ponies" contains "ponie" but not "pony".
	if got := Match("ponie", nil, docs); !reflect.DeepEqual(got, []string{"2"}) {
		t.Errorf("substring inside longer word should match: %v", got)
	}
	// And it never equates inflected forms.
	if got := Match("ponys", nil, docs); len(got) != 0 {
		t.Errorf("fallback must not stem: %v", got)
	}
}

func TestMatchBlankQuery(t *testing.T) {
	if got := Match("   ", nil, docs); len(got) != 0 {
		t.Errorf("blank query should match nothing, got %v", got)
	}
}

func TestMatchOrderedByDocID(t *testing.T) {
	got := Match("a", nil, docs)
	want := []string{"1", "2", "3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Match = %v, want all docs ordered by id", got)
	}
}
