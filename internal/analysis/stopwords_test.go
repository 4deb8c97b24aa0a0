package analysis

import (
	"reflect"
	"testing"
)

func TestStopwordsFilterKeepsPositions(t *testing.T) {
	sw := StopwordsForLocale("en")
	in := []Token{{"the", 0}, {"pony", 1}, {"and", 2}, {"rider", 3}}
	got := sw.Filter(in)
	want := []Token{{"pony", 1}, {"rider", 3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Filter = %v, want %v", got, want)
	}
}

func TestStopwordsFilterEmptySetIsNoop(t *testing.T) {
	var sw Stopwords
	in := []Token{{"the", 0}, {"pony", 1}}
	if got := sw.Filter(in); !reflect.DeepEqual(got, in) {
		t.Errorf("empty set Filter = %v, want input unchanged", got)
	}
}

func TestStopwordsForLocale(t *testing.T) {
	tests := []struct {
		locale string
		term   string
		want   bool
	}{
		{"en", "the", true},
		{"en-US", "and", true},
		{"", "of", true},
		{"en", "pony", false},
		{"de", "the", false},
	}
	for _, tt := range tests {
		sw := StopwordsForLocale(tt.locale)
		if got := sw.Contains(tt.term); got != tt.want {
			t.Errorf("StopwordsForLocale(%q).Contains(%q) = %v, want %v", tt.locale, tt.term, got, tt.want)
		}
	}
}
