package analysis

// Stopwords is a set of terms excluded from indexing and querying.
type Stopwords map[string]struct{}

var englishStopwords = Stopwords{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "been": {}, "but": {}, "by": {}, "can": {}, "do": {},
	"each": {}, "for": {}, "from": {}, "had": {}, "has": {}, "have": {},
	"he": {}, "her": {}, "his": {}, "if": {}, "in": {}, "is": {},
	"it": {}, "its": {}, "my": {}, "no": {}, "not": {}, "of": {},
	"on": {}, "or": {}, "our": {}, "she": {}, "so": {}, "that": {},
	"the": {}, "their": {}, "them": {}, "they": {}, "this": {},
	"to": {}, "was": {}, "we": {}, "were": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "who": {}, "will": {}, "with": {},
	"you": {}, "your": {},
}

// StopwordsForLocale returns the stopword set for a locale. Only
// English ships today; unknown locales get an empty set so every token
// survives filtering.
func StopwordsForLocale(locale string) Stopwords {
	switch locale {
	case "en", "en-US", "en-GB", "":
		return englishStopwords
	default:
		return Stopwords{}
	}
}

// Contains reports whether term is a stopword.
func (s Stopwords) Contains(term string) bool {
	_, ok := s[term]
	return ok
}

// Filter removes stopword tokens from the stream. Surviving tokens keep
// the positions they were assigned at tokenization time, so proximity
// scoring downstream sees real textual distances.
func (s Stopwords) Filter(tokens []Token) []Token {
	if len(s) == 0 {
		return tokens
	}
	out := tokens[:0]
	for _, t := range tokens {
		if !s.Contains(t.Term) {
			out = append(out, t)
		}
	}
	return out
}
