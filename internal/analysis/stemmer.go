package analysis

import "strings"

// suffixRule rewrites a suffix when the remaining stem has at least
// minStem characters. Rules are ordered longest-suffix first and at
// most one rule fires per word.
type suffixRule struct {
	suffix      string
	replacement string
	minStem     int
}

// The table is curated so that no rule's output is itself rewritten by
// a later pass: Stem(Stem(w)) == Stem(w) for every w, which the tests
// assert over the full inflection vocabulary.
var suffixRules = []suffixRule{
	{"ization", "ize", 3},
	{"ational", "ate", 2},
	{"ations", "ate", 2},
	{"ation", "ate", 2},
	{"fulness", "ful", 3},
	{"iveness", "ive", 3},
	{"ousness", "ous", 3},
	{"encies", "ence", 2},
	{"ancies", "ance", 2},
	{"tional", "tion", 2},
	{"iness", "y", 2},
	{"ingly", "", 3},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"ments", "", 3},
	{"sses", "ss", 1},
	{"ency", "ence", 2},
	{"ancy", "ance", 2},
	{"edly", "", 3},
	{"ness", "", 3},
	{"ment", "", 3},
	{"ying", "y", 2},
	{"ies", "y", 2},
	{"ied", "y", 2},
	{"ily", "y", 2},
	{"ing", "", 3},
	{"est", "", 3},
	{"ers", "", 3},
	{"es", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"s", "", 3},
}

// suffixes that strip to the bare stem and may leave a doubled final
// consonant behind ("running" -> "runn").
var undoubleAfter = map[string]struct{}{
	"ing": {}, "ed": {}, "est": {}, "er": {}, "ers": {}, "ingly": {}, "edly": {},
}

// Stem reduces a normalised token to its root form using a fixed
// suffix-rewriting table followed by consonant undoubling and final-e
// removal. It is deterministic, idempotent, and runs in O(len(word)).
// It never fails: words no rule applies to are returned unchanged.
func Stem(word string) string {
	if len(word) < 3 {
		return word
	}
	for _, rule := range suffixRules {
		if !strings.HasSuffix(word, rule.suffix) {
			continue
		}
		stem := word[:len(word)-len(rule.suffix)]
		if len(stem) < rule.minStem {
			continue
		}
		// "ss" and "us" survive the bare "s" rule (kiss, famous);
		// stripping them would desync from the -ously/-ousness rules.
		if rule.suffix == "s" && (strings.HasSuffix(stem, "s") || strings.HasSuffix(stem, "u")) {
			continue
		}
		if _, ok := undoubleAfter[rule.suffix]; ok {
			stem = undouble(stem)
		}
		word = stem + rule.replacement
		break
	}
	return dropFinalE(word)
}

// undouble collapses a trailing doubled consonant ("runn" -> "run").
// l, s, and z stay doubled, matching how English spells their base
// forms (fall, kiss, buzz).
func undouble(stem string) string {
	n := len(stem)
	if n < 3 || stem[n-1] != stem[n-2] {
		return stem
	}
	switch stem[n-1] {
	case 'a', 'e', 'i', 'o', 'u', 'l', 's', 'z':
		return stem
	}
	return stem[:n-1]
}

// dropFinalE removes trailing "e"s from words of four or more letters
// so that bare forms line up with their suffix-stripped inflections
// (drive/driving -> driv, agree/agreed -> agr). It strips until the word
// no longer ends in "e" or gets too short, so its output is a fixed
// point: feeding a stemmed word back through changes nothing.
func dropFinalE(word string) string {
	for len(word) >= 4 && strings.HasSuffix(word, "e") {
		word = word[:len(word)-1]
	}
	return word
}
