// Package fallback implements the non-indexed baseline: a linear
// case-insensitive substring scan over raw field text. No stemming, no
// stopwords, no ranking. It matches inside unrelated longer words and
// never treats inflected forms as equivalent; it exists to make the
// quality and cost gap against the inverted index explicit. Cost is
// O(documents x field length) per query.
package fallback

import (
	"sort"
	"strings"
)

// Document is a raw document handed to the scanner: id plus unmodified
// field text.
type Document struct {
	ID     string
	Fields map[string]string
}

// Match returns the ids of documents where any of the requested fields
// contains the query as a literal substring, ignoring case. An empty
// field list means every field qualifies. Results carry no scores and
// are ordered by document id only. A blank query matches nothing.
func Match(rawQuery string, fields []string, docs []Document) []string {
	needle := strings.ToLower(strings.TrimSpace(rawQuery))
	if needle == "" {
		return nil
	}
	wanted := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		wanted[f] = struct{}{}
	}

	ids := make([]string, 0)
	for _, doc := range docs {
		if docMatches(doc, needle, wanted) {
			ids = append(ids, doc.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

func docMatches(doc Document, needle string, wanted map[string]struct{}) bool {
	for field, text := range doc.Fields {
		if len(wanted) > 0 {
			if _, ok := wanted[field]; !ok {
				continue
			}
		}
		if strings.Contains(strings.ToLower(text), needle) {
			return true
		}
	}
	return false
}
