package benchmark

import (
	"strings"
	"testing"

	"github.com/quotelab/quotesearch/internal/analysis"
)

// BenchmarkAnalyze measures the full analysis pipeline (tokenize,
// stopword filter, stem) for texts of varying length.
func BenchmarkAnalyze(b *testing.B) {
	analyzer := analysis.NewAnalyzer("en")
	texts := []struct {
		name string
		text string
	}{
		{"short", "a pony and a pony ride"},
		{"sentence", "imagination is more important than knowledge, and the cache remembers what the network betrays"},
		{"paragraph", strings.Repeat("many ponies running through the open field chasing the early bird ", 20)},
	}
	for _, tc := range texts {
		b.Run(tc.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				tokens := analyzer.Analyze(tc.text)
				if len(tokens) == 0 {
					b.Fatal("no tokens")
				}
			}
		})
	}
}

// BenchmarkStem measures the suffix-rule stemmer on a mixed vocabulary.
func BenchmarkStem(b *testing.B) {
	words := []string{
		"ponies", "running", "creation", "happiness", "governments",
		"famously", "carried", "usefulness", "kisses", "riding",
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		analysis.Stem(words[i%len(words)])
	}
}
