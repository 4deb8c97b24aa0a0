package vector

import (
	"reflect"
	"testing"

	"github.com/quotelab/quotesearch/internal/analysis"
)

func TestBuildMultiFieldAccumulates(t *testing.T) {
	a := analysis.NewAnalyzer("en")
	sv := Build(a,
		map[string]string{"name": "Pony Express", "quote": "my pony rides fast"},
		map[string]Weight{"name": WeightB, "quote": WeightA},
	)

	occs, ok := sv["pony"]
	if !ok {
		t.Fatalf("vector missing term %q: %v", "pony", sv.Terms())
	}
	want := []Occurrence{
		{Field: "name", Weight: WeightB, Position: 0},
		{Field: "quote", Weight: WeightA, Position: 1},
	}
	if !reflect.DeepEqual(occs, want) {
		t.Errorf("occurrences for pony = %v, want %v", occs, want)
	}
}

func TestBuildFieldOrderCommutative(t *testing.T) {
	a := analysis.NewAnalyzer("en")
	weights := map[string]Weight{"name": WeightB, "quote": WeightA}
	fields := map[string]string{"name": "ponies everywhere", "quote": "a pony and a pony ride"}

	// Maps iterate in random order already, but be explicit: build
	// repeatedly and require identical vectors every time.
	first := Build(a, fields, weights)
	for i := 0; i < 10; i++ {
		if got := Build(a, fields, weights); !reflect.DeepEqual(got, first) {
			t.Fatalf("Build not commutative over field order: %v vs %v", got, first)
		}
	}
}

func TestBuildUnmappedFieldDefaultsToD(t *testing.T) {
	a := analysis.NewAnalyzer("en")
	sv := Build(a, map[string]string{"footnote": "pony"}, nil)
	occs := sv["pony"]
	if len(occs) != 1 || occs[0].Weight != WeightD {
		t.Errorf("unmapped field occurrences = %v, want single WeightD", occs)
	}
}

func TestTotalOccurrences(t *testing.T) {
	a := analysis.NewAnalyzer("en")
	sv := Build(a, map[string]string{"quote": "a pony and a pony ride"}, nil)
	// pony, pony, ride survive the stopword filter.
	if got := sv.TotalOccurrences(); got != 3 {
		t.Errorf("TotalOccurrences = %d, want 3", got)
	}
}

func TestParseWeight(t *testing.T) {
	tests := []struct {
		label   string
		want    Weight
		wantErr bool
	}{
		{"A", WeightA, false},
		{"b", WeightB, false},
		{" C ", WeightC, false},
		{"D", WeightD, false},
		{"E", WeightD, true},
		{"", WeightD, true},
	}
	for _, tt := range tests {
		got, err := ParseWeight(tt.label)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseWeight(%q) error = %v, wantErr %v", tt.label, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseWeight(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestMultipliersValidate(t *testing.T) {
	if err := DefaultMultipliers().Validate(); err != nil {
		t.Errorf("default multipliers should validate: %v", err)
	}

	dup := DefaultMultipliers()
	dup[WeightB] = dup[WeightA]
	if err := dup.Validate(); err == nil {
		t.Error("duplicate multipliers should fail validation")
	}

	var zero Multipliers
	if err := zero.Validate(); err == nil {
		t.Error("zero multipliers should fail validation")
	}
}
