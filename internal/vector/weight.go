// Package vector builds per-document weighted search vectors: the
// mapping from stemmed term to every (field, weight, position) at which
// it occurs. Vectors are the unit the inverted index stores and the
// ranker scores.
package vector

import (
	"fmt"
	"strings"

	"github.com/quotelab/quotesearch/pkg/errors"
)

// Weight is one of the four field importance labels. The zero value is
// WeightD, the lowest, which is also what unmapped fields get.
type Weight int8

const (
	WeightD Weight = iota
	WeightC
	WeightB
	WeightA
)

// String returns the single-letter label for the weight.
func (w Weight) String() string {
	switch w {
	case WeightA:
		return "A"
	case WeightB:
		return "B"
	case WeightC:
		return "C"
	default:
		return "D"
	}
}

// ParseWeight converts a label ("A".."D", case-insensitive) into a
// Weight. Unknown labels are a configuration error surfaced at startup,
// never at query time.
func ParseWeight(label string) (Weight, error) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "A":
		return WeightA, nil
	case "B":
		return WeightB, nil
	case "C":
		return WeightC, nil
	case "D":
		return WeightD, nil
	default:
		return WeightD, errors.Newf(errors.ErrInvalidWeightLabel, 0, "unknown field weight label %q", label)
	}
}

// Multipliers maps each weight label to its numeric multiplier.
type Multipliers [4]float64

// DefaultMultipliers is the standard A=1.0 B=0.4 C=0.2 D=0.1 table.
func DefaultMultipliers() Multipliers {
	var m Multipliers
	m[WeightA] = 1.0
	m[WeightB] = 0.4
	m[WeightC] = 0.2
	m[WeightD] = 0.1
	return m
}

// Validate checks that the table is total and injective: every label
// has a positive multiplier and no two labels share one.
func (m Multipliers) Validate() error {
	seen := make(map[float64]Weight, 4)
	for w := WeightD; w <= WeightA; w++ {
		v := m[w]
		if v <= 0 {
			return errors.Newf(errors.ErrInvalidWeightLabel, 0, "weight label %s has non-positive multiplier %v", w, v)
		}
		if prev, dup := seen[v]; dup {
			return errors.Newf(errors.ErrInvalidWeightLabel, 0, "weight labels %s and %s share multiplier %v", prev, w, v)
		}
		seen[v] = w
	}
	return nil
}

// Of returns the multiplier for a weight label.
func (m Multipliers) Of(w Weight) float64 {
	if w < WeightD || w > WeightA {
		return m[WeightD]
	}
	return m[w]
}

// ParseFieldWeights converts a field-name to label mapping into typed
// weights, failing on the first unknown label.
func ParseFieldWeights(labels map[string]string) (map[string]Weight, error) {
	weights := make(map[string]Weight, len(labels))
	for field, label := range labels {
		w, err := ParseWeight(label)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		weights[field] = w
	}
	return weights, nil
}
