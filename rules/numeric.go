package rules

import (
	"strconv"
	"strings"
)

// NumericModel matches numeric columns against reference samples with a
// variance test followed by a mean-difference test.
type NumericModel struct {
	samples map[string][]float64
	alpha   float64
}

// NewNumericModel parses the samples; values that are not numbers are
// skipped.
func NewNumericModel(samples map[string][]string, alpha float64) *NumericModel {
	m := &NumericModel{samples: make(map[string][]float64, len(samples)), alpha: alpha}
	for uri, values := range samples {
		if parsed := ParseFloats(values); len(parsed) > 0 {
			m.samples[uri] = parsed
		}
	}
	return m
}

// Size returns the number of concepts with a numeric sample.
func (m *NumericModel) Size() int {
	return len(m.samples)
}

// Match returns every concept whose sample is statistically
// indistinguishable from values, ordered by descending p-value.
// Concepts for which a test is undefined are skipped.
func (m *NumericModel) Match(values []string) []Candidate {
	query := ParseFloats(values)
	if len(query) == 0 {
		return nil
	}

	var candidates []Candidate
	for uri, sample := range m.samples {
		levene, err := Levene(sample, query)
		if err != nil {
			continue
		}
		// NaN compares false: unequal variances
		equalVar := levene > m.alpha

		p, err := TTest(sample, query, equalVar)
		if err != nil {
			continue
		}
		if p > m.alpha {
			candidates = append(candidates, Candidate{URI: uri, Score: p})
		}
	}

	sortCandidates(candidates)
	return candidates
}

// ParseFloats parses each value as a float64, skipping anything that does
// not parse.
func ParseFloats(values []string) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}
