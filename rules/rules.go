// Package rules holds the rule models that shortlist candidate concepts
// for an unlabeled column.
//
// Models are immutable snapshots built from observed concept samples.
// They are rebuilt wholesale whenever the samples change and never
// mutated in place, so a model can be shared between goroutines.
package rules

import (
	"sort"

	"github.com/teranos/metamap/concept"
)

// Candidate is a concept proposed for a column. Score is a p-value for the
// numeric model and a vote count for the text model.
type Candidate struct {
	URI   string
	Score float64
}

// Model ranks concepts for a column's values, most confident first.
type Model interface {
	Match(values []string) []Candidate
	Size() int // number of trained concepts
}

// Options configures model construction.
type Options struct {
	Alpha                   float64 // numeric significance threshold
	MinScore                float64 // text per-value probability and column fraction
	Smoothing               float64 // text additive smoothing
	BackgroundMinCategories int     // inject background below this many text categories
}

// DefaultOptions matches the defaults in am.SetDefaults.
func DefaultOptions() Options {
	return Options{
		Alpha:                   0.05,
		MinScore:                0.5,
		Smoothing:               0.01,
		BackgroundMinCategories: 10,
	}
}

// Build constructs the model for a rule family from concept samples keyed
// by URI.
func Build(family concept.RuleFamily, samples map[string][]string, opts Options) Model {
	switch family {
	case concept.FamilyNumeric:
		return NewNumericModel(samples, opts.Alpha)
	case concept.FamilyTemporal:
		return TemporalModel{}
	default:
		return TrainTextModel(samples, opts)
	}
}

// URIs returns the candidate URIs in order.
func URIs(candidates []Candidate) []string {
	uris := make([]string, len(candidates))
	for i, c := range candidates {
		uris[i] = c.URI
	}
	return uris
}

// sortCandidates orders by score descending, then URI ascending.
func sortCandidates(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].URI < candidates[j].URI
	})
}
