package rules

import (
	_ "embed"
	"math"
	"regexp"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/teranos/metamap/errors"
)

// BackgroundCategory labels the filler category trained from generic text.
// It is never returned as a candidate.
const BackgroundCategory = "urn:metamap:background"

//go:embed background.txt
var backgroundCorpus string

// uniformEpsilon absorbs rounding in the softmax of tied scores.
const uniformEpsilon = 1e-9

// tokenPattern matches words of two or more word characters.
var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// TextModel is a multinomial naive Bayes classifier over tf-idf features.
// Class priors are uniform so the background category cannot outvote a
// small real category by document count alone.
type TextModel struct {
	vocabulary map[string]int
	idf        []float64
	categories []string
	logTheta   [][]float64 // per category, per term
	minScore   float64
}

// TrainTextModel trains on every value of every concept. When fewer than
// opts.BackgroundMinCategories concepts exist a background category is
// added. Without any samples the model is untrained and matches nothing.
func TrainTextModel(samples map[string][]string, opts Options) *TextModel {
	m := &TextModel{vocabulary: map[string]int{}, minScore: opts.MinScore}

	for uri, values := range samples {
		if len(values) > 0 {
			m.categories = append(m.categories, uri)
		}
	}
	if len(m.categories) == 0 {
		return m
	}
	sort.Strings(m.categories)

	var docs [][]string
	var labels []int
	for c, uri := range m.categories {
		for _, v := range samples[uri] {
			docs = append(docs, Tokenize(v))
			labels = append(labels, c)
		}
	}

	if len(m.categories) < opts.BackgroundMinCategories {
		bg := len(m.categories)
		m.categories = append(m.categories, BackgroundCategory)
		for _, line := range BackgroundDocuments() {
			docs = append(docs, Tokenize(line))
			labels = append(labels, bg)
		}
	}

	df := map[int]int{}
	for _, doc := range docs {
		seen := map[int]bool{}
		for _, tok := range doc {
			idx, ok := m.vocabulary[tok]
			if !ok {
				idx = len(m.vocabulary)
				m.vocabulary[tok] = idx
			}
			if !seen[idx] {
				seen[idx] = true
				df[idx]++
			}
		}
	}

	// smooth idf: ln((1+n)/(1+df)) + 1
	n := float64(len(docs))
	m.idf = make([]float64, len(m.vocabulary))
	for idx := range m.idf {
		m.idf[idx] = math.Log((1+n)/(1+float64(df[idx]))) + 1
	}

	counts := make([][]float64, len(m.categories))
	for c := range counts {
		counts[c] = make([]float64, len(m.vocabulary))
	}
	for i, doc := range docs {
		for idx, w := range m.vectorize(doc) {
			counts[labels[i]][idx] += w
		}
	}

	vocab := float64(len(m.vocabulary))
	m.logTheta = make([][]float64, len(m.categories))
	for c, row := range counts {
		total := floats.Sum(row) + opts.Smoothing*vocab
		theta := make([]float64, len(row))
		for idx, fc := range row {
			theta[idx] = math.Log((fc + opts.Smoothing) / total)
		}
		m.logTheta[c] = theta
	}
	return m
}

// Size returns the number of trained categories, background included.
func (m *TextModel) Size() int {
	return len(m.categories)
}

// Trained reports whether the model has any categories.
func (m *TextModel) Trained() bool {
	return len(m.categories) > 0
}

// Categories returns the trained category URIs.
func (m *TextModel) Categories() []string {
	return append([]string(nil), m.categories...)
}

// Predict returns the probability of each category for value, in the
// order of Categories. An untrained model fails with
// errors.ErrClassifierUntrained.
func (m *TextModel) Predict(value string) ([]float64, error) {
	if !m.Trained() {
		return nil, errors.ErrClassifierUntrained
	}
	return m.posterior(m.vectorize(Tokenize(value))), nil
}

func (m *TextModel) posterior(x map[int]float64) []float64 {
	jll := make([]float64, len(m.categories))
	for c, theta := range m.logTheta {
		for idx, w := range x {
			jll[c] += w * theta[idx]
		}
	}

	norm := floats.LogSumExp(jll)
	for c := range jll {
		jll[c] = math.Exp(jll[c] - norm)
	}
	return jll
}

// Match counts, per category, the values it is predicted for with at least
// the minimum score, and returns the categories whose vote share of the
// column also reaches that score, most votes first.
//
// Values without a known term count toward the column but vote for no
// category, and a category must score above the uniform share to vote.
func (m *TextModel) Match(values []string) []Candidate {
	if !m.Trained() || len(values) == 0 {
		return nil
	}

	uniform := 1 / float64(len(m.categories))
	votes := make([]int, len(m.categories))
	for _, v := range values {
		x := m.vectorize(Tokenize(v))
		if len(x) == 0 {
			continue
		}
		for c, p := range m.posterior(x) {
			if p >= m.minScore && p-uniform > uniformEpsilon {
				votes[c]++
			}
		}
	}

	var candidates []Candidate
	for c, uri := range m.categories {
		if uri == BackgroundCategory || votes[c] == 0 {
			continue
		}
		if float64(votes[c])/float64(len(values)) >= m.minScore {
			candidates = append(candidates, Candidate{URI: uri, Score: float64(votes[c])})
		}
	}

	sortCandidates(candidates)
	return candidates
}

// vectorize returns the L2-normalized tf-idf weights of known terms.
func (m *TextModel) vectorize(tokens []string) map[int]float64 {
	x := map[int]float64{}
	for _, tok := range tokens {
		if idx, ok := m.vocabulary[tok]; ok {
			x[idx]++
		}
	}

	var norm float64
	for idx, tf := range x {
		x[idx] = tf * m.idf[idx]
		norm += x[idx] * x[idx]
	}
	if norm == 0 {
		return x
	}
	norm = math.Sqrt(norm)
	for idx := range x {
		x[idx] /= norm
	}
	return x
}

// Tokenize lower-cases s and splits it into words of at least two
// characters.
func Tokenize(s string) []string {
	return tokenPattern.FindAllString(strings.ToLower(s), -1)
}

// BackgroundDocuments returns the generic text corpus, one document per
// non-empty line.
func BackgroundDocuments() []string {
	var docs []string
	for _, line := range strings.Split(backgroundCorpus, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			docs = append(docs, line)
		}
	}
	return docs
}
