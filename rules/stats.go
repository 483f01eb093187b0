package rules

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/teranos/metamap/errors"
)

// Levene runs the Brown-Forsythe variant of Levene's test (deviations from
// the group median) and returns the p-value for the null hypothesis that
// all groups have equal variance.
//
// The p-value is NaN when the statistic is undefined, for example when
// every group is constant.
func Levene(groups ...[]float64) (float64, error) {
	k := len(groups)
	if k < 2 {
		return math.NaN(), errors.Wrap(errors.ErrStatisticalDegeneracy, "levene needs at least two groups")
	}

	n := 0
	deviations := make([][]float64, k)
	for i, g := range groups {
		if len(g) == 0 {
			return math.NaN(), errors.Wrap(errors.ErrStatisticalDegeneracy, "levene group is empty")
		}
		m := median(g)
		z := make([]float64, len(g))
		for j, x := range g {
			z[j] = math.Abs(x - m)
		}
		deviations[i] = z
		n += len(g)
	}
	if n <= k {
		return math.NaN(), errors.Wrap(errors.ErrStatisticalDegeneracy, "levene needs more observations than groups")
	}

	var all []float64
	for _, z := range deviations {
		all = append(all, z...)
	}
	grand := stat.Mean(all, nil)

	var between, within float64
	for _, z := range deviations {
		mean := stat.Mean(z, nil)
		between += float64(len(z)) * (mean - grand) * (mean - grand)
		for _, v := range z {
			within += (v - mean) * (v - mean)
		}
	}

	w := float64(n-k) / float64(k-1) * between / within
	if math.IsNaN(w) {
		return math.NaN(), nil
	}
	if math.IsInf(w, 1) {
		// no spread within groups but the groups differ
		return 0, nil
	}

	f := distuv.F{D1: float64(k - 1), D2: float64(n - k)}
	return f.Survival(w), nil
}

// TTest runs a two-sided two-sample t-test on the means of a and b.
// With equalVar it uses Student's pooled variance, otherwise Welch's
// approximation. Undefined tests return ErrStatisticalDegeneracy.
func TTest(a, b []float64, equalVar bool) (float64, error) {
	n1, n2 := float64(len(a)), float64(len(b))
	if len(a) < 2 || len(b) < 2 {
		return math.NaN(), errors.Wrap(errors.ErrStatisticalDegeneracy, "t-test needs two observations per sample")
	}

	m1, v1 := stat.MeanVariance(a, nil)
	m2, v2 := stat.MeanVariance(b, nil)

	var se, df float64
	if equalVar {
		df = n1 + n2 - 2
		pooled := ((n1-1)*v1 + (n2-1)*v2) / df
		se = math.Sqrt(pooled * (1/n1 + 1/n2))
	} else {
		q1, q2 := v1/n1, v2/n2
		se = math.Sqrt(q1 + q2)
		df = (q1 + q2) * (q1 + q2) / (q1*q1/(n1-1) + q2*q2/(n2-1))
	}

	if se == 0 || math.IsNaN(se) || math.IsNaN(df) {
		return math.NaN(), errors.Wrap(errors.ErrStatisticalDegeneracy, "t-test samples have zero variance")
	}

	t := (m1 - m2) / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.Survival(math.Abs(t)), nil
}

func median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
