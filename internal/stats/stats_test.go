package stats

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Abs(b))
}

var sampleX = []float64{3.1, 4.7, 0.2, 9.9, 5.5, 6.1, 2.2, 8.8, 1.0, 7.3, 4.4}
var sampleY = []float64{2.0, 5.1, 0.9, 8.7, 5.0, 6.6, 1.8, 9.2, 0.4, 6.9, 3.9}

func TestSummarize_MatchesGonum(t *testing.T) {
	m := Summarize(sampleX)
	mean, variance := stat.MeanVariance(sampleX, nil)
	if m.N != int64(len(sampleX)) {
		t.Errorf("expected N=%d, got %d", len(sampleX), m.N)
	}
	if !almostEqual(m.Mean, mean, 1e-12) || !almostEqual(m.Variance(), variance, 1e-12) {
		t.Errorf("got mean=%v var=%v, want mean=%v var=%v", m.Mean, m.Variance(), mean, variance)
	}
}

func TestMoments_AddMatchesSummarize(t *testing.T) {
	var m Moments
	for _, x := range sampleX {
		m.Add(x)
	}
	want := Summarize(sampleX)
	if m.N != want.N || !almostEqual(m.Mean, want.Mean, 1e-12) || !almostEqual(m.M2, want.M2, 1e-12) {
		t.Errorf("Welford %+v != batch %+v", m, want)
	}
}

func TestMoments_MergeIsSplitInvariant(t *testing.T) {
	want := Summarize(sampleX)
	for split := 0; split <= len(sampleX); split++ {
		a := Summarize(sampleX[:split])
		a.Merge(Summarize(sampleX[split:]))
		if a.N != want.N || !almostEqual(a.Mean, want.Mean, 1e-12) || !almostEqual(a.M2, want.M2, 1e-12) {
			t.Errorf("split %d: merged %+v != whole %+v", split, a, want)
		}
	}
}

func TestMoments_SmallSamples(t *testing.T) {
	var empty Moments
	if empty.Variance() != 0 || empty.StdError() != 0 {
		t.Error("empty accumulator should report zero spread")
	}
	one := Summarize([]float64{4})
	if one.Mean != 4 || one.Variance() != 0 {
		t.Errorf("single observation: got %+v", one)
	}
}

func TestCoMoments_MatchesGonum(t *testing.T) {
	c := SummarizePair(sampleX, sampleY)
	if !almostEqual(c.Covariance(), stat.Covariance(sampleX, sampleY, nil), 1e-12) {
		t.Errorf("covariance %v != gonum %v", c.Covariance(), stat.Covariance(sampleX, sampleY, nil))
	}
	if !almostEqual(c.Y().Variance(), stat.Variance(sampleY, nil), 1e-12) {
		t.Errorf("variance of y %v != gonum %v", c.Y().Variance(), stat.Variance(sampleY, nil))
	}
}

func TestCoMoments_MergeIsSplitInvariant(t *testing.T) {
	want := SummarizePair(sampleX, sampleY)
	for _, split := range []int{0, 1, 4, 7, 11} {
		c := SummarizePair(sampleX[:split], sampleY[:split])
		c.Merge(SummarizePair(sampleX[split:], sampleY[split:]))
		if !almostEqual(c.C, want.C, 1e-12) || !almostEqual(c.MeanY, want.MeanY, 1e-12) || !almostEqual(c.M2X, want.M2X, 1e-12) {
			t.Errorf("split %d: merged %+v != whole %+v", split, c, want)
		}
	}
}

func TestSummarizePair_LengthMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on mismatched lengths")
		}
	}()
	SummarizePair([]float64{1, 2}, []float64{1})
}
