// Package stats holds mergeable moment accumulators. Partial results computed
// on independent chunks combine with the pairwise update of Chan, Golub and
// LeVeque, so a reduction never needs the concatenated sample.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Moments tracks count, mean and the sum of squared deviations (M2).
type Moments struct {
	N    int64
	Mean float64
	M2   float64
}

// Summarize computes the moments of xs.
func Summarize(xs []float64) Moments {
	switch len(xs) {
	case 0:
		return Moments{}
	case 1:
		return Moments{N: 1, Mean: xs[0]}
	}
	mean, variance := stat.MeanVariance(xs, nil)
	n := int64(len(xs))
	return Moments{N: n, Mean: mean, M2: variance * float64(n-1)}
}

// Add folds one observation into m (Welford's update).
func (m *Moments) Add(x float64) {
	m.N++
	delta := x - m.Mean
	m.Mean += delta / float64(m.N)
	m.M2 += delta * (x - m.Mean)
}

// Merge folds o into m.
func (m *Moments) Merge(o Moments) {
	if o.N == 0 {
		return
	}
	if m.N == 0 {
		*m = o
		return
	}
	n := m.N + o.N
	delta := o.Mean - m.Mean
	m.Mean += delta * float64(o.N) / float64(n)
	m.M2 += o.M2 + delta*delta*float64(m.N)*float64(o.N)/float64(n)
	m.N = n
}

// Variance returns the unbiased sample variance, zero below two observations.
func (m Moments) Variance() float64 {
	if m.N < 2 {
		return 0
	}
	return m.M2 / float64(m.N-1)
}

// StdDev returns the sample standard deviation.
func (m Moments) StdDev() float64 {
	return math.Sqrt(m.Variance())
}

// StdError returns the standard error of the mean.
func (m Moments) StdError() float64 {
	if m.N == 0 {
		return 0
	}
	return m.StdDev() / math.Sqrt(float64(m.N))
}

// CoMoments tracks the joint moments of a paired sample (x, y).
type CoMoments struct {
	N     int64
	MeanX float64
	MeanY float64
	M2X   float64
	M2Y   float64
	// C is the sum of cross deviations.
	C float64
}

// SummarizePair computes the joint moments of x and y, which must have equal
// length.
func SummarizePair(x, y []float64) CoMoments {
	if len(x) != len(y) {
		panic("stats: paired sample length mismatch")
	}
	if len(x) == 0 {
		return CoMoments{}
	}
	mx, my := Summarize(x), Summarize(y)
	c := CoMoments{N: mx.N, MeanX: mx.Mean, MeanY: my.Mean, M2X: mx.M2, M2Y: my.M2}
	if len(x) > 1 {
		c.C = stat.Covariance(x, y, nil) * float64(len(x)-1)
	}
	return c
}

// Merge folds o into c.
func (c *CoMoments) Merge(o CoMoments) {
	if o.N == 0 {
		return
	}
	if c.N == 0 {
		*c = o
		return
	}
	n := c.N + o.N
	w := float64(c.N) * float64(o.N) / float64(n)
	dx := o.MeanX - c.MeanX
	dy := o.MeanY - c.MeanY
	c.MeanX += dx * float64(o.N) / float64(n)
	c.MeanY += dy * float64(o.N) / float64(n)
	c.M2X += o.M2X + dx*dx*w
	c.M2Y += o.M2Y + dy*dy*w
	c.C += o.C + dx*dy*w
	c.N = n
}

// X returns the marginal moments of x.
func (c CoMoments) X() Moments {
	return Moments{N: c.N, Mean: c.MeanX, M2: c.M2X}
}

// Y returns the marginal moments of y.
func (c CoMoments) Y() Moments {
	return Moments{N: c.N, Mean: c.MeanY, M2: c.M2Y}
}

// Covariance returns the unbiased sample covariance.
func (c CoMoments) Covariance() float64 {
	if c.N < 2 {
		return 0
	}
	return c.C / float64(c.N-1)
}
