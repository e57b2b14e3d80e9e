package montecarlo

import (
	"math"

	"github.com/atmx/pricing-engine/internal/model"
	"github.com/atmx/pricing-engine/internal/stats"
)

// minControlVariance is the fraction of max(Var(X), E[Y]²) that Var(Y) must
// exceed before θ = Cov(X,Y)/Var(Y) is trusted.
const minControlVariance = 1e-12

// estimate turns the merged payoff moments into a PriceEstimate. controlPrice
// is the closed-form discounted price E[Y] of the geometric payoff.
func estimate(m stats.CoMoments, cv model.ControlVariate, controlPrice float64) model.PriceEstimate {
	x := m.X()
	if cv == model.ControlGeometric {
		if est, ok := controlled(m, controlPrice); ok {
			return est
		}
	}
	return finish(x.Mean, x.Variance(), x.N, false)
}

// controlled applies X − θ(Y − E[Y]). Its sample variance is
// Var(X) − Cov(X,Y)²/Var(Y), which never exceeds Var(X).
func controlled(m stats.CoMoments, controlPrice float64) (model.PriceEstimate, bool) {
	varX := m.X().Variance()
	varY := m.Y().Variance()
	scale := math.Max(varX, m.MeanY*m.MeanY)
	if !(varY > 0) || varY <= minControlVariance*scale {
		return model.PriceEstimate{}, false
	}
	cov := m.Covariance()
	theta := cov / varY
	mean := m.MeanX - theta*(m.MeanY-controlPrice)
	variance := math.Max(varX-cov*cov/varY, 0)
	return finish(mean, variance, m.N, true), true
}

func finish(mean, variance float64, n int64, applied bool) model.PriceEstimate {
	stderr := math.Sqrt(variance / float64(n))
	iv := model.Normal95(mean, stderr)
	return model.PriceEstimate{
		Price:                 mean,
		Interval:              &iv,
		StdError:              stderr,
		ControlVariateApplied: applied,
	}
}
