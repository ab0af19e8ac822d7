// Package likelihood implements BAMM's two likelihood families as
// pure functions of (tree, branch history): the piecewise-exponential
// birth-death integration for the diversification core (spec.md §4.6)
// and the Brownian-with-shifts trait likelihood (spec.md §4.7).
package likelihood

import (
	"math"

	"github.com/altingia/bamm/event"
	"github.com/altingia/bamm/tree"
)

// NegInf is returned by Diversification when a numerical guard trips
// (E >= rejectEThreshold, or a non-finite intermediate), signalling
// "propose, reject" per spec.md §4.9.
var NegInf = math.Inf(-1)

const rejectEThreshold = 0.999

// ChildEChoice selects which child's extinction probability becomes an
// internal node's own E value, per spec.md §9's open question.
type ChildEChoice int

const (
	// LeftChildE always takes the left child's E, the source's
	// documented-but-arbitrary default.
	LeftChildE ChildEChoice = iota
	// RandomChildE flips a coin each time, the source's commented
	// alternative.
	RandomChildE
)

// DiversificationOptions configures the integrator beyond what the
// Tree/History alone determine.
type DiversificationOptions struct {
	SegLength           float64
	ConditionOnSurvival bool
	ChildEChoice        ChildEChoice
	// CoinFlip is consulted only when ChildEChoice == RandomChildE.
	CoinFlip func() bool
}

type nodeState struct {
	d, e float64
}

// Diversification computes the diversification-model log-likelihood
// of the given tree under the given branch history (spec.md §4.6). It
// returns NegInf if any branch hits the E-saturation numerical guard.
func Diversification(tr *tree.Tree, h *event.History, opt DiversificationOptions) float64 {
	arrival := make(map[tree.NodeID]nodeState, tr.NNodes())
	logL := 0.0

	for _, n := range tr.PostOrder() {
		node := tr.Node(n)
		var d0, e0 float64
		if node.Tip() {
			frac := tr.SamplingFraction(n)
			d0, e0 = frac, 1-frac
		} else {
			l, r := node.Children()
			left, right := arrival[l], arrival[r]
			lambdaN := eventRateAt(tr, h, h.NodeEvent(n), n, node.MapEnd(), true)
			combined := left.d * right.d * lambdaN
			if !isFiniteStrict(combined) || combined <= 0 {
				return NegInf
			}
			logL += math.Log(combined)
			d0 = 1
			e0 = chooseE(left.e, right.e, opt)
		}

		dEnd, eEnd, contrib, ok := integrateBranch(tr, h, n, d0, e0, opt.SegLength)
		if !ok {
			return NegInf
		}
		logL += contrib
		arrival[n] = nodeState{d: dEnd, e: eEnd}
	}

	root := tr.Root()
	l, r := tr.Node(root).Children()
	left, right := arrival[l], arrival[r]
	lambdaRoot := eventRateAt(tr, h, h.RootEvent(), root, 0, true)
	combined := left.d * right.d * lambdaRoot
	if !isFiniteStrict(combined) || combined <= 0 {
		return NegInf
	}
	logL += math.Log(combined)

	if opt.ConditionOnSurvival {
		if left.e >= rejectEThreshold || right.e >= rejectEThreshold {
			return NegInf
		}
		logL -= math.Log(1-left.e) + math.Log(1-right.e)
	}

	if !isFiniteStrict(logL) {
		return NegInf
	}
	return logL
}

func chooseE(leftE, rightE float64, opt DiversificationOptions) float64 {
	if opt.ChildEChoice == RandomChildE && opt.CoinFlip != nil && opt.CoinFlip() {
		return rightE
	}
	return leftE
}

// integrateBranch walks node n's inbound branch tipward to rootward,
// one sub-interval per event boundary, each sub-interval further split
// into steps of length <= segLength (spec.md §4.6).
func integrateBranch(tr *tree.Tree, h *event.History, n tree.NodeID, dStart, eStart, segLength float64) (d, e, logContrib float64, ok bool) {
	ivs := h.Intervals(n)
	d, e = dStart, eStart
	for i := len(ivs) - 1; i >= 0; i-- {
		iv := ivs[i]
		length := iv.End - iv.Start
		if length <= 0 {
			continue
		}
		nSteps := int(math.Ceil(length / segLength))
		if nSteps < 1 {
			nSteps = 1
		}
		step := length / float64(nSteps)
		for s := 0; s < nSteps; s++ {
			tEnd := iv.End - float64(s)*step
			tStart := tEnd - step
			mid := (tEnd + tStart) / 2
			lambda := eventRateAt(tr, h, iv.Event, n, mid, true)
			mu := eventRateAt(tr, h, iv.Event, n, mid, false)

			d, e = bdStep(d, e, lambda, mu, step)
			if e >= rejectEThreshold || !isFiniteStrict(d) || !isFiniteStrict(e) || d <= 0 {
				return 0, 0, 0, false
			}
			logContrib += math.Log(d)
			d = 1
		}
	}
	return d, e, logContrib, true
}

// bdStep applies spec.md §4.6's Kendall birth-death recursion over one
// step of length delta, handling the lambda==mu removable singularity
// with its closed-form critical-rate limit.
func bdStep(dEnd, eEnd, lambda, mu, delta float64) (d, e float64) {
	const eps = 1e-9
	if math.Abs(lambda-mu) < eps {
		denom := 1 + lambda*delta*(1-eEnd)
		d = dEnd / (denom * denom)
		e = 1 - (1-eEnd)/denom
		return d, e
	}
	ex := math.Exp(delta * (mu - lambda))
	diff := lambda - mu

	dDenom := lambda*(1-eEnd) + ex*(lambda*eEnd-mu)
	d = ex * dEnd * diff * diff / (dDenom * dDenom)

	eDenom := (1-eEnd)*lambda - ex*(mu-lambda*eEnd)
	e = 1 - (1-eEnd)*diff/eDenom

	return d, e
}

// eventRateAt evaluates an event's instantaneous lambda (wantLambda
// true) or mu (false) rate at the point of onNode's inbound branch
// given by global map offset x, using the absolute time elapsed since
// the event fired (not the raw map-offset difference: the map is only
// contiguous along the left spine, so x and the event's own mapTime
// can sit on unrelated branches). For trait regimes (beta) see
// package-level betaRateAt in trait.go.
func eventRateAt(tr *tree.Tree, h *event.History, id event.ID, onNode tree.NodeID, x float64, wantLambda bool) float64 {
	e := h.Event(id)
	r := e.Regime()
	xTime := tr.AbsoluteTime(onNode, x)
	eventTime := tr.AbsoluteTime(e.AttachNode(), e.MapTime())
	elapsed := xTime - eventTime
	if wantLambda {
		if r.LambdaShift == 0 {
			return r.LambdaInit
		}
		return r.LambdaInit * math.Exp(r.LambdaShift*elapsed)
	}
	if r.MuShift == 0 {
		return r.MuInit
	}
	return r.MuInit * math.Exp(r.MuShift*elapsed)
}

func isFiniteStrict(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
