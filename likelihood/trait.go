package likelihood

import (
	"math"

	"github.com/altingia/bamm/event"
	"github.com/altingia/bamm/tree"
)

// TraitOptions configures the Brownian-with-shifts integrator.
type TraitOptions struct {
	SegLength float64
}

// Trait computes the Brownian-with-shifts log-likelihood (spec.md
// §4.7): the sum, over every branch, of the log-density of
// Normal(childState - parentState, sigma2) where sigma2 is the
// integral of beta(t) along the branch. nodeState supplies every
// internal node's currently sampled ancestral value; tipValues
// supplies the observed values at tips.
func Trait(tr *tree.Tree, h *event.History, nodeState map[tree.NodeID]float64, tipValues map[tree.NodeID]float64, opt TraitOptions) float64 {
	logL := 0.0
	for _, n := range tr.PostOrder() {
		node := tr.Node(n)
		childVal, ok := tipValues[n]
		if !ok {
			childVal, ok = nodeState[n]
		}
		if !ok {
			return NegInf
		}
		parentVal, ok := nodeState[node.Parent()]
		if !ok {
			return NegInf
		}
		sigma2 := integrateBeta(tr, h, n, opt.SegLength)
		if sigma2 <= 0 || !isFiniteStrict(sigma2) {
			return NegInf
		}
		diff := childVal - parentVal
		logDensity := -0.5*math.Log(2*math.Pi*sigma2) - (diff*diff)/(2*sigma2)
		if !isFiniteStrict(logDensity) {
			return NegInf
		}
		logL += logDensity
	}
	return logL
}

// integrateBeta returns the integral of beta(t) dt along node n's
// inbound branch, the trait-model analogue of the diversification
// integrator's per-step rate evaluation, using the same midpoint rate
// evaluation and event-boundary subdivision as integrateBranch.
func integrateBeta(tr *tree.Tree, h *event.History, n tree.NodeID, segLength float64) float64 {
	ivs := h.Intervals(n)
	var sigma2 float64
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
			beta := betaRateAt(tr, h, iv.Event, n, mid)
			sigma2 += beta * step
		}
	}
	return sigma2
}

// betaRateAt evaluates an event's instantaneous beta rate at the point
// of onNode's inbound branch given by global map offset x, using the
// absolute time elapsed since the event fired (see eventRateAt in
// diversification.go for why the raw map-offset difference is wrong).
func betaRateAt(tr *tree.Tree, h *event.History, id event.ID, onNode tree.NodeID, x float64) float64 {
	e := h.Event(id)
	r := e.Regime()
	if r.BetaShift == 0 {
		return r.BetaInit
	}
	xTime := tr.AbsoluteTime(onNode, x)
	eventTime := tr.AbsoluteTime(e.AttachNode(), e.MapTime())
	elapsed := xTime - eventTime
	return r.BetaInit * math.Exp(r.BetaShift*elapsed)
}
