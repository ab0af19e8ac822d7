package likelihood

import (
	"math"
	"testing"

	"github.com/altingia/bamm/event"
	"github.com/altingia/bamm/tree"
	"github.com/stretchr/testify/require"
)

func twoTipTree(t *testing.T) *tree.Tree {
	t.Helper()
	tr, err := tree.ParseNewick("(A:1,B:1);")
	require.NoError(t, err)
	tr.SetGlobalSamplingFraction(1.0)
	return tr
}

// pureBirthDeathClosedForm is the standard two-tip, equal-branch,
// complete-sampling birth-death likelihood without survival
// conditioning: twice the log of each branch's analytic D(0) (below),
// plus log(lambda) for the speciation event at the root.
func pureBirthDeathClosedForm(lambda, mu, branchLen float64) float64 {
	// D at tip = 1 (complete sampling), E at tip = 0.
	// Using the critical/non-critical bdStep directly mirrors the
	// engine's own math, so instead we just evaluate the analytic
	// single-branch solution: D(0) = exp((mu-lambda)T) * (lambda-mu)^2 /
	// (lambda - mu*exp((mu-lambda)T))^2 with E(0) accordingly, for
	// E(T)=0, D(T)=1.
	if lambda == mu {
		denom := 1 + lambda*branchLen
		return math.Log(1/(denom*denom)) * 2 + math.Log(lambda)
	}
	ex := math.Exp(branchLen * (mu - lambda))
	diff := lambda - mu
	dDenom := lambda - ex*mu
	d := ex * diff * diff / (dDenom * dDenom)
	return 2*math.Log(d) + math.Log(lambda)
}

func TestDiversificationTwoTipClosedForm(t *testing.T) {
	tr := twoTipTree(t)
	lambda, mu := 0.3, 0.1
	h := event.NewHistory(tr, event.Regime{LambdaInit: lambda, MuInit: mu})

	opt := DiversificationOptions{SegLength: 1e-4, ConditionOnSurvival: false}
	got := Diversification(tr, h, opt)
	want := pureBirthDeathClosedForm(lambda, mu, 1.0)
	require.InDelta(t, want, got, 1e-3)
}

func TestDiversificationConditionOnSurvivalDifference(t *testing.T) {
	tr := twoTipTree(t)
	h := event.NewHistory(tr, event.Regime{LambdaInit: 0.3, MuInit: 0.1})
	opt := DiversificationOptions{SegLength: 1e-4}

	opt.ConditionOnSurvival = false
	off := Diversification(tr, h, opt)
	opt.ConditionOnSurvival = true
	on := Diversification(tr, h, opt)
	require.NotEqual(t, on, off)
	require.Less(t, on, off+1e9) // sanity: conditioning adds less than 1e9 (and neither side is NaN)
}

func TestDiversificationRejectsHighExtinctionProbability(t *testing.T) {
	tr := twoTipTree(t)
	// A very high relative extinction rate saturates E (past 0.999
	// about 0.7 time units up each unit-length branch) and trips the
	// numerical guard.
	h := event.NewHistory(tr, event.Regime{LambdaInit: 0.01, MuInit: 10})
	opt := DiversificationOptions{SegLength: 1e-3, ConditionOnSurvival: true}
	got := Diversification(tr, h, opt)
	require.Equal(t, NegInf, got)
}

// TestEventRateAtUsesAbsoluteTimeNotRawMapOffset guards against the map
// linearization gap: A2 is A's right child, so its branch's map
// coordinates sit after the entire (left) cherry subtree hanging off
// A's other child, even though A2 branches off A directly in time.
// Using the raw map-offset difference as elapsed time would inflate
// the shift's effect by the cherry subtree's total length.
func TestEventRateAtUsesAbsoluteTimeNotRawMapOffset(t *testing.T) {
	tr, err := tree.ParseNewick("(((C1:0.5,C2:0.5):1,A2:1):0.5,D:2);")
	require.NoError(t, err)

	root := tr.Node(tr.Root())
	a, _ := root.Children()
	aNode := tr.Node(a)
	_, a2 := aNode.Children()
	a2Node := tr.Node(a2)

	h := event.NewHistory(tr, event.Regime{LambdaInit: 0.2, MuInit: 0.05})
	regime := event.Regime{LambdaInit: 0.2, LambdaShift: 0.3, MuInit: 0.05}
	id := h.InsertEvent(a, aNode.MapEnd(), regime, true)

	got := eventRateAt(tr, h, id, a2, a2Node.MapEnd(), true)

	trueElapsed := a2Node.Time() - aNode.Time()
	want := regime.LambdaInit * math.Exp(regime.LambdaShift*trueElapsed)
	require.InDelta(t, want, got, 1e-9)

	rawMapElapsed := a2Node.MapEnd() - aNode.MapEnd()
	wrongUsingRawMap := regime.LambdaInit * math.Exp(regime.LambdaShift*rawMapElapsed)
	require.NotEqual(t, wrongUsingRawMap, got)
}

func TestDiversificationDeterministic(t *testing.T) {
	tr := twoTipTree(t)
	h := event.NewHistory(tr, event.Regime{LambdaInit: 0.2, MuInit: 0.05})
	opt := DiversificationOptions{SegLength: 1e-3, ConditionOnSurvival: true}
	a := Diversification(tr, h, opt)
	b := Diversification(tr, h, opt)
	require.Equal(t, a, b)
}
