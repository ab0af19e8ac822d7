package likelihood

import (
	"math"
	"testing"

	"github.com/altingia/bamm/event"
	"github.com/altingia/bamm/tree"
	"github.com/stretchr/testify/require"
)

func TestTraitConstantRateMatchesNormalDensity(t *testing.T) {
	tr, err := tree.ParseNewick("(A:2,B:2);")
	require.NoError(t, err)
	h := event.NewHistory(tr, event.Regime{BetaInit: 0.5})

	root := tr.Root()
	a, _ := tr.TipID("A")
	b, _ := tr.TipID("B")

	nodeState := map[tree.NodeID]float64{root: 0.0}
	tipValues := map[tree.NodeID]float64{a: 1.0, b: -0.5}

	got := Trait(tr, h, nodeState, tipValues, TraitOptions{SegLength: 1e-3})

	sigma2 := 0.5 * 2.0
	logDensA := -0.5*math.Log(2*math.Pi*sigma2) - (1.0*1.0)/(2*sigma2)
	logDensB := -0.5*math.Log(2*math.Pi*sigma2) - (0.5*0.5)/(2*sigma2)
	want := logDensA + logDensB

	require.InDelta(t, want, got, 1e-2)
}

// TestBetaRateAtUsesAbsoluteTimeNotRawMapOffset mirrors
// TestEventRateAtUsesAbsoluteTimeNotRawMapOffset for the trait rate
// evaluator: A2 branches directly off A, but its map coordinates sit
// after A's other (cherry) child's whole subtree.
func TestBetaRateAtUsesAbsoluteTimeNotRawMapOffset(t *testing.T) {
	tr, err := tree.ParseNewick("(((C1:0.5,C2:0.5):1,A2:1):0.5,D:2);")
	require.NoError(t, err)

	root := tr.Node(tr.Root())
	a, _ := root.Children()
	aNode := tr.Node(a)
	_, a2 := aNode.Children()
	a2Node := tr.Node(a2)

	h := event.NewHistory(tr, event.Regime{BetaInit: 0.2})
	regime := event.Regime{BetaInit: 0.2, BetaShift: 0.3}
	id := h.InsertEvent(a, aNode.MapEnd(), regime, true)

	got := betaRateAt(tr, h, id, a2, a2Node.MapEnd())

	trueElapsed := a2Node.Time() - aNode.Time()
	want := regime.BetaInit * math.Exp(regime.BetaShift*trueElapsed)
	require.InDelta(t, want, got, 1e-9)

	rawMapElapsed := a2Node.MapEnd() - aNode.MapEnd()
	wrongUsingRawMap := regime.BetaInit * math.Exp(regime.BetaShift*rawMapElapsed)
	require.NotEqual(t, wrongUsingRawMap, got)
}

func TestTraitMissingNodeStateIsRejected(t *testing.T) {
	tr, err := tree.ParseNewick("(A:1,B:1);")
	require.NoError(t, err)
	h := event.NewHistory(tr, event.Regime{BetaInit: 0.2})

	a, _ := tr.TipID("A")
	b, _ := tr.TipID("B")
	tipValues := map[tree.NodeID]float64{a: 1, b: 2}

	got := Trait(tr, h, map[tree.NodeID]float64{}, tipValues, TraitOptions{SegLength: 1e-2})
	require.Equal(t, NegInf, got)
}
