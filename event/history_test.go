package event

import (
	"testing"

	"github.com/altingia/bamm/tree"
	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T) *tree.Tree {
	t.Helper()
	tr, err := tree.ParseNewick("((A:1,B:1):1,(C:1,D:1):1);")
	require.NoError(t, err)
	return tr
}

func TestNewHistoryPropagatesRootEverywhere(t *testing.T) {
	tr := newTestTree(t)
	h := NewHistory(tr, Regime{LambdaInit: 0.1, MuInit: 0.02})
	require.NoError(t, h.Validate())
	for _, n := range tr.Nodes() {
		if n == tr.Root() {
			continue
		}
		require.Equal(t, h.RootEvent(), h.NodeEvent(n))
		require.Equal(t, h.RootEvent(), h.AncestralNodeEvent(n))
	}
}

func TestInsertShieldsDescendants(t *testing.T) {
	tr := newTestTree(t)
	h := NewHistory(tr, Regime{LambdaInit: 0.1})

	mrcaAB, err := tr.MRCA("A", "B")
	require.NoError(t, err)
	mid := (tr.Node(mrcaAB).MapStart() + tr.Node(mrcaAB).MapEnd()) / 2
	newID := h.InsertEvent(mrcaAB, mid, Regime{LambdaInit: 0.5}, false)
	require.NoError(t, h.Validate())

	a, _ := tr.TipID("A")
	require.Equal(t, newID, h.AncestralNodeEvent(a))
	require.Equal(t, newID, h.NodeEvent(a))

	c, _ := tr.TipID("C")
	require.Equal(t, h.RootEvent(), h.AncestralNodeEvent(c))
}

func TestBirthThenDeathRestoresState(t *testing.T) {
	tr := newTestTree(t)
	h := NewHistory(tr, Regime{LambdaInit: 0.1})
	before := h.NumEvents()

	mrcaAB, _ := tr.MRCA("A", "B")
	mid := (tr.Node(mrcaAB).MapStart() + tr.Node(mrcaAB).MapEnd()) / 2
	id := h.InsertEvent(mrcaAB, mid, Regime{LambdaInit: 0.7}, false)
	require.Equal(t, before+1, h.NumEvents())

	h.RemoveEvent(id)
	require.Equal(t, before, h.NumEvents())
	require.NoError(t, h.Validate())

	a, _ := tr.TipID("A")
	require.Equal(t, h.RootEvent(), h.NodeEvent(a))
	require.Equal(t, h.RootEvent(), h.AncestralNodeEvent(a))
}

func TestMoveAcrossSpeciationNode(t *testing.T) {
	tr := newTestTree(t)
	h := NewHistory(tr, Regime{LambdaInit: 0.1})

	mrcaAB, _ := tr.MRCA("A", "B")
	parentBranchMid := (tr.Node(mrcaAB).MapStart() + tr.Node(mrcaAB).MapEnd()) / 2
	id := h.InsertEvent(mrcaAB, parentBranchMid, Regime{LambdaInit: 0.3}, false)
	require.Contains(t, h.BranchEvents(mrcaAB), id)

	a, _ := tr.TipID("A")
	aMid := (tr.Node(a).MapStart() + tr.Node(a).MapEnd()) / 2
	h.Move(id, a, aMid)
	require.NoError(t, h.Validate())

	require.NotContains(t, h.BranchEvents(mrcaAB), id)
	require.Contains(t, h.BranchEvents(a), id)
}

func TestIntervalsCoverWholeBranch(t *testing.T) {
	tr := newTestTree(t)
	h := NewHistory(tr, Regime{LambdaInit: 0.1})
	mrcaAB, _ := tr.MRCA("A", "B")
	a, _ := tr.TipID("A")

	ivs := h.Intervals(a)
	require.Len(t, ivs, 1)
	require.InDelta(t, tr.Node(a).MapStart(), ivs[0].Start, 1e-9)
	require.InDelta(t, tr.Node(a).MapEnd(), ivs[0].End, 1e-9)

	mid := (tr.Node(mrcaAB).MapStart() + tr.Node(mrcaAB).MapEnd()) / 2
	h.InsertEvent(mrcaAB, mid, Regime{LambdaInit: 0.5}, false)
	ivs = h.Intervals(a)
	require.Len(t, ivs, 1)
	require.Equal(t, h.NodeEvent(mrcaAB), ivs[0].Event)
}
