package model

import (
	"math"
	"testing"

	"github.com/altingia/bamm/config"
	"github.com/altingia/bamm/event"
	"github.com/altingia/bamm/likelihood"
	"github.com/altingia/bamm/rng"
	"github.com/altingia/bamm/tree"
	"github.com/stretchr/testify/require"
)

func twoTipSettings() config.Settings {
	s := config.Default()
	s.TreeFile = "unused.nwk"
	s.LambdaInit0 = 0.3
	s.MuInit0 = 0.1
	s.PoissonRatePrior = 0 // eventRate=0: birth kernel can never actually add an event in scenario 1
	return s
}

func newTwoTipModel(t *testing.T, s config.Settings) (*Model, *tree.Tree) {
	t.Helper()
	tr, err := tree.ParseNewick("(A:1,B:1);")
	require.NoError(t, err)
	tr.AssignMap()
	tr.SetGlobalSamplingFraction(1.0)
	m, err := New(s, tr, nil, rng.New(42))
	require.NoError(t, err)
	return m, tr
}

// Scenario 1 (spec.md §8): eventRate=0 means a birth proposal is
// always rejected via its own MH ratio (log(eventRate) = -Inf), so the
// log-likelihood stays at the closed-form pure-birth-death value.
func TestScenarioClosedFormTwoTipNoBirth(t *testing.T) {
	s := twoTipSettings()
	m, tr := newTwoTipModel(t, s)

	opt := likelihood.DiversificationOptions{SegLength: s.SegLength, ConditionOnSurvival: s.ConditionOnSurvival}
	want := likelihood.Diversification(tr, m.hist, opt)
	require.Equal(t, want, m.LogLikelihood())

	m.eventRate = 0
	m.proposeBirth()
	require.Equal(t, want, m.LogLikelihood())
	require.Equal(t, 0, m.NumEvents())
}

// Scenario 2 (spec.md §8): birth then forced death of the same event
// restores the exact pre-birth state.
func TestScenarioBirthThenDeathRoundTrip(t *testing.T) {
	s := twoTipSettings()
	s.PoissonRatePrior = 1.0
	m, _ := newTwoTipModel(t, s)

	preLogL, preLogPrior, preK := m.logL, m.logPrior, len(m.eventOrder)

	// Force an accepted birth by overriding the coldness-scaled accept
	// draw indirectly: insert directly and recompute, mirroring what
	// proposeBirth does internally, so the test is not at the mercy of
	// the RNG's accept/reject coin.
	x := m.tr.TotalMapLength() / 2
	attach, _, err := m.tr.InverseMap(x)
	require.NoError(t, err)
	regime := event.Regime{LambdaInit: 0.2, MuInit: 0.05}
	id := m.hist.InsertEvent(attach, x, regime, false)
	m.eventOrder = insertSorted(m.eventOrder, id)
	m.logL = m.computeLogL()
	m.logPrior = m.computeLogPrior()

	require.Equal(t, 1, len(m.eventOrder))
	require.NoError(t, m.hist.Validate())

	// Forced death of that same event.
	m.hist.RemoveEvent(id)
	m.eventOrder = removeSorted(m.eventOrder, id)
	m.logL = m.computeLogL()
	m.logPrior = m.computeLogPrior()

	require.Equal(t, preK, len(m.eventOrder))
	require.InDelta(t, preLogL, m.logL, 1e-9)
	require.InDelta(t, preLogPrior, m.logPrior, 1e-9)
	require.NoError(t, m.hist.Validate())
}

// Scenario 3 (spec.md §8): repeated local moves eventually carry an
// event across a speciation node; after acceptance the new branch's
// history contains it, the old branch's does not, and I2 holds.
func TestScenarioRelocationAcrossNode(t *testing.T) {
	tr, err := tree.ParseNewick("((A:1,B:1):1,C:2);")
	require.NoError(t, err)
	tr.AssignMap()
	tr.SetGlobalSamplingFraction(1.0)

	s := config.Default()
	s.TreeFile = "unused.nwk"
	s.UpdateEventLocationScale = 10 // force large-scale local moves
	m, err := New(s, tr, nil, rng.New(7))
	require.NoError(t, err)

	a, err := tr.TipID("A")
	require.NoError(t, err)
	x := tr.Node(a).MapStart() + 0.1
	regime := event.Regime{LambdaInit: 0.2, MuInit: 0.05}
	id := m.hist.InsertEvent(a, x, regime, false)
	m.eventOrder = insertSorted(m.eventOrder, id)
	m.logL = m.computeLogL()

	startAttach := m.hist.Event(id).AttachNode()
	moved := false
	for i := 0; i < 200; i++ {
		m.proposeMove()
		if m.hist.Event(id).AttachNode() != startAttach {
			moved = true
			break
		}
	}
	require.True(t, moved, "expected the event to relocate across a node within 200 large-scale local moves")

	newAttach := m.hist.Event(id).AttachNode()
	require.Contains(t, m.hist.BranchEvents(newAttach), id)
	require.NotContains(t, m.hist.BranchEvents(startAttach), id)
	require.NoError(t, m.hist.Validate())
}

// Scenario 4 (spec.md §8): on a three-tip tree with events on both
// root descendants, the I4 predicate reports a violation for either
// root-descendant branch, which is the check proposeBirth and
// proposeMove use to reject a placement there and undo it.
func TestScenarioI4Rejection(t *testing.T) {
	tr, err := tree.ParseNewick("((A:1,B:1):1,C:2);")
	require.NoError(t, err)
	tr.AssignMap()
	tr.SetGlobalSamplingFraction(1.0)

	s := config.Default()
	s.TreeFile = "unused.nwk"
	m, err := New(s, tr, nil, rng.New(1))
	require.NoError(t, err)

	root := tr.Root()
	l, r := tr.Node(root).Children()
	regime := event.Regime{LambdaInit: 0.2, MuInit: 0.05}
	id1 := m.hist.InsertEvent(l, tr.Node(l).MapStart()+0.1, regime, false)
	id2 := m.hist.InsertEvent(r, tr.Node(r).MapStart()+0.1, regime, false)
	m.eventOrder = insertSorted(m.eventOrder, id1)
	m.eventOrder = insertSorted(m.eventOrder, id2)

	require.True(t, m.violatesI4(l))
	require.True(t, m.violatesI4(r))
}

// Scenario 5 (spec.md §8): the log-likelihood difference between
// conditionOnSurvival on/off equals -(log(1-E_left)+log(1-E_right)).
func TestScenarioConditionOnSurvivalDelta(t *testing.T) {
	tr, err := tree.ParseNewick("(A:1,B:1);")
	require.NoError(t, err)
	tr.AssignMap()
	tr.SetGlobalSamplingFraction(1.0)
	h := event.NewHistory(tr, event.Regime{LambdaInit: 0.3, MuInit: 0.1})

	optOff := likelihood.DiversificationOptions{SegLength: 1e-4, ConditionOnSurvival: false}
	optOn := likelihood.DiversificationOptions{SegLength: 1e-4, ConditionOnSurvival: true}
	off := likelihood.Diversification(tr, h, optOff)
	on := likelihood.Diversification(tr, h, optOn)
	require.False(t, math.IsInf(off, -1))
	require.False(t, math.IsInf(on, -1))
	require.NotEqual(t, off, on)

	// Each tip starts at E=0 under one constant regime, so E at the root
	// end of either unit-length branch has the closed form below.
	oneMinusE := (0.3 - 0.1) / (0.3 - 0.1*math.Exp(-(0.3-0.1)*1.0))
	require.InDelta(t, -2*math.Log(oneMinusE), on-off, 1e-9)
}

// Scenario 6 (spec.md §8): a snapshot round-trip through Snapshot and
// LoadSnapshot preserves event count, regime parameters, and
// log-likelihood.
func TestScenarioSnapshotRoundTrip(t *testing.T) {
	tr, err := tree.ParseNewick("((A:1,B:1):1,C:2);")
	require.NoError(t, err)
	tr.AssignMap()
	tr.SetGlobalSamplingFraction(1.0)

	s := config.Default()
	s.TreeFile = "unused.nwk"
	m, err := New(s, tr, nil, rng.New(3))
	require.NoError(t, err)

	a, err := tr.TipID("A")
	require.NoError(t, err)
	regime := event.Regime{LambdaInit: 0.25, MuInit: 0.03}
	id := m.hist.InsertEvent(a, tr.Node(a).MapStart()+0.2, regime, false)
	m.eventOrder = insertSorted(m.eventOrder, id)
	m.logL = m.computeLogL()
	m.logPrior = m.computeLogPrior()

	records := m.Snapshot(100)
	require.Len(t, records, 2) // root + the one installed event

	m2, err := New(s, tr, nil, rng.New(3))
	require.NoError(t, err)
	require.NoError(t, m2.LoadSnapshot(records))

	require.Equal(t, m.NumEvents(), m2.NumEvents())
	require.InDelta(t, m.LogLikelihood(), m2.LogLikelihood(), 1e-6)

	records2 := m2.Snapshot(100)
	require.Len(t, records2, len(records))
	for i := range records {
		require.Equal(t, recordRegime(records[i], false), recordRegime(records2[i], false))
	}
}

func TestStepIncrementsGeneration(t *testing.T) {
	s := twoTipSettings()
	m, _ := newTwoTipModel(t, s)
	require.Equal(t, int64(0), m.Generation())
	m.Step()
	require.Equal(t, int64(1), m.Generation())
}
