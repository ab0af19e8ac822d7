// Package model implements BAMM's rjMCMC core (spec.md §4.1-4.5): the
// Model that owns the event set, branch history, and mean rate cache,
// and exposes one Step that selects and executes a proposal kernel by
// categorical draw, following the teacher's connect/Validate style of
// keeping mutation and invariant-checking close together.
package model

import (
	"fmt"
	"sort"

	"github.com/altingia/bamm/config"
	"github.com/altingia/bamm/event"
	"github.com/altingia/bamm/likelihood"
	"github.com/altingia/bamm/rng"
	"github.com/altingia/bamm/tree"
)

// kernel names index both config.Settings.UpdateRates and the
// Model's per-kernel accept/reject counters.
const (
	kernelBirthDeath  = "birthdeath"
	kernelMove        = "move"
	kernelEventRate   = "eventrate"
	kernelLambdaInit  = "lambdainit"
	kernelLambdaShift = "lambdashift"
	kernelMuInit      = "muinit"
	kernelMuShift     = "mushift"
	kernelBetaInit    = "betainit"
	kernelBetaShift   = "betashift"
	kernelNodeState   = "nodestate"
)

// diversificationKernels and traitKernels list which kernel names are
// active for each model family, in the stable order used to build the
// categorical draw table.
var diversificationKernels = []string{kernelBirthDeath, kernelMove, kernelEventRate, kernelLambdaInit, kernelLambdaShift, kernelMuInit, kernelMuShift}
var traitKernels = []string{kernelBirthDeath, kernelMove, kernelEventRate, kernelBetaInit, kernelBetaShift, kernelNodeState}

// kernelStats tracks one proposal kernel's accept/reject counts since
// the last diagnostic write (SPEC_FULL.md §4.12).
type kernelStats struct {
	proposed, accepted int64
}

// acceptRate returns the kernel's acceptance rate since the last
// reset, or 0 if it has not been proposed.
func (k kernelStats) acceptRate() float64 {
	if k.proposed == 0 {
		return 0
	}
	return float64(k.accepted) / float64(k.proposed)
}

// Model is BAMM's rjMCMC state (spec.md §4.1): the tree, its branch
// history, the stably-ordered event set, mean-rate cache, and MCMC
// bookkeeping. A Model is mutated in place by Step; every mutation
// follows the checkpoint/apply/revert discipline of spec.md §4.8.
type Model struct {
	settings config.Settings
	tr       *tree.Tree
	hist     *event.History
	rng      *rng.Source

	// eventOrder is the stable iteration order over non-root events
	// (spec.md §3 "Event set"); kept as a sorted-by-id slice so every
	// generation iterates identically regardless of map order.
	eventOrder []event.ID

	eventRate float64 // Poisson process rate hyperparameter

	// trait-model node state: every internal node's currently sampled
	// ancestral value (spec.md §4.7); nil for the diversification model.
	nodeState map[tree.NodeID]float64
	tipValues map[tree.NodeID]float64

	logL     float64
	logPrior float64

	coldness   float64
	generation int64

	kernelNames []string
	weights     []float64
	stats       map[string]*kernelStats

	// scales holds each proposal kernel's current move-scale parameter,
	// seeded from the matching config.Settings.Update*Scale field and
	// mutated in place by Autotune (SPEC_FULL.md §4.17) when enabled.
	scales map[string]float64

	divOptions   likelihood.DiversificationOptions
	traitOptions likelihood.TraitOptions
}

// New constructs a Model from validated settings, a tree already
// mapped with tree.AssignMap, and (for the trait model) tip values
// keyed by tip node id. It installs the root event from the initial
// regime, forward-propagates, and computes the starting log-likelihood
// and log-prior (spec.md §4.1).
func New(s config.Settings, tr *tree.Tree, tipValues map[tree.NodeID]float64, rngSrc *rng.Source) (*Model, error) {
	rootRegime := event.Regime{
		LambdaInit:  s.LambdaInit0,
		LambdaShift: s.LambdaShift0,
		MuInit:      s.MuInit0,
		MuShift:     s.MuShift0,
		BetaInit:    s.BetaInit,
		BetaShift:   s.BetaShiftInit,
	}
	m := &Model{
		settings:  s,
		tr:        tr,
		hist:      event.NewHistory(tr, rootRegime),
		rng:       rngSrc,
		eventRate: s.PoissonRatePrior,
		coldness:  s.Coldness,
		tipValues: tipValues,
		stats:     make(map[string]*kernelStats),
		divOptions: likelihood.DiversificationOptions{
			SegLength:           s.SegLength,
			ConditionOnSurvival: s.ConditionOnSurvival,
		},
		traitOptions: likelihood.TraitOptions{SegLength: s.SegLength},
	}
	if m.coldness == 0 {
		m.coldness = 1
	}

	if s.ModelType == config.Trait {
		m.nodeState = make(map[tree.NodeID]float64)
		for _, n := range tr.Nodes() {
			if !tr.Node(n).Tip() {
				m.nodeState[n] = 0
			}
		}
		m.kernelNames = traitKernels
	} else {
		m.kernelNames = diversificationKernels
	}
	m.weights = make([]float64, len(m.kernelNames))
	for i, k := range m.kernelNames {
		m.weights[i] = s.UpdateRates[k]
		m.stats[k] = &kernelStats{}
	}
	m.scales = map[string]float64{
		kernelMove:        s.UpdateEventLocationScale,
		kernelEventRate:   s.UpdateEventRateScale,
		kernelLambdaInit:  s.UpdateLambdaInitScale,
		kernelLambdaShift: s.UpdateLambdaShiftScale,
		kernelMuInit:      s.UpdateMuInitScale,
		kernelMuShift:     s.UpdateMuShiftScale,
		kernelBetaInit:    s.UpdateBetaScale,
		kernelBetaShift:   s.UpdateBetaShiftScale,
		kernelNodeState:   s.UpdateNodeStateScale,
	}

	if s.InitialNumberEvents > 0 {
		if err := m.seedRandomEvents(s.InitialNumberEvents); err != nil {
			return nil, err
		}
	}

	m.logL = m.computeLogL()
	m.logPrior = m.computeLogPrior()
	return m, nil
}

// seedRandomEvents installs n events at uniformly drawn map offsets
// with regime parameters drawn from the prior, used when no snapshot
// is loaded (spec.md §6 "initialNumberEvents").
func (m *Model) seedRandomEvents(n int) error {
	for i := 0; i < n; i++ {
		x := m.rng.Uniform(0, m.tr.TotalMapLength())
		attach, _, err := m.tr.InverseMap(x)
		if err != nil {
			return fmt.Errorf("model: %w", err)
		}
		regime, timeVar := m.drawRegimeFromPrior()
		id := m.hist.InsertEvent(attach, x, regime, timeVar)
		m.eventOrder = insertSorted(m.eventOrder, id)
	}
	return nil
}

func insertSorted(order []event.ID, id event.ID) []event.ID {
	idx := sort.Search(len(order), func(i int) bool { return order[i] >= id })
	order = append(order, event.NilID)
	copy(order[idx+1:], order[idx:])
	order[idx] = id
	return order
}

func removeSorted(order []event.ID, id event.ID) []event.ID {
	idx := sort.Search(len(order), func(i int) bool { return order[i] >= id })
	if idx < len(order) && order[idx] == id {
		order = append(order[:idx], order[idx+1:]...)
	}
	return order
}

// Tree returns the model's underlying tree.
func (m *Model) Tree() *tree.Tree { return m.tr }

// History returns the model's branch-event history.
func (m *Model) History() *event.History { return m.hist }

// LogLikelihood returns the current log-likelihood.
func (m *Model) LogLikelihood() float64 { return m.logL }

// LogPrior returns the current log-prior.
func (m *Model) LogPrior() float64 { return m.logPrior }

// EventRate returns the current Poisson event-rate hyperparameter.
func (m *Model) EventRate() float64 { return m.eventRate }

// NumEvents returns the number of non-root events (K in spec.md §4.3).
func (m *Model) NumEvents() int { return len(m.eventOrder) }

// Generation returns the number of Step calls made so far.
func (m *Model) Generation() int64 { return m.generation }

// AcceptRate returns the kernel's acceptance rate since the last call
// to ResetStats, or 0 for an unknown kernel.
func (m *Model) AcceptRate(kernel string) float64 {
	if s, ok := m.stats[kernel]; ok {
		return s.acceptRate()
	}
	return 0
}

// AcceptRates returns every kernel's acceptance rate since the last
// ResetStats, keyed by kernel name (SPEC_FULL.md §4.12 accept writer).
func (m *Model) AcceptRates() map[string]float64 {
	out := make(map[string]float64, len(m.stats))
	for k, s := range m.stats {
		out[k] = s.acceptRate()
	}
	return out
}

// ResetStats zeroes every kernel's accept/reject counters, called
// after each acceptWriteFreq diagnostic write.
func (m *Model) ResetStats() {
	for _, s := range m.stats {
		s.proposed, s.accepted = 0, 0
	}
}

// KernelNames returns the active kernel names in categorical-draw
// order (diversification or trait family, per spec.md §4.1).
func (m *Model) KernelNames() []string { return m.kernelNames }

// computeLogL dispatches to the likelihood family selected at
// construction (spec.md §4.6/§4.7), or returns 0 if sampleFromPriorOnly
// is set (spec.md §6).
func (m *Model) computeLogL() float64 {
	if m.settings.SampleFromPriorOnly {
		return 0
	}
	if m.settings.ModelType == config.Trait {
		return likelihood.Trait(m.tr, m.hist, m.nodeState, m.tipValues, m.traitOptions)
	}
	return likelihood.Diversification(m.tr, m.hist, m.divOptions)
}

// computeLogPrior recomputes the full log-prior from scratch: the sum
// of every event's regime log-density under its family's prior
// (Exponential for the *Init parameters, Normal for the *Shift
// parameters) plus the root event's, plus the event-rate
// hyperparameter's own Exponential(poissonRatePrior) density.
// Recomputing from scratch rather than tracking incrementally trades a
// little CPU for never letting floating-point drift accumulate across
// a long chain.
//
// The event-count term log Poisson(K; eventRate*totalMapLength) is
// deliberately NOT included here: the birth/death kernels already fold
// the count ratio directly into their Metropolis-Hastings acceptance
// probability (proposeBirth/proposeDeath), so adding it again here
// would double-count the same pull on K in every birth/death decision.
func (m *Model) computeLogPrior() float64 {
	lp := 0.0
	trait := m.settings.ModelType == config.Trait
	score := func(r event.Regime) float64 {
		if trait {
			lp := m.rng.LogExponentialPDF(r.BetaInit, m.settings.BetaInitPrior)
			lp += m.rng.LogNormalPDF(r.BetaShift, 0, m.settings.BetaShiftPrior)
			return lp
		}
		lp := m.rng.LogExponentialPDF(r.LambdaInit, m.settings.LambdaInitPrior)
		lp += m.rng.LogNormalPDF(r.LambdaShift, 0, m.settings.LambdaShiftPrior)
		lp += m.rng.LogExponentialPDF(r.MuInit, m.settings.MuInitPrior)
		lp += m.rng.LogNormalPDF(r.MuShift, 0, m.settings.MuShiftPrior)
		return lp
	}
	lp += score(m.hist.Event(m.hist.RootEvent()).Regime())
	for _, id := range m.eventOrder {
		lp += score(m.hist.Event(id).Regime())
	}
	lp += m.rng.LogExponentialPDF(m.eventRate, m.settings.PoissonRatePrior)
	return lp
}

// drawRegimeFromPrior draws a new event's regime from the prior
// distribution used to found it (spec.md §4.3's non-adaptive default).
func (m *Model) drawRegimeFromPrior() (event.Regime, bool) {
	if m.settings.ModelType == config.Trait {
		betaInit := m.rng.Exponential(m.settings.BetaInitPrior)
		betaShift := m.rng.Normal(0, m.settings.BetaShiftPrior)
		return event.Regime{BetaInit: betaInit, BetaShift: betaShift}, betaShift != 0
	}
	lambdaInit := m.rng.Exponential(m.settings.LambdaInitPrior)
	lambdaShift := m.rng.Normal(0, m.settings.LambdaShiftPrior)
	muInit := m.rng.Exponential(m.settings.MuInitPrior)
	muShift := m.rng.Normal(0, m.settings.MuShiftPrior)
	return event.Regime{LambdaInit: lambdaInit, LambdaShift: lambdaShift, MuInit: muInit, MuShift: muShift},
		lambdaShift != 0 || muShift != 0
}

// logRegimeDrawDensity returns the log-density of regime r under the
// same distribution drawRegimeFromPrior samples from; this is the
// logQ_jump term of spec.md §4.3's acceptance ratio.
func (m *Model) logRegimeDrawDensity(r event.Regime) float64 {
	if m.settings.ModelType == config.Trait {
		lp := m.rng.LogExponentialPDF(r.BetaInit, m.settings.BetaInitPrior)
		lp += m.rng.LogNormalPDF(r.BetaShift, 0, m.settings.BetaShiftPrior)
		return lp
	}
	lp := m.rng.LogExponentialPDF(r.LambdaInit, m.settings.LambdaInitPrior)
	lp += m.rng.LogNormalPDF(r.LambdaShift, 0, m.settings.LambdaShiftPrior)
	lp += m.rng.LogExponentialPDF(r.MuInit, m.settings.MuInitPrior)
	lp += m.rng.LogNormalPDF(r.MuShift, 0, m.settings.MuShiftPrior)
	return lp
}

// accept draws U(0,1) and returns true if logAlpha (scaled by
// coldness) clears it, per spec.md §4.3's Metropolis-Hastings rule.
func (m *Model) accept(logAlpha float64) bool {
	if logAlpha >= 0 {
		return true
	}
	return m.rng.Uniform01() < expClamped(m.coldness*logAlpha)
}
