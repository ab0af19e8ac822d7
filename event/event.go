// Package event implements BAMM's variable-dimension rjMCMC state: the
// rate-shift events and the per-branch history that associates every
// point of the tree with exactly one active regime (spec.md §3).
package event

import "github.com/altingia/bamm/tree"

// ID is a stable handle into a History's event arena (REDESIGN FLAGS:
// events are addressed by id, not by pointer, so a rejected proposal's
// checkpoint/restore never has to worry about dangling references).
type ID int

// NilID denotes the absence of an event.
const NilID ID = -1

// Regime holds both families of rate parameters spec.md §3 describes;
// a running Model only ever populates the half it cares about
// (Lambda/Mu for the diversification core, Beta for the trait core).
type Regime struct {
	LambdaInit  float64
	LambdaShift float64
	MuInit      float64
	MuShift     float64
	BetaInit    float64
	BetaShift   float64
}

// Event is one BranchEvent: an attachment point plus a regime, per
// spec.md §3.
type Event struct {
	id             ID
	attachNode     tree.NodeID
	mapTime        float64
	regime         Regime
	isTimeVariable bool

	// checkpoint of the previous (attachNode, mapTime), for O(1) revert
	// of a rejected relocation (spec.md §3 "A checkpoint of the
	// previous mapTime").
	prevAttachNode tree.NodeID
	prevMapTime    float64
	prevRegime     Regime
}

// ID returns the event's stable identifier.
func (e *Event) ID() ID { return e.id }

// AttachNode returns the node defining the branch this event lives on.
func (e *Event) AttachNode() tree.NodeID { return e.attachNode }

// MapTime returns the event's global map-offset.
func (e *Event) MapTime() float64 { return e.mapTime }

// Regime returns the event's current regime parameters.
func (e *Event) Regime() Regime { return e.regime }

// IsTimeVariable reports whether the event's active shift parameter is nonzero.
func (e *Event) IsTimeVariable() bool { return e.isTimeVariable }

// SetRegime replaces the event's regime parameters in place (used by
// the parameter-update kernels, spec.md §4.5).
func (e *Event) SetRegime(r Regime, timeVariable bool) {
	e.regime = r
	e.isTimeVariable = timeVariable
}

// Checkpoint records the event's current location and regime so a
// later Restore can undo an in-place mutation exactly.
func (e *Event) Checkpoint() {
	e.prevAttachNode = e.attachNode
	e.prevMapTime = e.mapTime
	e.prevRegime = e.regime
}

// CheckpointedLocation returns the (attachNode, mapTime) recorded by
// the most recent Checkpoint call.
func (e *Event) CheckpointedLocation() (tree.NodeID, float64) {
	return e.prevAttachNode, e.prevMapTime
}

// CheckpointedRegime returns the regime recorded by the most recent
// Checkpoint call.
func (e *Event) CheckpointedRegime() Regime { return e.prevRegime }
