package model

import "github.com/altingia/bamm/tree"

// proposeMove implements spec.md §4.4: relocate one event, chosen
// uniformly over the non-root set, either locally (a small signed
// displacement along its current and neighbouring branches) or
// globally (a fresh uniform draw over the whole map), re-validating I4
// and accepting/rejecting purely on the likelihood ratio since the
// position prior is uniform.
func (m *Model) proposeMove() {
	stat := m.stats[kernelMove]
	stat.proposed++
	if len(m.eventOrder) == 0 {
		return
	}

	idx := int(m.rng.Int63n(int64(len(m.eventOrder))))
	id := m.eventOrder[idx]
	e := m.hist.Event(id)
	oldAttach, oldMapTime := e.AttachNode(), e.MapTime()

	localMoveProb := m.settings.LocalGlobalMoveRatio / (1 + m.settings.LocalGlobalMoveRatio)

	var newAttach tree.NodeID
	var newMapTime float64
	if m.rng.Uniform01() < localMoveProb {
		newAttach, newMapTime = m.localDisplacement(oldAttach, oldMapTime)
	} else {
		x := m.rng.Uniform(0, m.tr.TotalMapLength())
		var err error
		newAttach, newMapTime, err = m.tr.InverseMap(x)
		if err != nil {
			return
		}
		newMapTime = x
	}

	logLOld := m.logL
	m.hist.Move(id, newAttach, newMapTime)

	if m.violatesI4(newAttach) {
		m.hist.Move(id, oldAttach, oldMapTime)
		return
	}

	newLogL := m.computeLogL()
	logAlpha := newLogL - logLOld

	if m.accept(logAlpha) {
		m.logL = newLogL
		stat.accepted++
		return
	}

	m.hist.Move(id, oldAttach, oldMapTime)
	m.logL = logLOld
}

// localDisplacement implements spec.md §4.4's local move: a signed
// displacement scaled by updateEventLocationScale*maxRootToTip,
// crossing onto the parent branch if it would go rootward of the
// current branch's start, or onto a length-weighted child branch if
// it would go tipward of the current branch's end.
func (m *Model) localDisplacement(attach tree.NodeID, mapTime float64) (tree.NodeID, float64) {
	s := m.scales[kernelMove] * m.tr.MaxRootToTip()
	delta := m.rng.Uniform(-s, s)
	x := mapTime + delta

	node := m.tr.Node(attach)
	for x < node.MapStart() {
		parent := node.Parent()
		if parent == tree.NilNodeID {
			// Can't cross above the root: clamp to the root's offset; the
			// tipward loop below then places the event at the start of a
			// length-weighted root child branch.
			x = node.MapStart()
			break
		}
		overshoot := node.MapStart() - x
		attach = parent
		node = m.tr.Node(attach)
		x = node.MapEnd() - overshoot
	}
	for x >= node.MapEnd() {
		l, r := node.Children()
		if l == tree.NilNodeID {
			// Tip: nowhere further to go: clamp.
			x = node.MapEnd() - 1e-12
			break
		}
		overshoot := x - node.MapEnd()
		lLen := m.tr.Node(l).MapEnd() - m.tr.Node(l).MapStart()
		rLen := m.tr.Node(r).MapEnd() - m.tr.Node(r).MapStart()
		total := lLen + rLen
		var next tree.NodeID
		if total <= 0 {
			next = l
		} else if m.rng.Uniform(0, total) < lLen {
			next = l
		} else {
			next = r
		}
		attach = next
		node = m.tr.Node(attach)
		x = node.MapStart() + overshoot
	}
	return attach, x
}
