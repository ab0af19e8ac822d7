package model

import "github.com/altingia/bamm/tree"

// violatesI4 reports whether placing (or leaving) an event on
// attachNode's inbound branch breaks the identifiability invariant I4
// (spec.md §3, §4.3): two shifts immediately below a third, unshielded
// shift make the middle regime unidentifiable. attachNode's parent
// branch is checked for events on both of its own children.
func (m *Model) violatesI4(attachNode tree.NodeID) bool {
	parent := m.tr.Node(attachNode).Parent()
	if parent == tree.NilNodeID {
		return false
	}
	l, r := m.tr.Node(parent).Children()
	return m.branchHasOwnEvent(l) && m.branchHasOwnEvent(r)
}

// branchHasOwnEvent reports whether node n's inbound branch carries at
// least one event of its own (not merely an inherited ancestral one).
func (m *Model) branchHasOwnEvent(n tree.NodeID) bool {
	return len(m.hist.BranchEvents(n)) > 0
}
