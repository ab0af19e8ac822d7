package event

import (
	"fmt"
	"sort"

	"github.com/altingia/bamm/tree"
)

// branch is the per-branch ordered event list and its two cached
// active-regime pointers (spec.md §3 "BranchHistory").
type branch struct {
	events             []ID // ascending mapTime: rootward -> tipward
	ancestralNodeEvent ID
	nodeEvent          ID
}

// History is the tree-wide collection of BranchHistory records plus
// the event arena they reference. One History belongs to exactly one
// Tree and is owned by the Model that mutates it during rjMCMC moves.
type History struct {
	tr         *tree.Tree
	events     map[ID]*Event
	nextID     ID
	branches   []branch // indexed by tree.NodeID; branches[root] holds the root event's nodeEvent
	rootEvent  ID
}

// NewHistory builds a History with only the root event installed,
// already forward-propagated so every branch's ancestralNodeEvent and
// nodeEvent point at the root regime (spec.md §3 invariant I3).
func NewHistory(tr *tree.Tree, rootRegime Regime) *History {
	h := &History{
		tr:       tr,
		events:   make(map[ID]*Event),
		branches: make([]branch, tr.NNodes()),
	}
	for i := range h.branches {
		h.branches[i].ancestralNodeEvent = NilID
		h.branches[i].nodeEvent = NilID
	}
	root := tr.Root()
	id := h.nextID
	h.nextID++
	h.events[id] = &Event{id: id, attachNode: root, mapTime: 0, regime: rootRegime}
	h.rootEvent = id
	h.setNodeEventAndPropagate(root, id)
	return h
}

// RootEvent returns the id of the sentinel root event (spec.md §3 I3:
// always present, never deleted, never moved).
func (h *History) RootEvent() ID { return h.rootEvent }

// Event returns the event with the given id.
func (h *History) Event(id ID) *Event { return h.events[id] }

// NumEvents returns the number of events currently installed,
// including the root event.
func (h *History) NumEvents() int { return len(h.events) }

// Events returns every event id currently installed, root included, in
// unspecified order; callers that need a stable order should sort by
// id themselves (the Model's event set keeps its own stable ordering,
// spec.md §3 "Event set").
func (h *History) Events() []ID {
	out := make([]ID, 0, len(h.events))
	for id := range h.events {
		out = append(out, id)
	}
	return out
}

// NodeEvent returns the event active at the tipward end of node b's
// inbound branch.
func (h *History) NodeEvent(b tree.NodeID) ID { return h.branches[b].nodeEvent }

// AncestralNodeEvent returns the event active at the rootward end of
// node b's inbound branch.
func (h *History) AncestralNodeEvent(b tree.NodeID) ID { return h.branches[b].ancestralNodeEvent }

// BranchEvents returns the ids of the events on node b's inbound
// branch, ascending mapTime (rootward to tipward).
func (h *History) BranchEvents(b tree.NodeID) []ID {
	return append([]ID(nil), h.branches[b].events...)
}

// InsertEvent installs a new event on attachNode's inbound branch at
// the given global map offset and forward-propagates if it becomes the
// new tipward-most event on that branch (spec.md §4.2.B).
func (h *History) InsertEvent(attachNode tree.NodeID, mapTime float64, regime Regime, isTimeVariable bool) ID {
	id := h.nextID
	h.nextID++
	h.events[id] = &Event{id: id, attachNode: attachNode, mapTime: mapTime, regime: regime, isTimeVariable: isTimeVariable}
	h.insertInto(attachNode, id)
	return id
}

// insertInto splices id into attachNode's ordered event list by
// mapTime and propagates if it landed at the tipward end.
func (h *History) insertInto(attachNode tree.NodeID, id ID) {
	br := &h.branches[attachNode]
	mapTime := h.events[id].mapTime
	idx := sort.Search(len(br.events), func(i int) bool {
		return h.events[br.events[i]].mapTime >= mapTime
	})
	br.events = append(br.events, NilID)
	copy(br.events[idx+1:], br.events[idx:])
	br.events[idx] = id
	if idx == len(br.events)-1 {
		h.setNodeEventAndPropagate(attachNode, id)
	}
}

// detachFrom removes id from its current branch's ordered event list,
// recomputing and propagating the branch's nodeEvent if id was the
// tipward-most event there (spec.md §4.2.C).
func (h *History) detachFrom(attachNode tree.NodeID, id ID) {
	br := &h.branches[attachNode]
	idx := -1
	for i, eid := range br.events {
		if eid == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		panic(fmt.Sprintf("event: id %d not found on branch %d", id, attachNode))
	}
	wasLast := idx == len(br.events)-1
	br.events = append(br.events[:idx], br.events[idx+1:]...)
	if wasLast {
		var newNodeEvent ID
		if len(br.events) > 0 {
			newNodeEvent = br.events[len(br.events)-1]
		} else {
			newNodeEvent = br.ancestralNodeEvent
		}
		h.setNodeEventAndPropagate(attachNode, newNodeEvent)
	}
}

// RemoveEvent deletes a non-root event entirely (spec.md §4.2.C).
func (h *History) RemoveEvent(id ID) {
	e := h.events[id]
	h.detachFrom(e.attachNode, id)
	delete(h.events, id)
}

// Move relocates an existing event to a new attachment branch and map
// offset, preserving its id and regime (spec.md §3 I5, §4.4). Callers
// that need revert-on-reject should call e.Checkpoint() before Move.
func (h *History) Move(id ID, newAttachNode tree.NodeID, newMapTime float64) {
	e := h.events[id]
	h.detachFrom(e.attachNode, id)
	e.attachNode = newAttachNode
	e.mapTime = newMapTime
	h.insertInto(newAttachNode, id)
}

// setNodeEventAndPropagate is the single mechanism (spec.md §4.2.D)
// that maintains invariant I2 across every insertion, removal, and
// relocation: it sets b's nodeEvent and pushes that as the
// ancestralNodeEvent of b's descendant branches, recursing further
// only where a descendant branch has no events of its own to shield
// it.
func (h *History) setNodeEventAndPropagate(b tree.NodeID, newNodeEvent ID) {
	h.branches[b].nodeEvent = newNodeEvent
	node := h.tr.Node(b)
	l, r := node.Children()
	h.propagateInto(l, newNodeEvent)
	h.propagateInto(r, newNodeEvent)
}

func (h *History) propagateInto(d tree.NodeID, parentNodeEvent ID) {
	if d == tree.NilNodeID {
		return
	}
	br := &h.branches[d]
	br.ancestralNodeEvent = parentNodeEvent
	if len(br.events) == 0 {
		h.setNodeEventAndPropagate(d, parentNodeEvent)
	}
}

// Interval is one piecewise-constant-regime sub-interval of a branch,
// in global map-offset coordinates, rootward (Start) to tipward (End).
type Interval struct {
	Event ID
	Start float64
	End   float64
}

// Intervals returns node b's inbound branch carved into the
// sub-intervals governed by each event on it (plus the
// ancestralNodeEvent for the stretch before the first event), ordered
// rootward to tipward. Likelihood integrators (package likelihood)
// walk this tipward to rootward.
func (h *History) Intervals(b tree.NodeID) []Interval {
	node := h.tr.Node(b)
	br := &h.branches[b]
	start := node.MapStart()
	end := node.MapEnd()

	out := make([]Interval, 0, len(br.events)+1)
	cur := br.ancestralNodeEvent
	curStart := start
	for _, id := range br.events {
		et := h.events[id].mapTime
		out = append(out, Interval{Event: cur, Start: curStart, End: et})
		cur = id
		curStart = et
	}
	out = append(out, Interval{Event: cur, Start: curStart, End: end})
	return out
}

// Validate walks the whole tree and checks invariant I2 (spec.md §3):
// every non-root branch's ancestralNodeEvent equals its parent's
// nodeEvent.
func (h *History) Validate() error {
	root := h.tr.Root()
	for _, b := range h.tr.Nodes() {
		if b == root {
			continue
		}
		parent := h.tr.Node(b).Parent()
		var parentNodeEvent ID
		if parent == root {
			parentNodeEvent = h.branches[root].nodeEvent
		} else {
			parentNodeEvent = h.branches[parent].nodeEvent
		}
		if h.branches[b].ancestralNodeEvent != parentNodeEvent {
			return fmt.Errorf("event: I2 violated at node %d: ancestralNodeEvent=%d, parent nodeEvent=%d",
				b, h.branches[b].ancestralNodeEvent, parentNodeEvent)
		}
	}
	return nil
}
