package model

import (
	"fmt"

	"github.com/altingia/bamm/config"
	"github.com/altingia/bamm/event"
	"github.com/altingia/bamm/io"
	"github.com/altingia/bamm/tree"
)

// LoadSnapshot replaces the model's current event configuration with
// the one described by records (spec.md §6 event-data snapshot),
// resolving each row's leftTip/rightTip pair to an attachment node via
// tree.MRCA (or tree.TipID for a terminal-branch event) and its
// absoluteTime to a global map offset. The root row (spec.md §6:
// leftTip=rightTip="NA") updates the existing root event's regime in
// place rather than inserting a new event.
func (m *Model) LoadSnapshot(records []io.EventRecord) error {
	for _, old := range m.eventOrder {
		m.hist.RemoveEvent(old)
	}
	m.eventOrder = nil

	trait := m.settings.ModelType == config.Trait
	for _, r := range records {
		regime := recordRegime(r, trait)
		if r.IsRoot() {
			m.hist.Event(m.hist.RootEvent()).SetRegime(regime, regime.LambdaShift != 0 || regime.MuShift != 0 || regime.BetaShift != 0)
			continue
		}
		attach, err := m.resolveAttachNode(r)
		if err != nil {
			return err
		}
		mapTime, err := m.absoluteTimeToMapOffset(attach, r.AbsoluteTime)
		if err != nil {
			return err
		}
		id := m.hist.InsertEvent(attach, mapTime, regime, regime.LambdaShift != 0 || regime.MuShift != 0 || regime.BetaShift != 0)
		m.eventOrder = insertSorted(m.eventOrder, id)
	}

	m.logL = m.computeLogL()
	m.logPrior = m.computeLogPrior()
	return nil
}

// resolveAttachNode maps a snapshot row's tip-name pair to the node
// defining its attachment branch (spec.md §6).
func (m *Model) resolveAttachNode(r io.EventRecord) (tree.NodeID, error) {
	if tip, ok := r.IsTerminal(); ok {
		return m.tr.TipID(tip)
	}
	return m.tr.MRCA(r.LeftTip, r.RightTip)
}

// absoluteTimeToMapOffset converts an absolute node-time coordinate on
// attach's inbound branch into the tree-wide global map offset
// (spec.md §3 "mapTime ... equivalently an absolute time").
func (m *Model) absoluteTimeToMapOffset(attach tree.NodeID, absoluteTime float64) (float64, error) {
	node := m.tr.Node(attach)
	parentTime := node.Time() - node.BranchLength()
	if absoluteTime < parentTime || absoluteTime > node.Time() {
		return 0, fmt.Errorf("model: event time %g outside branch [%g,%g] above node %d", absoluteTime, parentTime, node.Time(), attach)
	}
	return node.MapStart() + (absoluteTime - parentTime), nil
}

// recordRegime extracts the regime half of r appropriate to the active
// model family.
func recordRegime(r io.EventRecord, trait bool) event.Regime {
	if trait {
		return event.Regime{BetaInit: r.BetaInit, BetaShift: r.BetaShift}
	}
	return event.Regime{LambdaInit: r.LambdaInit, LambdaShift: r.LambdaShift, MuInit: r.MuInit, MuShift: r.MuShift}
}

// Snapshot serialises the model's current event configuration into
// records suitable for io.EventDataWriter (spec.md §6), including the
// root event as the sentinel "NA","NA" row.
func (m *Model) Snapshot(generation int64) []io.EventRecord {
	trait := m.settings.ModelType == config.Trait
	out := make([]io.EventRecord, 0, len(m.eventOrder)+1)
	out = append(out, recordFromEvent(generation, "NA", "NA", 0, m.hist.Event(m.hist.RootEvent()), trait))

	for _, id := range m.eventOrder {
		e := m.hist.Event(id)
		left, right := m.tipPairFor(e.AttachNode())
		absTime := m.mapOffsetToAbsoluteTime(e.AttachNode(), e.MapTime())
		out = append(out, recordFromEvent(generation, left, right, absTime, e, trait))
	}
	return out
}

// mapOffsetToAbsoluteTime is the inverse of absoluteTimeToMapOffset.
func (m *Model) mapOffsetToAbsoluteTime(attach tree.NodeID, mapOffset float64) float64 {
	return m.tr.AbsoluteTime(attach, mapOffset)
}

// tipPairFor returns a (leftTip, rightTip) pair that round-trips back
// to attach via resolveAttachNode: "NA" paired with the tip's own name
// if attach is a tip, else one descendant tip name from each child
// subtree.
func (m *Model) tipPairFor(attach tree.NodeID) (string, string) {
	node := m.tr.Node(attach)
	if node.Tip() {
		return "NA", node.Name()
	}
	l, r := node.Children()
	return m.representativeTip(l), m.representativeTip(r)
}

// representativeTip walks down the left-child chain from n until it
// reaches a tip, returning that tip's name.
func (m *Model) representativeTip(n tree.NodeID) string {
	for {
		node := m.tr.Node(n)
		if node.Tip() {
			return node.Name()
		}
		l, r := node.Children()
		if l != tree.NilNodeID {
			n = l
		} else {
			n = r
		}
	}
}

// recordFromEvent converts one installed event into its snapshot row
// at the given absolute-time coordinate.
func recordFromEvent(generation int64, left, right string, absTime float64, e *event.Event, trait bool) io.EventRecord {
	r := e.Regime()
	rec := io.EventRecord{
		Generation:   generation,
		LeftTip:      left,
		RightTip:     right,
		AbsoluteTime: absTime,
	}
	if trait {
		rec.BetaInit, rec.BetaShift = r.BetaInit, r.BetaShift
	} else {
		rec.LambdaInit, rec.LambdaShift, rec.MuInit, rec.MuShift = r.LambdaInit, r.LambdaShift, r.MuInit, r.MuShift
	}
	return rec
}
