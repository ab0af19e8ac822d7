// Package tree implements the rooted, time-calibrated binary
// phylogenetic tree that BAMM's rjMCMC engine runs over: node times,
// branch lengths, tip sampling fractions, and the linearized "map"
// that lets a uniform draw over [0, totalMapLength) select a point
// uniformly at random anywhere on the tree.
//
// The node/edge vocabulary and the recursive traversal style (Nodes,
// Tips, post-order walks) follow github.com/evolbioinfo/gotree; unlike
// gotree's general multifurcating/unrooted trees, this package only
// ever represents strictly bifurcating, rooted, time-calibrated trees,
// which is all BranchHistory (package event) needs.
package tree

import (
	"errors"
	"fmt"
	"sort"
)

// Tree is a rooted, time-calibrated, strictly bifurcating tree.
// Nodes are stored in a flat arena addressed by NodeID; this is the
// REDESIGN FLAGS arena pattern, replacing a raw node/event pointer
// graph with stable integer handles.
type Tree struct {
	nodes         []Node
	root          NodeID
	tipIndex      map[string]NodeID
	totalMapLen   float64
	maxRootToTip  float64
	preorder      []NodeID // nodes sorted by mapStart, for inverse-map lookup
	samplingFrac  map[NodeID]float64
	globalSampleP float64
}

// New returns an empty tree with no nodes.
func New() *Tree {
	return &Tree{
		root:          NilNodeID,
		tipIndex:      make(map[string]NodeID),
		samplingFrac:  make(map[NodeID]float64),
		globalSampleP: 1,
	}
}

// NNodes returns the number of nodes in the tree.
func (t *Tree) NNodes() int { return len(t.nodes) }

// Node returns the node with the given id.
func (t *Tree) Node(id NodeID) *Node { return &t.nodes[id] }

// Root returns the id of the tree's root.
func (t *Tree) Root() NodeID { return t.root }

// TotalMapLength returns the sum of all branch lengths.
func (t *Tree) TotalMapLength() float64 { return t.totalMapLen }

// MaxRootToTip returns the greatest root-to-tip path length, used to
// scale the local relocation move (spec.md §4.4).
func (t *Tree) MaxRootToTip() float64 { return t.maxRootToTip }

// newNode appends a new node to the arena and returns its id.
func (t *Tree) newNode(name string) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, Node{id: id, name: name, parent: NilNodeID, left: NilNodeID, right: NilNodeID})
	return id
}

// connect sets child's parent to parent and installs child as parent's
// left descendant if it has none yet, else as its right descendant.
func (t *Tree) connect(parent, child NodeID, brlen float64) error {
	p := &t.nodes[parent]
	if p.left == NilNodeID {
		p.left = child
	} else if p.right == NilNodeID {
		p.right = child
	} else {
		return fmt.Errorf("tree: node %d already has two children", parent)
	}
	t.nodes[child].parent = parent
	t.nodes[child].brlen = brlen
	return nil
}

// Nodes returns every node id in the tree, pre-order from the root.
func (t *Tree) Nodes() []NodeID {
	out := make([]NodeID, 0, len(t.nodes))
	t.preorderWalk(t.root, &out)
	return out
}

func (t *Tree) preorderWalk(n NodeID, out *[]NodeID) {
	if n == NilNodeID {
		return
	}
	*out = append(*out, n)
	l, r := t.nodes[n].left, t.nodes[n].right
	t.preorderWalk(l, out)
	t.preorderWalk(r, out)
}

// Tips returns every tip node id, in tree order.
func (t *Tree) Tips() []NodeID {
	out := make([]NodeID, 0)
	for _, id := range t.Nodes() {
		if t.nodes[id].Tip() {
			out = append(out, id)
		}
	}
	return out
}

// PostOrder returns every non-root node id such that a node always
// appears after both of its descendants, matching the order the
// diversification and trait likelihood integrators need.
func (t *Tree) PostOrder() []NodeID {
	out := make([]NodeID, 0, len(t.nodes))
	t.postOrderWalk(t.root, &out)
	filtered := out[:0]
	for _, id := range out {
		if id != t.root {
			filtered = append(filtered, id)
		}
	}
	return filtered
}

func (t *Tree) postOrderWalk(n NodeID, out *[]NodeID) {
	if n == NilNodeID {
		return
	}
	l, r := t.nodes[n].left, t.nodes[n].right
	t.postOrderWalk(l, out)
	t.postOrderWalk(r, out)
	*out = append(*out, n)
}

// TipName returns the name of the given tip id.
func (t *Tree) TipName(id NodeID) string { return t.nodes[id].name }

// TipID returns the id of the tip with the given name.
func (t *Tree) TipID(name string) (NodeID, error) {
	id, ok := t.tipIndex[name]
	if !ok {
		return NilNodeID, fmt.Errorf("tree: no tip named %q", name)
	}
	return id, nil
}

// NumDescendantTips returns the number of tips in the subtree rooted
// at n (1 if n is itself a tip). Used by the birth kernel to enforce
// minCladeSizeForShift (spec.md §9, SPEC_FULL.md §4.11).
func (t *Tree) NumDescendantTips(n NodeID) int {
	if t.nodes[n].Tip() {
		return 1
	}
	l, r := t.nodes[n].left, t.nodes[n].right
	count := 0
	if l != NilNodeID {
		count += t.NumDescendantTips(l)
	}
	if r != NilNodeID {
		count += t.NumDescendantTips(r)
	}
	return count
}

// SamplingFraction returns the fraction of extant diversity sampled at
// tip n, falling back to the global sampling probability.
func (t *Tree) SamplingFraction(n NodeID) float64 {
	if f, ok := t.samplingFrac[n]; ok {
		return f
	}
	return t.globalSampleP
}

// SetSamplingFraction records a per-tip sampling fraction.
func (t *Tree) SetSamplingFraction(n NodeID, frac float64) { t.samplingFrac[n] = frac }

// SetGlobalSamplingFraction sets the fallback sampling probability
// used by every tip without an explicit per-tip fraction.
func (t *Tree) SetGlobalSamplingFraction(f float64) { t.globalSampleP = f }

// MRCA returns the most recent common ancestor of the two named tips.
func (t *Tree) MRCA(left, right string) (NodeID, error) {
	l, err := t.TipID(left)
	if err != nil {
		return NilNodeID, err
	}
	r, err := t.TipID(right)
	if err != nil {
		return NilNodeID, err
	}
	return t.mrcaIDs(l, r), nil
}

func (t *Tree) mrcaIDs(a, b NodeID) NodeID {
	ancestors := make(map[NodeID]bool)
	for n := a; n != NilNodeID; n = t.nodes[n].parent {
		ancestors[n] = true
	}
	for n := b; n != NilNodeID; n = t.nodes[n].parent {
		if ancestors[n] {
			return n
		}
	}
	return t.root
}

// AssignMap performs the single pre-order walk (spec.md §4.2.A) that
// assigns mapStart/mapEnd to every node and computes totalMapLength
// and maxRootToTip. It must be called once after construction and
// again any time branch lengths change.
func (t *Tree) AssignMap() {
	t.nodes[t.root].mapStart = 0
	t.nodes[t.root].mapEnd = 0
	t.nodes[t.root].time = 0
	var cum float64
	var maxRTT float64
	var walk func(n NodeID, rootTime float64)
	walk = func(n NodeID, rootTime float64) {
		node := &t.nodes[n]
		if !node.Root() {
			node.mapStart = cum
			cum += node.brlen
			node.mapEnd = cum
			node.time = rootTime + node.brlen
		}
		if node.time > maxRTT {
			maxRTT = node.time
		}
		l, r := node.left, node.right
		if l != NilNodeID {
			walk(l, node.time)
		}
		if r != NilNodeID {
			walk(r, node.time)
		}
	}
	walk(t.root, 0)
	t.totalMapLen = cum
	t.maxRootToTip = maxRTT

	order := t.Nodes()
	pre := make([]NodeID, 0, len(order))
	for _, id := range order {
		if !t.nodes[id].Root() {
			pre = append(pre, id)
		}
	}
	sort.Slice(pre, func(i, j int) bool { return t.nodes[pre[i]].mapStart < t.nodes[pre[j]].mapStart })
	t.preorder = pre
}

// InverseMap returns the node whose inbound branch contains map-offset
// x, and the offset measured from the rootward end of that branch.
// Spec.md §3/§4.2.A: a binary search over nodes sorted by mapStart.
func (t *Tree) InverseMap(x float64) (NodeID, float64, error) {
	if x < 0 || x >= t.totalMapLen {
		return NilNodeID, 0, fmt.Errorf("tree: map offset %g out of range [0,%g)", x, t.totalMapLen)
	}
	lo, hi := 0, len(t.preorder)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if t.nodes[t.preorder[mid]].mapStart <= x {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	n := t.preorder[lo]
	branchLocal := x - t.nodes[n].mapStart
	return n, branchLocal, nil
}

// MapOffset converts a branch-local offset on n's inbound branch
// (0 at the rootward end) back into a global map offset.
func (t *Tree) MapOffset(n NodeID, branchLocal float64) float64 {
	return t.nodes[n].mapStart + branchLocal
}

// AbsoluteTime converts a global map offset known to lie on node n's
// inbound branch into an absolute (root-distance) time coordinate.
// The map is only a contiguous coordinate along the left spine (each
// pre-order subtree introduces a gap equal to its left sibling's
// length), so two map offsets on different branches must never be
// subtracted directly; AbsoluteTime is the one place that conversion
// happens.
func (t *Tree) AbsoluteTime(n NodeID, mapOffset float64) float64 {
	node := &t.nodes[n]
	parentTime := node.time - node.brlen
	return parentTime + (mapOffset - node.mapStart)
}

// errNotBinary is returned by Validate when a node has exactly one child.
var errNotBinary = errors.New("tree: node has exactly one child; tree must be strictly bifurcating")

// Validate checks that every node has zero or two children and that
// the root has no parent.
func (t *Tree) Validate() error {
	for i := range t.nodes {
		n := &t.nodes[i]
		hasLeft := n.left != NilNodeID
		hasRight := n.right != NilNodeID
		if hasLeft != hasRight {
			return errNotBinary
		}
	}
	if t.nodes[t.root].parent != NilNodeID {
		return fmt.Errorf("tree: root has a parent")
	}
	return nil
}
