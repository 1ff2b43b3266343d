// Package kdtree implements the 2-D, median-split KD-tree spec.md §4.F
// describes. It backs two distinct uses in Urbis: the coordinator's
// block tree (one point per object centroid) and the disk manager's
// allocation tree (one point per non-empty page centroid) — both share
// this package rather than duplicating the traversal logic, the same
// one-structure-many-call-sites shape as a single B-tree implementation
// backing every dbi handle.
//
// Per spec.md §9's design note on opaque `data` slots, tree items carry a
// typed RefKind tag (RefObject / RefPage) instead of an untyped interface
// alone, so a query can dispatch on what a node actually refers to.
package kdtree

import (
	"math"
	"math/bits"
	"sort"

	"github.com/urbis/urbis/geom"
)

// RefKind tags what an Item's ID refers to.
type RefKind uint8

const (
	RefObject RefKind = iota + 1
	RefPage
)

// Item is one indexed point: a 2-D coordinate plus the id of the entity
// it represents and an opaque data payload (e.g. a cached page-ref).
type Item struct {
	Point geom.Point
	ID    uint64
	Kind  RefKind
	Data  any
}

// Node is one KD-tree node: exactly one Item, a split axis, subtree
// bounds, and subtree size (node count, including itself).
type Node struct {
	Item        Item
	SplitDim    int
	Left, Right *Node
	Bounds      geom.MBR
	SubtreeSize int
	seq         int
}

// Tree is a 2-D KD-tree over Items.
type Tree struct {
	root *Node
	size int
	seq  int
}

// New returns an empty tree.
func New() *Tree { return &Tree{} }

// Size returns the number of indexed items.
func (t *Tree) Size() int { return t.size }

func coord(p geom.Point, dim int) float64 {
	if dim == 0 {
		return p.X
	}
	return p.Y
}

func boundsOf(n *Node) geom.MBR {
	if n == nil {
		return geom.EmptyMBR()
	}
	return n.Bounds
}

// BulkLoad replaces the tree's contents with a fresh median-split build
// over items. Split dimension alternates with depth: x at even depth, y
// at odd depth.
func (t *Tree) BulkLoad(items []Item) {
	buf := make([]Item, len(items))
	copy(buf, items)
	t.seq = 0
	t.root = t.build(buf, 0)
	t.size = len(items)
}

func (t *Tree) build(items []Item, depth int) *Node {
	if len(items) == 0 {
		return nil
	}
	dim := depth % 2
	sort.SliceStable(items, func(i, j int) bool {
		return coord(items[i].Point, dim) < coord(items[j].Point, dim)
	})
	m := len(items) / 2
	n := &Node{Item: items[m], SplitDim: dim, seq: t.seq}
	t.seq++
	n.Left = t.build(items[:m], depth+1)
	n.Right = t.build(items[m+1:], depth+1)
	n.SubtreeSize = 1 + size(n.Left) + size(n.Right)
	n.Bounds = geom.ExpandPoint(geom.Expand(boundsOf(n.Left), boundsOf(n.Right)), n.Item.Point)
	return n
}

func size(n *Node) int {
	if n == nil {
		return 0
	}
	return n.SubtreeSize
}

// Insert adds item without rebalancing. Ties on the split axis go right
// (strict `<` goes left), per spec.md §4.F.
func (t *Tree) Insert(item Item) {
	t.root = t.insert(t.root, item, 0)
	t.size++
}

func (t *Tree) insert(n *Node, item Item, depth int) *Node {
	if n == nil {
		node := &Node{Item: item, SplitDim: depth % 2, SubtreeSize: 1, seq: t.seq}
		t.seq++
		node.Bounds = geom.PointMBR(item.Point)
		return node
	}
	n.SubtreeSize++
	n.Bounds = geom.ExpandPoint(n.Bounds, item.Point)
	if coord(item.Point, n.SplitDim) < coord(n.Item.Point, n.SplitDim) {
		n.Left = t.insert(n.Left, item, depth+1)
	} else {
		n.Right = t.insert(n.Right, item, depth+1)
	}
	return n
}

// Nearest returns the item whose point is closest to q, and false if the
// tree is empty.
func (t *Tree) Nearest(q geom.Point) (Item, bool) {
	if t.root == nil {
		return Item{}, false
	}
	best := t.root
	bestDistSq := math.Inf(1)
	nearestRec(t.root, q, &best, &bestDistSq)
	return best.Item, true
}

func nearestRec(n *Node, q geom.Point, best **Node, bestDistSq *float64) {
	if n == nil {
		return
	}
	d := geom.DistanceSq(n.Item.Point, q)
	if d < *bestDistSq {
		*bestDistSq = d
		*best = n
	}
	dim := n.SplitDim
	first, second := n.Left, n.Right
	if coord(q, dim) >= coord(n.Item.Point, dim) {
		first, second = n.Right, n.Left
	}
	nearestRec(first, q, best, bestDistSq)
	diff := coord(q, dim) - coord(n.Item.Point, dim)
	if diff*diff < *bestDistSq {
		nearestRec(second, q, best, bestDistSq)
	}
}

type candidate struct {
	item   Item
	distSq float64
	seq    int
}

// KNearest returns min(k, size) items sorted by non-decreasing distance
// to q, ties broken by id then insertion order. Collects the full set
// and partial-sorts, per spec.md §4.F's reference-baseline allowance.
func (t *Tree) KNearest(q geom.Point, k int) []Item {
	if k <= 0 || t.root == nil {
		return nil
	}
	var all []candidate
	collect(t.root, q, &all)
	sort.Slice(all, func(i, j int) bool {
		if all[i].distSq != all[j].distSq {
			return all[i].distSq < all[j].distSq
		}
		if all[i].item.ID != all[j].item.ID {
			return all[i].item.ID < all[j].item.ID
		}
		return all[i].seq < all[j].seq
	})
	n := k
	if n > len(all) {
		n = len(all)
	}
	out := make([]Item, n)
	for i := 0; i < n; i++ {
		out[i] = all[i].item
	}
	return out
}

func collect(n *Node, q geom.Point, out *[]candidate) {
	if n == nil {
		return
	}
	*out = append(*out, candidate{item: n.Item, distSq: geom.DistanceSq(n.Item.Point, q), seq: n.seq})
	collect(n.Left, q, out)
	collect(n.Right, q, out)
}

// RangeQuery returns every item whose point lies within mbr, pruning
// subtrees whose bounds don't intersect it.
func (t *Tree) RangeQuery(mbr geom.MBR) []Item {
	var out []Item
	rangeRec(t.root, mbr, &out)
	return out
}

func rangeRec(n *Node, mbr geom.MBR, out *[]Item) {
	if n == nil || !geom.Intersects(n.Bounds, mbr) {
		return
	}
	if geom.ContainsPoint(mbr, n.Item.Point) {
		*out = append(*out, n.Item)
	}
	rangeRec(n.Left, mbr, out)
	rangeRec(n.Right, mbr, out)
}

// RadiusQuery returns every item within r of q: a range query on the
// bounding box (q±r), refined by an exact squared-distance test.
func (t *Tree) RadiusQuery(q geom.Point, r float64) []Item {
	box := geom.MBR{MinX: q.X - r, MinY: q.Y - r, MaxX: q.X + r, MaxY: q.Y + r}
	candidates := t.RangeQuery(box)
	r2 := r * r
	out := make([]Item, 0, len(candidates))
	for _, it := range candidates {
		if geom.DistanceSq(it.Point, q) <= r2 {
			out = append(out, it)
		}
	}
	return out
}

// Partition descends from the root, emitting a block MBR for every
// subtree with subtree_size <= maxPointsPerBlock (or that is a leaf),
// recursing into both children otherwise. A non-qualifying internal
// node's own point is folded into its first descendant block (see
// DESIGN.md): the node itself never heads a block, so without this its
// point would be excluded from every returned MBR's union, violating
// spec.md §8 invariant 4 ("union of block bounds equals the KD-tree
// root's bounds").
func (t *Tree) Partition(maxPointsPerBlock int) []geom.MBR {
	var out []geom.MBR
	partitionRec(t.root, maxPointsPerBlock, &out)
	return out
}

func partitionRec(n *Node, max int, out *[]geom.MBR) {
	if n == nil {
		return
	}
	if n.SubtreeSize <= max || (n.Left == nil && n.Right == nil) {
		*out = append(*out, n.Bounds)
		return
	}
	before := len(*out)
	partitionRec(n.Left, max, out)
	partitionRec(n.Right, max, out)
	if len(*out) > before {
		(*out)[before] = geom.ExpandPoint((*out)[before], n.Item.Point)
	} else {
		*out = append(*out, geom.PointMBR(n.Item.Point))
	}
}

// PartitionItems mirrors Partition's recursion but returns each block's
// member items instead of just its bounds, for callers (the coordinator's
// Build) that need to materialize pages from a block's actual object
// membership, not only its extent. Block boundaries and the orphaned-
// split-point handling are identical to Partition; the two must be kept
// in sync since they implement the same recursion.
func (t *Tree) PartitionItems(maxPointsPerBlock int) [][]Item {
	var out [][]Item
	partitionItemsRec(t.root, maxPointsPerBlock, &out)
	return out
}

func partitionItemsRec(n *Node, max int, out *[][]Item) {
	if n == nil {
		return
	}
	if n.SubtreeSize <= max || (n.Left == nil && n.Right == nil) {
		var items []Item
		collectAll(n, &items)
		*out = append(*out, items)
		return
	}
	before := len(*out)
	partitionItemsRec(n.Left, max, out)
	partitionItemsRec(n.Right, max, out)
	if len(*out) > before {
		(*out)[before] = append((*out)[before], n.Item)
	} else {
		*out = append(*out, []Item{n.Item})
	}
}

func collectAll(n *Node, out *[]Item) {
	if n == nil {
		return
	}
	*out = append(*out, n.Item)
	collectAll(n.Left, out)
	collectAll(n.Right, out)
}

// Stats summarizes tree shape.
type Stats struct {
	Size       int
	Depth      int
	IsBalanced bool
}

// Stats computes depth (longest root-to-leaf edge count) and balance,
// per spec.md §4.F: balanced iff depth <= 2*ceil(log2(size+1)).
func (t *Tree) Stats() Stats {
	if t.root == nil {
		return Stats{IsBalanced: true}
	}
	depth := maxDepth(t.root)
	bound := 2 * ceilLog2(t.size+1)
	return Stats{Size: t.size, Depth: depth, IsBalanced: depth <= bound}
}

func maxDepth(n *Node) int {
	if n == nil {
		return -1
	}
	l, r := maxDepth(n.Left), maxDepth(n.Right)
	if l > r {
		return l + 1
	}
	return r + 1
}

func ceilLog2(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}
