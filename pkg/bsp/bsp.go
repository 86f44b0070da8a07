// Package bsp implements a static binary space partition over a fixed set of
// 3D points. The tree is built once and answers box-bounded proximity
// queries; it supports neither insertion nor deletion.
package bsp

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/morphutil/pkg/math"
)

// Axis identifies the split plane of a node.
type Axis int8

// Split axes. Leaf marks a node that was not split.
const (
	Leaf  Axis = -1
	AxisX Axis = 0
	AxisY Axis = 1
	AxisZ Axis = 2
)

// String returns the axis name.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	default:
		return "Leaf"
	}
}

// Default build tuning.
const (
	DefaultMaxDepth    = 20
	DefaultMinLeafSize = 50
)

// Options controls how deep the tree is split.
// Tuning changes query cost only, never query results.
type Options struct {
	MaxDepth    int // recursion stops at this depth
	MinLeafSize int // nodes with this many points or fewer stay leaves
}

// DefaultOptions returns MaxDepth 20, MinLeafSize 50.
func DefaultOptions() Options {
	return Options{MaxDepth: DefaultMaxDepth, MinLeafSize: DefaultMinLeafSize}
}

// Node is one entry of the node arena. Child and parent links are arena
// indices, -1 when absent. Only leaves own point indices.
type Node struct {
	Box    math.Box
	Axis   Axis
	Median float32
	Left   int
	Right  int
	Parent int
	Points []int

	// bit a set when the upper face on axis a is a split plane
	splitMax uint8
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return n.Left < 0 && n.Right < 0
}

// Index is an immutable BSP over a point set. Node 0 is the root.
// Concurrent queries are safe once Build has returned.
type Index struct {
	points []math.Vec3
	nodes  []Node
	opts   Options
	depth  int
}

// Build partitions points. The slice is copied, so later changes by the
// caller do not affect the index. An empty point set yields a single empty
// root node whose queries always return nothing.
func Build(points []math.Vec3, opts Options) *Index {
	if opts.MaxDepth < 0 {
		opts.MaxDepth = 0
	}
	if opts.MinLeafSize < 0 {
		opts.MinLeafSize = 0
	}

	ix := &Index{
		points: append([]math.Vec3(nil), points...),
		opts:   opts,
	}

	root := Node{
		Box:    math.BoxOf(ix.points),
		Axis:   Leaf,
		Left:   -1,
		Right:  -1,
		Parent: -1,
	}
	if len(ix.points) > 0 {
		root.Points = make([]int, len(ix.points))
		for i := range root.Points {
			root.Points[i] = i
		}
	}
	ix.nodes = append(ix.nodes, root)

	if len(ix.points) > 0 {
		scratch := make([]float32, len(ix.points))
		ix.split(0, 0, scratch)
	}
	return ix
}

// selectAxis picks the axis of largest extent. Ties resolve X over Z over Y
// when X is not smaller than Y, and Y over Z otherwise.
func selectAxis(b math.Box) Axis {
	s := b.Size()
	if s.X < s.Y {
		if s.Y < s.Z {
			return AxisZ
		}
		return AxisY
	}
	if s.X < s.Z {
		return AxisZ
	}
	return AxisX
}

// split divides node idx at the median of its largest axis and recurses.
// Children are appended in pairs, left before right, depth first.
func (ix *Index) split(depth, idx int, scratch []float32) {
	if depth > ix.depth {
		ix.depth = depth
	}
	owned := ix.nodes[idx].Points
	if depth >= ix.opts.MaxDepth || len(owned) <= ix.opts.MinLeafSize {
		return
	}

	box := ix.nodes[idx].Box
	axis := selectAxis(box)
	a := int(axis)

	vals := scratch[:len(owned)]
	for i, p := range owned {
		vals[i] = ix.points[p].Component(a)
	}
	median := selectKth(vals, len(vals)/2)

	var left, right []int
	for _, p := range owned {
		if ix.points[p].Component(a) < median {
			left = append(left, p)
		} else {
			right = append(right, p)
		}
	}

	leftIdx := len(ix.nodes)
	rightIdx := leftIdx + 1

	leftBox, rightBox := box, box
	leftBox.Max = leftBox.Max.SetComponent(a, median)
	rightBox.Min = rightBox.Min.SetComponent(a, median)

	ix.nodes = append(ix.nodes,
		Node{Box: leftBox, Axis: Leaf, Left: -1, Right: -1, Parent: idx, Points: left,
			splitMax: ix.nodes[idx].splitMax | 1<<a},
		Node{Box: rightBox, Axis: Leaf, Left: -1, Right: -1, Parent: idx, Points: right,
			splitMax: ix.nodes[idx].splitMax},
	)

	n := &ix.nodes[idx]
	n.Axis = axis
	n.Median = median
	n.Left = leftIdx
	n.Right = rightIdx
	n.Points = nil

	ix.split(depth+1, leftIdx, scratch)
	ix.split(depth+1, rightIdx, scratch)
}

// selectKth reorders vals partially and returns its k-th smallest value.
func selectKth(vals []float32, k int) float32 {
	lo, hi := 0, len(vals)-1
	for lo < hi {
		pivot := vals[lo+(hi-lo)/2]
		i, j := lo, hi
		for i <= j {
			for vals[i] < pivot {
				i++
			}
			for vals[j] > pivot {
				j--
			}
			if i <= j {
				vals[i], vals[j] = vals[j], vals[i]
				i++
				j--
			}
		}
		switch {
		case k <= j:
			hi = j
		case k >= i:
			lo = i
		default:
			return vals[k]
		}
	}
	return vals[k]
}

// Len returns the number of indexed points.
func (ix *Index) Len() int {
	return len(ix.points)
}

// Point returns the stored point i.
func (ix *Index) Point(i int) math.Vec3 {
	return ix.points[i]
}

// NodeCount returns the size of the node arena.
func (ix *Index) NodeCount() int {
	return len(ix.nodes)
}

// Node returns a copy of arena entry i.
func (ix *Index) Node(i int) Node {
	return ix.nodes[i]
}

// Depth returns the deepest level reached while building.
func (ix *Index) Depth() int {
	return ix.depth
}

// Bounds returns the root bounding box.
func (ix *Index) Bounds() math.Box {
	return ix.nodes[0].Box
}

// Leaf returns the leaf whose region contains p. Points outside the root box
// are clamped onto it first, so the descent always ends at a leaf.
func (ix *Index) Leaf(p math.Vec3) int {
	p = ix.nodes[0].Box.Clamp(p)
	cur := 0
	for {
		n := &ix.nodes[cur]
		if n.IsLeaf() {
			return cur
		}
		if p.Component(int(n.Axis)) < n.Median {
			cur = n.Left
		} else {
			cur = n.Right
		}
	}
}

// RangeQuery returns every point index whose point differs from center by at
// most distance on each axis. This is a cube test, not a Euclidean one.
func (ix *Index) RangeQuery(center math.Vec3, distance float32) []int {
	if len(ix.points) == 0 || distance < 0 || math32.IsNaN(distance) {
		return nil
	}

	// The search cube is widened by a rounding margin: center+distance may
	// round below a point that still passes the per-axis test.
	root := ix.nodes[0].Box
	climb := math.Cube(center, distance+margin(center, distance)).Intersect(root)
	if climb.Min.X > climb.Max.X || climb.Min.Y > climb.Max.Y || climb.Min.Z > climb.Max.Z {
		return nil
	}

	// Climb from the containing leaf to the first node covering the cube.
	cur := ix.Leaf(center)
	for {
		n := &ix.nodes[cur]
		if n.Parent < 0 || covers(n, climb) {
			break
		}
		cur = n.Parent
	}

	var found []int
	stack := []int{cur}
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &ix.nodes[idx]
		for _, p := range n.Points {
			d := ix.points[p].Sub(center)
			if math32.Abs(d.X) <= distance && math32.Abs(d.Y) <= distance && math32.Abs(d.Z) <= distance {
				found = append(found, p)
			}
		}
		if n.Right >= 0 {
			stack = append(stack, n.Right)
		}
		if n.Left >= 0 {
			stack = append(stack, n.Left)
		}
	}
	return found
}

// covers reports whether node n holds every point inside s. Split upper
// faces are compared strictly since a point on a split plane belongs to the
// right-hand child.
func covers(n *Node, s math.Box) bool {
	if n.Box.Min.X > s.Min.X || n.Box.Min.Y > s.Min.Y || n.Box.Min.Z > s.Min.Z {
		return false
	}
	for a := 0; a < 3; a++ {
		hi, want := n.Box.Max.Component(a), s.Max.Component(a)
		if n.splitMax&(1<<a) != 0 {
			if want >= hi {
				return false
			}
		} else if want > hi {
			return false
		}
	}
	return true
}

func margin(c math.Vec3, distance float32) float32 {
	m := math32.Max(math32.Abs(c.X), math32.Max(math32.Abs(c.Y), math32.Abs(c.Z)))
	return (1 + m + distance) * 1e-6
}
