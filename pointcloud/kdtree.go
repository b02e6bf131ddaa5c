package pointcloud

import (
	"math"
	"sort"

	"github.com/golang/geo/r3"
)

// KDTree is a build-once query-many balanced 3D tree over a static point
// set. Per-point normals, when supplied, ride along and come back from
// queries so point-to-plane ICP can use them. Concurrent builds on the same
// tree are not supported; queries are safe once Build has returned.
type KDTree struct {
	root       *kdNode
	hasNormals bool
	size       int
}

type kdNode struct {
	point  r3.Vector
	normal r3.Vector
	index  int
	axis   int
	left   *kdNode
	right  *kdNode
}

func axisValue(p r3.Vector, axis int) float64 {
	switch axis {
	case 0:
		return p.X
	case 1:
		return p.Y
	}
	return p.Z
}

// NewKDTree builds a balanced tree by median split on the depth-mod-3 axis.
// normals may be nil; otherwise it must parallel points.
func NewKDTree(points, normals []r3.Vector) *KDTree {
	tree := &KDTree{
		hasNormals: normals != nil && len(normals) == len(points),
		size:       len(points),
	}
	indices := make([]int, len(points))
	for i := range indices {
		indices[i] = i
	}
	tree.root = buildKD(points, normals, indices, 0, tree.hasNormals)
	return tree
}

// NewKDTreeFromMesh builds a tree over a sample's vertices, carrying its
// per-vertex normals when present.
func NewKDTreeFromMesh(sample MeshSample) *KDTree {
	return NewKDTree(sample.Vertices(), sample.Normals())
}

func buildKD(points, normals []r3.Vector, indices []int, depth int, hasNormals bool) *kdNode {
	if len(indices) == 0 {
		return nil
	}
	axis := depth % 3
	sort.Slice(indices, func(i, j int) bool {
		return axisValue(points[indices[i]], axis) < axisValue(points[indices[j]], axis)
	})
	mid := len(indices) / 2
	node := &kdNode{
		point: points[indices[mid]],
		index: indices[mid],
		axis:  axis,
	}
	if hasNormals {
		node.normal = normals[indices[mid]]
	}
	node.left = buildKD(points, normals, indices[:mid], depth+1, hasNormals)
	node.right = buildKD(points, normals, indices[mid+1:], depth+1, hasNormals)
	return node
}

// Size returns the number of stored points.
func (t *KDTree) Size() int {
	if t == nil {
		return 0
	}
	return t.size
}

// HasNormals reports whether stored points carry normals.
func (t *KDTree) HasNormals() bool { return t != nil && t.hasNormals }

// NearestNeighbor returns the index of the stored point nearest to query,
// its Euclidean distance, and its normal (zero when the tree carries none).
// maxDistance <= 0 means unbounded. When no point lies within maxDistance,
// or the tree is empty, the index is -1.
func (t *KDTree) NearestNeighbor(query r3.Vector, maxDistance float64) (int, float64, r3.Vector) {
	if t == nil || t.root == nil {
		return -1, math.Inf(1), r3.Vector{}
	}
	if maxDistance <= 0 {
		maxDistance = math.Inf(1)
	}
	best := struct {
		node *kdNode
		dist float64
	}{nil, maxDistance}
	var search func(n *kdNode)
	search = func(n *kdNode) {
		if n == nil {
			return
		}
		d := query.Sub(n.point).Norm()
		if d <= best.dist && (d < best.dist || best.node == nil) {
			best.node = n
			best.dist = d
		}
		delta := axisValue(query, n.axis) - axisValue(n.point, n.axis)
		near, far := n.left, n.right
		if delta > 0 {
			near, far = far, near
		}
		search(near)
		if math.Abs(delta) <= best.dist {
			search(far)
		}
	}
	search(t.root)
	if best.node == nil {
		return -1, math.Inf(1), r3.Vector{}
	}
	return best.node.index, best.dist, best.node.normal
}
