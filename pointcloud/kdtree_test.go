package pointcloud

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func bruteNearest(points []r3.Vector, q r3.Vector) (int, float64) {
	best, bestDist := -1, math.Inf(1)
	for i, p := range points {
		if d := q.Sub(p).Norm(); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}

func TestKDTreeMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	points := make([]r3.Vector, 500)
	for i := range points {
		points[i] = r3.Vector{X: rng.Float64() * 10, Y: rng.Float64() * 10, Z: rng.Float64() * 10}
	}
	tree := NewKDTree(points, nil)
	test.That(t, tree.Size(), test.ShouldEqual, 500)

	for i := 0; i < 200; i++ {
		q := r3.Vector{X: rng.Float64()*12 - 1, Y: rng.Float64()*12 - 1, Z: rng.Float64()*12 - 1}
		gotIdx, gotDist, _ := tree.NearestNeighbor(q, 0)
		wantIdx, wantDist := bruteNearest(points, q)
		test.That(t, gotDist, test.ShouldAlmostEqual, wantDist, 1e-12)
		// Indices may differ only on exact distance ties.
		if gotIdx != wantIdx {
			test.That(t, q.Sub(points[gotIdx]).Norm(), test.ShouldAlmostEqual, wantDist, 1e-12)
		}
	}
}

func TestKDTreeMaxDistance(t *testing.T) {
	points := []r3.Vector{{}, {X: 10}}
	tree := NewKDTree(points, nil)

	idx, dist, _ := tree.NearestNeighbor(r3.Vector{X: 4}, 1)
	test.That(t, idx, test.ShouldEqual, -1)
	test.That(t, math.IsInf(dist, 1), test.ShouldBeTrue)

	idx, dist, _ = tree.NearestNeighbor(r3.Vector{X: 4}, 5)
	test.That(t, idx, test.ShouldEqual, 0)
	test.That(t, dist, test.ShouldAlmostEqual, 4, 1e-12)
}

func TestKDTreeEmptyAndNormals(t *testing.T) {
	empty := NewKDTree(nil, nil)
	idx, _, _ := empty.NearestNeighbor(r3.Vector{}, 0)
	test.That(t, idx, test.ShouldEqual, -1)

	points := []r3.Vector{{X: 1}, {X: 2}}
	normals := []r3.Vector{{Z: 1}, {Z: -1}}
	tree := NewKDTree(points, normals)
	test.That(t, tree.HasNormals(), test.ShouldBeTrue)
	idx, _, normal := tree.NearestNeighbor(r3.Vector{X: 1.1}, 0)
	test.That(t, idx, test.ShouldEqual, 0)
	test.That(t, normal.Z, test.ShouldEqual, 1.0)
}
