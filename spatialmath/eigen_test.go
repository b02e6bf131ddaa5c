package spatialmath

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestDominantEigenDiagonal(t *testing.T) {
	m := SymMat3{{5, 0, 0}, {0, 2, 0}, {0, 0, 1}}
	v, lambda := m.DominantEigen3()
	test.That(t, math.Abs(v.X), test.ShouldAlmostEqual, 1, 1e-8)
	test.That(t, lambda, test.ShouldAlmostEqual, 5, 1e-8)
}

func TestDominantEigenZeroMatrix(t *testing.T) {
	var m SymMat3
	v, lambda := m.DominantEigen3()
	test.That(t, v.Norm(), test.ShouldEqual, 0)
	test.That(t, lambda, test.ShouldEqual, 0)
}

func TestEigen3RightHanded(t *testing.T) {
	m := SymMat3{{4, 1, 0}, {1, 3, 0}, {0, 0, 1}}
	v1, v2, v3, ok := m.Eigen3()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v1.Norm(), test.ShouldAlmostEqual, 1, 1e-8)
	test.That(t, math.Abs(v1.Dot(v2)), test.ShouldBeLessThan, 1e-6)
	test.That(t, R3VectorAlmostEqual(v1.Cross(v2), v3, 1e-8), test.ShouldBeTrue)
}

func TestPlanarCovarianceSmallestEigenvector(t *testing.T) {
	// Points exactly on the plane z = 0: the smallest-eigenvalue direction
	// of their covariance is the plane normal.
	rng := rand.New(rand.NewSource(3))
	points := make([]r3.Vector, 200)
	for i := range points {
		points[i] = r3.Vector{X: rng.Float64()*4 - 2, Y: rng.Float64()*4 - 2}
	}
	_, _, v3, ok := NewCovarianceMatrix(points).Eigen3()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, math.Abs(v3.Z), test.ShouldAlmostEqual, 1, 1e-6)
}

func TestEigen3RepeatedEigenvalue(t *testing.T) {
	// A flat isotropic spectrum (6, 6, 0) collapses the deflated power
	// iteration; the null direction must still land in v3, never v2.
	m := SymMat3{{6, 0, 0}, {0, 6, 0}, {0, 0, 0}}
	v1, v2, v3, ok := m.Eigen3()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, math.Abs(v1.Z), test.ShouldBeLessThan, 1e-8)
	test.That(t, math.Abs(v2.Z), test.ShouldBeLessThan, 1e-8)
	test.That(t, math.Abs(v3.Z), test.ShouldAlmostEqual, 1, 1e-8)
	test.That(t, v2.Dot(m.apply(v2)), test.ShouldAlmostEqual, 6, 1e-8)
	test.That(t, v3.Dot(m.apply(v3)), test.ShouldAlmostEqual, 0, 1e-8)
}

func TestOuterProductSumDominant(t *testing.T) {
	vectors := []r3.Vector{{X: 1}, {X: -1}, {X: 1, Y: 0.01}, {X: -1, Y: -0.01}}
	v, _ := NewOuterProductSum(vectors).DominantEigen3()
	test.That(t, math.Abs(v.X), test.ShouldAlmostEqual, 1, 1e-3)
}
