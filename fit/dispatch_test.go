package fit

import (
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/reframe3d/scan2cad/pointcloud"
	"github.com/reframe3d/scan2cad/spatialmath"
)

func meshOf(t *testing.T, points, normals []r3.Vector) *pointcloud.BasicMesh {
	t.Helper()
	mesh, err := pointcloud.NewBasicMeshFromPoints(points, normals)
	test.That(t, err, test.ShouldBeNil)
	return mesh
}

func TestDispatcherValidation(t *testing.T) {
	_, err := NewDispatcher(Config{Iterations: -1})
	test.That(t, err, test.ShouldNotBeNil)

	d, err := NewDispatcher(Config{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldNotBeNil)
}

func TestClassifyPlane(t *testing.T) {
	points := lattice(12, 12, 0.5)
	normals := make([]r3.Vector, len(points))
	for i := range normals {
		normals[i] = r3.Vector{Z: 1}
	}
	d, err := NewDispatcher(Config{})
	test.That(t, err, test.ShouldBeNil)

	kind, scores, err := d.Classify(meshOf(t, points, normals))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, kind, test.ShouldEqual, spatialmath.KindPlane)
	test.That(t, scores[spatialmath.KindPlane], test.ShouldEqual, 1.0)
	test.That(t, scores[spatialmath.KindSphere], test.ShouldBeLessThan, 1.0)
}

func TestClassifySphere(t *testing.T) {
	rng := rand.New(rand.NewSource(73))
	center := r3.Vector{X: 2, Y: -1, Z: 0.5}
	points := sphereSample(rng, center, 3, 250)
	normals := make([]r3.Vector, len(points))
	for i, p := range points {
		normals[i] = p.Sub(center).Normalize()
	}
	d, err := NewDispatcher(Config{})
	test.That(t, err, test.ShouldBeNil)

	kind, _, err := d.Classify(meshOf(t, points, normals))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, kind, test.ShouldEqual, spatialmath.KindSphere)
}

func TestClassifyCylinder(t *testing.T) {
	rng := rand.New(rand.NewSource(79))
	points, normals := cylinderSample(rng, r3.Vector{}, r3.Vector{Z: 1}, 1, 10, 250)
	d, err := NewDispatcher(Config{})
	test.That(t, err, test.ShouldBeNil)

	kind, _, err := d.Classify(meshOf(t, points, normals))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, kind, test.ShouldEqual, spatialmath.KindCylinder)
}

func TestClassifyEmpty(t *testing.T) {
	d, err := NewDispatcher(Config{})
	test.That(t, err, test.ShouldBeNil)
	_, _, err = d.Classify(pointcloud.NewBasicMesh(0))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFitAuto(t *testing.T) {
	rng := rand.New(rand.NewSource(83))
	points := sphereSample(rng, r3.Vector{}, 2, 200)
	normals := make([]r3.Vector, len(points))
	for i, p := range points {
		normals[i] = p.Normalize()
	}
	d, err := NewDispatcher(Config{})
	test.That(t, err, test.ShouldBeNil)

	res := d.FitAuto(meshOf(t, points, normals))
	test.That(t, res.Success, test.ShouldBeTrue)
	test.That(t, res.Primitive.Kind(), test.ShouldEqual, spatialmath.KindSphere)
	test.That(t, res.Confidence, test.ShouldBeGreaterThan, 0.9)
}

func TestFitAutoPlane(t *testing.T) {
	points := lattice(10, 10, 1)
	normals := make([]r3.Vector, len(points))
	for i := range normals {
		normals[i] = r3.Vector{Z: 1}
	}
	d, err := NewDispatcher(Config{})
	test.That(t, err, test.ShouldBeNil)

	res := d.FitAuto(meshOf(t, points, normals))
	test.That(t, res.Success, test.ShouldBeTrue)
	test.That(t, res.Primitive.Kind(), test.ShouldEqual, spatialmath.KindPlane)
}

func TestFitBest(t *testing.T) {
	rng := rand.New(rand.NewSource(89))
	points := sphereSample(rng, r3.Vector{X: 1}, 1.5, 200)
	d, err := NewDispatcher(Config{})
	test.That(t, err, test.ShouldBeNil)

	res := d.FitBest(meshOf(t, points, nil))
	test.That(t, res.Success, test.ShouldBeTrue)
	test.That(t, res.Primitive.Kind(), test.ShouldEqual, spatialmath.KindSphere)

	res = d.FitBest(pointcloud.NewBasicMesh(0))
	test.That(t, res.Success, test.ShouldBeFalse)
}
