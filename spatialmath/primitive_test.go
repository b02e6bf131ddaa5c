package spatialmath

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestPlaneBasics(t *testing.T) {
	plane, err := NewPlaneFromPointNormal(r3.Vector{Z: 2}, r3.Vector{Z: 3})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, plane.Normal.Norm(), test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, plane.Distance(r3.Vector{Z: 5}), test.ShouldAlmostEqual, 3, 1e-12)
	test.That(t, plane.Flipped().Distance(r3.Vector{Z: 5}), test.ShouldAlmostEqual, -3, 1e-12)

	reflected := plane.Reflect(r3.Vector{X: 1, Z: 5})
	test.That(t, R3VectorAlmostEqual(reflected, r3.Vector{X: 1, Z: -1}, 1e-12), test.ShouldBeTrue)

	_, err = NewPlaneFromPoints(r3.Vector{}, r3.Vector{X: 1}, r3.Vector{X: 2})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSphereTransformScalesRadius(t *testing.T) {
	s, err := NewSphere(r3.Vector{X: 1}, 2)
	test.That(t, err, test.ShouldBeNil)
	m := mgl64.Ident4()
	m.Set(0, 0, 3)
	m.Set(1, 1, 3)
	m.Set(2, 2, 3)
	moved := s.Transformed(m).(Sphere)
	test.That(t, moved.Radius, test.ShouldAlmostEqual, 6, 1e-12)
	test.That(t, moved.Center.X, test.ShouldAlmostEqual, 3, 1e-12)

	_, err = NewSphere(r3.Vector{}, -1)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestCylinderDistance(t *testing.T) {
	cyl, err := NewCylinder(r3.Vector{}, r3.Vector{Z: 2}, 1, 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cyl.Axis.Norm(), test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, cyl.Distance(r3.Vector{X: 3}), test.ShouldAlmostEqual, 2, 1e-12)
	test.That(t, cyl.Distance(r3.Vector{X: 0.5}), test.ShouldAlmostEqual, -0.5, 1e-12)

	lo, hi := cyl.EndPoints()
	test.That(t, R3VectorAlmostEqual(lo, r3.Vector{Z: -2}, 1e-12), test.ShouldBeTrue)
	test.That(t, R3VectorAlmostEqual(hi, r3.Vector{Z: 2}, 1e-12), test.ShouldBeTrue)
}

func TestConeDistanceCases(t *testing.T) {
	cone, err := NewCone(r3.Vector{}, r3.Vector{Z: 1}, math.Pi/4, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cone.CosTheta(), test.ShouldAlmostEqual, math.Cos(math.Pi/4), 1e-12)

	// Behind the apex: distance to the apex itself.
	test.That(t, cone.Distance(r3.Vector{Z: -3}), test.ShouldAlmostEqual, 3, 1e-12)

	// On the lateral surface.
	test.That(t, cone.Distance(r3.Vector{X: 1, Z: 1}), test.ShouldAlmostEqual, 0, 1e-12)

	// Beyond the base cap, within the base radius: axial overshoot.
	test.That(t, cone.Distance(r3.Vector{X: 1, Z: 3}), test.ShouldAlmostEqual, 1, 1e-12)

	// Half-angle cache refresh.
	cone.SetHalfAngle(math.Pi / 6)
	test.That(t, cone.SinTheta(), test.ShouldAlmostEqual, 0.5, 1e-12)

	_, err = NewCone(r3.Vector{}, r3.Vector{Z: 1}, math.Pi, 2)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPrimitiveKindString(t *testing.T) {
	test.That(t, KindPlane.String(), test.ShouldEqual, "plane")
	test.That(t, KindCone.String(), test.ShouldEqual, "cone")
}
