package spatialmath

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestDecomposeTransform(t *testing.T) {
	rot := mgl64.HomogRotate3D(math.Pi/4, mgl64.Vec3{0, 1, 0})
	rot.Set(0, 3, 3)
	rot.Set(1, 3, -1)
	rot.Set(2, 3, 2)

	trans, r, scale := DecomposeTransform(rot)
	test.That(t, R3VectorAlmostEqual(trans, r3.Vector{X: 3, Y: -1, Z: 2}, 1e-12), test.ShouldBeTrue)
	test.That(t, R3VectorAlmostEqual(scale, r3.Vector{X: 1, Y: 1, Z: 1}, 1e-9), test.ShouldBeTrue)
	test.That(t, r.Det(), test.ShouldAlmostEqual, 1, 1e-9)
}

func TestDeltaFromIdentity(t *testing.T) {
	test.That(t, DeltaFromIdentity(mgl64.Ident4()), test.ShouldEqual, 0)
	shifted := mgl64.Ident4()
	shifted.Set(0, 3, 3)
	shifted.Set(1, 3, 4)
	test.That(t, DeltaFromIdentity(shifted), test.ShouldAlmostEqual, 5, 1e-12)
}

func TestAverageScale(t *testing.T) {
	m := mgl64.Ident4()
	m.Set(0, 0, 2)
	m.Set(1, 1, 4)
	m.Set(2, 2, 6)
	test.That(t, AverageScale(m), test.ShouldAlmostEqual, 4, 1e-12)
}

func TestRotateVectorIgnoresTranslation(t *testing.T) {
	m := mgl64.Ident4()
	m.Set(0, 3, 100)
	v := RotateVector(m, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, R3VectorAlmostEqual(v, r3.Vector{X: 1, Y: 2, Z: 3}, 1e-12), test.ShouldBeTrue)
}
