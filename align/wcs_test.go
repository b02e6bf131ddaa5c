package align

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/reframe3d/scan2cad/pointcloud"
	"github.com/reframe3d/scan2cad/spatialmath"
)

func TestAlignToWorldAxes(t *testing.T) {
	cyl, err := spatialmath.NewCylinder(r3.Vector{X: 2, Y: 1}, r3.Vector{X: 1, Y: 1}.Normalize(), 0.5, 4)
	test.That(t, err, test.ShouldBeNil)
	plane, err := spatialmath.NewPlaneFromPointNormal(r3.Vector{Z: 1}, r3.Vector{Z: 1})
	test.That(t, err, test.ShouldBeNil)

	primary := NewCylinderAxisFeature(cyl)
	secondary := NewPlaneFeature(plane, r3.Vector{})

	res := AlignToWorld(nil, primary, secondary, PlusZ, PlusX, nil, false)
	test.That(t, res.Success, test.ShouldBeTrue)

	movedAxis := spatialmath.RotateVector(res.Transform, primary.Direction)
	test.That(t, spatialmath.R3VectorAlmostEqual(movedAxis, r3.Vector{Z: 1}, 1e-9), test.ShouldBeTrue)
	// The secondary direction is orthogonalized before mapping; here it is
	// already perpendicular to the primary.
	movedNormal := spatialmath.RotateVector(res.Transform, secondary.Direction)
	test.That(t, spatialmath.R3VectorAlmostEqual(movedNormal, r3.Vector{X: 1}, 1e-9), test.ShouldBeTrue)
	// Primary anchor stays put when no origin is requested.
	moved := spatialmath.TransformPoint(res.Transform, primary.Anchor)
	test.That(t, spatialmath.R3VectorAlmostEqual(moved, primary.Anchor, 1e-9), test.ShouldBeTrue)
	test.That(t, res.RMS, test.ShouldBeLessThan, 1e-9)
}

func TestAlignToWorldOrigin(t *testing.T) {
	primary := NewLineFeature(r3.Vector{X: 3, Y: -1, Z: 2}, r3.Vector{Y: 1})
	secondary := NewLineFeature(r3.Vector{}, r3.Vector{X: 1})
	origin := r3.Vector{X: 1, Y: 2, Z: 3}

	res := AlignToWorld(nil, primary, secondary, PlusZ, PlusY, &origin, false)
	test.That(t, res.Success, test.ShouldBeTrue)
	moved := spatialmath.TransformPoint(res.Transform, primary.Anchor)
	test.That(t, spatialmath.R3VectorAlmostEqual(moved, origin, 1e-9), test.ShouldBeTrue)
}

func TestAlignToWorldSecondaryOrthogonalized(t *testing.T) {
	primary := NewLineFeature(r3.Vector{}, r3.Vector{Z: 1})
	// Secondary leans into the primary; only its perpendicular part counts.
	secondary := NewLineFeature(r3.Vector{}, r3.Vector{X: 1, Z: 3}.Normalize())

	res := AlignToWorld(nil, primary, secondary, PlusZ, PlusX, nil, false)
	test.That(t, res.Success, test.ShouldBeTrue)
	movedX := spatialmath.RotateVector(res.Transform, r3.Vector{X: 1})
	test.That(t, spatialmath.R3VectorAlmostEqual(movedX, r3.Vector{X: 1}, 1e-9), test.ShouldBeTrue)
}

func TestAlignToWorldFailures(t *testing.T) {
	line := NewLineFeature(r3.Vector{}, r3.Vector{Z: 1})

	res := AlignToWorld(nil, NewPointFeature(r3.Vector{X: 1}), line, PlusZ, PlusX, nil, false)
	test.That(t, res.Success, test.ShouldBeFalse)
	test.That(t, res.Reason, test.ShouldContainSubstring, "no direction")

	res = AlignToWorld(nil, line, NewSphereCenterFeature(spatialmath.Sphere{Center: r3.Vector{X: 1}, Radius: 1}), PlusZ, PlusX, nil, false)
	test.That(t, res.Success, test.ShouldBeFalse)

	parallel := NewLineFeature(r3.Vector{X: 5}, r3.Vector{Z: -1})
	res = AlignToWorld(nil, line, parallel, PlusZ, PlusX, nil, false)
	test.That(t, res.Success, test.ShouldBeFalse)
	test.That(t, res.Reason, test.ShouldContainSubstring, "parallel")

	res = AlignToWorld(nil, line, NewLineFeature(r3.Vector{}, r3.Vector{X: 1}), PlusZ, MinusZ, nil, false)
	test.That(t, res.Success, test.ShouldBeFalse)
	test.That(t, res.Reason, test.ShouldContainSubstring, "target axes")
}

func TestAlignToWorldMeshApplication(t *testing.T) {
	mesh, err := pointcloud.NewBasicMeshFromPoints([]r3.Vector{{X: 1}, {Y: 1}, {Z: 1}}, nil)
	test.That(t, err, test.ShouldBeNil)
	before := append([]r3.Vector(nil), mesh.Vertices()...)

	primary := NewLineFeature(r3.Vector{}, r3.Vector{X: 1})
	secondary := NewLineFeature(r3.Vector{}, r3.Vector{Y: 1})

	// Preview leaves the mesh alone.
	res := AlignToWorld(mesh, primary, secondary, PlusZ, PlusX, nil, false)
	test.That(t, res.Success, test.ShouldBeTrue)
	test.That(t, mesh.Vertices()[0], test.ShouldResemble, before[0])

	// Failure leaves the mesh alone even when apply is requested.
	res = AlignToWorld(mesh, primary, NewLineFeature(r3.Vector{}, r3.Vector{X: -1}), PlusZ, PlusX, nil, true)
	test.That(t, res.Success, test.ShouldBeFalse)
	test.That(t, mesh.Vertices()[0], test.ShouldResemble, before[0])

	// A successful apply rotates +X onto +Z.
	res = AlignToWorld(mesh, primary, secondary, PlusZ, PlusX, nil, true)
	test.That(t, res.Success, test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(mesh.Vertices()[0], r3.Vector{Z: 1}, 1e-9), test.ShouldBeTrue)
}
