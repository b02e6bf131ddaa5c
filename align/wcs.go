package align

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"

	"github.com/reframe3d/scan2cad/pointcloud"
	"github.com/reframe3d/scan2cad/spatialmath"
)

// WorldAxis selects a signed world coordinate axis as an alignment target.
type WorldAxis int

// The six signed world axes.
const (
	PlusX WorldAxis = iota
	MinusX
	PlusY
	MinusY
	PlusZ
	MinusZ
)

// Vector returns the unit vector of the axis.
func (a WorldAxis) Vector() r3.Vector {
	switch a {
	case PlusX:
		return r3.Vector{X: 1}
	case MinusX:
		return r3.Vector{X: -1}
	case PlusY:
		return r3.Vector{Y: 1}
	case MinusY:
		return r3.Vector{Y: -1}
	case PlusZ:
		return r3.Vector{Z: 1}
	}
	return r3.Vector{Z: -1}
}

// Feature is an oriented alignment handle extracted from fitted geometry: an
// anchor point plus a direction. Point-only features carry a zero direction
// and cannot serve as a primary or secondary axis source.
type Feature struct {
	Anchor    r3.Vector
	Direction r3.Vector
}

// NewPointFeature wraps a bare point; it has no direction.
func NewPointFeature(p r3.Vector) Feature {
	return Feature{Anchor: p}
}

// NewLineFeature wraps a point and a direction.
func NewLineFeature(point, direction r3.Vector) Feature {
	return Feature{Anchor: point, Direction: direction}
}

// NewPlaneFeature uses the plane normal as direction, anchored at the
// plane's projection of the given point.
func NewPlaneFeature(plane spatialmath.Plane, anchor r3.Vector) Feature {
	return Feature{Anchor: plane.Project(anchor), Direction: plane.Normal}
}

// NewCylinderAxisFeature uses the cylinder axis, anchored at its center.
func NewCylinderAxisFeature(cyl spatialmath.Cylinder) Feature {
	return Feature{Anchor: cyl.Center, Direction: cyl.Axis}
}

// NewConeAxisFeature uses the cone axis, anchored at the apex.
func NewConeAxisFeature(cone spatialmath.Cone) Feature {
	return Feature{Anchor: cone.Apex, Direction: cone.Axis}
}

// NewSphereCenterFeature wraps a sphere center; like a point it has no
// direction.
func NewSphereCenterFeature(s spatialmath.Sphere) Feature {
	return Feature{Anchor: s.Center}
}

const parallelCutoff = 1e-6

// AlignToWorld builds the rigid transform that carries the primary feature's
// direction onto primaryAxis and the secondary's (orthogonalized) direction
// onto secondaryAxis, placing the primary anchor at origin when supplied.
// When apply is true and mesh is non-nil the transform is multiplied into
// the mesh's vertices and normals; otherwise the call is a preview with no
// side effects.
func AlignToWorld(
	mesh *pointcloud.BasicMesh,
	primary, secondary Feature,
	primaryAxis, secondaryAxis WorldAxis,
	origin *r3.Vector,
	apply bool,
) AlignmentResult {
	if primary.Direction.Norm() < parallelCutoff {
		return alignmentFailure("primary feature provides no direction")
	}
	if secondary.Direction.Norm() < parallelCutoff {
		return alignmentFailure("secondary feature provides no direction")
	}
	p := primary.Direction.Normalize()
	s := secondary.Direction.Normalize()

	// Orthogonalize the secondary against the primary.
	s = s.Sub(p.Mul(s.Dot(p)))
	if s.Norm() < parallelCutoff {
		return alignmentFailure("features are parallel, no independent secondary axis")
	}
	s = s.Normalize()

	tp := primaryAxis.Vector()
	ts := secondaryAxis.Vector()
	ts = ts.Sub(tp.Mul(ts.Dot(tp)))
	if ts.Norm() < parallelCutoff {
		return alignmentFailure("target axes are parallel")
	}
	ts = ts.Normalize()

	// R = target frame · source frameᵀ for the orthonormal column frames
	// [p, s, p×s] and [tp, ts, tp×ts].
	src := [3]r3.Vector{p, s, p.Cross(s)}
	dst := [3]r3.Vector{tp, ts, tp.Cross(ts)}
	var rot mgl64.Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			sum := 0.
			for k := 0; k < 3; k++ {
				sum += component(dst[k], i) * component(src[k], j)
			}
			rot.Set(i, j, sum)
		}
	}

	target := primary.Anchor
	if origin != nil {
		target = *origin
	}
	rotatedAnchor := r3.Vector{
		X: rot.At(0, 0)*primary.Anchor.X + rot.At(0, 1)*primary.Anchor.Y + rot.At(0, 2)*primary.Anchor.Z,
		Y: rot.At(1, 0)*primary.Anchor.X + rot.At(1, 1)*primary.Anchor.Y + rot.At(1, 2)*primary.Anchor.Z,
		Z: rot.At(2, 0)*primary.Anchor.X + rot.At(2, 1)*primary.Anchor.Y + rot.At(2, 2)*primary.Anchor.Z,
	}
	transform := spatialmath.NewTransform(rot, target.Sub(rotatedAnchor))

	res := newAlignmentResult(transform)
	// Residual: distance from the transformed primary anchor to the target
	// axis line through the chosen origin.
	moved := spatialmath.TransformPoint(transform, primary.Anchor)
	rel := moved.Sub(target)
	res.RMS = rel.Sub(tp.Mul(rel.Dot(tp))).Norm()
	res.MaxError = res.RMS

	if apply && mesh != nil {
		mesh.ApplyTransform(transform)
	}
	return res
}

func component(v r3.Vector, i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}
