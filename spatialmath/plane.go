package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Plane is the locus n·x + d = 0 with |n| = 1.
type Plane struct {
	Normal r3.Vector
	Offset float64
}

// NewPlaneFromPointNormal builds the plane through a point with the given
// normal, which need not be unit length.
func NewPlaneFromPointNormal(point, normal r3.Vector) (Plane, error) {
	if normal.Norm() < floatEpsilon {
		return Plane{}, errors.New("plane normal has zero length")
	}
	n := normal.Normalize()
	return Plane{Normal: n, Offset: -n.Dot(point)}, nil
}

// NewPlaneFromPoints builds the plane through three non-collinear points.
func NewPlaneFromPoints(p0, p1, p2 r3.Vector) (Plane, error) {
	n := PlaneNormal(p0, p1, p2)
	if n.Norm() < floatEpsilon {
		return Plane{}, errors.New("points are collinear")
	}
	return Plane{Normal: n, Offset: -n.Dot(p0)}, nil
}

// Kind implements Primitive.
func (pl Plane) Kind() PrimitiveKind { return KindPlane }

// Distance returns the signed distance from the point to the plane.
func (pl Plane) Distance(p r3.Vector) float64 {
	return pl.Normal.Dot(p) + pl.Offset
}

// Flipped reverses the plane's orientation in place-free fashion.
func (pl Plane) Flipped() Plane {
	return Plane{Normal: pl.Normal.Mul(-1), Offset: -pl.Offset}
}

// Equation returns the coefficients [a b c d] of ax + by + cz + d = 0.
func (pl Plane) Equation() [4]float64 {
	return [4]float64{pl.Normal.X, pl.Normal.Y, pl.Normal.Z, pl.Offset}
}

// Project returns the closest point on the plane to p.
func (pl Plane) Project(p r3.Vector) r3.Vector {
	return p.Sub(pl.Normal.Mul(pl.Distance(p)))
}

// Reflect mirrors a point across the plane.
func (pl Plane) Reflect(p r3.Vector) r3.Vector {
	return p.Sub(pl.Normal.Mul(2 * pl.Distance(p)))
}

// Transformed moves the plane by a homogeneous transform. The anchor point
// -d·n is transformed and the normal rotated, so shear-free transforms keep
// the invariants intact.
func (pl Plane) Transformed(m mgl64.Mat4) Primitive {
	anchor := TransformPoint(m, pl.Normal.Mul(-pl.Offset))
	n := RotateVector(m, pl.Normal)
	if n.Norm() < floatEpsilon {
		return pl
	}
	n = n.Normalize()
	return Plane{Normal: n, Offset: -n.Dot(anchor)}
}

// AlmostEqual compares the planes within epsilon, treating the flipped
// orientation as equal.
func (pl Plane) AlmostEqual(other Plane, epsilon float64) bool {
	same := R3VectorAlmostEqual(pl.Normal, other.Normal, epsilon) && math.Abs(pl.Offset-other.Offset) < epsilon
	flip := other.Flipped()
	flipped := R3VectorAlmostEqual(pl.Normal, flip.Normal, epsilon) && math.Abs(pl.Offset-flip.Offset) < epsilon
	return same || flipped
}
