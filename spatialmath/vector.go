// Package spatialmath defines spatial mathematical operations and the
// parametric primitives recovered from scanned geometry.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
)

const floatEpsilon = 1e-10

// PlaneNormal returns the unit normal of the plane through three points,
// oriented by the right-hand rule on (p1-p0, p2-p0).
func PlaneNormal(p0, p1, p2 r3.Vector) r3.Vector {
	cross := p1.Sub(p0).Cross(p2.Sub(p0))
	if cross.Norm() < floatEpsilon {
		return r3.Vector{}
	}
	return cross.Normalize()
}

// OrthogonalTo returns an arbitrary unit vector perpendicular to v.
func OrthogonalTo(v r3.Vector) r3.Vector {
	anchor := r3.Vector{X: 1}
	if math.Abs(v.Normalize().Dot(anchor)) > 0.9 {
		anchor = r3.Vector{Y: 1}
	}
	return v.Cross(anchor).Normalize()
}

// R3VectorAlmostEqual compares two vectors componentwise within epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return math.Abs(a.X-b.X) < epsilon && math.Abs(a.Y-b.Y) < epsilon && math.Abs(a.Z-b.Z) < epsilon
}

// Centroid returns the arithmetic mean of the given points, or the zero
// vector for an empty slice.
func Centroid(points []r3.Vector) r3.Vector {
	if len(points) == 0 {
		return r3.Vector{}
	}
	sum := r3.Vector{}
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1. / float64(len(points)))
}
