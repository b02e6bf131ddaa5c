package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Sphere has a center and a positive radius.
type Sphere struct {
	Center r3.Vector
	Radius float64
}

// NewSphere validates the radius before constructing.
func NewSphere(center r3.Vector, radius float64) (Sphere, error) {
	if !(radius > 0) || math.IsInf(radius, 0) {
		return Sphere{}, errors.Errorf("sphere radius must be finite and positive, got %f", radius)
	}
	return Sphere{Center: center, Radius: radius}, nil
}

// Kind implements Primitive.
func (s Sphere) Kind() PrimitiveKind { return KindSphere }

// Distance returns the signed distance to the sphere surface, negative
// inside.
func (s Sphere) Distance(p r3.Vector) float64 {
	return p.Sub(s.Center).Norm() - s.Radius
}

// Transformed moves the center and scales the radius by the mean column
// length of the linear block.
func (s Sphere) Transformed(m mgl64.Mat4) Primitive {
	return Sphere{
		Center: TransformPoint(m, s.Center),
		Radius: s.Radius * AverageScale(m),
	}
}
