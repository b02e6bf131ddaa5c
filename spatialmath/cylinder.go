package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Cylinder is a finite capped cylinder. Center is the midpoint of the height
// range along the unit Axis.
type Cylinder struct {
	Center r3.Vector
	Axis   r3.Vector
	Radius float64
	Height float64
}

// NewCylinder validates dimensions and normalizes the axis.
func NewCylinder(center, axis r3.Vector, radius, height float64) (Cylinder, error) {
	if axis.Norm() < floatEpsilon {
		return Cylinder{}, errors.New("cylinder axis has zero length")
	}
	if !(radius > 0) || !(height > 0) {
		return Cylinder{}, errors.Errorf("cylinder dimensions must be positive, got radius %f height %f", radius, height)
	}
	return Cylinder{Center: center, Axis: axis.Normalize(), Radius: radius, Height: height}, nil
}

// Kind implements Primitive.
func (c Cylinder) Kind() PrimitiveKind { return KindCylinder }

// Distance returns the radial distance to the lateral surface, negative
// inside. Caps are ignored; fitting treats the cylinder as its lateral
// surface.
func (c Cylinder) Distance(p r3.Vector) float64 {
	rel := p.Sub(c.Center)
	axial := rel.Dot(c.Axis)
	radial := rel.Sub(c.Axis.Mul(axial))
	return radial.Norm() - c.Radius
}

// Transformed moves center and axis; radius and height scale by the mean
// column length of the linear block.
func (c Cylinder) Transformed(m mgl64.Mat4) Primitive {
	axis := RotateVector(m, c.Axis)
	if axis.Norm() < floatEpsilon {
		axis = c.Axis
	} else {
		axis = axis.Normalize()
	}
	scale := AverageScale(m)
	return Cylinder{
		Center: TransformPoint(m, c.Center),
		Axis:   axis,
		Radius: c.Radius * scale,
		Height: c.Height * scale,
	}
}

// EndPoints returns the two cap centers.
func (c Cylinder) EndPoints() (r3.Vector, r3.Vector) {
	half := c.Axis.Mul(c.Height / 2)
	return c.Center.Sub(half), c.Center.Add(half)
}

// AlmostEqual treats the flipped axis as the same cylinder.
func (c Cylinder) AlmostEqual(other Cylinder, epsilon float64) bool {
	return R3VectorAlmostEqual(c.Center, other.Center, epsilon) &&
		math.Abs(math.Abs(c.Axis.Dot(other.Axis))-1) < epsilon &&
		math.Abs(c.Radius-other.Radius) < epsilon &&
		math.Abs(c.Height-other.Height) < epsilon
}
