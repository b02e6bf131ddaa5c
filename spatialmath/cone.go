package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Cone is a finite right circular cone. Apex is the tip, Axis the unit
// direction from apex toward the base, HalfAngle the angle between axis and
// generatrix in radians, Height the apex-to-base distance. cosTheta and
// sinTheta cache the half-angle trig and must be refreshed through
// SetHalfAngle.
type Cone struct {
	Apex      r3.Vector
	Axis      r3.Vector
	HalfAngle float64
	Height    float64

	cosTheta float64
	sinTheta float64
}

// NewCone validates parameters, normalizes the axis, and fills the cached
// trig values.
func NewCone(apex, axis r3.Vector, halfAngle, height float64) (Cone, error) {
	if axis.Norm() < floatEpsilon {
		return Cone{}, errors.New("cone axis has zero length")
	}
	if halfAngle <= 0 || halfAngle >= math.Pi/2 {
		return Cone{}, errors.Errorf("cone half-angle must be in (0, pi/2), got %f", halfAngle)
	}
	if !(height > 0) {
		return Cone{}, errors.Errorf("cone height must be positive, got %f", height)
	}
	c := Cone{Apex: apex, Axis: axis.Normalize(), Height: height}
	c.SetHalfAngle(halfAngle)
	return c, nil
}

// SetHalfAngle updates the half-angle and its cached cosine and sine.
func (c *Cone) SetHalfAngle(theta float64) {
	c.HalfAngle = theta
	c.cosTheta = math.Cos(theta)
	c.sinTheta = math.Sin(theta)
}

// CosTheta returns the cached cosine of the half-angle.
func (c Cone) CosTheta() float64 { return c.cosTheta }

// SinTheta returns the cached sine of the half-angle.
func (c Cone) SinTheta() float64 { return c.sinTheta }

// Kind implements Primitive.
func (c Cone) Kind() PrimitiveKind { return KindCone }

// Distance returns the distance from a point to the cone surface. Behind the
// apex it is the distance to the apex; beyond the base cap but within the
// base radius it is the axial overshoot; otherwise it is the signed distance
// along the outward lateral normal.
func (c Cone) Distance(p r3.Vector) float64 {
	rel := p.Sub(c.Apex)
	axial := rel.Dot(c.Axis)
	if axial < 0 {
		return rel.Norm()
	}
	radial := rel.Sub(c.Axis.Mul(axial)).Norm()
	if axial > c.Height && radial <= c.Height*math.Tan(c.HalfAngle) {
		return axial - c.Height
	}
	return (radial - axial*math.Tan(c.HalfAngle)) * c.cosTheta
}

// BaseCenter returns the center of the base cap.
func (c Cone) BaseCenter() r3.Vector {
	return c.Apex.Add(c.Axis.Mul(c.Height))
}

// BaseRadius returns the base cap radius implied by height and half-angle.
func (c Cone) BaseRadius() float64 {
	return c.Height * math.Tan(c.HalfAngle)
}

// Transformed moves apex and axis; height scales by the mean column length
// of the linear block. The half-angle is scale invariant.
func (c Cone) Transformed(m mgl64.Mat4) Primitive {
	axis := RotateVector(m, c.Axis)
	if axis.Norm() < floatEpsilon {
		axis = c.Axis
	} else {
		axis = axis.Normalize()
	}
	out := Cone{
		Apex:   TransformPoint(m, c.Apex),
		Axis:   axis,
		Height: c.Height * AverageScale(m),
	}
	out.SetHalfAngle(c.HalfAngle)
	return out
}
