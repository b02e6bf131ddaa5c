package spatialmath

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

// PrimitiveKind tags the concrete type carried by a fit result.
type PrimitiveKind int

// The four parametric primitives recoverable from scan samples.
const (
	KindPlane PrimitiveKind = iota
	KindSphere
	KindCylinder
	KindCone
)

func (k PrimitiveKind) String() string {
	switch k {
	case KindPlane:
		return "plane"
	case KindSphere:
		return "sphere"
	case KindCylinder:
		return "cylinder"
	case KindCone:
		return "cone"
	}
	return "unknown"
}

// Primitive is a parametric surface recovered from scanned points. Distance
// is signed: positive outside the surface, negative inside where the notion
// applies. Transformed returns a copy moved by a homogeneous transform,
// never mutating the receiver.
type Primitive interface {
	Kind() PrimitiveKind
	Distance(p r3.Vector) float64
	Transformed(m mgl64.Mat4) Primitive
}
