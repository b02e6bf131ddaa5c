package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
)

// NewTransform assembles a 4x4 homogeneous transform from a rotation block
// and a translation.
func NewTransform(rot mgl64.Mat3, t r3.Vector) mgl64.Mat4 {
	m := mgl64.Ident4()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, rot.At(i, j))
		}
	}
	m.Set(0, 3, t.X)
	m.Set(1, 3, t.Y)
	m.Set(2, 3, t.Z)
	return m
}

// TransformPoint applies the full homogeneous transform to a point.
func TransformPoint(m mgl64.Mat4, p r3.Vector) r3.Vector {
	return r3.Vector{
		X: m.At(0, 0)*p.X + m.At(0, 1)*p.Y + m.At(0, 2)*p.Z + m.At(0, 3),
		Y: m.At(1, 0)*p.X + m.At(1, 1)*p.Y + m.At(1, 2)*p.Z + m.At(1, 3),
		Z: m.At(2, 0)*p.X + m.At(2, 1)*p.Y + m.At(2, 2)*p.Z + m.At(2, 3),
	}
}

// RotateVector applies only the linear block of the transform, for
// directions and normals.
func RotateVector(m mgl64.Mat4, v r3.Vector) r3.Vector {
	return r3.Vector{
		X: m.At(0, 0)*v.X + m.At(0, 1)*v.Y + m.At(0, 2)*v.Z,
		Y: m.At(1, 0)*v.X + m.At(1, 1)*v.Y + m.At(1, 2)*v.Z,
		Z: m.At(2, 0)*v.X + m.At(2, 1)*v.Y + m.At(2, 2)*v.Z,
	}
}

// RotationBlock extracts the upper-left 3x3 block.
func RotationBlock(m mgl64.Mat4) mgl64.Mat3 {
	var r mgl64.Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r.Set(i, j, m.At(i, j))
		}
	}
	return r
}

// Translation extracts the translation column.
func Translation(m mgl64.Mat4) r3.Vector {
	return r3.Vector{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)}
}

// ColumnScales returns the Euclidean lengths of the three columns of the
// linear block, the per-axis scale of the transform.
func ColumnScales(m mgl64.Mat4) r3.Vector {
	col := func(j int) float64 {
		return math.Sqrt(m.At(0, j)*m.At(0, j) + m.At(1, j)*m.At(1, j) + m.At(2, j)*m.At(2, j))
	}
	return r3.Vector{X: col(0), Y: col(1), Z: col(2)}
}

// AverageScale is the mean of the three column scales; isotropic primitives
// scale their radius by this when transformed.
func AverageScale(m mgl64.Mat4) float64 {
	s := ColumnScales(m)
	return (s.X + s.Y + s.Z) / 3.
}

// DecomposeTransform splits a homogeneous transform into translation, a
// unit-column rotation block, and per-axis scale.
func DecomposeTransform(m mgl64.Mat4) (r3.Vector, mgl64.Mat3, r3.Vector) {
	scale := ColumnScales(m)
	rot := RotationBlock(m)
	divisors := [3]float64{scale.X, scale.Y, scale.Z}
	for j := 0; j < 3; j++ {
		if divisors[j] < floatEpsilon {
			continue
		}
		for i := 0; i < 3; i++ {
			rot.Set(i, j, rot.At(i, j)/divisors[j])
		}
	}
	return Translation(m), rot, scale
}

// TransformAlmostEqual compares transforms entrywise within epsilon.
func TransformAlmostEqual(a, b mgl64.Mat4, epsilon float64) bool {
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if math.Abs(a.At(i, j)-b.At(i, j)) > epsilon {
				return false
			}
		}
	}
	return true
}

// DeltaFromIdentity is the Frobenius norm of m - I, used as the step
// magnitude of an incremental transform.
func DeltaFromIdentity(m mgl64.Mat4) float64 {
	ident := mgl64.Ident4()
	sum := 0.
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			d := m.At(i, j) - ident.At(i, j)
			sum += d * d
		}
	}
	return math.Sqrt(sum)
}
