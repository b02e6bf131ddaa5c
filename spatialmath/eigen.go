package spatialmath

import (
	"github.com/golang/geo/r3"
)

// powerIterations is enough for the well-separated spectra produced by
// point-cloud covariance matrices.
const powerIterations = 50

// SymMat3 is a symmetric 3x3 matrix stored in full.
type SymMat3 [3][3]float64

// NewCovarianceMatrix accumulates the covariance of points about their
// centroid.
func NewCovarianceMatrix(points []r3.Vector) SymMat3 {
	center := Centroid(points)
	var m SymMat3
	for _, p := range points {
		d := p.Sub(center)
		m[0][0] += d.X * d.X
		m[0][1] += d.X * d.Y
		m[0][2] += d.X * d.Z
		m[1][1] += d.Y * d.Y
		m[1][2] += d.Y * d.Z
		m[2][2] += d.Z * d.Z
	}
	m[1][0], m[2][0], m[2][1] = m[0][1], m[0][2], m[1][2]
	return m
}

// NewOuterProductSum accumulates the sum of outer products v vᵀ over the
// given vectors, typically surface normals.
func NewOuterProductSum(vectors []r3.Vector) SymMat3 {
	var m SymMat3
	for _, v := range vectors {
		m[0][0] += v.X * v.X
		m[0][1] += v.X * v.Y
		m[0][2] += v.X * v.Z
		m[1][1] += v.Y * v.Y
		m[1][2] += v.Y * v.Z
		m[2][2] += v.Z * v.Z
	}
	m[1][0], m[2][0], m[2][1] = m[0][1], m[0][2], m[1][2]
	return m
}

func (m SymMat3) apply(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// DominantEigen3 approximates the unit eigenvector of largest eigenvalue of
// a symmetric 3x3 matrix by power iteration. A zero vector and zero
// eigenvalue are returned when the iteration collapses, e.g. on the zero
// matrix.
func (m SymMat3) DominantEigen3() (r3.Vector, float64) {
	// Non-degenerate seed; a seed aligned with a null direction would stall.
	v := r3.Vector{X: 1, Y: 0.5, Z: 0.25}
	for i := 0; i < powerIterations; i++ {
		next := m.apply(v)
		norm := next.Norm()
		if norm < floatEpsilon {
			return r3.Vector{}, 0
		}
		v = next.Mul(1. / norm)
	}
	return v, v.Dot(m.apply(v))
}

// Eigen3 returns the three unit eigenvectors of a symmetric 3x3 matrix in
// descending eigenvalue order, forming a right-handed frame. The second
// vector comes from power iteration on the deflated matrix
// M' = M - λ₁ v₁ v₁ᵀ and the third is their cross product. When the deflated
// iteration collapses on a repeated eigenvalue, the second direction is chosen
// by Rayleigh quotient inside the plane perpendicular to v1.
func (m SymMat3) Eigen3() (v1, v2, v3 r3.Vector, ok bool) {
	v1, lambda1 := m.DominantEigen3()
	if v1.Norm() < floatEpsilon {
		return r3.Vector{}, r3.Vector{}, r3.Vector{}, false
	}
	deflated := m
	outer := [3]float64{v1.X, v1.Y, v1.Z}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			deflated[i][j] -= lambda1 * outer[i] * outer[j]
		}
	}
	v2, _ = deflated.DominantEigen3()
	// Re-orthogonalize against v1 to shed power-iteration drift.
	v2 = v2.Sub(v1.Mul(v1.Dot(v2)))
	if v2.Norm() < floatEpsilon {
		// Deflation collapses when the seed lands orthogonal to the
		// surviving eigenvector or the spectrum repeats.
		v2 = OrthogonalTo(v1)
	} else {
		v2 = v2.Normalize()
	}
	// Both remaining eigenvectors live in the plane perpendicular to v1.
	// Rank the candidate against its in-plane complement by Rayleigh
	// quotient so the smallest-eigenvalue direction always lands in v3.
	if alt := v1.Cross(v2); alt.Dot(m.apply(alt)) > v2.Dot(m.apply(v2)) {
		v2 = alt
	}
	v3 = v1.Cross(v2)
	return v1, v2, v3, true
}
