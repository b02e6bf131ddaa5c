package spatialmath

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// collinear reports whether all points lie on one line within tolerance.
func collinear(points []r3.Vector) bool {
	if len(points) < 3 {
		return true
	}
	base := points[0]
	var dir r3.Vector
	for _, p := range points[1:] {
		d := p.Sub(base)
		if d.Norm() < floatEpsilon {
			continue
		}
		if dir.Norm() < floatEpsilon {
			dir = d.Normalize()
			continue
		}
		if d.Normalize().Cross(dir).Norm() > 1e-8 {
			return false
		}
	}
	return true
}

// KabschFit computes the weighted least-squares rigid transform mapping src
// onto dst via SVD of the cross-covariance (Kabsch/Umeyama). The returned
// rotation is always proper (determinant +1). nil weights means uniform. On
// failure the identity transform is returned alongside the error.
func KabschFit(src, dst []r3.Vector, weights []float64) (mgl64.Mat4, error) {
	ident := mgl64.Ident4()
	if len(src) != len(dst) {
		return ident, errors.Errorf("point sequences differ in length: %d vs %d", len(src), len(dst))
	}
	if len(src) < 3 {
		return ident, errors.Errorf("need at least 3 point pairs, got %d", len(src))
	}
	if weights != nil && len(weights) != len(src) {
		return ident, errors.Errorf("weights length %d does not match %d point pairs", len(weights), len(src))
	}
	if collinear(src) || collinear(dst) {
		return ident, errors.New("point pairs are collinear, rotation is underdetermined")
	}

	totalWeight := 0.
	srcCenter, dstCenter := r3.Vector{}, r3.Vector{}
	for i := range src {
		w := 1.
		if weights != nil {
			w = weights[i]
			if w < 0 {
				return ident, errors.Errorf("negative weight %f at pair %d", w, i)
			}
		}
		totalWeight += w
		srcCenter = srcCenter.Add(src[i].Mul(w))
		dstCenter = dstCenter.Add(dst[i].Mul(w))
	}
	if totalWeight < floatEpsilon {
		return ident, errors.New("total weight is zero")
	}
	srcCenter = srcCenter.Mul(1. / totalWeight)
	dstCenter = dstCenter.Mul(1. / totalWeight)

	h := mat.NewDense(3, 3, nil)
	for i := range src {
		w := 1.
		if weights != nil {
			w = weights[i]
		}
		s := src[i].Sub(srcCenter)
		d := dst[i].Sub(dstCenter)
		sv := [3]float64{s.X, s.Y, s.Z}
		dv := [3]float64{d.X, d.Y, d.Z}
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				h.Set(r, c, h.At(r, c)+w*sv[r]*dv[c])
			}
		}
	}

	var svd mat.SVD
	if !svd.Factorize(h, mat.SVDFull) {
		return ident, errors.New("SVD of cross-covariance failed to converge")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// Reflection correction: R = V diag(1,1,det(V Uᵀ)) Uᵀ.
	var vut mat.Dense
	vut.Mul(&v, u.T())
	d := mat.Det(&vut)
	corr := mat.NewDiagDense(3, []float64{1, 1, d})
	var rot mat.Dense
	rot.Mul(&v, corr)
	rot.Mul(&rot, u.T())

	var rotBlock mgl64.Mat3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rotBlock.Set(i, j, rot.At(i, j))
		}
	}
	rotated := r3.Vector{
		X: rot.At(0, 0)*srcCenter.X + rot.At(0, 1)*srcCenter.Y + rot.At(0, 2)*srcCenter.Z,
		Y: rot.At(1, 0)*srcCenter.X + rot.At(1, 1)*srcCenter.Y + rot.At(1, 2)*srcCenter.Z,
		Z: rot.At(2, 0)*srcCenter.X + rot.At(2, 1)*srcCenter.Y + rot.At(2, 2)*srcCenter.Z,
	}
	return NewTransform(rotBlock, dstCenter.Sub(rotated)), nil
}
