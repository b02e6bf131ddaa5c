package align

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/reframe3d/scan2cad/pointcloud"
	"github.com/reframe3d/scan2cad/spatialmath"
)

// AlignPoints computes the weighted least-squares rigid transform from at
// least three non-collinear labelled correspondences and, when apply is set,
// multiplies it into the mesh. Pair weights of zero are honored; a nil mesh
// is a pure computation.
func AlignPoints(mesh *pointcloud.BasicMesh, pairs []PointPair, apply bool) AlignmentResult {
	if len(pairs) < 3 {
		return alignmentFailure("need at least 3 point pairs")
	}
	src := make([]r3.Vector, len(pairs))
	dst := make([]r3.Vector, len(pairs))
	weights := make([]float64, len(pairs))
	for i, p := range pairs {
		src[i] = p.Source
		dst[i] = p.Target
		weights[i] = p.Weight
	}
	transform, err := spatialmath.KabschFit(src, dst, weights)
	if err != nil {
		return alignmentFailure(err.Error())
	}

	res := newAlignmentResult(transform)
	sumSq := 0.
	for i := range pairs {
		residual := spatialmath.TransformPoint(transform, src[i]).Sub(dst[i]).Norm()
		sumSq += residual * residual
		if residual > res.MaxError {
			res.MaxError = residual
		}
	}
	res.RMS = math.Sqrt(sumSq / float64(len(pairs)))

	if apply && mesh != nil {
		mesh.ApplyTransform(transform)
	}
	return res
}
