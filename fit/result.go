package fit

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/reframe3d/scan2cad/spatialmath"
)

// Result is the outcome of a single primitive fit. On failure Primitive is
// nil and Reason says why.
type Result struct {
	Success     bool
	Primitive   spatialmath.Primitive
	RMS         float64
	MaxError    float64
	Inliers     int
	InlierRatio float64
	Confidence  float64
	PointCount  int
	Reason      string
}

func failure(pointCount int, reason string) Result {
	return Result{PointCount: pointCount, Reason: reason}
}

// confidence maps fit statistics to a user-facing score in [0,1]:
// inlierRatio · τ/(τ+RMS), with a 1.1x bonus above 0.9 inlier ratio.
func confidence(inlierRatio, rms, tau float64) float64 {
	if tau <= 0 {
		return 0
	}
	c := inlierRatio * tau / (tau + rms)
	if inlierRatio > 0.9 {
		c *= 1.1
	}
	return math.Min(1, c)
}

// evaluate fills the shared error statistics for a fitted primitive against
// the points it was fitted to, with inliers counted under tau.
func evaluate(prim spatialmath.Primitive, points []r3.Vector, tau float64) Result {
	res := Result{
		Success:    true,
		Primitive:  prim,
		PointCount: len(points),
	}
	if len(points) == 0 {
		return res
	}
	sumSq := 0.
	for _, p := range points {
		d := math.Abs(prim.Distance(p))
		sumSq += d * d
		if d > res.MaxError {
			res.MaxError = d
		}
		if d <= tau {
			res.Inliers++
		}
	}
	res.RMS = math.Sqrt(sumSq / float64(len(points)))
	res.InlierRatio = float64(res.Inliers) / float64(len(points))
	res.Confidence = confidence(res.InlierRatio, res.RMS, tau)
	return res
}

// inlierIndices returns the indices of points within tau of the primitive.
func inlierIndices(prim spatialmath.Primitive, points []r3.Vector, tau float64) []int {
	var out []int
	for i, p := range points {
		if math.Abs(prim.Distance(p)) <= tau {
			out = append(out, i)
		}
	}
	return out
}

func gather(points []r3.Vector, indices []int) []r3.Vector {
	out := make([]r3.Vector, len(indices))
	for i, idx := range indices {
		out[i] = points[idx]
	}
	return out
}
