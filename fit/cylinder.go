package fit

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/reframe3d/scan2cad/spatialmath"
)

const minCylinderPoints = 6

// circle2D is an algebraic (Kasa) least-squares circle fit: solve
// x² + y² = Ax + By + C, center (A,B)/2, r² = C + |center|².
func circle2D(xs, ys []float64) (cx, cy, r float64, err error) {
	var m [3][3]float64
	var b [3]float64
	for i := range xs {
		x, y := xs[i], ys[i]
		row := [3]float64{x, y, 1}
		f := x*x + y*y
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				m[j][k] += row[j] * row[k]
			}
			b[j] += row[j] * f
		}
	}
	sol, err := spatialmath.SolveLinear3(m, b)
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "projected points are degenerate")
	}
	cx, cy = sol[0]/2, sol[1]/2
	rSq := sol[2] + cx*cx + cy*cy
	if rSq <= 0 || math.IsNaN(rSq) {
		return 0, 0, 0, errors.Errorf("circle fit produced invalid squared radius %f", rSq)
	}
	return cx, cy, math.Sqrt(rSq), nil
}

// cylinderWithAxis fits radius, midline, and height range given a fixed axis
// direction: project onto the axis-perpendicular plane, fit a 2D circle,
// lift the center back, and span the height by axial extents.
func cylinderWithAxis(points []r3.Vector, axis r3.Vector) (spatialmath.Cylinder, error) {
	if axis.Norm() < 1e-10 {
		return spatialmath.Cylinder{}, errors.New("cylinder axis estimate collapsed")
	}
	axis = axis.Normalize()
	center := spatialmath.Centroid(points)
	u := spatialmath.OrthogonalTo(axis)
	v := axis.Cross(u)

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		rel := p.Sub(center)
		xs[i] = rel.Dot(u)
		ys[i] = rel.Dot(v)
	}
	cx, cy, _, err := circle2D(xs, ys)
	if err != nil {
		return spatialmath.Cylinder{}, err
	}
	axisPoint := center.Add(u.Mul(cx)).Add(v.Mul(cy))

	// Mean radial distance is a steadier radius estimate than the algebraic
	// circle radius on noisy patches.
	radiusSum := 0.
	minProj, maxProj := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		rel := p.Sub(axisPoint)
		proj := rel.Dot(axis)
		minProj = math.Min(minProj, proj)
		maxProj = math.Max(maxProj, proj)
		radiusSum += rel.Sub(axis.Mul(proj)).Norm()
	}
	radius := radiusSum / float64(len(points))
	height := maxProj - minProj
	mid := axisPoint.Add(axis.Mul((minProj + maxProj) / 2))
	return spatialmath.NewCylinder(mid, axis, radius, height)
}

// cylinderAxisFromNormals exploits that cylinder surface normals are
// perpendicular to the axis: the axis is the smallest-eigenvalue direction
// of the accumulated normal outer products.
func cylinderAxisFromNormals(normals []r3.Vector) (r3.Vector, error) {
	_, _, axis, ok := spatialmath.NewOuterProductSum(normals).Eigen3()
	if !ok || axis.Norm() < 1e-10 {
		return r3.Vector{}, errors.New("normals are degenerate, cannot estimate axis")
	}
	return axis.Normalize(), nil
}

// Cylinder fits a finite cylinder. With per-point normals the axis comes
// straight from the normal distribution and RANSAC is skipped; otherwise
// random sextuples propose axes via their dominant covariance direction.
func Cylinder(points, normals []r3.Vector, cfg Config) Result {
	if len(points) < minCylinderPoints {
		return failure(len(points), errors.Errorf("cylinder fit needs at least %d points, got %d", minCylinderPoints, len(points)).Error())
	}
	if normals != nil && len(normals) != len(points) {
		return failure(len(points), errors.Errorf("normal count %d does not match point count %d", len(normals), len(points)).Error())
	}
	tau := cfg.threshold(diagonalOf(points))

	if normals != nil {
		axis, err := cylinderAxisFromNormals(normals)
		if err != nil {
			return failure(len(points), err.Error())
		}
		cyl, err := cylinderWithAxis(points, axis)
		if err != nil {
			return failure(len(points), err.Error())
		}
		cyl = refineCylinder(cyl, points, tau, cfg.refineIterations(DefaultRefineIterations))
		return evaluate(cyl, points, tau)
	}

	rng := cfg.rng()
	iterations := cfg.iterations(DefaultRANSACIterations)
	logger := cfg.logger()

	var best spatialmath.Cylinder
	bestInliers := -1
	bestRMS := math.Inf(1)
	for i := 0; i < iterations; i++ {
		if i%ransacBlock == 0 && cfg.cancelled(i, iterations) {
			return failure(len(points), "cancelled")
		}
		sample := gather(points, sampleDistinct(rng, len(points), minCylinderPoints))
		// Along-axis variance dominates on a cylindrical patch, so the
		// dominant covariance direction of the sextuple proposes the axis.
		axis, _ := spatialmath.NewCovarianceMatrix(sample).DominantEigen3()
		candidate, err := cylinderWithAxis(points, axis)
		if err != nil {
			continue
		}
		stats := evaluate(candidate, points, tau)
		if stats.Inliers > bestInliers || (stats.Inliers == bestInliers && stats.RMS < bestRMS) {
			best = candidate
			bestInliers = stats.Inliers
			bestRMS = stats.RMS
		}
	}
	if bestInliers < minCylinderPoints {
		return failure(len(points), "no cylinder candidate gathered enough inliers")
	}
	logger.Debugf("cylinder RANSAC kept candidate with %d/%d inliers", bestInliers, len(points))
	best = refineCylinder(best, points, tau, cfg.refineIterations(DefaultRefineIterations))
	return evaluate(best, points, tau)
}

// refineCylinder re-fits radius, midline, and height over the current
// inliers while holding the axis, re-selecting inliers each round.
func refineCylinder(cyl spatialmath.Cylinder, points []r3.Vector, tau float64, rounds int) spatialmath.Cylinder {
	for i := 0; i < rounds; i++ {
		inliers := gather(points, inlierIndices(cyl, points, tau))
		if len(inliers) < minCylinderPoints {
			break
		}
		next, err := cylinderWithAxis(inliers, cyl.Axis)
		if err != nil {
			break
		}
		cyl = next
	}
	return cyl
}
