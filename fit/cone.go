package fit

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/reframe3d/scan2cad/spatialmath"
	"github.com/reframe3d/scan2cad/utils"
)

const (
	minConePoints = 6

	// Half-angle fallback when no point has positive axial projection.
	defaultConeHalfAngle = 0.5
)

// coneWithAxis fits apex, height, and half-angle given a fixed axis: the
// apex sits at the minimum axial projection through the centroid, and the
// half-angle is the mean of atan2(radial, axial) over points ahead of the
// apex.
func coneWithAxis(points []r3.Vector, axis r3.Vector) (spatialmath.Cone, error) {
	if axis.Norm() < 1e-10 {
		return spatialmath.Cone{}, errors.New("cone axis estimate collapsed")
	}
	axis = axis.Normalize()
	center := spatialmath.Centroid(points)
	minProj, maxProj := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		proj := p.Sub(center).Dot(axis)
		minProj = math.Min(minProj, proj)
		maxProj = math.Max(maxProj, proj)
	}
	apex := center.Add(axis.Mul(minProj))
	height := maxProj - minProj
	theta := coneHalfAngle(points, apex, axis)
	return spatialmath.NewCone(apex, axis, theta, height)
}

func coneHalfAngle(points []r3.Vector, apex, axis r3.Vector) float64 {
	sum, n := 0., 0
	for _, p := range points {
		rel := p.Sub(apex)
		axial := rel.Dot(axis)
		if axial <= 0 {
			continue
		}
		radial := rel.Sub(axis.Mul(axial)).Norm()
		sum += math.Atan2(radial, axial)
		n++
	}
	if n == 0 {
		return defaultConeHalfAngle
	}
	theta := sum / float64(n)
	// Clamp into the open interval the cone invariant demands.
	return math.Min(math.Max(theta, 1e-6), math.Pi/2-1e-6)
}

// coneAxisCandidates exploits that cone surface normals hold a constant
// angle with the axis, so the normal outer products concentrate along it.
// Whether the axis shows up as the largest or the smallest eigen-direction
// depends on the half-angle (the crossover sits near 35 degrees), so both
// extremes are returned and the caller keeps the better fit.
func coneAxisCandidates(normals []r3.Vector) ([]r3.Vector, error) {
	v1, _, v3, ok := spatialmath.NewOuterProductSum(normals).Eigen3()
	if !ok || v1.Norm() < 1e-10 {
		return nil, errors.New("normals are degenerate, cannot estimate axis")
	}
	return []r3.Vector{v1, v3}, nil
}

// Cone fits a finite cone. With normals the axis comes from the normal
// distribution directly; otherwise a RANSAC loop proposes axes from random
// sextuples. Either path finishes with apex-shift refinement.
func Cone(points, normals []r3.Vector, cfg Config) Result {
	if len(points) < minConePoints {
		return failure(len(points), errors.Errorf("cone fit needs at least %d points, got %d", minConePoints, len(points)).Error())
	}
	if normals != nil && len(normals) != len(points) {
		return failure(len(points), errors.Errorf("normal count %d does not match point count %d", len(normals), len(points)).Error())
	}
	tau := cfg.threshold(diagonalOf(points))

	if normals != nil {
		axes, err := coneAxisCandidates(normals)
		if err != nil {
			return failure(len(points), err.Error())
		}
		best := failure(len(points), "no cone axis candidate produced a fit")
		for _, axis := range axes {
			// The eigenvector sign is arbitrary but the apex end is not.
			for _, signed := range []r3.Vector{axis, axis.Mul(-1)} {
				cone, err := coneWithAxis(points, signed)
				if err != nil {
					continue
				}
				cone = refineCone(cone, points, cfg.refineIterations(DefaultConeRefinements))
				stats := evaluate(cone, points, tau)
				if !best.Success || stats.RMS < best.RMS {
					best = stats
				}
			}
		}
		if best.Success {
			cfg.logger().Debugf("cone fit kept half-angle %.2f degrees with %d/%d inliers",
				utils.RadToDeg(best.Primitive.(spatialmath.Cone).HalfAngle), best.Inliers, len(points))
		}
		return best
	}

	rng := cfg.rng()
	iterations := cfg.iterations(DefaultRANSACIterations)

	var best spatialmath.Cone
	bestInliers := -1
	bestRMS := math.Inf(1)
	for i := 0; i < iterations; i++ {
		if i%ransacBlock == 0 && cfg.cancelled(i, iterations) {
			return failure(len(points), "cancelled")
		}
		sample := gather(points, sampleDistinct(rng, len(points), minConePoints))
		axis, _ := spatialmath.NewCovarianceMatrix(sample).DominantEigen3()
		candidate, err := coneWithAxis(points, axis)
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
	if bestInliers < minConePoints {
		return failure(len(points), "no cone candidate gathered enough inliers")
	}
	best = refineCone(best, points, cfg.refineIterations(DefaultConeRefinements))
	return evaluate(best, points, tau)
}

// refineCone alternates an apex shift along the axis, sized so the mean
// signed surface distance cancels, with a re-fit of height and half-angle.
func refineCone(cone spatialmath.Cone, points []r3.Vector, rounds int) spatialmath.Cone {
	for i := 0; i < rounds; i++ {
		meanDist := 0.
		for _, p := range points {
			meanDist += cone.Distance(p)
		}
		meanDist /= float64(len(points))
		if cone.SinTheta() > 1e-10 {
			// Pulling the apex back by d/sinθ widens the cone enough to
			// absorb a mean lateral distance d.
			cone.Apex = cone.Apex.Sub(cone.Axis.Mul(meanDist / cone.SinTheta()))
		}

		maxProj := 0.
		for _, p := range points {
			proj := p.Sub(cone.Apex).Dot(cone.Axis)
			maxProj = math.Max(maxProj, proj)
		}
		if maxProj > 0 {
			cone.Height = maxProj
		}
		cone.SetHalfAngle(coneHalfAngle(points, cone.Apex, cone.Axis))
	}
	return cone
}
