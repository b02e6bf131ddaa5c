package fit

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/reframe3d/scan2cad/pointcloud"
	"github.com/reframe3d/scan2cad/spatialmath"
)

const minPlanePoints = 3

// planeLeastSquares fits a plane by taking the smallest-eigenvalue direction
// of the centered covariance as the normal.
func planeLeastSquares(points []r3.Vector) (spatialmath.Plane, error) {
	if len(points) < minPlanePoints {
		return spatialmath.Plane{}, errors.Errorf("plane fit needs at least %d points, got %d", minPlanePoints, len(points))
	}
	cov := spatialmath.NewCovarianceMatrix(points)
	_, _, normal, ok := cov.Eigen3()
	if !ok || normal.Norm() == 0 {
		return spatialmath.Plane{}, errors.New("degenerate covariance, points may be coincident")
	}
	return spatialmath.NewPlaneFromPointNormal(spatialmath.Centroid(points), normal)
}

// Plane fits a plane to the points in the least-squares sense.
func Plane(points []r3.Vector, cfg Config) Result {
	plane, err := planeLeastSquares(points)
	if err != nil {
		return failure(len(points), err.Error())
	}
	return evaluate(plane, points, cfg.threshold(diagonalOf(points)))
}

// PlaneRANSAC fits a plane robustly: repeatedly form a candidate from three
// random points, keep the candidate with the most inliers, then finalize by
// least-squares over the best inlier set.
func PlaneRANSAC(points []r3.Vector, cfg Config) Result {
	if len(points) < minPlanePoints {
		return failure(len(points), errors.Errorf("plane fit needs at least %d points, got %d", minPlanePoints, len(points)).Error())
	}
	rng := cfg.rng()
	tau := cfg.threshold(diagonalOf(points))
	iterations := cfg.iterations(DefaultPlaneIterations)

	var best spatialmath.Plane
	bestInliers := 0
	for i := 0; i < iterations; i++ {
		if i%ransacBlock == 0 && cfg.cancelled(i, iterations) {
			return failure(len(points), "cancelled")
		}
		idx := sampleDistinct(rng, len(points), 3)
		candidate, err := spatialmath.NewPlaneFromPoints(points[idx[0]], points[idx[1]], points[idx[2]])
		if err != nil {
			continue
		}
		inliers := len(inlierIndices(candidate, points, tau))
		if inliers > bestInliers {
			best = candidate
			bestInliers = inliers
		}
	}
	if bestInliers < minPlanePoints {
		return failure(len(points), "no plane candidate gathered enough inliers")
	}
	refined, err := planeLeastSquares(gather(points, inlierIndices(best, points, tau)))
	if err != nil || len(inlierIndices(refined, points, tau)) < bestInliers {
		// The inlier re-fit can degenerate or drift when inliers are
		// nearly collinear; the RANSAC candidate stands.
		refined = best
	}
	return evaluate(refined, points, tau)
}

// PlaneFromMeshFaces fits a plane to the vertices of the selected faces. The
// fitted normal is flipped when it disagrees in sign with the average face
// normal, so the reported orientation is consistent with the surface.
func PlaneFromMeshFaces(mesh pointcloud.MeshSample, faces []int, cfg Config) Result {
	if len(faces) == 0 {
		return failure(0, "no faces selected")
	}
	vertices := mesh.Vertices()
	seen := make(map[int]bool)
	var points []r3.Vector
	avgNormal := r3.Vector{}
	for _, f := range faces {
		if f < 0 || f >= mesh.FaceCount() {
			return failure(0, errors.Errorf("face index %d out of range [0, %d)", f, mesh.FaceCount()).Error())
		}
		for _, vi := range mesh.Faces()[f] {
			if !seen[vi] {
				seen[vi] = true
				points = append(points, vertices[vi])
			}
		}
		avgNormal = avgNormal.Add(mesh.FaceNormal(f))
	}
	plane, err := planeLeastSquares(points)
	if err != nil {
		return failure(len(points), err.Error())
	}
	if plane.Normal.Dot(avgNormal) < 0 {
		plane = plane.Flipped()
	}
	return evaluate(plane, points, cfg.threshold(mesh.MetaData().BoundingBoxDiagonal()))
}

// FindPlanes extracts planes largest-first: segment the best RANSAC plane,
// remove its inliers, and repeat until a segment falls under minPoints.
func FindPlanes(points []r3.Vector, cfg Config, minPoints int) ([]spatialmath.Plane, []r3.Vector) {
	var planes []spatialmath.Plane
	remaining := append([]r3.Vector(nil), points...)
	for {
		res := PlaneRANSAC(remaining, cfg)
		if !res.Success || res.Inliers < minPoints {
			break
		}
		plane := res.Primitive.(spatialmath.Plane)
		planes = append(planes, plane)
		tau := cfg.threshold(diagonalOf(remaining))
		inliers := make(map[int]bool)
		for _, idx := range inlierIndices(plane, remaining, tau) {
			inliers[idx] = true
		}
		var rest []r3.Vector
		for i, p := range remaining {
			if !inliers[i] {
				rest = append(rest, p)
			}
		}
		if len(rest) == len(remaining) {
			// Nothing removed; a further pass would loop forever.
			break
		}
		remaining = rest
		if len(remaining) < minPoints {
			break
		}
	}
	return planes, remaining
}

// SplitByPlane partitions points into those strictly above (signed distance
// > 0) and strictly below the plane. Points exactly on the plane land in
// neither.
func SplitByPlane(points []r3.Vector, plane spatialmath.Plane) (above, below []r3.Vector) {
	for _, p := range points {
		d := plane.Distance(p)
		switch {
		case d > 0:
			above = append(above, p)
		case d < 0:
			below = append(below, p)
		}
	}
	return above, below
}
