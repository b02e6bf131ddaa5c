package symmetry

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/reframe3d/scan2cad/pointcloud"
	"github.com/reframe3d/scan2cad/spatialmath"
	"github.com/reframe3d/scan2cad/utils"
)

// DetectMulti returns up to k mirror planes sorted by quality, refining each
// candidate and rejecting those whose normal nearly coincides with an
// already-accepted one.
func DetectMulti(sample pointcloud.MeshSample, k int, cfg Config) []Result {
	if k <= 0 {
		return nil
	}
	if err := cfg.CheckValid(); err != nil {
		return []Result{{Reason: err.Error()}}
	}
	points := sample.Vertices()
	if len(points) < 2 {
		return nil
	}
	diag := sample.MetaData().BoundingBoxDiagonal()
	tau := cfg.relativeThreshold() * diag
	tree := pointcloud.NewKDTree(points, nil)

	var results []Result
	for _, candidate := range candidates(points) {
		plane, s := refine(candidate, points, tree, tau, diag, cfg.refineRounds(), cfg.epsilon())
		results = append(results, Result{
			Success:      s.matched > 0,
			Plane:        plane,
			Quality:      s.quality,
			AvgDeviation: s.avgDev,
			MaxDeviation: s.maxDev,
			MatchedPairs: s.matched / 2,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Quality > results[j].Quality })

	var accepted []Result
	for _, res := range results {
		if !res.Success {
			continue
		}
		duplicate := false
		for _, kept := range accepted {
			if math.Abs(res.Plane.Normal.Dot(kept.Plane.Normal)) > duplicateNormalDot {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		accepted = append(accepted, res)
		if len(accepted) == k {
			break
		}
	}
	return accepted
}

// RotationalFold tests n-fold rotational symmetry about the axis through
// center: points are rotated by 2π/n and the fraction matching the original
// sample within τ is returned.
func RotationalFold(sample pointcloud.MeshSample, axis, center r3.Vector, n int, cfg Config) (float64, error) {
	if n < 2 {
		return 0, errors.Errorf("fold count must be at least 2, got %d", n)
	}
	if axis.Norm() < 1e-10 {
		return 0, errors.New("rotation axis has zero length")
	}
	if err := cfg.CheckValid(); err != nil {
		return 0, err
	}
	points := sample.Vertices()
	if len(points) == 0 {
		return 0, errors.New("sample has no vertices")
	}
	tau := cfg.relativeThreshold() * sample.MetaData().BoundingBoxDiagonal()
	tree := pointcloud.NewKDTree(points, nil)

	unit := axis.Normalize()
	rot := mgl64.HomogRotate3D(utils.DegToRad(360/float64(n)), mgl64.Vec3{unit.X, unit.Y, unit.Z})

	matched := 0
	for _, p := range points {
		rotated := spatialmath.TransformPoint(rot, p.Sub(center)).Add(center)
		if idx, _, _ := tree.NearestNeighbor(rotated, tau); idx >= 0 {
			matched++
		}
	}
	return float64(matched) / float64(len(points)), nil
}
