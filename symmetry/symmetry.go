// Package symmetry detects planes of mirror symmetry in point samples, with
// a multi-plane variant and an n-fold rotational symmetry check.
package symmetry

import (
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/reframe3d/scan2cad/pointcloud"
	"github.com/reframe3d/scan2cad/spatialmath"
)

// Detection defaults.
const (
	DefaultRelativeThreshold = 0.02
	DefaultRefineRounds      = 20
	DefaultEpsilon           = 0.05
	epsilonShrink            = 0.8

	// Normals closer than this dot product are the same mirror plane for
	// dedup purposes.
	duplicateNormalDot = 0.95
)

// Config parameterizes symmetry detection. The zero value selects defaults.
type Config struct {
	// RelativeThreshold scales the bounding-box diagonal into the match
	// tolerance τ; 0 selects DefaultRelativeThreshold.
	RelativeThreshold float64

	// RefineRounds bounds coordinate-descent refinement; 0 selects
	// DefaultRefineRounds.
	RefineRounds int

	// Epsilon is the initial perturbation step, shrunk by 0.8 per round;
	// 0 selects DefaultEpsilon. Normal components are perturbed by ε and
	// the plane offset by ε scaled to the bounding-box diagonal.
	Epsilon float64

	Logger golog.Logger
}

// CheckValid reports every invalid field at once.
func (cfg Config) CheckValid() error {
	var err error
	if cfg.RelativeThreshold < 0 {
		err = multierr.Append(err, errors.Errorf("relative threshold must be non-negative, got %f", cfg.RelativeThreshold))
	}
	if cfg.RefineRounds < 0 {
		err = multierr.Append(err, errors.Errorf("refine rounds must be non-negative, got %d", cfg.RefineRounds))
	}
	if cfg.Epsilon < 0 {
		err = multierr.Append(err, errors.Errorf("epsilon must be non-negative, got %f", cfg.Epsilon))
	}
	return err
}

func (cfg Config) relativeThreshold() float64 {
	if cfg.RelativeThreshold > 0 {
		return cfg.RelativeThreshold
	}
	return DefaultRelativeThreshold
}

func (cfg Config) refineRounds() int {
	if cfg.RefineRounds > 0 {
		return cfg.RefineRounds
	}
	return DefaultRefineRounds
}

func (cfg Config) epsilon() float64 {
	if cfg.Epsilon > 0 {
		return cfg.Epsilon
	}
	return DefaultEpsilon
}

func (cfg Config) logger() golog.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return golog.Global()
}

// Result reports one detected mirror plane. Quality is the matched fraction
// of reflected points; MatchedPairs counts unique pairs (each match is seen
// from both sides).
type Result struct {
	Success      bool
	Plane        spatialmath.Plane
	Quality      float64
	AvgDeviation float64
	MaxDeviation float64
	MatchedPairs int
	Reason       string
}

// planeScore holds the match statistics of one candidate plane.
type planeScore struct {
	quality float64
	avgDev  float64
	maxDev  float64
	matched int
}

// score reflects every point across the plane and matches the reflections
// against the sample within tau.
func score(plane spatialmath.Plane, points []r3.Vector, tree *pointcloud.KDTree, tau float64) planeScore {
	var s planeScore
	devSum := 0.
	for _, p := range points {
		_, dist, _ := tree.NearestNeighbor(plane.Reflect(p), tau)
		if math.IsInf(dist, 1) {
			continue
		}
		s.matched++
		devSum += dist
		if dist > s.maxDev {
			s.maxDev = dist
		}
	}
	if len(points) > 0 {
		s.quality = float64(s.matched) / float64(len(points))
	}
	if s.matched > 0 {
		s.avgDev = devSum / float64(s.matched)
	}
	return s
}

// candidates generates the axis-aligned, principal-axis, and diagonal mirror
// planes through the centroid.
func candidates(points []r3.Vector) []spatialmath.Plane {
	center := spatialmath.Centroid(points)
	normals := []r3.Vector{
		{X: 1}, {Y: 1}, {Z: 1},
	}
	if v1, v2, v3, ok := spatialmath.NewCovarianceMatrix(points).Eigen3(); ok {
		normals = append(normals, v1, v2, v3)
	}
	inv := 1 / math.Sqrt2
	normals = append(normals,
		r3.Vector{X: inv, Y: inv}, r3.Vector{X: inv, Y: -inv},
		r3.Vector{X: inv, Z: inv}, r3.Vector{X: inv, Z: -inv},
		r3.Vector{Y: inv, Z: inv}, r3.Vector{Y: inv, Z: -inv},
	)
	planes := make([]spatialmath.Plane, 0, len(normals))
	for _, n := range normals {
		if plane, err := spatialmath.NewPlaneFromPointNormal(center, n); err == nil {
			planes = append(planes, plane)
		}
	}
	return planes
}

// refine runs coordinate descent on the plane parameters: perturb each
// normal component and the offset by ±ε, keep the best variant, shrink ε.
func refine(plane spatialmath.Plane, points []r3.Vector, tree *pointcloud.KDTree, tau, diag float64, rounds int, eps float64) (spatialmath.Plane, planeScore) {
	best := plane
	bestScore := score(plane, points, tree, tau)
	for round := 0; round < rounds; round++ {
		for _, variant := range perturbations(best, eps, eps*diag) {
			if s := score(variant, points, tree, tau); betterScore(s, bestScore) {
				best = variant
				bestScore = s
			}
		}
		eps *= epsilonShrink
	}
	return best, bestScore
}

func betterScore(a, b planeScore) bool {
	if a.quality != b.quality {
		return a.quality > b.quality
	}
	return a.avgDev < b.avgDev
}

func perturbations(plane spatialmath.Plane, normalEps, offsetEps float64) []spatialmath.Plane {
	deltas := []r3.Vector{
		{X: normalEps}, {X: -normalEps},
		{Y: normalEps}, {Y: -normalEps},
		{Z: normalEps}, {Z: -normalEps},
	}
	out := make([]spatialmath.Plane, 0, len(deltas)+2)
	for _, d := range deltas {
		n := plane.Normal.Add(d)
		if n.Norm() < 1e-10 {
			continue
		}
		out = append(out, spatialmath.Plane{Normal: n.Normalize(), Offset: plane.Offset})
	}
	out = append(out,
		spatialmath.Plane{Normal: plane.Normal, Offset: plane.Offset + offsetEps},
		spatialmath.Plane{Normal: plane.Normal, Offset: plane.Offset - offsetEps},
	)
	return out
}

// Detect finds the best plane of mirror symmetry in the sample.
func Detect(sample pointcloud.MeshSample, cfg Config) Result {
	if err := cfg.CheckValid(); err != nil {
		return Result{Reason: err.Error()}
	}
	points := sample.Vertices()
	if len(points) < 2 {
		return Result{Reason: "sample needs at least 2 points"}
	}
	diag := sample.MetaData().BoundingBoxDiagonal()
	tau := cfg.relativeThreshold() * diag
	tree := pointcloud.NewKDTree(points, nil)

	var bestPlane spatialmath.Plane
	var best planeScore
	found := false
	for _, candidate := range candidates(points) {
		if s := score(candidate, points, tree, tau); !found || betterScore(s, best) {
			bestPlane = candidate
			best = s
			found = true
		}
	}
	if !found {
		return Result{Reason: "no candidate plane could be constructed"}
	}

	bestPlane, best = refine(bestPlane, points, tree, tau, diag, cfg.refineRounds(), cfg.epsilon())
	cfg.logger().Debugf("symmetry plane n=(%.3f %.3f %.3f) quality=%.3f",
		bestPlane.Normal.X, bestPlane.Normal.Y, bestPlane.Normal.Z, best.quality)
	return Result{
		Success:      best.matched > 0,
		Plane:        bestPlane,
		Quality:      best.quality,
		AvgDeviation: best.avgDev,
		MaxDeviation: best.maxDev,
		// Each symmetric pair is found from both of its points.
		MatchedPairs: best.matched / 2,
	}
}
