package align

import (
	"math"
	"sort"

	"github.com/edaniels/golog"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/reframe3d/scan2cad/pointcloud"
	"github.com/reframe3d/scan2cad/spatialmath"
)

// ICP defaults.
const (
	DefaultICPIterations    = 50
	DefaultOutlierStdDevs   = 3.0
	DefaultConvergenceEps   = 1e-6
	minICPCorrespondences   = 3
	smallAngleRotationFloor = 1e-12
)

// IterationStats is handed to the per-iteration callback and recorded in the
// result history.
type IterationStats struct {
	Iteration       int
	RMS             float64
	Correspondences int
	Outliers        int
	Delta           float64
}

// ICPConfig parameterizes one registration call. The zero value selects
// point-to-point minimization with defaults everywhere.
type ICPConfig struct {
	// MaxIterations bounds the outer loop; 0 selects DefaultICPIterations.
	MaxIterations int

	// MaxCorrespondenceDistance caps nearest-neighbor pairing; <= 0 means
	// unbounded.
	MaxCorrespondenceDistance float64

	// Stride subsamples the source, pairing every Stride-th point; 0 or 1
	// uses every point.
	Stride int

	// OutlierStdDevs drops pairs beyond mean + k·stddev of pair distances;
	// 0 selects DefaultOutlierStdDevs.
	OutlierStdDevs float64

	// TrimFraction additionally drops the given highest-distance fraction
	// of surviving pairs. Must be in [0, 1).
	TrimFraction float64

	// ConvergenceThreshold stops iterating once the increment's Frobenius
	// distance from identity drops below it; 0 selects
	// DefaultConvergenceEps.
	ConvergenceThreshold float64

	// PointToPlane minimizes point-to-plane distance using target normals
	// instead of point-to-point distance.
	PointToPlane bool

	// Callback, when set, runs after each iteration; returning false
	// cancels the registration at that boundary.
	Callback func(IterationStats) bool

	Logger golog.Logger
}

// CheckValid reports every invalid field at once.
func (cfg ICPConfig) CheckValid() error {
	var err error
	if cfg.MaxIterations < 0 {
		err = multierr.Append(err, errors.Errorf("max iterations must be non-negative, got %d", cfg.MaxIterations))
	}
	if cfg.Stride < 0 {
		err = multierr.Append(err, errors.Errorf("stride must be non-negative, got %d", cfg.Stride))
	}
	if cfg.TrimFraction < 0 || cfg.TrimFraction >= 1 {
		err = multierr.Append(err, errors.Errorf("trim fraction must be in [0, 1), got %f", cfg.TrimFraction))
	}
	if cfg.OutlierStdDevs < 0 {
		err = multierr.Append(err, errors.Errorf("outlier std-devs must be non-negative, got %f", cfg.OutlierStdDevs))
	}
	return err
}

func (cfg ICPConfig) logger() golog.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return golog.Global()
}

// ICPResult reports a registration. Transform is the cumulative transform
// bringing the source into the target frame, returned even when the run did
// not converge.
type ICPResult struct {
	Success         bool
	Converged       bool
	Transform       mgl64.Mat4
	InitialRMS      float64
	FinalRMS        float64
	Iterations      int
	Correspondences int
	History         []IterationStats
	Reason          string
}

func icpFailure(t mgl64.Mat4, history []IterationStats, iters int, reason string) ICPResult {
	return ICPResult{
		Transform:  t,
		Iterations: iters,
		History:    history,
		Reason:     reason,
	}
}

// Register aligns source onto target by iterative closest point. The source
// sample itself is never mutated; callers apply the returned transform.
func Register(source, target pointcloud.MeshSample, cfg ICPConfig) ICPResult {
	if err := cfg.CheckValid(); err != nil {
		return icpFailure(mgl64.Ident4(), nil, 0, err.Error())
	}
	if source.Size() == 0 || target.Size() == 0 {
		return icpFailure(mgl64.Ident4(), nil, 0, "source and target must both be non-empty")
	}
	if cfg.PointToPlane && target.Normals() == nil {
		return icpFailure(mgl64.Ident4(), nil, 0, "point-to-plane minimization needs target normals")
	}

	maxIter := cfg.MaxIterations
	if maxIter == 0 {
		maxIter = DefaultICPIterations
	}
	stride := cfg.Stride
	if stride == 0 {
		stride = 1
	}
	outlierK := cfg.OutlierStdDevs
	if outlierK == 0 {
		outlierK = DefaultOutlierStdDevs
	}
	convergence := cfg.ConvergenceThreshold
	if convergence == 0 {
		convergence = DefaultConvergenceEps
	}
	logger := cfg.logger()

	tree := pointcloud.NewKDTreeFromMesh(target)
	targetVerts := target.Vertices()
	working := append([]r3.Vector(nil), source.Vertices()...)

	cumulative := mgl64.Ident4()
	var history []IterationStats
	res := ICPResult{Transform: cumulative}

	for i := 0; i < maxIter; i++ {
		pairs := findCorrespondences(working, targetVerts, tree, stride, cfg.MaxCorrespondenceDistance)
		if len(pairs) < minICPCorrespondences {
			return icpFailure(cumulative, history, i, "fewer than 3 correspondences survived pairing")
		}
		pairs, outliers := rejectOutliers(pairs, outlierK, cfg.TrimFraction)
		if len(pairs) < minICPCorrespondences {
			return icpFailure(cumulative, history, i, "fewer than 3 correspondences survived outlier rejection")
		}
		rms := pairRMS(pairs)
		if i == 0 {
			res.InitialRMS = rms
		}

		var increment mgl64.Mat4
		var err error
		if cfg.PointToPlane {
			increment, err = solvePointToPlane(pairs)
		} else {
			increment, err = solvePointToPoint(pairs)
		}
		if err != nil {
			return icpFailure(cumulative, history, i, err.Error())
		}

		cumulative = increment.Mul4(cumulative)
		for j, p := range working {
			working[j] = spatialmath.TransformPoint(increment, p)
		}

		delta := spatialmath.DeltaFromIdentity(increment)
		stats := IterationStats{
			Iteration:       i,
			RMS:             rms,
			Correspondences: len(pairs),
			Outliers:        outliers,
			Delta:           delta,
		}
		history = append(history, stats)
		res.Iterations = i + 1
		res.Correspondences = len(pairs)
		logger.Debugf("icp iteration %d: rms=%g pairs=%d outliers=%d delta=%g", i, rms, len(pairs), outliers, delta)

		if cfg.Callback != nil && !cfg.Callback(stats) {
			return icpFailure(cumulative, history, res.Iterations, "cancelled")
		}
		if delta < convergence {
			res.Converged = true
			break
		}
	}

	res.Transform = cumulative
	res.History = history
	res.FinalRMS = pairRMS(findCorrespondences(working, targetVerts, tree, stride, cfg.MaxCorrespondenceDistance))
	res.Success = res.Converged
	if !res.Converged {
		res.Reason = "reached max iterations before convergence"
	}
	return res
}

func findCorrespondences(working, targetVerts []r3.Vector, tree *pointcloud.KDTree, stride int, maxDist float64) []Correspondence {
	var pairs []Correspondence
	for i := 0; i < len(working); i += stride {
		idx, dist, normal := tree.NearestNeighbor(working[i], maxDist)
		if idx < 0 {
			continue
		}
		pairs = append(pairs, Correspondence{
			SourceIndex:  i,
			TargetIndex:  idx,
			SourcePoint:  working[i],
			TargetPoint:  targetVerts[idx],
			TargetNormal: normal,
			Distance:     dist,
			Weight:       1,
		})
	}
	return pairs
}

// rejectOutliers drops pairs beyond mean + k·stddev of distances, then trims
// the highest-distance fraction.
func rejectOutliers(pairs []Correspondence, k, trimFraction float64) ([]Correspondence, int) {
	dists := make([]float64, len(pairs))
	for i, p := range pairs {
		dists[i] = p.Distance
	}
	mean, std := stat.MeanStdDev(dists, nil)
	if math.IsNaN(std) {
		std = 0
	}
	cutoff := mean + k*std
	kept := pairs[:0:0]
	for _, p := range pairs {
		if p.Distance <= cutoff {
			kept = append(kept, p)
		}
	}
	if trimFraction > 0 {
		sort.Slice(kept, func(i, j int) bool { return kept[i].Distance < kept[j].Distance })
		keep := int(math.Ceil(float64(len(kept)) * (1 - trimFraction)))
		if keep < len(kept) {
			kept = kept[:keep]
		}
	}
	return kept, len(pairs) - len(kept)
}

func pairRMS(pairs []Correspondence) float64 {
	if len(pairs) == 0 {
		return 0
	}
	sum := 0.
	for _, p := range pairs {
		sum += p.Distance * p.Distance
	}
	return math.Sqrt(sum / float64(len(pairs)))
}

func solvePointToPoint(pairs []Correspondence) (mgl64.Mat4, error) {
	src := make([]r3.Vector, len(pairs))
	dst := make([]r3.Vector, len(pairs))
	weights := make([]float64, len(pairs))
	for i, p := range pairs {
		src[i] = p.SourcePoint
		dst[i] = p.TargetPoint
		weights[i] = p.Weight
	}
	return spatialmath.KabschFit(src, dst, weights)
}

// solvePointToPlane linearizes Σ((R p + t - q)·n)² around zero rotation,
// yielding a 6x6 system in (ωx, ωy, ωz, tx, ty, tz).
func solvePointToPlane(pairs []Correspondence) (mgl64.Mat4, error) {
	a := mat.NewDense(6, 6, nil)
	b := mat.NewVecDense(6, nil)
	for _, pair := range pairs {
		n := pair.TargetNormal
		if n.Norm() < 1e-12 {
			continue
		}
		c := pair.SourcePoint.Cross(n)
		row := [6]float64{c.X, c.Y, c.Z, n.X, n.Y, n.Z}
		residual := pair.SourcePoint.Sub(pair.TargetPoint).Dot(n)
		w := pair.Weight
		for i := 0; i < 6; i++ {
			for j := 0; j < 6; j++ {
				a.Set(i, j, a.At(i, j)+w*row[i]*row[j])
			}
			b.SetVec(i, b.AtVec(i)-w*residual*row[i])
		}
	}
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return mgl64.Ident4(), errors.Wrap(err, "point-to-plane system is singular")
	}
	omega := r3.Vector{X: x.AtVec(0), Y: x.AtVec(1), Z: x.AtVec(2)}
	t := r3.Vector{X: x.AtVec(3), Y: x.AtVec(4), Z: x.AtVec(5)}

	increment := mgl64.Ident4()
	if angle := omega.Norm(); angle > smallAngleRotationFloor {
		axis := omega.Mul(1 / angle)
		increment = mgl64.HomogRotate3D(angle, mgl64.Vec3{axis.X, axis.Y, axis.Z})
	}
	increment.Set(0, 3, t.X)
	increment.Set(1, 3, t.Y)
	increment.Set(2, 3, t.Z)
	return increment, nil
}
