package fit

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/reframe3d/scan2cad/pointcloud"
	"github.com/reframe3d/scan2cad/spatialmath"
)

// DefaultConfidenceThreshold gates auto dispatch: below it, every type is
// fitted and the highest-confidence result wins.
const DefaultConfidenceThreshold = 0.7

// Score nudges applied when normals are available.
const (
	planeNormalVarianceCutoff = 0.1
	sphereRadialDotCutoff     = 0.9
	normalNudge               = 1.2
)

// Dispatcher classifies which primitive best explains a sample and
// orchestrates the per-type fitters.
type Dispatcher struct {
	cfg                 Config
	confidenceThreshold float64
}

// NewDispatcher validates the config and returns a ready dispatcher.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if err := cfg.CheckValid(); err != nil {
		return nil, err
	}
	return &Dispatcher{cfg: cfg, confidenceThreshold: DefaultConfidenceThreshold}, nil
}

// SetConfidenceThreshold overrides the auto-dispatch gate.
func (d *Dispatcher) SetConfidenceThreshold(threshold float64) {
	d.confidenceThreshold = threshold
}

// fitAll runs every fitter on the sample.
func (d *Dispatcher) fitAll(sample pointcloud.MeshSample) map[spatialmath.PrimitiveKind]Result {
	points := sample.Vertices()
	normals := sample.Normals()
	return map[spatialmath.PrimitiveKind]Result{
		spatialmath.KindPlane:    Plane(points, d.cfg),
		spatialmath.KindSphere:   Sphere(points, d.cfg),
		spatialmath.KindCylinder: Cylinder(points, normals, d.cfg),
		spatialmath.KindCone:     Cone(points, normals, d.cfg),
	}
}

// Classify scores each primitive type against the sample and returns the
// most plausible kind with all normalized scores. Per-type score is
// inlierRatio · 1/(1 + RMS/τ), nudged by normal statistics and normalized by
// the maximum.
func (d *Dispatcher) Classify(sample pointcloud.MeshSample) (spatialmath.PrimitiveKind, map[spatialmath.PrimitiveKind]float64, error) {
	if sample.Size() == 0 {
		return 0, nil, errors.New("sample has no vertices")
	}
	tau := d.cfg.threshold(sample.MetaData().BoundingBoxDiagonal())
	if tau <= 0 {
		return 0, nil, errors.New("inlier threshold resolved to zero, sample may be a single point")
	}
	results := d.fitAll(sample)

	scores := make(map[spatialmath.PrimitiveKind]float64, len(results))
	for kind, res := range results {
		if !res.Success {
			scores[kind] = 0
			continue
		}
		scores[kind] = res.InlierRatio / (1 + res.RMS/tau)
	}
	d.applyNormalNudges(sample, scores)

	best := spatialmath.KindPlane
	maxScore := 0.
	for kind, s := range scores {
		if s > maxScore {
			maxScore = s
			best = kind
		}
	}
	if maxScore > 0 {
		for kind := range scores {
			scores[kind] /= maxScore
		}
	}
	d.cfg.logger().Debugf("classified sample of %d points as %s", sample.Size(), best)
	return best, scores, nil
}

// applyNormalNudges biases the plane score when normals barely vary about
// their mean, and the sphere score when normals point radially from the
// centroid.
func (d *Dispatcher) applyNormalNudges(sample pointcloud.MeshSample, scores map[spatialmath.PrimitiveKind]float64) {
	normals := sample.Normals()
	if normals == nil || len(normals) == 0 {
		return
	}
	mean := spatialmath.Centroid(normals)
	if mean.Norm() > 1e-10 {
		mean = mean.Normalize()
		dots := make([]float64, len(normals))
		for i, n := range normals {
			dots[i] = math.Abs(n.Dot(mean))
		}
		if stat.Variance(dots, nil) < planeNormalVarianceCutoff {
			scores[spatialmath.KindPlane] *= normalNudge
		}
	}

	centroid := sample.Centroid()
	points := sample.Vertices()
	radialSum := 0.
	counted := 0
	for i, n := range normals {
		radial := points[i].Sub(centroid)
		if radial.Norm() < 1e-10 {
			continue
		}
		radialSum += math.Abs(n.Dot(radial.Normalize()))
		counted++
	}
	if counted > 0 && radialSum/float64(counted) > sphereRadialDotCutoff {
		scores[spatialmath.KindSphere] *= normalNudge
	}
}

// FitBest fits every type and returns the highest-confidence result.
func (d *Dispatcher) FitBest(sample pointcloud.MeshSample) Result {
	if sample.Size() == 0 {
		return failure(0, "sample has no vertices")
	}
	var best Result
	for _, res := range d.fitAll(sample) {
		if res.Success && (!best.Success || res.Confidence > best.Confidence) {
			best = res
		}
	}
	if !best.Success {
		return failure(sample.Size(), "no primitive type fit the sample")
	}
	return best
}

// FitAuto classifies the sample and fits the winning type, falling back to
// FitBest when the winner's confidence sits under the dispatch gate.
func (d *Dispatcher) FitAuto(sample pointcloud.MeshSample) Result {
	best, _, err := d.Classify(sample)
	if err != nil {
		return failure(sample.Size(), err.Error())
	}
	res := d.fitAll(sample)[best]
	if !res.Success || res.Confidence < d.confidenceThreshold {
		return d.FitBest(sample)
	}
	return res
}
