// Package fit recovers parametric primitives (plane, sphere, cylinder,
// cone) from scanned point samples, with and without surface normals, and
// classifies which primitive best explains a sample.
package fit

import (
	"math/rand"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/reframe3d/scan2cad/pointcloud"
	"github.com/reframe3d/scan2cad/utils"
)

// Defaults for the iterative fitters.
const (
	DefaultPlaneIterations   = 100
	DefaultRANSACIterations  = 500
	DefaultRefineIterations  = 10
	DefaultConeRefinements   = 20
	DefaultRelativeThreshold = 0.01

	// Progress and cancellation are polled once per block of RANSAC
	// iterations.
	ransacBlock = 32
)

// ProgressFunc reports progress in [0,1]; returning false aborts the
// operation at the next iteration boundary.
type ProgressFunc func(progress float64) bool

// Config parameterizes the iterative fitters. The zero value asks for
// defaults everywhere.
type Config struct {
	// Iterations bounds the RANSAC outer loop; 0 selects the per-primitive
	// default.
	Iterations int

	// RefineIterations bounds the post-RANSAC refinement loop; 0 selects
	// the per-primitive default.
	RefineIterations int

	// InlierThreshold is the absolute inlier distance τ. When zero,
	// RelativeThreshold scales the sample's bounding-box diagonal instead.
	InlierThreshold float64

	// RelativeThreshold provides τ = rel · diag(bbox) when InlierThreshold
	// is unset. Zero selects DefaultRelativeThreshold.
	RelativeThreshold float64

	// Seed makes every randomized fit reproducible. Zero selects seed 1;
	// ambient entropy is never read.
	Seed int64

	Progress ProgressFunc
	Logger   golog.Logger
}

// CheckValid reports every invalid field at once.
func (cfg Config) CheckValid() error {
	var err error
	if cfg.Iterations < 0 {
		err = multierr.Append(err, errors.Errorf("iterations must be non-negative, got %d", cfg.Iterations))
	}
	if cfg.RefineIterations < 0 {
		err = multierr.Append(err, errors.Errorf("refine iterations must be non-negative, got %d", cfg.RefineIterations))
	}
	if cfg.InlierThreshold < 0 {
		err = multierr.Append(err, errors.Errorf("inlier threshold must be non-negative, got %f", cfg.InlierThreshold))
	}
	if cfg.RelativeThreshold < 0 {
		err = multierr.Append(err, errors.Errorf("relative threshold must be non-negative, got %f", cfg.RelativeThreshold))
	}
	return err
}

func (cfg Config) rng() *rand.Rand {
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	return rand.New(rand.NewSource(seed))
}

func (cfg Config) iterations(fallback int) int {
	if cfg.Iterations > 0 {
		return cfg.Iterations
	}
	return fallback
}

func (cfg Config) refineIterations(fallback int) int {
	if cfg.RefineIterations > 0 {
		return cfg.RefineIterations
	}
	return fallback
}

// threshold resolves τ for a sample with the given bounding-box diagonal.
func (cfg Config) threshold(diagonal float64) float64 {
	if cfg.InlierThreshold > 0 {
		return cfg.InlierThreshold
	}
	rel := cfg.RelativeThreshold
	if rel == 0 {
		rel = DefaultRelativeThreshold
	}
	return rel * diagonal
}

func (cfg Config) logger() golog.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	return golog.Global()
}

// cancelled polls the progress callback at a block boundary.
func (cfg Config) cancelled(done, total int) bool {
	if cfg.Progress == nil {
		return false
	}
	return !cfg.Progress(float64(done) / float64(total))
}

func diagonalOf(points []r3.Vector) float64 {
	meta := pointcloud.NewMetaData()
	for _, p := range points {
		meta.Merge(p)
	}
	return meta.BoundingBoxDiagonal()
}

// sampleDistinct draws count distinct indices in [0, n).
func sampleDistinct(rng *rand.Rand, n, count int) []int {
	picked := make(map[int]bool, count)
	out := make([]int, 0, count)
	for len(out) < count {
		idx := utils.SampleRandomIntRange(0, n-1, rng)
		if picked[idx] {
			continue
		}
		picked[idx] = true
		out = append(out, idx)
	}
	return out
}
