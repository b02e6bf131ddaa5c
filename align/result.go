// Package align positions one scanned sample relative to another: iterative
// closest point refinement, feature-driven alignment to a world coordinate
// system, and N-point correspondence alignment.
package align

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"

	"github.com/reframe3d/scan2cad/spatialmath"
)

// PointPair is one labelled correspondence for N-point alignment.
type PointPair struct {
	Source r3.Vector
	Target r3.Vector
	Weight float64
}

// Correspondence is one ICP source/target pairing in the current iteration's
// frame.
type Correspondence struct {
	SourceIndex  int
	TargetIndex  int
	SourcePoint  r3.Vector
	TargetPoint  r3.Vector
	TargetNormal r3.Vector
	Distance     float64
	Weight       float64
}

// AlignmentResult reports a rigid alignment. Transform is left-multiplied
// onto source points to bring them into the target frame; the decomposed
// translation, rotation, and scale accompany it.
type AlignmentResult struct {
	Success     bool
	Transform   mgl64.Mat4
	Translation r3.Vector
	Rotation    mgl64.Mat3
	Scale       r3.Vector
	RMS         float64
	MaxError    float64
	Iterations  int
	Reason      string
}

func newAlignmentResult(t mgl64.Mat4) AlignmentResult {
	translation, rotation, scale := spatialmath.DecomposeTransform(t)
	return AlignmentResult{
		Success:     true,
		Transform:   t,
		Translation: translation,
		Rotation:    rotation,
		Scale:       scale,
	}
}

func alignmentFailure(reason string) AlignmentResult {
	res := newAlignmentResult(mgl64.Ident4())
	res.Success = false
	res.Reason = reason
	return res
}
