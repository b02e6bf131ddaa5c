package fit

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/reframe3d/scan2cad/spatialmath"
)

const (
	minSpherePoints          = 4
	geometricSphereIters     = 20
	defaultSphereRANSACIters = 100
)

// sphereAlgebraic solves the linear least-squares system
// x² + y² + z² = Ax + By + Cz + D via the 4x4 normal equations, recovering
// center (A,B,C)/2 and r² = D + |center|².
func sphereAlgebraic(points []r3.Vector) (spatialmath.Sphere, error) {
	if len(points) < minSpherePoints {
		return spatialmath.Sphere{}, errors.Errorf("sphere fit needs at least %d points, got %d", minSpherePoints, len(points))
	}
	var m [4][4]float64
	var b [4]float64
	for _, p := range points {
		row := [4]float64{p.X, p.Y, p.Z, 1}
		f := p.X*p.X + p.Y*p.Y + p.Z*p.Z
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				m[i][j] += row[i] * row[j]
			}
			b[i] += row[i] * f
		}
	}
	x, err := spatialmath.SolveLinear4(m, b)
	if err != nil {
		return spatialmath.Sphere{}, err
	}
	center := r3.Vector{X: x[0] / 2, Y: x[1] / 2, Z: x[2] / 2}
	rSq := x[3] + center.Norm2()
	if rSq <= 0 || math.IsNaN(rSq) || math.IsInf(rSq, 0) {
		return spatialmath.Sphere{}, errors.Errorf("algebraic fit produced invalid squared radius %f", rSq)
	}
	return spatialmath.NewSphere(center, math.Sqrt(rSq))
}

// BoundingSphere returns a Ritter-style enclosing sphere: seed from the two
// most mutually distant probes, then grow to cover stragglers.
func BoundingSphere(points []r3.Vector) (spatialmath.Sphere, error) {
	if len(points) == 0 {
		return spatialmath.Sphere{}, errors.New("cannot bound zero points")
	}
	farthestFrom := func(q r3.Vector) r3.Vector {
		far, dist := q, -1.
		for _, p := range points {
			if d := p.Sub(q).Norm(); d > dist {
				far, dist = p, d
			}
		}
		return far
	}
	a := farthestFrom(points[0])
	b := farthestFrom(a)
	center := a.Add(b).Mul(0.5)
	radius := a.Sub(b).Norm() / 2
	for _, p := range points {
		d := p.Sub(center).Norm()
		if d > radius {
			// Shift toward p so both p and the far side stay covered.
			shift := (d - radius) / 2
			radius += shift
			center = center.Add(p.Sub(center).Mul(shift / d))
		}
	}
	if radius <= 0 {
		radius = 1e-12
	}
	return spatialmath.NewSphere(center, radius)
}

// Sphere fits a sphere algebraically, falling back to the bounding sphere
// when the algebraic radius is invalid.
func Sphere(points []r3.Vector, cfg Config) Result {
	if len(points) < minSpherePoints {
		return failure(len(points), errors.Errorf("sphere fit needs at least %d points, got %d", minSpherePoints, len(points)).Error())
	}
	sphere, err := sphereAlgebraic(points)
	if err != nil {
		sphere, err = BoundingSphere(points)
		if err != nil {
			return failure(len(points), err.Error())
		}
	}
	return evaluate(sphere, points, cfg.threshold(diagonalOf(points)))
}

// SphereGeometric iteratively relaxes center and radius toward the geometric
// least-squares optimum, seeded by the bounding sphere.
func SphereGeometric(points []r3.Vector, cfg Config) Result {
	if len(points) < minSpherePoints {
		return failure(len(points), errors.Errorf("sphere fit needs at least %d points, got %d", minSpherePoints, len(points)).Error())
	}
	seed, err := BoundingSphere(points)
	if err != nil {
		return failure(len(points), err.Error())
	}
	center, radius := seed.Center, seed.Radius
	iters := cfg.refineIterations(geometricSphereIters)
	for i := 0; i < iters; i++ {
		shift := r3.Vector{}
		radiusSum := 0.
		for _, p := range points {
			rel := p.Sub(center)
			dist := rel.Norm()
			radiusSum += dist
			if dist > 1e-12 {
				shift = shift.Add(rel.Mul((dist - radius) / dist))
			}
		}
		center = center.Add(shift.Mul(1. / float64(len(points))))
		radius = radiusSum / float64(len(points))
	}
	sphere, err := spatialmath.NewSphere(center, radius)
	if err != nil {
		return failure(len(points), err.Error())
	}
	return evaluate(sphere, points, cfg.threshold(diagonalOf(points)))
}

// Circumsphere returns the unique sphere through four non-coplanar points by
// solving 2(pᵢ - p₀)·c = |pᵢ|² - |p₀|² for i in 1..3.
func Circumsphere(p0, p1, p2, p3 r3.Vector) (spatialmath.Sphere, error) {
	var m [3][3]float64
	var b [3]float64
	base := p0.Norm2()
	for i, p := range []r3.Vector{p1, p2, p3} {
		d := p.Sub(p0)
		m[i] = [3]float64{2 * d.X, 2 * d.Y, 2 * d.Z}
		b[i] = p.Norm2() - base
	}
	x, err := spatialmath.SolveLinear3(m, b)
	if err != nil {
		return spatialmath.Sphere{}, errors.Wrap(err, "points are coplanar")
	}
	center := r3.Vector{X: x[0], Y: x[1], Z: x[2]}
	return spatialmath.NewSphere(center, center.Sub(p0).Norm())
}

// SphereRANSAC samples random quadruples, scores their circumspheres by
// inlier count, and re-fits algebraically on the winner's inliers.
func SphereRANSAC(points []r3.Vector, cfg Config) Result {
	if len(points) < minSpherePoints {
		return failure(len(points), errors.Errorf("sphere fit needs at least %d points, got %d", minSpherePoints, len(points)).Error())
	}
	rng := cfg.rng()
	tau := cfg.threshold(diagonalOf(points))
	iterations := cfg.iterations(defaultSphereRANSACIters)

	var best spatialmath.Sphere
	bestInliers := 0
	for i := 0; i < iterations; i++ {
		if i%ransacBlock == 0 && cfg.cancelled(i, iterations) {
			return failure(len(points), "cancelled")
		}
		idx := sampleDistinct(rng, len(points), 4)
		candidate, err := Circumsphere(points[idx[0]], points[idx[1]], points[idx[2]], points[idx[3]])
		if err != nil {
			continue
		}
		inliers := len(inlierIndices(candidate, points, tau))
		if inliers > bestInliers {
			best = candidate
			bestInliers = inliers
		}
	}
	if bestInliers < minSpherePoints {
		return failure(len(points), "no sphere candidate gathered enough inliers")
	}
	refined, err := sphereAlgebraic(gather(points, inlierIndices(best, points, tau)))
	if err != nil {
		refined = best
	}
	return evaluate(refined, points, tau)
}
