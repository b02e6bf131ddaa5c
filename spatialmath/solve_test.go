package spatialmath

import (
	"testing"

	"go.viam.com/test"
)

func TestSolveLinear4(t *testing.T) {
	a := [4][4]float64{
		{2, 0, 0, 0},
		{0, 3, 0, 0},
		{1, 0, 1, 0},
		{0, 0, 0, 4},
	}
	b := [4]float64{2, 6, 4, 8}
	x, err := SolveLinear4(a, b)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, x[0], test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, x[1], test.ShouldAlmostEqual, 2, 1e-12)
	test.That(t, x[2], test.ShouldAlmostEqual, 3, 1e-12)
	test.That(t, x[3], test.ShouldAlmostEqual, 2, 1e-12)
}

func TestSolveLinear4Singular(t *testing.T) {
	a := [4][4]float64{
		{1, 2, 3, 4},
		{2, 4, 6, 8},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
	_, err := SolveLinear4(a, [4]float64{1, 2, 0, 0})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSolveLinear3(t *testing.T) {
	a := [3][3]float64{
		{1, 1, 0},
		{0, 2, 0},
		{0, 0, 5},
	}
	x, err := SolveLinear3(a, [3]float64{3, 4, 10})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, x[0], test.ShouldAlmostEqual, 1, 1e-12)
	test.That(t, x[1], test.ShouldAlmostEqual, 2, 1e-12)
	test.That(t, x[2], test.ShouldAlmostEqual, 2, 1e-12)
}

func TestSolveLinear3Singular(t *testing.T) {
	a := [3][3]float64{
		{1, 2, 3},
		{2, 4, 6},
		{0, 0, 1},
	}
	_, err := SolveLinear3(a, [3]float64{1, 2, 3})
	test.That(t, err, test.ShouldNotBeNil)
}
