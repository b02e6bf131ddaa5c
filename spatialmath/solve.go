package spatialmath

import (
	"math"

	"github.com/pkg/errors"
)

var errSingularMatrix = errors.New("matrix is singular to working precision")

// SolveLinear4 solves the 4x4 system a·x = b by Gauss-Jordan elimination
// with partial pivoting. It reports singularity when the best available
// pivot magnitude falls below 1e-10.
func SolveLinear4(a [4][4]float64, b [4]float64) ([4]float64, error) {
	var aug [4][5]float64
	for i := 0; i < 4; i++ {
		copy(aug[i][:4], a[i][:])
		aug[i][4] = b[i]
	}
	for col := 0; col < 4; col++ {
		pivot := col
		for row := col + 1; row < 4; row++ {
			if math.Abs(aug[row][col]) > math.Abs(aug[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(aug[pivot][col]) < floatEpsilon {
			return [4]float64{}, errSingularMatrix
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]
		inv := 1. / aug[col][col]
		for j := col; j < 5; j++ {
			aug[col][j] *= inv
		}
		for row := 0; row < 4; row++ {
			if row == col {
				continue
			}
			factor := aug[row][col]
			for j := col; j < 5; j++ {
				aug[row][j] -= factor * aug[col][j]
			}
		}
	}
	var x [4]float64
	for i := 0; i < 4; i++ {
		x[i] = aug[i][4]
	}
	return x, nil
}

func det3(a [3][3]float64) float64 {
	return a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
		a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
		a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
}

// SolveLinear3 solves the 3x3 system a·x = b by Cramer's rule. It reports
// singularity when |det a| < 1e-10.
func SolveLinear3(a [3][3]float64, b [3]float64) ([3]float64, error) {
	d := det3(a)
	if math.Abs(d) < floatEpsilon {
		return [3]float64{}, errSingularMatrix
	}
	var x [3]float64
	for col := 0; col < 3; col++ {
		sub := a
		for row := 0; row < 3; row++ {
			sub[row][col] = b[row]
		}
		x[col] = det3(sub) / d
	}
	return x, nil
}
