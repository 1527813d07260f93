package dynamo

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SymmetryTol is the relative Frobenius tolerance used by CheckPSD.
const SymmetryTol = 1e-12

// StackHessian builds [[Q, N], [Nᵀ, R]].
func StackHessian(Q, R, N mat.Matrix) *mat.Dense {
	nx, _ := Q.Dims()
	nu, _ := R.Dims()
	H := mat.NewDense(nx+nu, nx+nu, nil)
	H.Slice(0, nx, 0, nx).(*mat.Dense).Copy(Q)
	H.Slice(0, nx, nx, nx+nu).(*mat.Dense).Copy(N)
	H.Slice(nx, nx+nu, 0, nx).(*mat.Dense).Copy(N.T())
	H.Slice(nx, nx+nu, nx, nx+nu).(*mat.Dense).Copy(R)
	return H
}

// CheckPSD rejects H unless it is symmetric and admits a Cholesky
// factorization after a diagonal shift scaled to its largest diagonal entry.
// The shift lets exactly singular PSD matrices through.
func CheckPSD(name string, H mat.Matrix) error {
	n, c := H.Dims()
	if n != c {
		return Invalid(name, "is not square (%dx%d)", n, c)
	}

	var diff mat.Dense
	diff.Sub(H, H.T())
	norm := mat.Norm(H, 2)
	if mat.Norm(&diff, 2) > SymmetryTol*math.Max(1, norm) {
		return Invalid(name, "is not symmetric, hence not positive semi-definite")
	}

	scale := 1.0
	for i := 0; i < n; i++ {
		scale = math.Max(scale, math.Abs(H.At(i, i)))
	}
	eps := 1e-12 * scale

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := 0.5 * (H.At(i, j) + H.At(j, i))
			if i == j {
				v += eps
			}
			sym.SetSym(i, j, v)
		}
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return Invalid(name, "is not positive semi-definite")
	}
	return nil
}
