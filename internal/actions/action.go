package actions

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/dynamo"
)

// Model is a discrete-time action model.
type Model interface {
	NX() int
	NU() int

	// Calc computes Xnext and Cost for a running node.
	Calc(data Data, x, u mat.Vector) error
	// CalcTerminal computes the terminal cost; Xnext is set to x.
	CalcTerminal(data Data, x mat.Vector) error
	// CalcDiff fills Fx, Fu, Lx, Lu, Lxx, Luu and Lxu.
	CalcDiff(data Data, x, u mat.Vector) error
	// CalcDiffTerminal fills Lx and Lxx of the terminal cost.
	CalcDiffTerminal(data Data, x mat.Vector) error

	CreateData() Data
	// CheckData reports whether data was created by this kind of model.
	CheckData(data Data) bool
}

// Data is the per-node evaluation buffer of a Model.
type Data interface {
	Common() *CommonData
}

// CommonData holds the buffers every action model writes.
type CommonData struct {
	Xnext *mat.VecDense
	Cost  float64

	Fx *mat.Dense
	Fu *mat.Dense

	Lx  *mat.VecDense
	Lu  *mat.VecDense
	Lxx *mat.Dense
	Luu *mat.Dense
	Lxu *mat.Dense
}

// NewCommonData allocates zeroed buffers for an nx-state, nu-control model.
func NewCommonData(nx, nu int) CommonData {
	return CommonData{
		Xnext: mat.NewVecDense(nx, nil),
		Fx:    mat.NewDense(nx, nx, nil),
		Fu:    mat.NewDense(nx, nu, nil),
		Lx:    mat.NewVecDense(nx, nil),
		Lu:    mat.NewVecDense(nu, nil),
		Lxx:   mat.NewDense(nx, nx, nil),
		Luu:   mat.NewDense(nu, nu, nil),
		Lxu:   mat.NewDense(nx, nu, nil),
	}
}

func (d *CommonData) Common() *CommonData { return d }

func (d *CommonData) dims() (nx, nu int) {
	return d.Fu.Dims()
}

func checkDims(nx, nu int) error {
	if nx < 1 {
		return dynamo.Invalid("nx", "must be at least 1, got %d", nx)
	}
	if nu < 1 {
		return dynamo.Invalid("nu", "must be at least 1, got %d", nu)
	}
	return nil
}

// checkCommon verifies data was sized for an nx-state, nu-control model.
func checkCommon(data Data, nx, nu int) error {
	if data == nil || data.Common() == nil || data.Common().Fu == nil {
		return dynamo.Invalid("data", "is nil")
	}
	if dx, du := data.Common().dims(); dx != nx || du != nu {
		return dynamo.Invalid("data", "has wrong dimension (nx=%d, nu=%d, it should be nx=%d, nu=%d)", dx, du, nx, nu)
	}
	return nil
}
