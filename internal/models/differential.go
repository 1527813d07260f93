package models

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/dynamo"
)

// Differential is a continuous-time dynamics and cost-rate model.
type Differential interface {
	NX() int
	// NU is the dimension of the instantaneous control.
	NU() int

	CreateData() *Data

	// Calc fills Xdot and Cost (a rate) at (x, u).
	Calc(data *Data, x, u mat.Vector) error
	// CalcTerminal fills Cost with the terminal cost at x.
	CalcTerminal(data *Data, x mat.Vector) error
	// CalcDiff fills Fx = ∂ẋ/∂x, Fu = ∂ẋ/∂u and the cost derivatives.
	CalcDiff(data *Data, x, u mat.Vector) error
	// CalcDiffTerminal fills Lx and Lxx of the terminal cost.
	CalcDiffTerminal(data *Data, x mat.Vector) error
}

// Data holds the outputs of a Differential model.
type Data struct {
	Xdot *mat.VecDense
	Cost float64

	Fx *mat.Dense
	Fu *mat.Dense

	Lx  *mat.VecDense
	Lu  *mat.VecDense
	Lxx *mat.Dense
	Luu *mat.Dense
	Lxu *mat.Dense

	// scratch is model-private working memory.
	scratch any
}

func NewData(nx, nu int) *Data {
	return &Data{
		Xdot: mat.NewVecDense(nx, nil),
		Fx:   mat.NewDense(nx, nx, nil),
		Fu:   mat.NewDense(nx, nu, nil),
		Lx:   mat.NewVecDense(nx, nil),
		Lu:   mat.NewVecDense(nu, nil),
		Lxx:  mat.NewDense(nx, nx, nil),
		Luu:  mat.NewDense(nu, nu, nil),
		Lxu:  mat.NewDense(nx, nu, nil),
	}
}

func checkData(data *Data, nx, nu int) error {
	if data == nil || data.Fu == nil {
		return dynamo.Invalid("data", "is nil")
	}
	if r, c := data.Fu.Dims(); r != nx || c != nu {
		return dynamo.Invalid("data", "has wrong dimension (nx=%d, nu=%d, it should be nx=%d, nu=%d)", r, c, nx, nu)
	}
	return nil
}
