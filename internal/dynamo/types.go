package dynamo

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// AssignmentOp selects how a computed block is combined with the destination.
// The set is closed: SetTo, AddTo and RmFrom.
type AssignmentOp int

const (
	SetTo AssignmentOp = iota
	AddTo
	RmFrom
)

func (op AssignmentOp) Valid() bool {
	switch op {
	case SetTo, AddTo, RmFrom:
		return true
	}
	return false
}

func (op AssignmentOp) String() string {
	switch op {
	case SetTo:
		return "setto"
	case AddTo:
		return "addto"
	case RmFrom:
		return "rmfrom"
	}
	return "unknown"
}

// CheckOp rejects values outside the AssignmentOp enumeration.
func CheckOp(op AssignmentOp) error {
	if !op.Valid() {
		return Invalid("op", "is not one of the assignment operators (setto, addto, rmfrom), got %d", int(op))
	}
	return nil
}

// Assign combines alpha*src into dst according to op. dst and src must have
// the same shape; nothing is written when op is invalid.
func Assign(dst *mat.Dense, alpha float64, src mat.Matrix, op AssignmentOp) error {
	if err := CheckOp(op); err != nil {
		return err
	}
	r, c := src.Dims()
	if dr, dc := dst.Dims(); dr != r || dc != c {
		return Invalid("out", "has wrong dimension (%dx%d, it should be %dx%d)", dr, dc, r, c)
	}

	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := alpha * src.At(i, j)
			switch op {
			case SetTo:
				dst.Set(i, j, v)
			case AddTo:
				dst.Set(i, j, dst.At(i, j)+v)
			case RmFrom:
				dst.Set(i, j, dst.At(i, j)-v)
			}
		}
	}
	return nil
}

// CheckVec verifies v has length n.
func CheckVec(name string, v mat.Vector, n int) error {
	if v == nil {
		return Invalid(name, "is nil (it should have dimension %d)", n)
	}
	if v.Len() != n {
		return Invalid(name, "has wrong dimension (it should be %d)", n)
	}
	return nil
}

// CheckMat verifies m is r x c.
func CheckMat(name string, m mat.Matrix, r, c int) error {
	if m == nil {
		return Invalid(name, "is nil (it should be %dx%d)", r, c)
	}
	if mr, mc := m.Dims(); mr != r || mc != c {
		return Invalid(name, "has wrong dimension (it should be %dx%d)", r, c)
	}
	return nil
}

// Identity returns an n x m matrix with ones on the main diagonal.
func Identity(n, m int) *mat.Dense {
	d := mat.NewDense(n, m, nil)
	for i := 0; i < n && i < m; i++ {
		d.Set(i, i, 1)
	}
	return d
}

// IsFinite reports whether v contains no NaN or Inf entries.
func IsFinite(v mat.Vector) bool {
	for i := 0; i < v.Len(); i++ {
		x := v.AtVec(i)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
