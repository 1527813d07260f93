package controls_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/controls"
	"github.com/san-kum/dynopt/internal/dynamo"
)

const tol = 1e-12

func mustModel[M controls.Model](m M, err error) M {
	if err != nil {
		panic(err)
	}
	return m
}

func randomDense(rng *rand.Rand, r, c int) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = 2*rng.Float64() - 1
	}
	return mat.NewDense(r, c, data)
}

func randomVec(rng *rand.Rand, n int) *mat.VecDense {
	data := make([]float64, n)
	for i := range data {
		data[i] = 2*rng.Float64() - 1
	}
	return mat.NewVecDense(n, data)
}

var sampleTimes = []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1, -0.5, 1.7, 3}

var _ = Describe("PolyTwoRK4", func() {
	const nw = 3

	var (
		model *controls.PolyTwoRK4
		data  *controls.Data
		rng   *rand.Rand
	)

	BeforeEach(func() {
		var err error
		model, err = controls.NewPolyTwoRK4(nw)
		Expect(err).NotTo(HaveOccurred())
		data = model.CreateData()
		rng = rand.New(rand.NewSource(7))
	})

	It("has three control points", func() {
		Expect(model.NW()).To(Equal(nw))
		Expect(model.NU()).To(Equal(3 * nw))
		Expect(data.C).To(HaveLen(3))
		r, c := data.DwDu.Dims()
		Expect([]int{r, c}).To(Equal([]int{nw, 3 * nw}))
	})

	It("rejects parameter vectors of the wrong size", func() {
		for _, n := range []int{1, nw, 3*nw - 1, 3*nw + 1} {
			Expect(model.Calc(data, 0.5, mat.NewVecDense(n, nil))).To(MatchError(dynamo.ErrInvalidArgument))
		}
		Expect(model.Calc(data, 0.5, nil)).To(MatchError(dynamo.ErrInvalidArgument))
	})

	DescribeTable("forms a partition of unity",
		func(t float64) {
			Expect(model.Calc(data, t, randomVec(rng, model.NU()))).To(Succeed())
			Expect(data.C[0] + data.C[1] + data.C[2]).To(BeNumerically("~", 1, tol))
		},
		Entry("t=0", 0.0),
		Entry("t=0.3", 0.3),
		Entry("t=0.5", 0.5),
		Entry("t=1", 1.0),
		Entry("extrapolated below", -2.0),
		Entry("extrapolated above", 4.5),
	)

	It("interpolates the control points at 0, ½ and 1", func() {
		u := randomVec(rng, model.NU())
		for k, t := range []float64{0, 0.5, 1} {
			Expect(model.Calc(data, t, u)).To(Succeed())
			Expect(mat.EqualApprox(data.W, u.SliceVec(k*nw, (k+1)*nw), tol)).To(BeTrue())
		}
	})

	It("evaluates the quadratic basis", func() {
		u := randomVec(rng, model.NU())
		t := 0.3
		Expect(model.Calc(data, t, u)).To(Succeed())

		c2 := 2*t*t - t
		c1 := -2*c2 + 2*t
		c0 := c2 - 2*t + 1
		for i := 0; i < nw; i++ {
			want := c0*u.AtVec(i) + c1*u.AtVec(nw+i) + c2*u.AtVec(2*nw+i)
			Expect(data.W.AtVec(i)).To(BeNumerically("~", want, tol))
		}
	})

	It("round-trips params through calc", func() {
		w := randomVec(rng, nw)
		for _, t := range sampleTimes {
			Expect(model.Params(data, t, w)).To(Succeed())
			Expect(model.Calc(data, t, data.U)).To(Succeed())
			Expect(mat.EqualApprox(data.W, w, 1e-10)).To(BeTrue(), "t=%v", t)
		}
	})

	It("rejects params with the wrong control size", func() {
		Expect(model.Params(data, 0, mat.NewVecDense(nw+1, nil))).To(MatchError(dynamo.ErrInvalidArgument))
	})

	It("builds a block-diagonal Jacobian from the stored coefficients", func() {
		u := randomVec(rng, model.NU())
		Expect(model.Calc(data, 0.8, u)).To(Succeed())
		Expect(model.CalcDiff(data, 0.8, u)).To(Succeed())

		for i := 0; i < nw; i++ {
			for j := 0; j < model.NU(); j++ {
				want := 0.0
				if j%nw == i {
					want = data.C[j/nw]
				}
				Expect(data.DwDu.At(i, j)).To(Equal(want))
			}
		}
	})

	It("broadcasts bounds into every block", func() {
		lb := mat.NewVecDense(nw, []float64{-1, -2, -3})
		ub := mat.NewVecDense(nw, []float64{1, 2, 3})
		uLB := mat.NewVecDense(model.NU(), nil)
		uUB := mat.NewVecDense(model.NU(), nil)

		Expect(model.ConvertBounds(lb, ub, uLB, uUB)).To(Succeed())
		for k := 0; k < 3; k++ {
			Expect(mat.Equal(uLB.SliceVec(k*nw, (k+1)*nw), lb)).To(BeTrue())
			Expect(mat.Equal(uUB.SliceVec(k*nw, (k+1)*nw), ub)).To(BeTrue())
		}
	})

	It("rejects bounds of mismatched size", func() {
		ok := mat.NewVecDense(nw, nil)
		bad := mat.NewVecDense(nw+1, nil)
		uOK := mat.NewVecDense(model.NU(), nil)
		uBad := mat.NewVecDense(model.NU()-1, nil)

		Expect(model.ConvertBounds(bad, ok, uOK, uOK)).To(MatchError(dynamo.ErrInvalidArgument))
		Expect(model.ConvertBounds(ok, bad, uOK, uOK)).To(MatchError(dynamo.ErrInvalidArgument))
		Expect(model.ConvertBounds(ok, ok, uBad, uOK)).To(MatchError(dynamo.ErrInvalidArgument))
		Expect(model.ConvertBounds(ok, ok, uOK, uBad)).To(MatchError(dynamo.ErrInvalidArgument))
	})

	Context("multiplying by the Jacobian", func() {
		const rows = 4

		var A *mat.Dense

		BeforeEach(func() {
			A = randomDense(rng, rows, nw)
			u := randomVec(rng, model.NU())
			Expect(model.Calc(data, 0.35, u)).To(Succeed())
			Expect(model.CalcDiff(data, 0.35, u)).To(Succeed())
		})

		It("matches the explicit product A·dw/du", func() {
			out := mat.NewDense(rows, model.NU(), nil)
			Expect(model.MultiplyByJacobian(data, A, out, dynamo.SetTo)).To(Succeed())

			var want mat.Dense
			want.Mul(A, data.DwDu)
			Expect(mat.EqualApprox(out, &want, tol)).To(BeTrue())
		})

		It("returns to zero after setto then rmfrom", func() {
			out := randomDense(rng, rows, model.NU())
			Expect(model.MultiplyByJacobian(data, A, out, dynamo.SetTo)).To(Succeed())
			Expect(model.MultiplyByJacobian(data, A, out, dynamo.RmFrom)).To(Succeed())
			Expect(mat.Equal(out, mat.NewDense(rows, model.NU(), nil))).To(BeTrue())
		})

		It("leaves out unchanged after addto then rmfrom", func() {
			out := randomDense(rng, rows, model.NU())
			orig := mat.DenseCopyOf(out)
			Expect(model.MultiplyByJacobian(data, A, out, dynamo.AddTo)).To(Succeed())
			Expect(model.MultiplyByJacobian(data, A, out, dynamo.RmFrom)).To(Succeed())
			Expect(mat.EqualApprox(out, orig, tol)).To(BeTrue())
		})

		It("produces blocks transposed to the transpose product", func() {
			out := mat.NewDense(rows, model.NU(), nil)
			outT := mat.NewDense(model.NU(), rows, nil)
			Expect(model.MultiplyByJacobian(data, A, out, dynamo.SetTo)).To(Succeed())
			Expect(model.MultiplyJacobianTransposeBy(data, A.T(), outT, dynamo.SetTo)).To(Succeed())

			for k := 0; k < 3; k++ {
				blk := out.Slice(0, rows, k*nw, (k+1)*nw)
				blkT := outT.Slice(k*nw, (k+1)*nw, 0, rows)
				Expect(mat.EqualApprox(blk, blkT.T(), tol)).To(BeTrue(), "block %d", k)
			}
		})

		It("matches the explicit product (dw/du)ᵀ·B", func() {
			B := randomDense(rng, nw, 2)
			out := mat.NewDense(model.NU(), 2, nil)
			Expect(model.MultiplyJacobianTransposeBy(data, B, out, dynamo.SetTo)).To(Succeed())

			var want mat.Dense
			want.Mul(data.DwDu.T(), B)
			Expect(mat.EqualApprox(out, &want, tol)).To(BeTrue())
		})

		It("rejects mismatched shapes without writing", func() {
			out := randomDense(rng, rows+1, model.NU())
			orig := mat.DenseCopyOf(out)
			Expect(model.MultiplyByJacobian(data, A, out, dynamo.SetTo)).To(MatchError(dynamo.ErrInvalidArgument))
			Expect(mat.Equal(out, orig)).To(BeTrue())

			outT := mat.NewDense(model.NU(), rows, nil)
			Expect(model.MultiplyJacobianTransposeBy(data, A, outT, dynamo.SetTo)).To(MatchError(dynamo.ErrInvalidArgument))
		})

		It("rejects unknown assignment operators without writing", func() {
			out := randomDense(rng, rows, model.NU())
			orig := mat.DenseCopyOf(out)
			Expect(model.MultiplyByJacobian(data, A, out, dynamo.AssignmentOp(9))).To(MatchError(dynamo.ErrInvalidArgument))
			Expect(mat.Equal(out, orig)).To(BeTrue())

			outT := mat.NewDense(model.NU(), rows, nil)
			Expect(model.MultiplyJacobianTransposeBy(data, A.T(), outT, dynamo.AssignmentOp(-1))).To(MatchError(dynamo.ErrInvalidArgument))
		})
	})
})

var _ = Describe("lower-order parametrizations", func() {
	rng := rand.New(rand.NewSource(11))

	DescribeTable("share the parametrization contract",
		func(model controls.Model, points int) {
			nw := model.NW()
			Expect(model.NU()).To(Equal(points * nw))

			data := model.CreateData()
			w := randomVec(rng, nw)
			for _, t := range sampleTimes {
				Expect(model.Params(data, t, w)).To(Succeed())
				Expect(model.Calc(data, t, data.U)).To(Succeed())
				Expect(mat.EqualApprox(data.W, w, 1e-10)).To(BeTrue())

				sum := 0.0
				for _, c := range data.C {
					sum += c
				}
				Expect(sum).To(BeNumerically("~", 1, tol))
			}

			u := randomVec(rng, model.NU())
			Expect(model.Calc(data, 0.4, u)).To(Succeed())
			Expect(model.CalcDiff(data, 0.4, u)).To(Succeed())

			var lin mat.VecDense
			lin.MulVec(data.DwDu, u)
			Expect(mat.EqualApprox(&lin, data.W, tol)).To(BeTrue())

			A := randomDense(rng, 2, nw)
			out := mat.NewDense(2, model.NU(), nil)
			Expect(model.MultiplyByJacobian(data, A, out, dynamo.SetTo)).To(Succeed())
			var want mat.Dense
			want.Mul(A, data.DwDu)
			Expect(mat.EqualApprox(out, &want, tol)).To(BeTrue())

			Expect(model.Calc(data, 0.4, mat.NewVecDense(model.NU()+1, nil))).To(MatchError(dynamo.ErrInvalidArgument))
		},
		Entry("PolyZero", mustModel(controls.NewPolyZero(2)), 1),
		Entry("PolyOne", mustModel(controls.NewPolyOne(3)), 2),
		Entry("PolyTwoRK4", mustModel(controls.NewPolyTwoRK4(2)), 3),
	)

	It("PolyOne interpolates t=0 and t=½", func() {
		model, err := controls.NewPolyOne(2)
		Expect(err).NotTo(HaveOccurred())
		data := model.CreateData()
		u := mat.NewVecDense(4, []float64{1, 2, 3, 4})

		Expect(model.Calc(data, 0, u)).To(Succeed())
		Expect(data.W.RawVector().Data).To(Equal([]float64{1, 2}))
		Expect(model.Calc(data, 0.5, u)).To(Succeed())
		Expect(data.W.RawVector().Data).To(Equal([]float64{3, 4}))
	})

	It("rejects data created by a different parametrization", func() {
		model := mustModel(controls.NewPolyTwoRK4(2))
		foreign := mustModel(controls.NewPolyZero(2)).CreateData()
		Expect(model.Calc(foreign, 0, mat.NewVecDense(6, nil))).To(MatchError(dynamo.ErrInvalidArgument))
	})

	It("rejects a control dimension below one", func() {
		for _, nw := range []int{0, -2} {
			_, err := controls.NewPolyZero(nw)
			Expect(err).To(MatchError(dynamo.ErrInvalidArgument))
			_, err = controls.NewPolyOne(nw)
			Expect(err).To(MatchError(dynamo.ErrInvalidArgument))
			_, err = controls.NewPolyTwoRK4(nw)
			Expect(err).To(MatchError(dynamo.ErrInvalidArgument))
		}
	})
})
