package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dynopt/internal/dynamo"
)

// Stability is the fraction of visited states, terminal state included, that
// are finite with every component inside [-threshold, threshold].
type Stability struct {
	threshold float64
	bad, n    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{threshold: threshold}
}

func (*Stability) Name() string { return "stability" }

func (s *Stability) Observe(x, _ mat.Vector, _ int) { s.check(x) }

func (s *Stability) ObserveFinal(x mat.Vector) { s.check(x) }

func (s *Stability) check(x mat.Vector) {
	s.n++
	if !dynamo.IsFinite(x) || mat.Norm(x, math.Inf(1)) > s.threshold {
		s.bad++
	}
}

func (s *Stability) Value() float64 {
	if s.n == 0 {
		return 1
	}
	return 1 - float64(s.bad)/float64(s.n)
}

func (s *Stability) Reset() { s.bad, s.n = 0, 0 }
