// Package controls implements control parametrizations: maps from a finite
// parameter vector u to an instantaneous control w(t) over a normalized time
// interval t ∈ [0, 1], together with the Jacobian dw/du.
//
// A [Model] is immutable and may be shared by every time step that uses the
// same basis. A [Data] is scratch owned by exactly one time step; create it
// with [Model.CreateData] and call [Model.Calc] before [Model.CalcDiff] or
// any of the multiply helpers, which read the basis coefficients stored by
// Calc.
//
// Variants:
//
//   - [PolyZero]: constant control, nu = nw
//   - [PolyOne]: linear control through t=0 and t=½, nu = 2·nw
//   - [PolyTwoRK4]: quadratic control through t=0, ½ and 1, nu = 3·nw
package controls
