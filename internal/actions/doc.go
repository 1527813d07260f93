// Package actions defines discrete-time action models: the per-node unit of a
// shooting problem that maps (x, u) to the next state and a stage cost, and
// fills their first and second derivatives.
//
// Every model pairs with a data object created by [Model.CreateData]. Models
// are read-only during evaluation and may be shared across goroutines; data
// objects are owned by exactly one node and must not be shared.
//
// Variants:
//
//   - [LQR]: linear dynamics, quadratic cost
//   - [Unicycle]: planar unicycle with quadratic regulation cost
//   - [NumDiff]: wraps any model and replaces its derivatives by finite
//     differences
package actions
