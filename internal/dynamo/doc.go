// Package dynamo provides the numeric primitives shared by every model in
// dynopt.
//
// The package defines the conventions that action models and control
// parametrizations agree on:
//
//   - [ErrInvalidArgument] and [ArgumentError]: the single failure kind for
//     dimension mismatches, unknown accumulation modes and rejected Hessians
//   - [AssignmentOp]: how a computed block combines with an existing buffer
//     (set, add or subtract)
//   - [CheckVec], [CheckMat]: dimension gates run before any buffer is written
//   - [CheckPSD]: the positive semi-definiteness gate for cost Hessians
//
// # Example
//
//	if err := dynamo.CheckVec("x", x, nx); err != nil {
//		return err
//	}
//	return dynamo.Assign(out, c0, A, dynamo.AddTo)
//
// # Thread Safety
//
// Everything here is stateless. Callers own the matrices they pass in and
// must not share an output buffer between goroutines.
package dynamo
