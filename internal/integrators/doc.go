// Package integrators turns a differential model into a discrete action
// model by integrating it over one time step, with the control over the step
// generated by a control parametrization.
//
// The resulting models implement actions.Model with nu equal to the
// parametrization's NU. Derivatives with respect to the parameters are
// composed from the differential derivatives with the parametrization's
// MultiplyByJacobian and MultiplyJacobianTransposeBy helpers.
package integrators
