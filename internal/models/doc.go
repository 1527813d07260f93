// Package models holds continuous-time (differential) models: ẋ = f(x, w)
// with a running cost rate ℓ(x, w). They are turned into discrete action
// models by the integrators package.
package models
