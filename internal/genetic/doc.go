// Package genetic implements a genetic search over pipe diameters.
//
// Each individual assigns a standard catalog diameter to every non-hose
// link of a prepared network. Fitness is the pipe cost plus a quadratic
// penalty on the pressure deficit of valves and emitters connected to a
// source; lower is better. Evaluating an individual writes its diameters
// to the network and asks the solver to recompute head losses and
// pressures, so flows and directions must already be in place.
//
// All randomness comes from the *rand.Rand given with WithRand or
// WithSeed, which makes runs reproducible.
package genetic
