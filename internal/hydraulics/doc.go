// Package hydraulics computes steady-state flows, pressures and pipe
// diameters of a tree-shaped irrigation network.
//
// A Solver works in place on a domain.Network through five steps:
//
//  1. ResolveDirections orients links away from the sources breadth first
//  2. AccumulateFlows assigns every link the demand downstream of it,
//     capped at the largest single demand times the simultaneity factor
//  3. InitialSizing picks the smallest catalog diameter keeping velocity
//     under the limit, then computes Hazen-Williams head loss
//  4. PropagatePressures walks down from the sources applying head loss
//     and elevation change
//  5. Optimize upgrades, one catalog step at a time, the link with the
//     highest unit head loss on the path to the worst-pressure node
//
// Flows are kept in m³/h and diameters in mm on the network; the formulas
// in this package take SI units. Links closing a loop are either rejected
// with a *domain.CycleError or left out of the model, depending on the
// CyclePolicy.
package hydraulics
