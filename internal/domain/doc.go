// Package domain defines the core domain types for the pipenet irrigation design system.
//
// This package contains the pipe network model that the topology builder produces
// and the hydraulic solver and optimizers mutate in place.
//
// # Core Types
//
// Network owns every Node and Link of one design run. Records live in slices and
// reference each other by integer index (NodeIndex, LinkIndex) instead of
// pointers, so the bidirectional back-references written during direction
// resolution never form ownership cycles.
//
// Node represents a point of the network: the water source, a control valve, an
// emitter (demand point) or a junction synthesized where pipe segments meet.
//
// Link represents a straight pipe segment between two nodes with a role
// (hose, lateral, derivation, main) and the computed hydraulic results.
//
// # Diameter Catalog
//
// Catalog holds the discrete commercial diameter sets. Hose links draw from a
// restricted two-value set; every other role uses the standard six-value set.
//
// # Results
//
// Snapshot is the flattened read-only view of a solved network handed to
// exporters and persistence. DesignRun is the stored record of one run.
//
// # Design Principles
//
// - No database or external dependencies beyond geometry value types
// - Topology is immutable after construction; only computed fields change
// - Deterministic ordering everywhere so runs are reproducible
package domain
