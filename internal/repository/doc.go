// Package repository defines the data access interface for design runs.
//
// A design run is stored as one row in design_runs plus its snapshot
// rows in run_nodes and run_links. The snapshot tables cascade on run
// deletion, so removing a run never leaves orphaned rows.
//
// # SQLite Implementation
//
// The sqlite subpackage implements Repository on modernc.org/sqlite, a
// pure Go driver. File databases run in WAL mode; tests use in-memory
// databases.
package repository
