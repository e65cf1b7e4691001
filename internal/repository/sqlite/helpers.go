package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pipenet/internal/domain"
)

// ============================================================================
// Null Type Conversion Helpers
// ============================================================================

// nullToString safely converts sql.NullString to string
func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// stringToNull safely converts string to sql.NullString
func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ============================================================================
// JSON Marshaling Helpers
// ============================================================================

// unmarshalJSONField safely unmarshals JSON from nullable string into target
func unmarshalJSONField(ns sql.NullString, target interface{}) error {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(ns.String), target)
}

// marshalToNull marshals v to a nullable JSON string.
// Nil values and empty slices are stored as NULL.
func marshalToNull(v interface{}) (sql.NullString, error) {
	switch x := v.(type) {
	case nil:
		return sql.NullString{}, nil
	case []string:
		if len(x) == 0 {
			return sql.NullString{}, nil
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// ============================================================================
// Schema Evolution Guide
// ============================================================================
//
// To add a new column to design_runs:
// 1. Add field to runRow struct (below)
// 2. Update scanArgs() and insertArgs() - APPEND to end to match column order
// 3. Update runColumns constant and runColumnCount - APPEND to end
// 4. Update toDomain() and runRowFromDomain()
// 5. Add the column in migrate()
// 6. Update relevant tests
//
// CRITICAL: Column order must match between runColumns, scanArgs() and
// insertArgs().

// ============================================================================
// Run Row Scanner
// ============================================================================

const runColumns = `id, name, optimizer, status, seed, created_at, duration_ns,
	iterations, evaluations, violations, unreachable, invalid_items, skipped_multipart,
	best_fitness, total_cost, node_count, link_count, warnings, summary, has_snapshot`

const runColumnCount = 20

// timeLayout has fixed width so created_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// runRow holds all columns from a design_runs query
type runRow struct {
	ID               string
	Name             string
	Optimizer        string
	Status           string
	Seed             int64
	CreatedAt        string
	DurationNS       int64
	Iterations       int
	Evaluations      int
	Violations       int
	Unreachable      int
	InvalidItems     int
	SkippedMultipart int
	BestFitness      float64
	TotalCost        float64
	NodeCount        int
	LinkCount        int
	WarningsJSON     sql.NullString
	SummaryJSON      sql.NullString
	HasSnapshot      bool
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match runColumns order exactly
func (r *runRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,               // 1
		&r.Name,             // 2
		&r.Optimizer,        // 3
		&r.Status,           // 4
		&r.Seed,             // 5
		&r.CreatedAt,        // 6
		&r.DurationNS,       // 7
		&r.Iterations,       // 8
		&r.Evaluations,      // 9
		&r.Violations,       // 10
		&r.Unreachable,      // 11
		&r.InvalidItems,     // 12
		&r.SkippedMultipart, // 13
		&r.BestFitness,      // 14
		&r.TotalCost,        // 15
		&r.NodeCount,        // 16
		&r.LinkCount,        // 17
		&r.WarningsJSON,     // 18
		&r.SummaryJSON,      // 19
		&r.HasSnapshot,      // 20
	}
}

// insertArgs returns the column values in runColumns order
func (r *runRow) insertArgs() []interface{} {
	return []interface{}{
		r.ID, r.Name, r.Optimizer, r.Status, r.Seed, r.CreatedAt, r.DurationNS,
		r.Iterations, r.Evaluations, r.Violations, r.Unreachable, r.InvalidItems, r.SkippedMultipart,
		r.BestFitness, r.TotalCost, r.NodeCount, r.LinkCount, r.WarningsJSON, r.SummaryJSON,
		boolToInt(r.HasSnapshot),
	}
}

func runRowFromDomain(run *domain.DesignRun) (*runRow, error) {
	warnings, err := marshalToNull(run.Warnings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal warnings: %w", err)
	}
	summary, err := marshalToNull(run.Summary)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary: %w", err)
	}

	return &runRow{
		ID:               run.ID,
		Name:             run.Name,
		Optimizer:        string(run.Optimizer),
		Status:           string(run.Status),
		Seed:             run.Seed,
		CreatedAt:        run.CreatedAt.UTC().Format(timeLayout),
		DurationNS:       int64(run.Duration),
		Iterations:       run.Iterations,
		Evaluations:      run.Evaluations,
		Violations:       run.Violations,
		Unreachable:      run.Unreachable,
		InvalidItems:     run.InvalidItems,
		SkippedMultipart: run.SkippedMultipart,
		BestFitness:      run.BestFitness,
		TotalCost:        run.Summary.TotalCost,
		NodeCount:        run.Summary.NodeCount,
		LinkCount:        run.Summary.LinkCount,
		WarningsJSON:     warnings,
		SummaryJSON:      summary,
		HasSnapshot:      run.Snapshot != nil,
	}, nil
}

// toDomain converts the row to a run without its snapshot
func (r *runRow) toDomain() (*domain.DesignRun, error) {
	createdAt, err := time.Parse(timeLayout, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at of %s: %w", r.ID, err)
	}

	run := &domain.DesignRun{
		ID:               r.ID,
		Name:             r.Name,
		Optimizer:        domain.OptimizerKind(r.Optimizer),
		Status:           domain.RunStatus(r.Status),
		Seed:             r.Seed,
		CreatedAt:        createdAt,
		Duration:         time.Duration(r.DurationNS),
		Iterations:       r.Iterations,
		Evaluations:      r.Evaluations,
		Violations:       r.Violations,
		Unreachable:      r.Unreachable,
		InvalidItems:     r.InvalidItems,
		SkippedMultipart: r.SkippedMultipart,
		BestFitness:      r.BestFitness,
	}

	if err := unmarshalJSONField(r.WarningsJSON, &run.Warnings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal warnings: %w", err)
	}
	if err := unmarshalJSONField(r.SummaryJSON, &run.Summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary: %w", err)
	}
	return run, nil
}
