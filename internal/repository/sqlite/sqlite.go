package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"pipenet/internal/domain"

	_ "modernc.org/sqlite"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository. ":memory:" opens a private
// in-memory database.
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps in-memory databases and pragmas alive
	db.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"}
	if dbPath != ":memory:" && !strings.Contains(dbPath, "mode=memory") {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS design_runs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		optimizer TEXT NOT NULL,
		status TEXT NOT NULL,
		seed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		duration_ns INTEGER NOT NULL DEFAULT 0,
		iterations INTEGER NOT NULL DEFAULT 0,
		evaluations INTEGER NOT NULL DEFAULT 0,
		violations INTEGER NOT NULL DEFAULT 0,
		unreachable INTEGER NOT NULL DEFAULT 0,
		invalid_items INTEGER NOT NULL DEFAULT 0,
		skipped_multipart INTEGER NOT NULL DEFAULT 0,
		best_fitness REAL NOT NULL DEFAULT 0,
		total_cost REAL NOT NULL DEFAULT 0,
		node_count INTEGER NOT NULL DEFAULT 0,
		link_count INTEGER NOT NULL DEFAULT 0,
		warnings JSON,
		summary JSON,
		has_snapshot INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS run_nodes (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		id TEXT NOT NULL,
		role TEXT NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		elevation REAL NOT NULL,
		demand REAL NOT NULL,
		pressure REAL NOT NULL,
		upstream TEXT,
		reachable INTEGER NOT NULL,
		PRIMARY KEY (run_id, id),
		FOREIGN KEY (run_id) REFERENCES design_runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS run_links (
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		id TEXT NOT NULL,
		role TEXT NOT NULL,
		start_id TEXT NOT NULL,
		end_id TEXT NOT NULL,
		directed INTEGER NOT NULL,
		diameter REAL NOT NULL,
		flow REAL NOT NULL,
		head_loss REAL NOT NULL,
		velocity REAL NOT NULL,
		length REAL NOT NULL,
		geometry JSON,
		PRIMARY KEY (run_id, id),
		FOREIGN KEY (run_id) REFERENCES design_runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_design_runs_created ON design_runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_run_nodes_seq ON run_nodes(run_id, seq);
	CREATE INDEX IF NOT EXISTS idx_run_links_seq ON run_links(run_id, seq);
	`

	_, err := r.db.Exec(schema)
	return err
}

// SaveRun stores a run and its snapshot, replacing any run with the same ID
func (r *Repository) SaveRun(ctx context.Context, run *domain.DesignRun) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run ID is required")
	}

	row, err := runRowFromDomain(run)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM design_runs WHERE id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to replace run: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO design_runs (`+runColumns+`) VALUES (`+placeholders(runColumnCount)+`)`,
		row.insertArgs()...)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if run.Snapshot != nil {
		if err := insertSnapshot(ctx, tx, run.ID, run.Snapshot); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

func insertSnapshot(ctx context.Context, tx *sql.Tx, runID string, s *domain.Snapshot) error {
	nodeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_nodes (run_id, seq, id, role, x, y, elevation, demand, pressure, upstream, reachable)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare node insert: %w", err)
	}
	defer nodeStmt.Close()

	for i, n := range s.Nodes {
		_, err := nodeStmt.ExecContext(ctx, runID, i, n.ID, string(n.Role),
			n.Position.X(), n.Position.Y(), n.Elevation, n.Demand, n.Pressure,
			stringToNull(n.Upstream), boolToInt(n.Reachable))
		if err != nil {
			return fmt.Errorf("failed to insert node %s: %w", n.ID, err)
		}
	}

	linkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_links (run_id, seq, id, role, start_id, end_id, directed, diameter, flow, head_loss, velocity, length, geometry)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare link insert: %w", err)
	}
	defer linkStmt.Close()

	for i, l := range s.Links {
		geometry, err := marshalToNull(l.Geometry)
		if err != nil {
			return fmt.Errorf("failed to marshal geometry of %s: %w", l.ID, err)
		}
		_, err = linkStmt.ExecContext(ctx, runID, i, l.ID, string(l.Role), l.Start, l.End,
			boolToInt(l.Directed), l.Diameter, l.Flow, l.HeadLoss, l.Velocity, l.Length, geometry)
		if err != nil {
			return fmt.Errorf("failed to insert link %s: %w", l.ID, err)
		}
	}
	return nil
}

// GetRun loads a run with its snapshot
func (r *Repository) GetRun(ctx context.Context, id string) (*domain.DesignRun, error) {
	var row runRow
	err := r.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM design_runs WHERE id = ?`, id).Scan(row.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	run, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	if row.HasSnapshot {
		snapshot, err := r.loadSnapshot(ctx, id)
		if err != nil {
			return nil, err
		}
		run.Snapshot = snapshot
	}
	return run, nil
}

func (r *Repository) loadSnapshot(ctx context.Context, runID string) (*domain.Snapshot, error) {
	s := &domain.Snapshot{Nodes: []domain.NodeView{}, Links: []domain.LinkView{}}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, role, x, y, elevation, demand, pressure, upstream, reachable
		FROM run_nodes WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			n         domain.NodeView
			role      string
			x, y      float64
			upstream  sql.NullString
			reachable int
		)
		if err := rows.Scan(&n.ID, &role, &x, &y, &n.Elevation, &n.Demand, &n.Pressure, &upstream, &reachable); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		n.Role = domain.NodeRole(role)
		n.Position[0], n.Position[1] = x, y
		n.Upstream = nullToString(upstream)
		n.Reachable = reachable != 0
		s.Nodes = append(s.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nodes: %w", err)
	}

	linkRows, err := r.db.QueryContext(ctx, `
		SELECT id, role, start_id, end_id, directed, diameter, flow, head_loss, velocity, length, geometry
		FROM run_links WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer linkRows.Close()

	for linkRows.Next() {
		var (
			l        domain.LinkView
			role     string
			directed int
			geometry sql.NullString
		)
		if err := linkRows.Scan(&l.ID, &role, &l.Start, &l.End, &directed,
			&l.Diameter, &l.Flow, &l.HeadLoss, &l.Velocity, &l.Length, &geometry); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		l.Role = domain.LinkRole(role)
		l.Directed = directed != 0
		if err := unmarshalJSONField(geometry, &l.Geometry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal geometry of %s: %w", l.ID, err)
		}
		s.Links = append(s.Links, l)
	}
	if err := linkRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return s, nil
}

// ListRuns returns run entries newest first. limit <= 0 returns all runs.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]domain.RunInfo, error) {
	query := `SELECT ` + runColumns + ` FROM design_runs ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	infos := []domain.RunInfo{}
	for rows.Next() {
		var row runRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		infos = append(infos, run.Info())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return infos, nil
}

// DeleteRun removes a run; its snapshot rows cascade
func (r *Repository) DeleteRun(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM design_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
