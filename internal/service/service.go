package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"pipenet/internal/codec"
	"pipenet/internal/config"
	"pipenet/internal/domain"
	"pipenet/internal/genetic"
	"pipenet/internal/hydraulics"
	"pipenet/internal/loader"
	"pipenet/internal/metrics"
	"pipenet/internal/repository"
	"pipenet/internal/topology"

	"github.com/google/uuid"
)

// DefaultListLimit bounds ListRuns when the caller passes no limit
const DefaultListLimit = 100

// RunOptions selects how a design is solved
type RunOptions struct {
	Optimizer string // greedy or genetic; empty uses the configured default
	Seed      *int64 // genetic seed; nil uses the configured seed or the clock
	Name      string // overrides the design name
}

// ProgressPayload is published with optimizer_progress events
type ProgressPayload struct {
	RunID string `json:"run_id"`
	genetic.Progress
}

// FailurePayload is published with run_failed events
type FailurePayload struct {
	RunID  string           `json:"run_id"`
	Status domain.RunStatus `json:"status"`
	Error  string           `json:"error"`
}

// DesignService turns design documents into solved, stored design runs
type DesignService struct {
	repo     repository.Repository
	eventBus *EventBus
	cfg      *config.Config
	metrics  *metrics.Registry

	now   func() time.Time
	newID func() string
}

// NewDesignService creates a new design service. A nil config uses the
// defaults; a nil metrics registry disables instrumentation.
func NewDesignService(repo repository.Repository, eventBus *EventBus, cfg *config.Config, m *metrics.Registry) *DesignService {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &DesignService{
		repo:     repo,
		eventBus: eventBus,
		cfg:      cfg,
		metrics:  m,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// RunFile loads a design file and runs it
func (s *DesignService) RunFile(ctx context.Context, path string, opts RunOptions) (*domain.DesignRun, error) {
	design, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, design, opts)
}

// Run builds the network of design, sizes it with the selected optimizer
// and stores the result. Runs ending in no_data or failed are stored too
// and returned together with the error that ended them.
func (s *DesignService) Run(ctx context.Context, design *loader.Design, opts RunOptions) (*domain.DesignRun, error) {
	if design == nil {
		return nil, fmt.Errorf("design is required")
	}

	optimizer := opts.Optimizer
	if optimizer == "" {
		optimizer = s.cfg.Optimizer
	}
	kind, err := domain.ParseOptimizerKind(optimizer)
	if err != nil {
		return nil, err
	}

	name := opts.Name
	if name == "" {
		name = design.Name
	}

	start := s.now()
	run := &domain.DesignRun{
		ID:           s.newID(),
		Name:         name,
		Optimizer:    kind,
		Status:       domain.StatusOK,
		CreatedAt:    start.UTC(),
		InvalidItems: design.Invalid,
		Warnings:     append([]string(nil), design.Warnings...),
	}

	if s.metrics != nil {
		s.metrics.RunStarted()
	}
	s.eventBus.Publish(Event{
		Type:    EventRunStarted,
		Payload: map[string]string{"run_id": run.ID, "name": run.Name, "optimizer": string(kind)},
	})

	runErr := s.solve(ctx, design, opts, run)
	run.Duration = s.now().Sub(start)

	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		run.Status = domain.StatusFailed
		s.finish(run, runErr)
		return nil, runErr
	}

	if err := s.repo.SaveRun(ctx, run); err != nil {
		s.finish(run, err)
		return nil, fmt.Errorf("save run: %w", err)
	}

	s.finish(run, runErr)
	if runErr != nil {
		return run, runErr
	}
	return run, nil
}

// solve fills run from the design; the returned error is the one that
// set a no_data or failed status
func (s *DesignService) solve(ctx context.Context, design *loader.Design, opts RunOptions, run *domain.DesignRun) error {
	builderOpts := append(s.cfg.BuilderOptions(), topology.WithSampler(design.Sampler))
	net, buildReport, err := topology.NewBuilder(builderOpts...).Build(design.Input)
	if err != nil {
		run.Status = domain.StatusFailed
		return err
	}
	run.InvalidItems += buildReport.InvalidItems
	run.SkippedMultipart = buildReport.SkippedMultipart
	run.Warnings = append(run.Warnings, buildReport.Warnings...)

	if err := ctx.Err(); err != nil {
		return err
	}

	solver, err := hydraulics.New(net, s.cfg.SolverOptions()...)
	if err != nil {
		run.Status = domain.StatusFailed
		return err
	}

	var report *hydraulics.Report
	switch run.Optimizer {
	case domain.OptimizerGenetic:
		report, err = solver.Prepare()
		if err == nil {
			err = s.optimizeGenetic(ctx, solver, opts, run)
		}
	default:
		report, err = solver.Solve()
	}

	if report != nil {
		run.Unreachable = report.Unreachable
		run.Warnings = append(run.Warnings, report.Warnings...)
		if run.Optimizer == domain.OptimizerGreedy {
			run.Iterations = report.Iterations
			run.Violations = report.Violations
			run.Status = report.Status
		}
	}
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoData):
			run.Status = domain.StatusNoData
		default:
			run.Status = domain.StatusFailed
		}
		return err
	}

	run.Summary = net.Summarize(solver.Catalog())
	run.Snapshot = net.Snapshot()
	return nil
}

func (s *DesignService) optimizeGenetic(ctx context.Context, solver *hydraulics.Solver, opts RunOptions, run *domain.DesignRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	seed := opts.Seed
	if seed == nil {
		seed = s.cfg.Genetic.Seed
	}
	if seed == nil {
		clock := s.now().UnixNano()
		seed = &clock
	}
	run.Seed = *seed

	gaOpts := append(s.cfg.GeneticOptions(seed),
		genetic.WithProgress(s.cfg.Genetic.ProgressEvery, func(p genetic.Progress) {
			s.eventBus.Publish(Event{
				Type:    EventOptimizerProgress,
				Payload: ProgressPayload{RunID: run.ID, Progress: p},
			})
		}),
	)

	optimizer, err := genetic.New(solver, gaOpts...)
	if err != nil {
		return err
	}
	result, err := optimizer.Optimize()
	if err != nil {
		return err
	}

	run.Evaluations = result.Evaluations
	run.BestFitness = result.BestFitness
	run.Violations = result.Violations
	if result.Feasible {
		run.Status = domain.StatusOK
	} else {
		run.Status = domain.StatusInfeasible
	}
	return nil
}

// finish records metrics, logs and publishes the outcome of a run
func (s *DesignService) finish(run *domain.DesignRun, err error) {
	if s.metrics != nil {
		s.metrics.RunFinished(metrics.RunOutcome{
			Optimizer:    string(run.Optimizer),
			Status:       string(run.Status),
			Duration:     run.Duration,
			Iterations:   run.Iterations,
			Evaluations:  run.Evaluations,
			Links:        run.Summary.LinkCount,
			InvalidItems: run.InvalidItems,
			Violations:   run.Violations,
			Cost:         run.Summary.TotalCost,
		})
	}

	if err != nil {
		log.Printf("Design run %s (%s) failed: %v", run.ID, run.Name, err)
		s.eventBus.Publish(Event{
			Type:    EventRunFailed,
			Payload: FailurePayload{RunID: run.ID, Status: run.Status, Error: err.Error()},
		})
		return
	}

	log.Printf("Design run %s (%s) completed: status=%s cost=%.2f links=%d in %s",
		run.ID, run.Name, run.Status, run.Summary.TotalCost, run.Summary.LinkCount, run.Duration)
	s.eventBus.Publish(Event{
		Type:    EventRunCompleted,
		Payload: run.Info(),
	})
}

// GetRun retrieves a stored run by ID
func (s *DesignService) GetRun(ctx context.Context, id string) (*domain.DesignRun, error) {
	return s.repo.GetRun(ctx, id)
}

// ListRuns returns stored runs newest first
func (s *DesignService) ListRuns(ctx context.Context, limit int) ([]domain.RunInfo, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return s.repo.ListRuns(ctx, limit)
}

// DeleteRun removes a stored run
func (s *DesignService) DeleteRun(ctx context.Context, id string) error {
	if err := s.repo.DeleteRun(ctx, id); err != nil {
		return err
	}

	s.eventBus.Publish(Event{
		Type:    EventRunDeleted,
		Payload: map[string]string{"run_id": id},
	})
	return nil
}

// Export writes a stored run in the given format and returns its content type
func (s *DesignService) Export(ctx context.Context, id, format string, w io.Writer) (string, error) {
	exporter, err := codec.ForFormat(format)
	if err != nil {
		return "", err
	}

	run, err := s.repo.GetRun(ctx, id)
	if err != nil {
		return "", err
	}

	if err := exporter.Export(run, w); err != nil {
		return "", err
	}
	return exporter.ContentType(), nil
}

// ExportRun writes an in-memory run in the given format
func ExportRun(run *domain.DesignRun, format string, w io.Writer) error {
	exporter, err := codec.ForFormat(format)
	if err != nil {
		return err
	}
	return exporter.Export(run, w)
}
