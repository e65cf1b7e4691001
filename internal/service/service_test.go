package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"pipenet/internal/config"
	"pipenet/internal/domain"
	"pipenet/internal/loader"
	"pipenet/internal/metrics"
	"pipenet/internal/repository/sqlite"
	"pipenet/internal/topology"

	"github.com/paulmach/orb"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc     *DesignService
	repo    *sqlite.Repository
	events  chan Event
	metrics *metrics.Registry
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	repo, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	bus := NewEventBus()
	events := make(chan Event, 256)
	bus.Subscribe(events)

	reg := metrics.NewRegistry()
	svc := NewDesignService(repo, bus, cfg, reg)

	clock := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	}
	ids := 0
	svc.newID = func() string {
		ids++
		return fmt.Sprintf("run-%d", ids)
	}

	return &fixture{svc: svc, repo: repo, events: events, metrics: reg}
}

func (f *fixture) drain() []EventType {
	var types []EventType
	for {
		select {
		case e := <-f.events:
			types = append(types, e.Type)
		default:
			return types
		}
	}
}

func point(x, y float64) topology.PointFeature {
	return topology.PointFeature{Geometry: orb.Point{x, y}}
}

func line(id string, pts ...orb.Point) topology.LineFeature {
	return topology.LineFeature{ID: id, Geometry: orb.LineString(pts)}
}

// plotDesign is a source (z=10), a valve (z=5) and an emitter drawing
// 10 m³/h, 100 m apart
func plotDesign() *loader.Design {
	src := point(0, 0)
	src.ID = "well"
	z := 10.0
	src.Elevation = &z

	valve := point(100, 0)
	valve.ID = "v1"
	zv := 5.0
	valve.Elevation = &zv

	emitter := point(200, 0)
	emitter.ID = "e1"
	emitter.Demand = 10

	return &loader.Design{
		Name: "plot",
		Input: topology.Input{
			Sources:  []topology.PointFeature{src},
			Valves:   []topology.PointFeature{valve},
			Emitters: []topology.PointFeature{emitter},
			Lines: map[domain.LinkRole][]topology.LineFeature{
				domain.LinkRoleMain:    {line("m", orb.Point{0, 0}, orb.Point{100, 0})},
				domain.LinkRoleLateral: {line("l", orb.Point{100, 0}, orb.Point{200, 0})},
			},
		},
		Invalid:  1,
		Warnings: []string{"feature 9: unknown role"},
	}
}

func TestRunGreedy(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	run, err := f.svc.Run(ctx, plotDesign(), RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, "plot", run.Name)
	assert.Equal(t, domain.OptimizerGreedy, run.Optimizer)
	assert.Equal(t, domain.StatusOK, run.Status)
	assert.Equal(t, 1, run.InvalidItems)
	assert.Equal(t, 3, run.Summary.NodeCount)
	assert.Equal(t, 2, run.Summary.LinkCount)
	assert.Zero(t, run.Violations)
	require.NotNil(t, run.Snapshot)

	emitter, ok := run.Snapshot.Node("emitter_e1")
	require.True(t, ok)
	assert.GreaterOrEqual(t, emitter.Pressure, 10.0)
	assert.Equal(t, "lateral_l_0", emitter.Upstream)

	stored, err := f.svc.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Summary, stored.Summary)
	assert.Equal(t, run.Snapshot, stored.Snapshot)

	assert.Equal(t, []EventType{EventRunStarted, EventRunCompleted}, f.drain())
}

func TestRunGenetic(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Genetic.PopulationSize = 20
	cfg.Genetic.Generations = 30
	cfg.Genetic.ProgressEvery = 10
	f := newFixture(t, cfg)

	seed := int64(11)
	run, err := f.svc.Run(context.Background(), plotDesign(), RunOptions{Optimizer: "genetic", Seed: &seed, Name: "ga"})
	require.NoError(t, err)

	assert.Equal(t, "ga", run.Name)
	assert.Equal(t, domain.OptimizerGenetic, run.Optimizer)
	assert.Equal(t, int64(11), run.Seed)
	assert.Equal(t, 20*30, run.Evaluations)
	assert.Equal(t, domain.StatusOK, run.Status)
	assert.InDelta(t, 360.0, run.Summary.TotalCost, 1e-9)

	assert.Equal(t, []EventType{
		EventRunStarted,
		EventOptimizerProgress, EventOptimizerProgress, EventOptimizerProgress,
		EventRunCompleted,
	}, f.drain())
}

func TestRunGeneticSeedIsRecorded(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Genetic.PopulationSize = 4
	cfg.Genetic.Generations = 3
	f := newFixture(t, cfg)

	run, err := f.svc.Run(context.Background(), plotDesign(), RunOptions{Optimizer: "genetic"})
	require.NoError(t, err)
	assert.NotZero(t, run.Seed)

	replay, err := f.svc.Run(context.Background(), plotDesign(), RunOptions{Optimizer: "genetic", Seed: &run.Seed})
	require.NoError(t, err)
	assert.Equal(t, run.BestFitness, replay.BestFitness)
	assert.Equal(t, run.Snapshot, replay.Snapshot)
}

func TestRunEmptyDesign(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	run, err := f.svc.Run(ctx, &loader.Design{Name: "empty"}, RunOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoData))
	require.NotNil(t, run)
	assert.Equal(t, domain.StatusNoData, run.Status)

	stored, err := f.svc.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNoData, stored.Status)
	assert.Nil(t, stored.Snapshot)

	assert.Equal(t, []EventType{EventRunStarted, EventRunFailed}, f.drain())
}

func TestRunCycleRejected(t *testing.T) {
	f := newFixture(t, nil)

	a, b, c := orb.Point{0, 0}, orb.Point{100, 0}, orb.Point{100, 100}
	design := &loader.Design{
		Name: "loop",
		Input: topology.Input{
			Sources: []topology.PointFeature{point(0, 0)},
			Valves:  []topology.PointFeature{point(100, 0), point(100, 100)},
			Lines: map[domain.LinkRole][]topology.LineFeature{
				domain.LinkRoleMain: {line("ab", a, b), line("bc", b, c), line("ca", c, a)},
			},
		},
	}

	run, err := f.svc.Run(context.Background(), design, RunOptions{})
	var cycle *domain.CycleError
	require.True(t, errors.As(err, &cycle))
	assert.True(t, errors.Is(err, domain.ErrCycleDetected))
	assert.NotEmpty(t, cycle.Links)
	assert.Equal(t, domain.StatusFailed, run.Status)

	// The spanning-tree policy solves the same layout
	cfg := config.DefaultConfig()
	cfg.Hydraulics.CyclePolicy = "spanning_tree"
	f = newFixture(t, cfg)
	run, err = f.svc.Run(context.Background(), design, RunOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, domain.StatusFailed, run.Status)
	assert.NotEmpty(t, run.Warnings)
}

func TestRunRejectsUnknownOptimizer(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Run(context.Background(), plotDesign(), RunOptions{Optimizer: "annealing"})
	var unknown *domain.UnknownOptimizerError
	assert.True(t, errors.As(err, &unknown))

	infos, err := f.svc.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, infos)
	assert.Empty(t, f.drain())
}

func TestRunCanceled(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := f.svc.Run(ctx, plotDesign(), RunOptions{})
	assert.Nil(t, run)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, []EventType{EventRunStarted, EventRunFailed}, f.drain())
}

func TestListAndDeleteRuns(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Run(ctx, plotDesign(), RunOptions{Name: fmt.Sprintf("plot %d", i)})
		require.NoError(t, err)
	}

	infos, err := f.svc.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "run-3", infos[0].ID)
	assert.Equal(t, "run-2", infos[1].ID)

	f.drain()
	require.NoError(t, f.svc.DeleteRun(ctx, "run-2"))
	assert.Equal(t, []EventType{EventRunDeleted}, f.drain())

	_, err = f.svc.GetRun(ctx, "run-2")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.True(t, errors.Is(f.svc.DeleteRun(ctx, "run-2"), domain.ErrNotFound))
}

func TestExport(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	run, err := f.svc.Run(ctx, plotDesign(), RunOptions{})
	require.NoError(t, err)

	var buf bytes.Buffer
	contentType, err := f.svc.Export(ctx, run.ID, "geojson", &buf)
	require.NoError(t, err)
	assert.Equal(t, "application/geo+json", contentType)
	assert.Contains(t, buf.String(), `"FeatureCollection"`)

	_, err = f.svc.Export(ctx, run.ID, "shapefile", &buf)
	assert.Error(t, err)

	_, err = f.svc.Export(ctx, "missing", "json", &buf)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	buf.Reset()
	require.NoError(t, ExportRun(run, "yaml", &buf))
	assert.Contains(t, buf.String(), "name: plot")
}

func TestRunRecordsMetrics(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Run(context.Background(), plotDesign(), RunOptions{})
	require.NoError(t, err)
	_, _ = f.svc.Run(context.Background(), &loader.Design{}, RunOptions{})

	for _, status := range []string{"ok", "no_data"} {
		c, err := f.metrics.RunsTotal.GetMetricWithLabelValues("greedy", status)
		require.NoError(t, err)
		var m dto.Metric
		require.NoError(t, c.Write(&m))
		assert.Equal(t, 1.0, m.Counter.GetValue(), status)
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus()
	ch := make(chan Event, 1)
	var seen []EventType
	bus.OnPublish(func(e Event) { seen = append(seen, e.Type) })

	bus.Subscribe(ch)
	bus.Unsubscribe(ch)
	bus.Publish(Event{Type: EventRunDeleted})

	assert.Empty(t, ch)
	assert.Equal(t, []EventType{EventRunDeleted}, seen)
}

func TestEventBusSkipsSlowSubscriber(t *testing.T) {
	bus := NewEventBus()
	ch := make(chan Event)
	bus.Subscribe(ch)

	done := make(chan struct{})
	go func() {
		bus.Publish(Event{Type: EventRunStarted})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on an unbuffered subscriber")
	}
}
