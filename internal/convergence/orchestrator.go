package convergence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/saviobatista/sbs-deconflict/internal/conflict"
	"github.com/saviobatista/sbs-deconflict/internal/log"
	"github.com/saviobatista/sbs-deconflict/internal/resolver"
	"github.com/saviobatista/sbs-deconflict/internal/simulate"
	"github.com/saviobatista/sbs-deconflict/internal/state"
	"github.com/saviobatista/sbs-deconflict/internal/stats"
	"github.com/saviobatista/sbs-deconflict/internal/storage"
	"github.com/saviobatista/sbs-deconflict/internal/types"
)

// Publisher receives pass and run events
type Publisher interface {
	PublishPass(ctx context.Context, event *types.PassEvent) error
	PublishOutcome(ctx context.Context, summary *types.RunSummary) error
}

// Recorder keeps the run history in a database
type Recorder interface {
	CreateRun(ctx context.Context, runID string, startedAt time.Time, reset bool) error
	FinishRun(ctx context.Context, summary *types.RunSummary) error
	StorePassStats(ctx context.Context, event *types.PassEvent) error
	StoreConflicts(ctx context.Context, runID string, pass int, clusters []types.Cluster) error
	StoreRunTotals(ctx context.Context, totals *types.RunTotals) error
}

// ReportCache holds the latest report and summary for other readers
type ReportCache interface {
	StoreReport(ctx context.Context, clusters []types.Cluster) error
	StoreSummary(ctx context.Context, summary *types.RunSummary) error
}

// PassResult is the outcome of one simulate, detect and resolve pass
type PassResult struct {
	Event      *types.PassEvent
	Clusters   []types.Cluster
	Resolution *resolver.Result
}

// Orchestrator drives passes over the flight plans until the stopping
// rules end the run. Reports, Publisher, Recorder and Cache are optional
// sinks; their failures are logged and never stop a run.
type Orchestrator struct {
	plans    []types.FlightPlan
	store    state.Store
	sim      *simulate.Simulator
	detector *conflict.Detector
	resolver *resolver.Resolver

	Rules     Rules
	Reports   *storage.Reports
	Publisher Publisher
	Recorder  Recorder
	Cache     ReportCache

	lg *log.Logger
}

// New creates an orchestrator with the default rules
func New(plans []types.FlightPlan, store state.Store, sim *simulate.Simulator, detector *conflict.Detector, res *resolver.Resolver, lg *log.Logger) *Orchestrator {
	return &Orchestrator{
		plans:    plans,
		store:    store,
		sim:      sim,
		detector: detector,
		resolver: res,
		Rules:    DefaultRules(),
		lg:       lg,
	}
}

// prepare resets the state or checks that an existing one is readable
func (o *Orchestrator) prepare(ctx context.Context, reset bool) error {
	if reset {
		if _, err := state.Reset(ctx, o.store, o.plans); err != nil {
			return err
		}
		o.lg.Info("state reset from flight plans", "aircraft", len(o.plans))
		return nil
	}

	st, err := o.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load existing state: %w", err)
	}
	o.lg.Info("continuing from existing state", "aircraft", len(st))
	return nil
}

// RunOnce executes a single pass, optionally resetting the state first
func (o *Orchestrator) RunOnce(ctx context.Context, reset bool) (*PassResult, error) {
	if err := o.prepare(ctx, reset); err != nil {
		return nil, err
	}
	return o.RunPass(ctx, uuid.NewString(), 1)
}

// RunPass simulates, detects and resolves once
func (o *Orchestrator) RunPass(ctx context.Context, runID string, pass int) (*PassResult, error) {
	start := time.Now()
	lg := o.lg.With("run_id", runID, "pass", pass)

	st, err := o.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	snapshots, err := o.sim.Snapshots(o.plans, st)
	if err != nil {
		return nil, fmt.Errorf("failed to simulate flights: %w", err)
	}

	clusters := o.detector.DetectAll(snapshots)
	lg.Info("conflicts detected", "snapshots", len(snapshots), "clusters", len(clusters))

	o.publishReport(ctx, lg, runID, pass, clusters)

	res, err := o.resolver.Resolve(ctx, clusters)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve conflicts: %w", err)
	}

	event := &types.PassEvent{
		RunID:           runID,
		Pass:            pass,
		Conflicts:       len(clusters),
		AltitudeChanges: res.AltitudeChanges,
		SpeedChanges:    res.SpeedChanges,
		Unresolved:      res.Unresolved,
		Skipped:         res.Skipped,
		Duration:        float64(time.Since(start).Microseconds()) / 1000,
		Timestamp:       time.Now().UTC(),
	}

	if o.Publisher != nil {
		if err := o.Publisher.PublishPass(ctx, event); err != nil {
			lg.Warn("failed to publish pass event", "error", err)
		}
	}
	if o.Recorder != nil {
		if err := o.Recorder.StorePassStats(ctx, event); err != nil {
			lg.Warn("failed to store pass stats", "error", err)
		}
	}

	return &PassResult{Event: event, Clusters: clusters, Resolution: res}, nil
}

func (o *Orchestrator) publishReport(ctx context.Context, lg *log.Logger, runID string, pass int, clusters []types.Cluster) {
	if o.Reports != nil {
		if err := o.Reports.WriteReport(clusters); err != nil {
			lg.Warn("failed to write conflict report", "error", err)
		}
		if path, err := o.Reports.Archive(pass, clusters); err != nil {
			lg.Warn("failed to archive conflict report", "error", err)
		} else if path != "" {
			lg.Debug("conflict report archived", "path", path)
		}
	}
	if o.Cache != nil {
		if err := o.Cache.StoreReport(ctx, clusters); err != nil {
			lg.Warn("failed to cache conflict report", "error", err)
		}
	}
	if o.Recorder != nil {
		if err := o.Recorder.StoreConflicts(ctx, runID, pass, clusters); err != nil {
			lg.Warn("failed to store conflicts", "error", err)
		}
	}
}

// Run repeats passes until the stopping rules end the run. Stuck,
// oscillating and exhausted runs are reported through the summary, not
// as errors.
func (o *Orchestrator) Run(ctx context.Context, reset bool) (*types.RunSummary, error) {
	runID := uuid.NewString()
	started := time.Now().UTC()
	lg := o.lg.With("run_id", runID)

	if err := o.prepare(ctx, reset); err != nil {
		return nil, err
	}

	runStats := stats.New(runID)
	if o.Recorder != nil {
		runStats.SetPersister(o.Recorder)
		if err := o.Recorder.CreateRun(ctx, runID, started, reset); err != nil {
			lg.Warn("failed to record run start", "error", err)
		}
	}

	monitor := NewMonitor(o.Rules)
	var (
		history []int
		verdict Verdict
	)
	for pass := 1; ; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pr, err := o.RunPass(ctx, runID, pass)
		if err != nil {
			return nil, fmt.Errorf("pass %d: %w", pass, err)
		}
		runStats.RecordPass(pr.Event)
		history = append(history, pr.Event.Conflicts)

		verdict = monitor.Observe(pr.Event.Conflicts)
		lg.Info("pass complete",
			"pass", pass,
			"conflicts", pr.Event.Conflicts,
			"altitude_changes", pr.Event.AltitudeChanges,
			"speed_changes", pr.Event.SpeedChanges,
			"verdict", verdict.Outcome)
		if verdict.Terminal() {
			break
		}
	}

	summary := &types.RunSummary{
		RunID:      runID,
		Outcome:    string(verdict.Outcome),
		Success:    verdict.Success,
		Passes:     monitor.Passes(),
		FinalCount: history[len(history)-1],
		History:    history,
		StartedAt:  started,
		EndedAt:    time.Now().UTC(),
	}
	o.finish(ctx, lg, summary, runStats)
	return summary, nil
}

func (o *Orchestrator) finish(ctx context.Context, lg *log.Logger, summary *types.RunSummary, runStats *stats.Stats) {
	if o.Recorder != nil {
		if err := o.Recorder.FinishRun(ctx, summary); err != nil {
			lg.Warn("failed to record run end", "error", err)
		}
		if err := runStats.Persist(ctx); err != nil {
			lg.Warn("failed to persist run totals", "error", err)
		}
	}
	if o.Publisher != nil {
		if err := o.Publisher.PublishOutcome(ctx, summary); err != nil {
			lg.Warn("failed to publish outcome", "error", err)
		}
	}
	if o.Cache != nil {
		if err := o.Cache.StoreSummary(ctx, summary); err != nil {
			lg.Warn("failed to cache run summary", "error", err)
		}
	}

	if summary.Success {
		lg.Info("run converged",
			"outcome", summary.Outcome,
			"passes", summary.Passes,
			"final_count", summary.FinalCount)
	} else {
		lg.Warn("run stopped without converging",
			"outcome", summary.Outcome,
			"passes", summary.Passes,
			"final_count", summary.FinalCount)
	}
	lg.Debug(runStats.String())
}
