package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/saviobatista/sbs-deconflict/internal/config"
	"github.com/saviobatista/sbs-deconflict/internal/conflict"
	"github.com/saviobatista/sbs-deconflict/internal/convergence"
	"github.com/saviobatista/sbs-deconflict/internal/db"
	"github.com/saviobatista/sbs-deconflict/internal/flightdata"
	"github.com/saviobatista/sbs-deconflict/internal/log"
	"github.com/saviobatista/sbs-deconflict/internal/nats"
	"github.com/saviobatista/sbs-deconflict/internal/redis"
	"github.com/saviobatista/sbs-deconflict/internal/resolver"
	"github.com/saviobatista/sbs-deconflict/internal/route"
	"github.com/saviobatista/sbs-deconflict/internal/simulate"
	"github.com/saviobatista/sbs-deconflict/internal/state"
	"github.com/saviobatista/sbs-deconflict/internal/storage"
	"github.com/saviobatista/sbs-deconflict/internal/types"
)

// app holds everything a command needs, wired from the configuration
type app struct {
	cfg   *config.Config
	lg    *log.Logger
	plans []types.FlightPlan
	store state.ClosableStore
	sim   *simulate.Simulator
	orch  *convergence.Orchestrator

	closers []func() error
}

// loadConfig reads the configuration and creates the logger
func loadConfig() (*config.Config, *log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg, err := log.New(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if lg.LogFile != "" {
		fmt.Fprintf(os.Stderr, "logging to %s\n", lg.LogFile)
	}
	return cfg, lg, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, lg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	plans, err := flightdata.LoadFlightPlans(cfg.FlightsFile)
	if err != nil {
		return nil, err
	}
	table, err := flightdata.LoadTypeTable(cfg.AircraftTypesFile)
	if err != nil {
		return nil, err
	}

	store, err := state.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, lg: lg, plans: plans, store: store}
	a.closers = append(a.closers, store.Close)

	routes, err := route.New(nil, 0)
	if err != nil {
		a.close()
		return nil, err
	}
	sim := simulate.New(routes, cfg.PingInterval, lg)
	sim.UseStateSpeed = cfg.StateSpeed
	a.sim = sim

	detector := conflict.NewDetector(route.WaypointIndex(plans))
	detector.Prefilter = cfg.Prefilter

	res := resolver.New(store, table, lg)

	a.orch = convergence.New(plans, store, sim, detector, res, lg)
	a.orch.Rules.MaxPasses = cfg.MaxPasses
	a.orch.Reports = storage.NewReports(cfg.ReportFile, cfg.ArchiveDir)
	a.wireSinks(ctx)

	lg.Info("deconflict ready",
		"flights", len(plans),
		"aircraft_types", len(table),
		"backend", cfg.StateBackend,
		"interval_min", cfg.PingInterval,
		"prefilter", cfg.Prefilter)
	return a, nil
}

// wireSinks attaches the optional event, history and cache sinks. A sink
// that cannot connect is left out and the run goes on without it.
func (a *app) wireSinks(ctx context.Context) {
	if a.cfg.NATSURL != "" {
		nc, err := nats.New(a.cfg.NATSURL)
		if err != nil {
			a.lg.Warn("pass events disabled", "error", err)
		} else {
			a.orch.Publisher = nc
			a.closers = append(a.closers, func() error { nc.Close(); return nil })
		}
	}

	switch s := a.store.(type) {
	case *db.Client:
		a.orch.Recorder = s
	default:
		if a.cfg.RecordRuns {
			client, err := db.New(a.cfg.DBConnStr)
			if err == nil {
				err = client.Ping(ctx)
				if err != nil {
					client.Close()
				}
			}
			if err != nil {
				a.lg.Warn("run history disabled", "error", err)
			} else {
				a.orch.Recorder = client
				a.closers = append(a.closers, client.Close)
			}
		}
	}

	switch s := a.store.(type) {
	case *redis.Client:
		a.orch.Cache = s
	default:
		if a.cfg.CacheReports {
			client, err := redis.New(a.cfg.RedisAddr)
			if err != nil {
				a.lg.Warn("report cache disabled", "error", err)
			} else {
				a.orch.Cache = client
				a.closers = append(a.closers, client.Close)
			}
		}
	}
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
