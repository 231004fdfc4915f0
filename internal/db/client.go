package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/lib/pq"
	"github.com/saviobatista/sbs-deconflict/internal/types"
)

type Client struct {
	db *sql.DB
}

// New creates a new database client
func New(connStr string) (*Client, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	return &Client{db: db}, nil
}

// NewWithDB wraps an existing connection
func NewWithDB(db *sql.DB) *Client {
	return &Client{db: db}
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// Ping verifies the connection is usable
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// LoadAll reads the full simulation state in collection order
func (c *Client) LoadAll(ctx context.Context) (types.State, error) {
	query := `
		SELECT acid, plane_type, altitude, speed, changes
		FROM simulation_state
		ORDER BY position
	`
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "error closing rows: %v\n", cerr)
		}
	}()

	state := types.State{}
	for rows.Next() {
		var e types.StateEntry
		if err := rows.Scan(&e.ACID, &e.PlaneType, &e.Altitude, &e.Speed, &e.Changes); err != nil {
			return nil, err
		}
		state = append(state, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(state) == 0 {
		return nil, fmt.Errorf("simulation state is empty")
	}
	return state, nil
}

// SaveAll replaces the full simulation state in a single transaction
func (c *Client) SaveAll(ctx context.Context, state types.State) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			fmt.Printf("Warning: failed to rollback transaction: %v\n", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM simulation_state`); err != nil {
		return fmt.Errorf("failed to clear simulation state: %w", err)
	}

	query := `
		INSERT INTO simulation_state (
			acid, plane_type, altitude, speed, changes, position
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i, e := range state {
		if _, err := tx.ExecContext(ctx, query, e.ACID, e.PlaneType, e.Altitude, e.Speed, e.Changes, i); err != nil {
			return fmt.Errorf("failed to insert state for %s: %w", e.ACID, err)
		}
	}

	return tx.Commit()
}

// CreateRun records the start of an iterative run
func (c *Client) CreateRun(ctx context.Context, runID string, startedAt time.Time, reset bool) error {
	query := `
		INSERT INTO runs (run_id, started_at, reset)
		VALUES ($1, $2, $3)
	`
	_, err := c.db.ExecContext(ctx, query, runID, startedAt, reset)
	return err
}

// FinishRun records how a run ended
func (c *Client) FinishRun(ctx context.Context, summary *types.RunSummary) error {
	query := `
		UPDATE runs SET
			ended_at = $1, outcome = $2, success = $3,
			passes = $4, final_count = $5, history = $6
		WHERE run_id = $7
	`
	history := make([]int64, len(summary.History))
	for i, v := range summary.History {
		history[i] = int64(v)
	}
	_, err := c.db.ExecContext(ctx, query,
		summary.EndedAt, summary.Outcome, summary.Success,
		summary.Passes, summary.FinalCount, pq.Array(history),
		summary.RunID,
	)
	return err
}

// GetRun retrieves a finished run
func (c *Client) GetRun(ctx context.Context, runID string) (*types.RunSummary, error) {
	query := `
		SELECT run_id, started_at, COALESCE(ended_at, started_at),
			COALESCE(outcome, ''), COALESCE(success, FALSE),
			COALESCE(passes, 0), COALESCE(final_count, 0),
			COALESCE(history, '{}')
		FROM runs
		WHERE run_id = $1
	`
	var (
		s       types.RunSummary
		history []int64
	)
	err := c.db.QueryRowContext(ctx, query, runID).Scan(
		&s.RunID, &s.StartedAt, &s.EndedAt, &s.Outcome, &s.Success,
		&s.Passes, &s.FinalCount, pq.Array(&history),
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.History = make([]int, len(history))
	for i, v := range history {
		s.History[i] = int(v)
	}
	return &s, nil
}

// StorePassStats stores the outcome of a single pass
func (c *Client) StorePassStats(ctx context.Context, event *types.PassEvent) error {
	query := `
		INSERT INTO pass_stats (
			time, run_id, pass, conflicts, altitude_changes,
			speed_changes, unresolved, skipped, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := c.db.ExecContext(ctx, query,
		event.Timestamp, event.RunID, event.Pass, event.Conflicts, event.AltitudeChanges,
		event.SpeedChanges, event.Unresolved, event.Skipped, event.Duration,
	)
	return err
}

// StoreRunTotals stores the cumulative counters of a run
func (c *Client) StoreRunTotals(ctx context.Context, totals *types.RunTotals) error {
	query := `
		INSERT INTO run_stats (
			time, run_id, passes, clusters_detected, altitude_changes,
			speed_changes, unresolved, skipped, processing_time_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := c.db.ExecContext(ctx, query,
		time.Now(), totals.RunID,
		int64(totals.Passes), int64(totals.ClustersDetected), int64(totals.AltitudeChanges),
		int64(totals.SpeedChanges), int64(totals.Unresolved), int64(totals.Skipped),
		totals.ProcessingTime.Milliseconds(),
	)
	return err
}

// StoreConflicts stores the merged conflict report of one pass
func (c *Client) StoreConflicts(ctx context.Context, runID string, pass int, clusters []types.Cluster) error {
	if len(clusters) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			fmt.Printf("Warning: failed to rollback transaction: %v\n", err)
		}
	}()

	query := `
		INSERT INTO conflict_reports (
			run_id, pass, cluster_index, members, snapshot_minute
		) VALUES ($1, $2, $3, $4, $5)
	`
	for i, cl := range clusters {
		if _, err := tx.ExecContext(ctx, query, runID, pass, i, pq.Array(cl.ACIDs), cl.Timestamp); err != nil {
			return fmt.Errorf("failed to store conflict %d: %w", i, err)
		}
	}

	return tx.Commit()
}
