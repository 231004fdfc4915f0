package migrations

// InitialSchema creates the simulation state and run bookkeeping tables
var InitialSchema = &Migration{
	Name: "001_initial_schema",
	UpSQL: `
		-- Mutable per-aircraft state, one row per ACID
		CREATE TABLE IF NOT EXISTS simulation_state (
			acid TEXT PRIMARY KEY,
			plane_type TEXT NOT NULL,
			altitude INTEGER NOT NULL,
			speed DOUBLE PRECISION NOT NULL,
			changes INTEGER NOT NULL DEFAULT 0,
			position INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_simulation_state_position ON simulation_state (position);

		-- Iterative runs
		CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ,
			reset BOOLEAN NOT NULL DEFAULT TRUE,
			outcome TEXT,
			success BOOLEAN,
			passes INTEGER,
			final_count INTEGER,
			history INTEGER[]
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs (started_at);

		-- Per-pass results
		CREATE TABLE IF NOT EXISTS pass_stats (
			time TIMESTAMPTZ NOT NULL,
			run_id TEXT NOT NULL,
			pass INTEGER NOT NULL,
			conflicts INTEGER NOT NULL,
			altitude_changes INTEGER NOT NULL,
			speed_changes INTEGER NOT NULL,
			unresolved INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			duration_ms DOUBLE PRECISION NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_pass_stats_run_id ON pass_stats (run_id, pass);

		-- Cumulative counters per run
		CREATE TABLE IF NOT EXISTS run_stats (
			time TIMESTAMPTZ NOT NULL,
			run_id TEXT NOT NULL,
			passes BIGINT NOT NULL,
			clusters_detected BIGINT NOT NULL,
			altitude_changes BIGINT NOT NULL,
			speed_changes BIGINT NOT NULL,
			unresolved BIGINT NOT NULL,
			skipped BIGINT NOT NULL,
			processing_time_ms BIGINT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_run_stats_time ON run_stats (time DESC);
	`,
	DownSQL: `
		DROP TABLE IF EXISTS run_stats;
		DROP TABLE IF EXISTS pass_stats;
		DROP TABLE IF EXISTS runs;
		DROP TABLE IF EXISTS simulation_state;
	`,
}
