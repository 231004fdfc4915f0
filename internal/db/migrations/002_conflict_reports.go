package migrations

// ConflictReports stores the merged cluster list of every pass
var ConflictReports = &Migration{
	Name: "002_conflict_reports",
	UpSQL: `
		CREATE TABLE IF NOT EXISTS conflict_reports (
			run_id TEXT NOT NULL,
			pass INTEGER NOT NULL,
			cluster_index INTEGER NOT NULL,
			members TEXT[] NOT NULL,
			snapshot_minute INTEGER NOT NULL,
			PRIMARY KEY (run_id, pass, cluster_index)
		);

		CREATE INDEX IF NOT EXISTS idx_conflict_reports_members ON conflict_reports USING GIN (members);
	`,
	DownSQL: `
		DROP TABLE IF EXISTS conflict_reports;
	`,
}
