package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
)

// Migration is a named pair of schema changes
type Migration struct {
	Name    string
	UpSQL   string
	DownSQL string
}

// All returns the known migrations in apply order
func All() []*Migration {
	return []*Migration{
		InitialSchema,
		ConflictReports,
	}
}

// Migrator applies and rolls back migrations, recording them in a
// migrations table
type Migrator struct {
	db *sql.DB
}

// New creates a new Migrator
func New(db *sql.DB) *Migrator {
	return &Migrator{db: db}
}

// Initialize creates the migrations table if it doesn't exist
func (m *Migrator) Initialize(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	_, err := m.db.ExecContext(ctx, query)
	return err
}

// Applied returns the set of applied migration names
func (m *Migrator) Applied(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT name FROM migrations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			fmt.Fprintf(os.Stderr, "error closing rows: %v\n", cerr)
		}
	}()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

// Pending returns the migrations not yet applied, in order
func (m *Migrator) Pending(ctx context.Context, migrations []*Migration) ([]*Migration, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}

	var pending []*Migration
	for _, mg := range migrations {
		if !applied[mg.Name] {
			pending = append(pending, mg)
		}
	}
	return pending, nil
}

func (m *Migrator) execute(ctx context.Context, migration *Migration, stmt, recordQuery string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			log.Printf("Warning: failed to rollback transaction: %v", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to execute migration %s: %w", migration.Name, err)
	}
	if _, err := tx.ExecContext(ctx, recordQuery, migration.Name); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", migration.Name, err)
	}

	return tx.Commit()
}

// Apply applies a single migration
func (m *Migrator) Apply(ctx context.Context, migration *Migration) error {
	return m.execute(ctx, migration, migration.UpSQL, "INSERT INTO migrations (name) VALUES ($1)")
}

// Revert rolls back a single migration
func (m *Migrator) Revert(ctx context.Context, migration *Migration) error {
	return m.execute(ctx, migration, migration.DownSQL, "DELETE FROM migrations WHERE name = $1")
}

// Migrate applies all pending migrations and returns their names
func (m *Migrator) Migrate(ctx context.Context, migrations []*Migration) ([]string, error) {
	if err := m.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}

	pending, err := m.Pending(ctx, migrations)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	var done []string
	for _, mg := range pending {
		if err := m.Apply(ctx, mg); err != nil {
			return done, fmt.Errorf("failed to apply migration %s: %w", mg.Name, err)
		}
		done = append(done, mg.Name)
	}
	return done, nil
}

// Rollback reverts the last applied migration and returns its name
func (m *Migrator) Rollback(ctx context.Context, migrations []*Migration) (string, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get applied migrations: %w", err)
	}

	var last *Migration
	for i := len(migrations) - 1; i >= 0; i-- {
		if applied[migrations[i].Name] {
			last = migrations[i]
			break
		}
	}
	if last == nil {
		return "", fmt.Errorf("no migrations to rollback")
	}

	if err := m.Revert(ctx, last); err != nil {
		return "", fmt.Errorf("failed to rollback migration %s: %w", last.Name, err)
	}
	return last.Name, nil
}
