// Package store persists generated briefings and their tasks in a local
// SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/mailbrief/internal/model"
)

// ErrNotFound is returned when a requested briefing or task does not
// exist.
var ErrNotFound = errors.New("not found")

// SQLiteStore persists briefings using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SaveBriefing inserts a briefing and its tasks in one transaction.
// Task order is preserved through the position column.
func (s *SQLiteStore) SaveBriefing(
	ctx context.Context, b model.BriefingResult,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO briefings (id, email_summary, source_backend, generated_at)
		VALUES (?, ?, ?, ?)`,
		b.ID, b.EmailSummary, string(b.SourceBackend), b.GeneratedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting briefing %s: %w", b.ID, err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO tasks (id, briefing_id, task, priority, source, completed, position)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing task insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range b.Tasks {
		_, err = stmt.ExecContext(ctx,
			t.ID, b.ID, t.Text, t.Priority, t.Source,
			boolToInt(t.Completed), i,
		)
		if err != nil {
			return fmt.Errorf("inserting task %s: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

// GetBriefing retrieves one briefing with its tasks in original order.
func (s *SQLiteStore) GetBriefing(
	ctx context.Context, id string,
) (*model.BriefingResult, error) {
	row := s.db.QueryRowxContext(ctx,
		"SELECT id, email_summary, source_backend, generated_at FROM briefings WHERE id = ?",
		id,
	)

	b, err := scanBriefing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("briefing %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting briefing %s: %w", id, err)
	}

	tasks, err := s.tasksFor(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Tasks = tasks

	return &b, nil
}

// GetLatestBriefing retrieves the most recently generated briefing, or
// ErrNotFound when the store is empty.
func (s *SQLiteStore) GetLatestBriefing(
	ctx context.Context,
) (*model.BriefingResult, error) {
	row := s.db.QueryRowxContext(ctx, `
		SELECT id, email_summary, source_backend, generated_at
		FROM briefings ORDER BY generated_at DESC LIMIT 1`)

	b, err := scanBriefing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting latest briefing: %w", err)
	}

	tasks, err := s.tasksFor(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.Tasks = tasks

	return &b, nil
}

// ListBriefings retrieves briefing headers newest first, without tasks.
func (s *SQLiteStore) ListBriefings(
	ctx context.Context, limit int,
) ([]model.BriefingResult, error) {
	query := `
		SELECT id, email_summary, source_backend, generated_at
		FROM briefings ORDER BY generated_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying briefings: %w", err)
	}
	defer rows.Close()

	var briefings []model.BriefingResult
	for rows.Next() {
		b, err := scanBriefing(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning briefing row: %w", err)
		}
		briefings = append(briefings, b)
	}

	return briefings, rows.Err()
}

// SetTaskCompleted updates one task's completion state.
func (s *SQLiteStore) SetTaskCompleted(
	ctx context.Context, taskID string, completed bool,
) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET completed = ? WHERE id = ?",
		boolToInt(completed), taskID,
	)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", taskID, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	return nil
}

// tasksFor loads the ordered task list for a briefing.
func (s *SQLiteStore) tasksFor(
	ctx context.Context, briefingID string,
) ([]model.Task, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, task, priority, source, completed
		FROM tasks WHERE briefing_id = ? ORDER BY position`,
		briefingID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying tasks for briefing %s: %w", briefingID, err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var (
			t            model.Task
			completedInt int
		)
		err := rows.Scan(&t.ID, &t.Text, &t.Priority, &t.Source, &completedInt)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		t.Completed = completedInt != 0
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}

// scanBriefing scans a briefing header row.
func scanBriefing(row interface{ Scan(dest ...interface{}) error }) (model.BriefingResult, error) {
	var (
		b       model.BriefingResult
		backend string
	)

	err := row.Scan(&b.ID, &b.EmailSummary, &backend, &b.GeneratedAt)
	if err != nil {
		return model.BriefingResult{}, err
	}

	b.SourceBackend = model.BackendName(backend)
	return b, nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
