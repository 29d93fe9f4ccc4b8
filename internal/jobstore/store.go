package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"pixelpress/internal/config"
	"pixelpress/internal/imaging"
	"pixelpress/internal/services"
)

// Store manages conversion job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the job database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Persist writes a completed job. The write is atomic: the full record
// including both byte blobs lands, or nothing does. The job's ID is
// assigned when empty and returned. Incomplete jobs are rejected; the
// store never holds a record whose converted bytes are missing.
func (s *Store) Persist(ctx context.Context, job *Job) (string, error) {
	if job == nil {
		return "", services.Wrap(services.ErrValidation, "jobstore", "persist", "job is nil", nil)
	}
	if !job.Completed || len(job.ConvertedBytes) == 0 {
		return "", services.Wrap(services.ErrValidation, "jobstore", "persist", "job is not completed", nil)
	}
	if len(job.OriginalBytes) == 0 {
		return "", services.Wrap(services.ErrValidation, "jobstore", "persist", "original bytes missing", nil)
	}
	if job.ID == "" {
		job.ID = ulid.Make().String()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO conversion_jobs (
            id, original_bytes, converted_bytes, requested_format,
            encoded_format, fallback, quality, created_at, completed
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.OriginalBytes,
		job.ConvertedBytes,
		string(job.RequestedFormat),
		string(job.EncodedFormat),
		boolToInt(job.Fallback),
		job.Quality,
		job.CreatedAt.UTC().Format(time.RFC3339Nano),
		boolToInt(job.Completed),
	)
	if err != nil {
		return "", fmt.Errorf("insert job: %w", err)
	}
	return job.ID, nil
}

// GetByID fetches a job by identifier. A missing job returns nil, nil.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM conversion_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns all jobs ordered by creation time.
func (s *Store) List(ctx context.Context) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM conversion_jobs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Count returns the number of persisted jobs.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM conversion_jobs`)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return count, nil
}

const jobColumns = "id, original_bytes, converted_bytes, requested_format, encoded_format, fallback, quality, created_at, completed"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id              string
		originalBytes   []byte
		convertedBytes  []byte
		requestedFormat string
		encodedFormat   string
		fallback        int
		quality         float64
		createdRaw      string
		completed       int
	)

	if err := scanner.Scan(
		&id,
		&originalBytes,
		&convertedBytes,
		&requestedFormat,
		&encodedFormat,
		&fallback,
		&quality,
		&createdRaw,
		&completed,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		OriginalBytes:   originalBytes,
		ConvertedBytes:  convertedBytes,
		RequestedFormat: imaging.Format(requestedFormat),
		EncodedFormat:   imaging.Format(encodedFormat),
		Fallback:        fallback != 0,
		Quality:         quality,
		Completed:       completed != 0,
	}
	if created, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		job.CreatedAt = created
	}
	return job, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
