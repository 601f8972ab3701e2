package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vosbek/docxp/internal/core/domain"
)

// RepositoryStore persists registered repositories and their ingestion
// reports. It satisfies ports.RepositoryStore.
type RepositoryStore struct {
	db *sql.DB
}

func NewRepositoryStore(db *sql.DB) *RepositoryStore {
	return &RepositoryStore{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *RepositoryStore) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082401)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS repositories (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	source_path TEXT NOT NULL,
	commit_sha TEXT NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT,
	files_seen INTEGER NOT NULL DEFAULT 0,
	files_parsed INTEGER NOT NULL DEFAULT 0,
	files_skipped INTEGER NOT NULL DEFAULT 0,
	files_failed INTEGER NOT NULL DEFAULT 0,
	entity_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_repositories_status ON repositories(status);
CREATE INDEX IF NOT EXISTS idx_repositories_created_at ON repositories(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RepositoryStore) Create(ctx context.Context, repo *domain.Repository) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO repositories (
	id, name, source_path, commit_sha, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		repo.ID, repo.Name, repo.SourcePath, repo.Commit, string(repo.Status), repo.Error,
		repo.CreatedAt, repo.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert repository: %w", err)
	}
	return nil
}

func (r *RepositoryStore) GetByID(ctx context.Context, id string) (*domain.Repository, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, source_path, commit_sha, status, error_message,
	files_seen, files_parsed, files_skipped, files_failed, entity_count,
	created_at, updated_at
FROM repositories
WHERE id = $1
`, id)

	var repo domain.Repository
	var status string

	err := row.Scan(
		&repo.ID, &repo.Name, &repo.SourcePath, &repo.Commit, &status, &repo.Error,
		&repo.Report.FilesSeen, &repo.Report.FilesParsed, &repo.Report.FilesSkipped,
		&repo.Report.FilesFailed, &repo.Report.EntityCount,
		&repo.CreatedAt, &repo.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRepositoryNotFound, "get repository", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan repository: %w", err)
	}

	repo.Status = domain.RepositoryStatus(status)
	return &repo, nil
}

func (r *RepositoryStore) UpdateStatus(ctx context.Context, id string, status domain.RepositoryStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE repositories
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update repository status: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrRepositoryNotFound, "update repository status", fmt.Errorf("id %s", id))
	}
	return nil
}

func (r *RepositoryStore) SaveReport(ctx context.Context, id string, report domain.IngestReport) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE repositories
SET files_seen = $2, files_parsed = $3, files_skipped = $4, files_failed = $5, entity_count = $6, updated_at = $7
WHERE id = $1
`, id, report.FilesSeen, report.FilesParsed, report.FilesSkipped, report.FilesFailed, report.EntityCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save ingest report: %w", err)
	}
	return nil
}
