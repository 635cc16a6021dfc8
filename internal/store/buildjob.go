package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BuildJob is one row of build-job history, queryable independently of the
// build artifacts themselves so a failed build's error is visible without
// re-running it.
type BuildJob struct {
	ID          string
	JailName    string
	ReleaseTag  string
	Status      string // queued, running, succeeded, failed
	Digest      *string
	Error       *string
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// InsertBuildJob records a new queued build job and returns it.
func InsertBuildJob(ctx context.Context, db *sql.DB, jailName, releaseTag string) (*BuildJob, error) {
	id := uuid.NewString()
	now := time.Now()

	_, err := db.ExecContext(ctx,
		`INSERT INTO build_jobs (id, jail_name, release_tag, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, jailName, releaseTag, "queued", now.Unix())
	if err != nil {
		return nil, fmt.Errorf("insert build job: %w", err)
	}

	return &BuildJob{ID: id, JailName: jailName, ReleaseTag: releaseTag, Status: "queued", CreatedAt: now}, nil
}

// MarkBuildJobStarted flips a queued job to running.
func MarkBuildJobStarted(ctx context.Context, db *sql.DB, id string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE build_jobs SET status = 'running', started_at = ? WHERE id = ?`,
		time.Now().Unix(), id)
	return err
}

// MarkBuildJobSucceeded records a successful build's resulting digest.
func MarkBuildJobSucceeded(ctx context.Context, db *sql.DB, id, digest string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE build_jobs SET status = 'succeeded', digest = ?, completed_at = ? WHERE id = ?`,
		digest, time.Now().Unix(), id)
	return err
}

// MarkBuildJobFailed records a build's failure reason.
func MarkBuildJobFailed(ctx context.Context, db *sql.DB, id, errMsg string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE build_jobs SET status = 'failed', error = ?, completed_at = ? WHERE id = ?`,
		errMsg, time.Now().Unix(), id)
	return err
}

// ListBuildJobsByJail returns every build job recorded for jailName, most
// recent first.
func ListBuildJobsByJail(ctx context.Context, db *sql.DB, jailName string) ([]*BuildJob, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, jail_name, release_tag, status, digest, error, started_at, completed_at, created_at
		 FROM build_jobs WHERE jail_name = ? ORDER BY created_at DESC`, jailName)
	if err != nil {
		return nil, fmt.Errorf("list build jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*BuildJob
	for rows.Next() {
		var j BuildJob
		var startedAt, completedAt sql.NullInt64
		var createdAt int64
		if err := rows.Scan(&j.ID, &j.JailName, &j.ReleaseTag, &j.Status, &j.Digest, &j.Error, &startedAt, &completedAt, &createdAt); err != nil {
			return nil, fmt.Errorf("scan build job: %w", err)
		}
		j.CreatedAt = time.Unix(createdAt, 0)
		if startedAt.Valid {
			t := time.Unix(startedAt.Int64, 0)
			j.StartedAt = &t
		}
		if completedAt.Valid {
			t := time.Unix(completedAt.Int64, 0)
			j.CompletedAt = &t
		}
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}
