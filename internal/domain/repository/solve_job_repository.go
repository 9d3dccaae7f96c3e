package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"autosolver/internal/common"
	"autosolver/internal/domain/model"
)

type SolveJobRepository interface {
	Create(ctx context.Context, job *model.SolveJob) error
	GetByID(ctx context.Context, id string) (*model.SolveJob, error)
	// HasOpenJob reports whether a pending or processing job exists for the
	// settings row and mode, created on the UTC date of day.
	HasOpenJob(ctx context.Context, settingsID string, mode model.SolveMode, day time.Time) (bool, error)
	// HasFinishedJob reports whether a completed or failed job exists for the
	// settings row and mode on the UTC date of day.
	HasFinishedJob(ctx context.Context, settingsID string, mode model.SolveMode, day time.Time) (bool, error)
	// Claim flips a pending job to processing. It returns common.ErrJobNotPending
	// when the job was already claimed or finished.
	Claim(ctx context.Context, id string) (*model.SolveJob, error)
	SetProblem(ctx context.Context, id, title, slug string) error
	Complete(ctx context.Context, id, resultState string) error
	Fail(ctx context.Context, id, errMsg string) error
}

const solveJobColumns = `id, settings_id, platform, mode, status, problem_title, problem_slug,
	result_state, error_message, created_at, started_at, completed_at`

type pgSolveJobRepository struct {
	db *sql.DB
}

func NewPgSolveJobRepository(db *sql.DB) SolveJobRepository {
	return &pgSolveJobRepository{db: db}
}

func scanSolveJob(row rowScanner) (*model.SolveJob, error) {
	job := &model.SolveJob{}
	err := row.Scan(
		&job.ID, &job.SettingsID, &job.Platform, &job.Mode, &job.Status, &job.ProblemTitle, &job.ProblemSlug,
		&job.ResultState, &job.ErrorMessage, &job.CreatedAt, &job.StartedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (r *pgSolveJobRepository) Create(ctx context.Context, job *model.SolveJob) error {
	query := `INSERT INTO solve_jobs (id, settings_id, platform, mode, status)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, job.ID, job.SettingsID, job.Platform, job.Mode, job.Status).Scan(&job.CreatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("open %s job already exists for settings %s: %w", job.Mode, job.SettingsID, common.ErrConflict)
		}
		return fmt.Errorf("pgSolveJobRepository.Create: %w", err)
	}
	return nil
}

func (r *pgSolveJobRepository) GetByID(ctx context.Context, id string) (*model.SolveJob, error) {
	query := `SELECT ` + solveJobColumns + ` FROM solve_jobs WHERE id = $1`
	job, err := scanSolveJob(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSolveJobRepository.GetByID: %w", err)
	}
	return job, nil
}

func (r *pgSolveJobRepository) HasOpenJob(ctx context.Context, settingsID string, mode model.SolveMode, day time.Time) (bool, error) {
	query := `SELECT EXISTS (
	              SELECT 1 FROM solve_jobs
	              WHERE settings_id = $1 AND mode = $2 AND created_on = $3::date
	                AND status IN ('pending', 'processing'))`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, settingsID, mode, model.Day(day).Format(time.DateOnly)).Scan(&exists); err != nil {
		return false, fmt.Errorf("pgSolveJobRepository.HasOpenJob: %w", err)
	}
	return exists, nil
}

func (r *pgSolveJobRepository) HasFinishedJob(ctx context.Context, settingsID string, mode model.SolveMode, day time.Time) (bool, error) {
	query := `SELECT EXISTS (
	              SELECT 1 FROM solve_jobs
	              WHERE settings_id = $1 AND mode = $2 AND created_on = $3::date
	                AND status IN ('completed', 'failed'))`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, settingsID, mode, model.Day(day).Format(time.DateOnly)).Scan(&exists); err != nil {
		return false, fmt.Errorf("pgSolveJobRepository.HasFinishedJob: %w", err)
	}
	return exists, nil
}

func (r *pgSolveJobRepository) Claim(ctx context.Context, id string) (*model.SolveJob, error) {
	query := `UPDATE solve_jobs SET status = 'processing', started_at = NOW()
	          WHERE id = $1 AND status = 'pending'
	          RETURNING ` + solveJobColumns
	job, err := scanSolveJob(r.db.QueryRowContext(ctx, query, id))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pgSolveJobRepository.Claim: %w", err)
	}
	// Distinguish a missing job from one somebody else already took.
	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("job %s: %w", id, common.ErrJobNotPending)
}

func (r *pgSolveJobRepository) SetProblem(ctx context.Context, id, title, slug string) error {
	query := `UPDATE solve_jobs SET problem_title = $2, problem_slug = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, title, slug)
	if err != nil {
		return fmt.Errorf("pgSolveJobRepository.SetProblem: %w", err)
	}
	return requireOneRow(res)
}

func (r *pgSolveJobRepository) Complete(ctx context.Context, id, resultState string) error {
	query := `UPDATE solve_jobs SET status = 'completed', result_state = $2, completed_at = NOW()
	          WHERE id = $1 AND status = 'processing'`
	res, err := r.db.ExecContext(ctx, query, id, resultState)
	if err != nil {
		return fmt.Errorf("pgSolveJobRepository.Complete: %w", err)
	}
	if ok, err := affected(res); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("job %s is not processing: %w", id, common.ErrConflict)
	}
	return nil
}

func (r *pgSolveJobRepository) Fail(ctx context.Context, id, errMsg string) error {
	query := `UPDATE solve_jobs SET status = 'failed', error_message = $2, completed_at = NOW()
	          WHERE id = $1 AND status IN ('pending', 'processing')`
	res, err := r.db.ExecContext(ctx, query, id, errMsg)
	if err != nil {
		return fmt.Errorf("pgSolveJobRepository.Fail: %w", err)
	}
	if ok, err := affected(res); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("job %s already finished: %w", id, common.ErrConflict)
	}
	return nil
}
