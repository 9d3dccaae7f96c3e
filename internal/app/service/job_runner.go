package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"autosolver/internal/common"
	"autosolver/internal/domain/model"
	"autosolver/internal/domain/repository"

	"go.uber.org/zap"
)

// Solver runs one solve. SolveService implements it.
type Solver interface {
	Run(ctx context.Context, req SolveRequest) (*model.SolveResult, error)
}

// JobRunner executes a dispatched job exactly once: claim, solve, record the outcome.
type JobRunner struct {
	jobRepo      repository.SolveJobRepository
	settingsRepo repository.SettingsRepository
	solver       Solver
	notifier     Notifier
	defaults     CredentialDefaults
	log          *zap.Logger
	now          func() time.Time
}

func NewJobRunner(
	jobRepo repository.SolveJobRepository,
	settingsRepo repository.SettingsRepository,
	solver Solver,
	notifier Notifier,
	defaults CredentialDefaults,
	log *zap.Logger,
) *JobRunner {
	return &JobRunner{
		jobRepo:      jobRepo,
		settingsRepo: settingsRepo,
		solver:       solver,
		notifier:     notifier,
		defaults:     defaults,
		log:          log,
		now:          time.Now,
	}
}

// Run claims and executes jobID. A job that is no longer pending is left alone
// and returned as it is, so duplicate deliveries are harmless.
func (r *JobRunner) Run(ctx context.Context, jobID string) (*model.SolveJob, error) {
	log := r.log.With(zap.String("job_id", jobID))

	job, err := r.jobRepo.Claim(ctx, jobID)
	if err != nil {
		if errors.Is(err, common.ErrJobNotPending) {
			log.Info("job already claimed, skipping")
			return r.jobRepo.GetByID(ctx, jobID)
		}
		return nil, err
	}
	log = log.With(zap.String("settings_id", job.SettingsID), zap.String("mode", string(job.Mode)))
	log.Info("job claimed")

	// terminal writes must land even if the caller goes away mid-solve
	writeCtx := context.WithoutCancel(ctx)

	settings, err := r.settingsRepo.GetByID(ctx, job.SettingsID)
	if err != nil {
		return r.fail(writeCtx, log, job, model.Credentials{}, fmt.Errorf("load settings: %w", err))
	}
	creds := ResolveCredentials(settings, r.defaults)

	if job.Platform != model.PlatformLeetCode {
		return r.fail(writeCtx, log, job, creds, fmt.Errorf("platform %q is not run by the job worker: %w", job.Platform, common.ErrBadRequest))
	}
	if err := requireCredentials(creds, job.Platform); err != nil {
		return r.fail(writeCtx, log, job, creds, err)
	}

	result, err := r.solver.Run(ctx, SolveRequest{
		Platform:   job.Platform,
		Mode:       job.Mode,
		Creds:      creds,
		SettingsID: settings.ID,
		OnProblem: func(ctx context.Context, title, slug string) {
			job.ProblemTitle, job.ProblemSlug = &title, &slug
			if err := r.jobRepo.SetProblem(ctx, job.ID, title, slug); err != nil {
				log.Error("failed to record job problem", zap.Error(err))
			}
		},
	})
	if err != nil {
		return r.fail(writeCtx, log, job, creds, err)
	}

	state := result.Status
	switch result.Status {
	case model.ResultAlreadySolved:
		r.notifier.Notify(ctx, creds.TelegramToken, creds.TelegramChatID, msgAlreadySolved)
	case model.ResultAllSolved:
		r.notifier.Notify(ctx, creds.TelegramToken, creds.TelegramChatID, msgAllSolved)
	case model.ResultSubmitted:
		if result.Verdict != nil && result.Verdict.State != "" {
			state = result.Verdict.State
		}
	}

	if err := r.jobRepo.Complete(writeCtx, job.ID, state); err != nil {
		log.Error("failed to complete job", zap.Error(err))
		return nil, err
	}
	completed := r.now()
	job.Status, job.ResultState, job.CompletedAt = model.JobStatusCompleted, &state, &completed
	log.Info("job completed", zap.String("result_state", state))
	return job, nil
}

func (r *JobRunner) fail(ctx context.Context, log *zap.Logger, job *model.SolveJob, creds model.Credentials, cause error) (*model.SolveJob, error) {
	log.Error("job failed", zap.Error(cause))
	r.notifier.Notify(ctx, creds.TelegramToken, creds.TelegramChatID, msgError(cause))

	msg := cause.Error()
	if err := r.jobRepo.Fail(ctx, job.ID, msg); err != nil {
		log.Error("failed to mark job failed", zap.Error(err))
		return nil, err
	}
	completed := r.now()
	job.Status, job.ErrorMessage, job.CompletedAt = model.JobStatusFailed, &msg, &completed
	return job, nil
}
