package service

import (
	"context"
	"errors"
	"time"

	"autosolver/internal/common"
	"autosolver/internal/domain/model"
	"autosolver/internal/domain/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type JobService struct {
	jobRepo    repository.SolveJobRepository
	dispatcher Dispatcher
	log        *zap.Logger
	now        func() time.Time
}

func NewJobService(jobRepo repository.SolveJobRepository, dispatcher Dispatcher, log *zap.Logger) *JobService {
	return &JobService{jobRepo: jobRepo, dispatcher: dispatcher, log: log, now: time.Now}
}

// Enqueue creates a pending job and dispatches it. When an open job for the same
// settings row and mode already exists today it returns (nil, false, nil).
func (s *JobService) Enqueue(ctx context.Context, settingsID string, platform model.Platform, mode model.SolveMode) (*model.SolveJob, bool, error) {
	log := s.log.With(zap.String("settings_id", settingsID), zap.String("mode", string(mode)))

	open, err := s.jobRepo.HasOpenJob(ctx, settingsID, mode, s.now())
	if err != nil {
		return nil, false, common.Errorf("failed to check open jobs: %w", err)
	}
	if open {
		log.Info("open job already exists for today, skipping enqueue")
		return nil, false, nil
	}

	job := &model.SolveJob{
		ID:         uuid.NewString(),
		SettingsID: settingsID,
		Platform:   platform,
		Mode:       mode,
		Status:     model.JobStatusPending,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		if errors.Is(err, common.ErrConflict) {
			// lost the race to a concurrent trigger; its job will run
			log.Info("concurrent enqueue detected, skipping", zap.Error(err))
			return nil, false, nil
		}
		return nil, false, common.Errorf("failed to create solve job: %w", err)
	}

	s.dispatcher.Dispatch(ctx, job.ID)
	log.Info("solve job enqueued", zap.String("job_id", job.ID))
	return job, true, nil
}

// RanToday reports whether a job for the settings row and mode already
// finished today, successfully or not.
func (s *JobService) RanToday(ctx context.Context, settingsID string, mode model.SolveMode) (bool, error) {
	done, err := s.jobRepo.HasFinishedJob(ctx, settingsID, mode, s.now())
	if err != nil {
		return false, common.Errorf("failed to check finished jobs: %w", err)
	}
	return done, nil
}

func (s *JobService) Get(ctx context.Context, jobID string) (*model.SolveJob, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, common.Errorf("invalid job id %q: %w", jobID, common.ErrBadRequest)
	}
	return s.jobRepo.GetByID(ctx, jobID)
}
