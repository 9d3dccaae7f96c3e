package worker

import (
	"context"
	"errors"
	"time"

	"autosolver/internal/common"
	"autosolver/internal/domain/model"
	"autosolver/internal/domain/repository"
	"autosolver/internal/platform/lease"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// JobRunner executes one claimed job. service.JobRunner implements it.
type JobRunner interface {
	Run(ctx context.Context, jobID string) (*model.SolveJob, error)
}

type Options struct {
	Queue        string
	LockTTL      time.Duration
	RequeueDelay time.Duration
	// PollTimeout bounds each BRPOP so shutdown is noticed.
	PollTimeout time.Duration
}

// SolveWorker consumes job ids from the solve queue. Jobs for the same settings
// row never run concurrently: each one holds a per-row Redis lock.
type SolveWorker struct {
	rdb     redis.UniversalClient
	jobRepo repository.SolveJobRepository
	locker  lease.Locker
	runner  JobRunner
	opts    Options
	log     *zap.Logger
}

func NewSolveWorker(rdb redis.UniversalClient, jobRepo repository.SolveJobRepository, locker lease.Locker, runner JobRunner, opts Options, log *zap.Logger) *SolveWorker {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 5 * time.Second
	}
	return &SolveWorker{
		rdb:     rdb,
		jobRepo: jobRepo,
		locker:  locker,
		runner:  runner,
		opts:    opts,
		log:     log.With(zap.String("queue", opts.Queue)),
	}
}

func (w *SolveWorker) Start(ctx context.Context) {
	w.log.Info("solve worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("solve worker stopping")
			return
		default:
		}

		res, err := w.rdb.BRPop(ctx, w.opts.PollTimeout, w.opts.Queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			w.log.Error("failed to pop from solve queue", zap.Error(err))
			sleep(ctx, 5*time.Second)
			continue
		}

		// res is [queue, value]
		if len(res) < 2 || res[1] == "" {
			w.log.Warn("BRPOP returned an empty job id")
			continue
		}
		w.Process(ctx, res[1])
	}
}

// Process runs one queued job under its settings lock, requeueing it when the
// lock is held elsewhere.
func (w *SolveWorker) Process(ctx context.Context, jobID string) {
	log := w.log.With(zap.String("job_id", jobID))

	job, err := w.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			log.Warn("dropping unknown job")
			return
		}
		log.Error("failed to load job, requeueing", zap.Error(err))
		w.requeue(ctx, log, jobID)
		return
	}
	if job.Status != model.JobStatusPending {
		log.Info("dropping job that is no longer pending", zap.String("status", string(job.Status)))
		return
	}

	// a job in hand finishes even when shutdown starts
	runCtx := context.WithoutCancel(ctx)
	err = lease.WithLease(runCtx, w.locker, job.SettingsID, w.opts.LockTTL, func(ctx context.Context) error {
		log.Info("acquired settings lock", zap.String("settings_id", job.SettingsID))
		done, err := w.runner.Run(ctx, jobID)
		if err != nil {
			return err
		}
		log.Info("job finished", zap.String("status", string(done.Status)))
		return nil
	})
	switch {
	case errors.Is(err, common.ErrLeaseHeld):
		log.Info("settings lock busy, requeueing", zap.String("settings_id", job.SettingsID))
		w.requeue(ctx, log, jobID)
	case err != nil:
		log.Error("job run failed", zap.Error(err))
	}
}

func (w *SolveWorker) requeue(ctx context.Context, log *zap.Logger, jobID string) {
	sleep(ctx, w.opts.RequeueDelay)
	// the job must survive shutdown, so push even after cancellation
	if err := w.rdb.LPush(context.WithoutCancel(ctx), w.opts.Queue, jobID).Err(); err != nil {
		log.Error("failed to requeue job", zap.Error(err))
		return
	}
	log.Info("job requeued")
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
