package handler

import (
	"context"

	"autosolver/internal/app/service"
	"autosolver/internal/domain/model"
	"autosolver/internal/platform/telegram"
)

// The handlers depend on these narrow views of the services.

type ScheduledTrigger interface {
	ScheduledSolve(ctx context.Context) (*service.ScheduleOutcome, error)
	Heartbeat(ctx context.Context) ([]service.HeartbeatResult, error)
}

type ManualSolver interface {
	Manual(ctx context.Context, req service.ManualSolveRequest, d service.CredentialDefaults) (*model.SolveResult, error)
}

type CommandHandler interface {
	HandleUpdate(ctx context.Context, upd telegram.Update) error
}

type JobExecutor interface {
	Run(ctx context.Context, jobID string) (*model.SolveJob, error)
}

type JobLookup interface {
	Get(ctx context.Context, jobID string) (*model.SolveJob, error)
}
