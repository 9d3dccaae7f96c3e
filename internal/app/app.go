// Package app assembles the services every binary shares.
package app

import (
	"database/sql"

	"autosolver/internal/app/service"
	"autosolver/internal/app/worker"
	"autosolver/internal/common/security"
	"autosolver/internal/domain/repository"
	"autosolver/internal/platform/codeforces"
	"autosolver/internal/platform/config"
	"autosolver/internal/platform/lease"
	"autosolver/internal/platform/leetcode"
	"autosolver/internal/platform/llm"
	"autosolver/internal/platform/telegram"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	SettingsRepo repository.SettingsRepository
	JobRepo      repository.SolveJobRepository

	Defaults   service.CredentialDefaults
	Dispatcher service.Dispatcher
	Solver     *service.SolveService
	Jobs       *service.JobService
	Runner     *service.JobRunner
	Triggers   *service.TriggerService
	Commands   *service.CommandService

	rdb redis.UniversalClient
	cfg *config.Config
	log *zap.Logger
}

// New wires repositories, external clients and services from cfg. security.InitJWT
// must run first when cfg selects HTTP dispatch.
func New(cfg *config.Config, db *sql.DB, rdb redis.UniversalClient, log *zap.Logger) *App {
	settingsRepo := repository.NewPgSettingsRepository(db)
	jobRepo := repository.NewPgSolveJobRepository(db)

	judge := leetcode.New()
	cf := codeforces.New()
	gen := llm.NewGenerator(llm.Config{
		Provider: llm.Provider(cfg.LLMProvider),
		Model:    cfg.LLMModel,
		BaseURL:  cfg.OpenAIBaseURL,
	})
	notifier := telegram.NewNotifier(log.Named("telegram"))
	defaults := service.CredentialDefaults{LLMKey: cfg.GeminiAPIKey, TelegramBotToken: cfg.TelegramBotToken}

	var dispatcher service.Dispatcher
	if cfg.DispatchMode == config.DispatchModeHTTP {
		dispatcher = service.NewHTTPDispatcher(cfg.WorkerURL, security.GenerateDispatchToken, log.Named("dispatch"))
	} else {
		dispatcher = service.NewRedisDispatcher(rdb, cfg.SolveQueueName, log.Named("dispatch"))
	}

	opts := service.DefaultSolveOptions()
	opts.PollInterval = cfg.VerdictPollInterval()
	opts.PollAttempts = cfg.VerdictPollAttempts
	opts.CFMinRating, opts.CFMaxRating = cfg.CFMinRating, cfg.CFMaxRating

	solver := service.NewSolveService(judge, cf, gen, notifier, settingsRepo, opts, log.Named("solve"))
	jobs := service.NewJobService(jobRepo, dispatcher, log.Named("jobs"))
	runner := service.NewJobRunner(jobRepo, settingsRepo, solver, notifier, defaults, log.Named("runner"))
	triggers := service.NewTriggerService(settingsRepo, jobs, judge, notifier, defaults, service.ScheduleOptions{
		Location:        cfg.Location(),
		WindowStartHour: cfg.SolveWindowStartHour,
		WindowEndHour:   cfg.SolveWindowEndHour,
	}, log.Named("trigger"))
	commands := service.NewCommandService(settingsRepo, jobs, solver, judge, repository.NewSettingsLocker(settingsRepo),
		notifier, defaults, cfg.ProcessingLease(), cfg.Location(), log.Named("telegram"))

	return &App{
		SettingsRepo: settingsRepo,
		JobRepo:      jobRepo,
		Defaults:     defaults,
		Dispatcher:   dispatcher,
		Solver:       solver,
		Jobs:         jobs,
		Runner:       runner,
		Triggers:     triggers,
		Commands:     commands,
		rdb:          rdb,
		cfg:          cfg,
		log:          log,
	}
}

// NewWorker builds the queue consumer, serializing jobs per settings row with Redis locks.
func (a *App) NewWorker() *worker.SolveWorker {
	return worker.NewSolveWorker(
		a.rdb,
		a.JobRepo,
		lease.NewRedisLocker(a.rdb, a.cfg.WorkerLockPrefix),
		a.Runner,
		worker.Options{
			Queue:        a.cfg.SolveQueueName,
			LockTTL:      a.cfg.WorkerLockTTL(),
			RequeueDelay: a.cfg.WorkerRequeueDelay(),
		},
		a.log.Named("worker"),
	)
}

// Drain waits for in-flight HTTP dispatches.
func (a *App) Drain() {
	if d, ok := a.Dispatcher.(*service.HTTPDispatcher); ok {
		d.Wait()
	}
}
