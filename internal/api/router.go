package api

import (
	"net/http"
	"time"

	"autosolver/internal/api/handler"
	"autosolver/internal/api/middleware"
	"autosolver/internal/app/service"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
	"go.uber.org/zap"
)

// Dependencies are what the router wires into its handlers.
type Dependencies struct {
	Triggers   handler.ScheduledTrigger
	Solver     handler.ManualSolver
	Commands   handler.CommandHandler
	Runner     handler.JobExecutor
	Jobs       handler.JobLookup
	Defaults   service.CredentialDefaults
	CronSecret string
	TokenAuth  *jwtauth.JWTAuth
	Log        *zap.Logger
}

// QuickRouteTimeout bounds the cron and job lookup routes. Solves, worker calls
// and the webhook are bounded by their callers instead.
const QuickRouteTimeout = 60 * time.Second

func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(chiMiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Group(func(quick chi.Router) {
			quick.Use(chiMiddleware.Timeout(QuickRouteTimeout))

			cronHandler := handler.NewCronHandler(deps.Triggers, deps.Log)
			quick.Route("/cron", func(cr chi.Router) {
				cr.Use(middleware.CronSecret(deps.CronSecret))
				cronHandler.RegisterRoutes(cr)
			})

			jobHandler := handler.NewJobHandler(deps.Jobs)
			quick.Route("/jobs", jobHandler.RegisterRoutes)
		})

		// the webhook must answer 200 even when a command runs long
		telegramHandler := handler.NewTelegramHandler(deps.Commands, deps.Log)
		v1.Route("/webhook", telegramHandler.RegisterRoutes)

		solveHandler := handler.NewSolveHandler(deps.Solver, deps.Defaults, deps.Log)
		v1.Route("/solve", solveHandler.RegisterRoutes)

		workerHandler := handler.NewWorkerHandler(deps.Runner, deps.TokenAuth, deps.Log)
		v1.Route("/worker", workerHandler.RegisterRoutes)
	})

	return r
}
