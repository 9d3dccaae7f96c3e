package service

import (
	"context"
	"time"

	"autosolver/internal/domain/model"
	"autosolver/internal/platform/codeforces"
	"autosolver/internal/platform/leetcode"
)

// JudgeClient is the LeetCode surface the solve flow uses.
type JudgeClient interface {
	DailyProblem(ctx context.Context, auth leetcode.Auth) (*model.DailyProblem, error)
	NextUnsolved(ctx context.Context, auth leetcode.Auth) (*model.Problem, error)
	ProblemDetail(ctx context.Context, slug string) (*model.Problem, error)
	Submit(ctx context.Context, auth leetcode.Auth, problem *model.Problem, lang, code string) (string, error)
	PollVerdict(ctx context.Context, auth leetcode.Auth, submissionID string, interval time.Duration, attempts int) (*model.Verdict, error)
	CurrentUser(ctx context.Context, auth leetcode.Auth) (*model.JudgeUser, error)
}

type CodeforcesClient interface {
	RandomUnsolved(ctx context.Context, handle string, minRating, maxRating int) (*model.CFProblem, error)
	Statement(ctx context.Context, p model.CFProblem) (string, error)
	// Submit checks the session before posting.
	Submit(ctx context.Context, s codeforces.Session, p model.CFProblem, source string) error
	ProblemURL(p model.CFProblem) string
}

type SolutionGenerator interface {
	Generate(ctx context.Context, apiKey, language, statement, template string) (string, error)
	GenerateProgram(ctx context.Context, apiKey, statement string) (string, error)
}

// Notifier delivers chat messages. Implementations swallow their own failures.
type Notifier interface {
	Notify(ctx context.Context, token, chatID, message string)
}

// Dispatcher hands a job id to a worker without waiting for it to run.
// Delivery failures are logged by the implementation, never returned.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID string)
}

func leetCodeAuth(c model.Credentials) leetcode.Auth {
	return leetcode.Auth{Session: c.LeetCodeSession, CSRF: c.CSRFToken}
}
