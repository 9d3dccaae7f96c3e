package service

import (
	"context"
	"fmt"
	"time"

	"autosolver/internal/common"
	"autosolver/internal/domain/model"
	"autosolver/internal/domain/repository"
	"autosolver/internal/platform/leetcode"

	"go.uber.org/zap"
)

type SolveOptions struct {
	Languages    []string // preference-ordered LeetCode language slugs
	PollInterval time.Duration
	PollAttempts int
	CFMinRating  int
	CFMaxRating  int
}

func DefaultSolveOptions() SolveOptions {
	return SolveOptions{
		Languages:    leetcode.DefaultLanguagePreference,
		PollInterval: 3 * time.Second,
		PollAttempts: 10,
		CFMinRating:  800,
		CFMaxRating:  1200,
	}
}

// SolveRequest is one run of the solve flow.
type SolveRequest struct {
	Platform model.Platform
	Mode     model.SolveMode
	Creds    model.Credentials
	// SettingsID, when set, receives last_solved_date on an Accepted verdict.
	SettingsID string
	// OnProblem is called once the target problem is known.
	OnProblem func(ctx context.Context, title, slug string)
}

// SolveService is the solve flow: pick a problem, generate, submit, poll, report.
type SolveService struct {
	judge        JudgeClient
	cf           CodeforcesClient
	gen          SolutionGenerator
	notifier     Notifier
	settingsRepo repository.SettingsRepository
	opts         SolveOptions
	log          *zap.Logger
	now          func() time.Time
}

func NewSolveService(
	judge JudgeClient,
	cf CodeforcesClient,
	gen SolutionGenerator,
	notifier Notifier,
	settingsRepo repository.SettingsRepository,
	opts SolveOptions,
	log *zap.Logger,
) *SolveService {
	if len(opts.Languages) == 0 {
		opts.Languages = leetcode.DefaultLanguagePreference
	}
	return &SolveService{
		judge:        judge,
		cf:           cf,
		gen:          gen,
		notifier:     notifier,
		settingsRepo: settingsRepo,
		opts:         opts,
		log:          log,
		now:          time.Now,
	}
}

// Run executes one solve. Expected outcomes (already solved, nothing left, manual
// submission) come back as a result; anything else is an error.
func (s *SolveService) Run(ctx context.Context, req SolveRequest) (*model.SolveResult, error) {
	switch req.Platform {
	case model.PlatformLeetCode, "":
		return s.solveLeetCode(ctx, req)
	case model.PlatformCodeforces:
		return s.solveCodeforces(ctx, req)
	default:
		return nil, fmt.Errorf("unknown platform %q: %w", req.Platform, common.ErrBadRequest)
	}
}

func (s *SolveService) notify(ctx context.Context, c model.Credentials, msg string) {
	s.notifier.Notify(ctx, c.TelegramToken, c.TelegramChatID, msg)
}

func (s *SolveService) solveLeetCode(ctx context.Context, req SolveRequest) (*model.SolveResult, error) {
	auth := leetCodeAuth(req.Creds)
	log := s.log.With(zap.String("mode", string(req.Mode)), zap.String("settings_id", req.SettingsID))

	var slug, source string
	if req.Mode == model.ModeNext {
		next, err := s.judge.NextUnsolved(ctx, auth)
		if err != nil {
			return nil, fmt.Errorf("fetch next unsolved problem: %w", err)
		}
		if next == nil {
			return &model.SolveResult{Status: model.ResultAllSolved, Message: "All problems solved!"}, nil
		}
		slug, source = next.Slug, "Solve Next"
	} else {
		daily, err := s.judge.DailyProblem(ctx, auth)
		if err != nil {
			return nil, fmt.Errorf("fetch daily problem: %w", err)
		}
		if daily.SolvedByUser() {
			return &model.SolveResult{Status: model.ResultAlreadySolved, Message: "POTD already solved!", Slug: daily.Problem.Slug}, nil
		}
		slug, source = daily.Problem.Slug, "POTD"
	}

	problem, err := s.judge.ProblemDetail(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("fetch problem %s: %w", slug, err)
	}
	if problem.Slug == "" {
		problem.Slug = slug
	}
	snippet, err := leetcode.SelectTemplate(problem.Snippets, s.opts.Languages)
	if err != nil {
		return nil, fmt.Errorf("problem %s: %w", slug, err)
	}
	if req.OnProblem != nil {
		req.OnProblem(ctx, problem.Title, slug)
	}
	log = log.With(zap.String("slug", slug), zap.String("lang", snippet.LangSlug))

	s.notify(ctx, req.Creds, msgGenerating(problem.Title))
	code, err := s.gen.Generate(ctx, req.Creds.LLMKey, snippet.Lang, problem.Content, snippet.Code)
	if err != nil {
		return nil, fmt.Errorf("generate solution: %w", err)
	}

	s.notify(ctx, req.Creds, msgSubmitting)
	submissionID, err := s.judge.Submit(ctx, auth, problem, snippet.LangSlug, code)
	if err != nil {
		s.notify(ctx, req.Creds, msgSubmitFailed(source, err))
		return nil, fmt.Errorf("submit solution: %w", err)
	}
	log.Info("solution submitted", zap.String("submission_id", submissionID))

	verdict, err := s.judge.PollVerdict(ctx, auth, submissionID, s.opts.PollInterval, s.opts.PollAttempts)
	if err != nil {
		return nil, fmt.Errorf("poll verdict: %w", err)
	}
	log.Info("verdict received", zap.String("verdict", verdict.State))

	if verdict.Accepted() && req.SettingsID != "" {
		// the submission already happened; a failed write is reported, not fatal
		if _, err := s.settingsRepo.MarkSolved(ctx, req.SettingsID, s.now()); err != nil {
			log.Error("failed to record solved date", zap.Error(err))
		}
	}

	s.notify(ctx, req.Creds, msgVerdict(problem, source, verdict))
	return &model.SolveResult{
		Status:  model.ResultSubmitted,
		Source:  source,
		Problem: problem.Title,
		Slug:    slug,
		Verdict: verdict,
		Code:    code,
	}, nil
}

// ManualSolveRequest is the body of a manual solve. Blank secrets fall back to
// the process defaults.
type ManualSolveRequest struct {
	Platform        model.Platform  `json:"platform" validate:"omitempty,oneof=leetcode codeforces"`
	Mode            model.SolveMode `json:"mode" validate:"omitempty,oneof=potd next"`
	LeetCodeSession string          `json:"leetcode_session" validate:"required_unless=Platform codeforces"`
	CSRFToken       string          `json:"csrf_token" validate:"required_unless=Platform codeforces"`
	GeminiKey       string          `json:"gemini_key"`
	TelegramToken   string          `json:"tg_token"`
	TelegramChatID  string          `json:"tg_chat_id"`
	CFHandle        string          `json:"cf_handle" validate:"required_if=Platform codeforces"`
	CFJSessionID    string          `json:"cf_jsessionid"`
	CFCSRFToken     string          `json:"cf_csrf_token"`
}

// Manual runs the flow once with caller-supplied credentials. Nothing is persisted.
func (s *SolveService) Manual(ctx context.Context, req ManualSolveRequest, d CredentialDefaults) (*model.SolveResult, error) {
	if req.Platform == "" {
		req.Platform = model.PlatformLeetCode
	}
	if req.Mode == "" {
		req.Mode = model.ModePOTD
	}
	creds := model.Credentials{
		LeetCodeSession: req.LeetCodeSession,
		CSRFToken:       req.CSRFToken,
		LLMKey:          firstNonEmpty(req.GeminiKey, d.LLMKey),
		TelegramToken:   req.TelegramToken,
		TelegramChatID:  req.TelegramChatID,
		CFHandle:        req.CFHandle,
		CFJSessionID:    req.CFJSessionID,
		CFCSRFToken:     req.CFCSRFToken,
	}
	if err := requireCredentials(creds, req.Platform); err != nil {
		return nil, err
	}
	return s.Run(ctx, SolveRequest{Platform: req.Platform, Mode: req.Mode, Creds: creds})
}
