package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"autosolver/internal/common"
	"autosolver/internal/domain/model"
	"autosolver/internal/domain/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type ScheduleOptions struct {
	Location        *time.Location
	WindowStartHour int
	WindowEndHour   int
	// HeartbeatConcurrency caps parallel session probes.
	HeartbeatConcurrency int
}

// Scheduled-solve outcomes.
const (
	ActionIdle          = "idle"
	ActionAlreadySolved = "already_solved"
	ActionScheduled     = "scheduled"
	ActionWaiting       = "waiting"
	ActionEnqueued      = "enqueued"
	ActionDuplicate     = "duplicate"
	ActionAttempted     = "attempted"
)

type ScheduleOutcome struct {
	Action     string     `json:"action"`
	Message    string     `json:"message"`
	TargetTime *time.Time `json:"target_time,omitempty"`
	JobID      string     `json:"job_id,omitempty"`
}

// Session probe outcomes.
const (
	SessionHealthy = "Healthy"
	SessionExpired = "Expired"
	SessionError   = "Error"
)

type HeartbeatResult struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message,omitempty"`
}

// TriggerService backs the scheduled endpoints.
type TriggerService struct {
	settingsRepo repository.SettingsRepository
	jobs         *JobService
	judge        JudgeClient
	notifier     Notifier
	defaults     CredentialDefaults
	opts         ScheduleOptions
	log          *zap.Logger
	now          func() time.Time
	randN        func(n int) int
}

func NewTriggerService(
	settingsRepo repository.SettingsRepository,
	jobs *JobService,
	judge JudgeClient,
	notifier Notifier,
	defaults CredentialDefaults,
	opts ScheduleOptions,
	log *zap.Logger,
) *TriggerService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.HeartbeatConcurrency <= 0 {
		opts.HeartbeatConcurrency = 4
	}
	return &TriggerService{
		settingsRepo: settingsRepo,
		jobs:         jobs,
		judge:        judge,
		notifier:     notifier,
		defaults:     defaults,
		opts:         opts,
		log:          log,
		now:          time.Now,
		randN:        rand.IntN,
	}
}

// RandomTarget picks a minute inside the [startHour, endHour) wall-clock window
// of loc that falls on the UTC calendar date of day. Depending on the offset of
// loc that minute may belong to the local date before or after.
func RandomTarget(day time.Time, loc *time.Location, startHour, endHour int, randN func(int) int) time.Time {
	dayStart := model.Day(day)
	dayEnd := dayStart.AddDate(0, 0, 1)
	y, m, d := dayStart.Date()

	type span struct {
		from    time.Time
		minutes int
	}
	var spans []span
	total := 0
	for offset := -1; offset <= 1; offset++ {
		from := time.Date(y, m, d+offset, startHour, 0, 0, 0, loc)
		to := time.Date(y, m, d+offset, endHour, 0, 0, 0, loc)
		if from.Before(dayStart) {
			from = dayStart
		}
		if to.After(dayEnd) {
			to = dayEnd
		}
		if n := int(to.Sub(from) / time.Minute); n > 0 {
			spans = append(spans, span{from: from, minutes: n})
			total += n
		}
	}
	if total == 0 {
		return dayStart.In(loc)
	}

	pick := randN(total)
	for _, sp := range spans {
		if pick < sp.minutes {
			return sp.from.Add(time.Duration(pick) * time.Minute).In(loc)
		}
		pick -= sp.minutes
	}
	return spans[len(spans)-1].from.In(loc)
}

// ScheduledSolve applies the daily gates to the active settings row: already
// solved, target time generation, not yet time. Once due it enqueues a POTD job
// unless one already ran today.
func (s *TriggerService) ScheduledSolve(ctx context.Context) (*ScheduleOutcome, error) {
	settings, err := s.settingsRepo.FindFirstActive(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return &ScheduleOutcome{Action: ActionIdle, Message: "No active automation settings found."}, nil
		}
		return nil, err
	}
	log := s.log.With(zap.String("settings_id", settings.ID))

	now := s.now()
	today := model.Day(now)
	if settings.SolvedOn(today) {
		return &ScheduleOutcome{Action: ActionAlreadySolved, Message: "Already solved for today."}, nil
	}

	target, ok := settings.TargetFor(today)
	if !ok {
		proposed := RandomTarget(today, s.opts.Location, s.opts.WindowStartHour, s.opts.WindowEndHour, s.randN)
		stored, set, err := s.settingsRepo.SetTargetTimeIfUnset(ctx, settings.ID, proposed, today)
		if err != nil {
			return nil, common.Errorf("failed to store target time: %w", err)
		}
		if set {
			log.Info("scheduled today's solve", zap.Time("target_time", stored))
			creds := ResolveCredentials(settings, s.defaults)
			s.notifier.Notify(ctx, creds.TelegramToken, creds.TelegramChatID, msgScheduled(stored, s.opts.Location))
		}
		return &ScheduleOutcome{
			Action:     ActionScheduled,
			Message:    "Generated new target time: " + stored.UTC().Format(time.RFC3339),
			TargetTime: &stored,
		}, nil
	}

	if now.Before(target) {
		return &ScheduleOutcome{
			Action:     ActionWaiting,
			Message:    "Waiting for target time: " + target.UTC().Format(time.RFC3339),
			TargetTime: &target,
		}, nil
	}

	// One scheduled attempt per day; /solve still works after a failure.
	ran, err := s.jobs.RanToday(ctx, settings.ID, model.ModePOTD)
	if err != nil {
		return nil, err
	}
	if ran {
		return &ScheduleOutcome{Action: ActionAttempted, Message: "Today's scheduled solve already ran."}, nil
	}

	job, created, err := s.jobs.Enqueue(ctx, settings.ID, model.PlatformLeetCode, model.ModePOTD)
	if err != nil {
		return nil, err
	}
	if !created {
		return &ScheduleOutcome{Action: ActionDuplicate, Message: "A solve job is already queued for today."}, nil
	}
	return &ScheduleOutcome{Action: ActionEnqueued, Message: "Solve job queued.", JobID: job.ID}, nil
}

// Heartbeat probes every active row's LeetCode session and warns owners whose
// session expired.
func (s *TriggerService) Heartbeat(ctx context.Context) ([]HeartbeatResult, error) {
	rows, err := s.settingsRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]HeartbeatResult, len(rows))
	var g errgroup.Group
	g.SetLimit(s.opts.HeartbeatConcurrency)
	for i := range rows {
		g.Go(func() error {
			results[i] = s.probe(ctx, &rows[i])
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

func (s *TriggerService) probe(ctx context.Context, settings *model.AutomationSettings) HeartbeatResult {
	res := HeartbeatResult{ID: settings.ID}
	creds := ResolveCredentials(settings, s.defaults)

	user, err := s.judge.CurrentUser(ctx, leetCodeAuth(creds))
	switch {
	case err != nil && !errors.Is(err, common.ErrSessionInvalid):
		s.log.Warn("heartbeat probe failed", zap.String("settings_id", settings.ID), zap.Error(err))
		res.Status, res.Message = SessionError, err.Error()
		return res
	case err != nil || !user.IsSignedIn:
		s.log.Info("session expired", zap.String("settings_id", settings.ID))
		s.notifier.Notify(ctx, creds.TelegramToken, creds.TelegramChatID, msgSessionExpired)
		res.Status = SessionExpired
		return res
	}
	res.Status, res.Username = SessionHealthy, user.Username
	return res
}
