package service

import (
	"context"
	"errors"
	"time"

	"autosolver/internal/common"
	"autosolver/internal/domain/model"
	"autosolver/internal/domain/repository"
	"autosolver/internal/platform/lease"
	"autosolver/internal/platform/telegram"

	"go.uber.org/zap"
)

// CommandService handles bot commands arriving through the Telegram webhook.
type CommandService struct {
	settingsRepo repository.SettingsRepository
	jobs         *JobService
	solver       Solver
	judge        JudgeClient
	locker       lease.Locker
	notifier     Notifier
	defaults     CredentialDefaults
	leaseTTL     time.Duration
	loc          *time.Location
	log          *zap.Logger
	now          func() time.Time
}

func NewCommandService(
	settingsRepo repository.SettingsRepository,
	jobs *JobService,
	solver Solver,
	judge JudgeClient,
	locker lease.Locker,
	notifier Notifier,
	defaults CredentialDefaults,
	leaseTTL time.Duration,
	loc *time.Location,
	log *zap.Logger,
) *CommandService {
	if loc == nil {
		loc = time.UTC
	}
	return &CommandService{
		settingsRepo: settingsRepo,
		jobs:         jobs,
		solver:       solver,
		judge:        judge,
		locker:       locker,
		notifier:     notifier,
		defaults:     defaults,
		leaseTTL:     leaseTTL,
		loc:          loc,
		log:          log,
		now:          time.Now,
	}
}

// HandleUpdate runs the command in upd. Redelivered updates are dropped. The
// returned error is for logging; the webhook always acknowledges.
func (s *CommandService) HandleUpdate(ctx context.Context, upd telegram.Update) error {
	if upd.Message == nil || upd.Message.Text == "" {
		return nil
	}
	chatID := upd.Message.Chat.IDString()
	log := s.log.With(zap.String("chat_id", chatID), zap.Int64("update_id", upd.UpdateID))

	settings, err := s.settingsRepo.FindByChatID(ctx, chatID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			log.Warn("message from unknown chat")
			s.notifier.Notify(ctx, s.defaults.TelegramBotToken, chatID, msgNotAuthorized)
			return nil
		}
		return err
	}

	// record the update before acting so a redelivery mid-command is dropped
	fresh, err := s.settingsRepo.RecordUpdateID(ctx, settings.ID, upd.UpdateID)
	if err != nil {
		return err
	}
	if !fresh {
		log.Info("duplicate update ignored")
		return nil
	}

	creds := ResolveCredentials(settings, s.defaults)
	reply := func(msg string) { s.notifier.Notify(ctx, creds.TelegramToken, chatID, msg) }

	cmd := telegram.Command(upd.Message.Text)
	log = log.With(zap.String("command", cmd), zap.String("settings_id", settings.ID))
	log.Info("handling command")

	switch cmd {
	case "/help":
		reply(msgHelp(settings.IsActive))
		return nil
	case "/start":
		if !settings.IsActive {
			if err := s.settingsRepo.SetActive(ctx, settings.ID, true); err != nil {
				reply(msgError(err))
				return err
			}
		}
		reply(msgHelp(true))
		return nil
	case "/stop":
		if err := s.settingsRepo.SetActive(ctx, settings.ID, false); err != nil {
			reply(msgError(err))
			return err
		}
		reply(msgStopped)
		return nil
	case "/status":
		reply(msgStatus(settings, s.sessionState(ctx, creds), s.loc))
		return nil
	case "/solve", "/next", "/cf":
	default:
		reply(msgUnknownCommand + msgHelp(settings.IsActive))
		return nil
	}

	if !settings.IsActive {
		reply(msgInactive)
		return nil
	}

	if cmd == "/cf" {
		return s.solveCodeforces(ctx, log, settings, creds, reply)
	}

	if !creds.HasLeetCode() {
		reply(msgMissingLeetCode)
		return nil
	}
	mode, queuedMsg := model.ModePOTD, msgQueuedPOTD
	if cmd == "/next" {
		mode, queuedMsg = model.ModeNext, msgQueuedNext
	} else if settings.SolvedOn(model.Day(s.now())) {
		reply(msgAlreadySolved)
		return nil
	}

	_, created, err := s.jobs.Enqueue(ctx, settings.ID, model.PlatformLeetCode, mode)
	if err != nil {
		reply(msgError(err))
		return err
	}
	if !created {
		reply(msgAlreadyQueued)
		return nil
	}
	reply(queuedMsg)
	return nil
}

// solveCodeforces runs inline, so it holds the settings lease for its duration.
func (s *CommandService) solveCodeforces(ctx context.Context, log *zap.Logger, settings *model.AutomationSettings, creds model.Credentials, reply func(string)) error {
	err := lease.WithLease(ctx, s.locker, settings.ID, s.leaseTTL, func(ctx context.Context) error {
		leaseCtx, cancel := context.WithTimeout(ctx, s.leaseTTL)
		defer cancel()

		reply(msgCFPicking)
		_, err := s.solver.Run(leaseCtx, SolveRequest{
			Platform:   model.PlatformCodeforces,
			Creds:      creds,
			SettingsID: settings.ID,
		})
		if err != nil {
			reply(msgError(err))
			return err
		}
		return nil
	})
	if errors.Is(err, common.ErrLeaseHeld) {
		log.Info("command refused, lease held")
		reply(msgBusy)
		return nil
	}
	return err
}

func (s *CommandService) sessionState(ctx context.Context, creds model.Credentials) string {
	if !creds.HasLeetCode() {
		return "Not configured"
	}
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	user, err := s.judge.CurrentUser(probeCtx, leetCodeAuth(creds))
	switch {
	case err == nil && user.IsSignedIn:
		return "Valid (" + telegram.EscapeHTML(user.Username) + ")"
	case err == nil || errors.Is(err, common.ErrSessionInvalid):
		return "Expired"
	default:
		return "Unknown"
	}
}
