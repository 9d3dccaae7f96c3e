package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"autosolver/internal/domain/model"
	"autosolver/internal/platform/telegram"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type commandFixture struct {
	settings   *memSettingsRepo
	jobs       *memJobRepo
	dispatcher *recordingDispatcher
	notifier   *recordingNotifier
	solver     *countingSolver
	locker     *memLocker
	svc        *CommandService
}

func newCommandFixture(rows ...*model.AutomationSettings) *commandFixture {
	f := &commandFixture{
		settings:   newMemSettingsRepo(rows...),
		jobs:       newMemJobRepo(),
		dispatcher: &recordingDispatcher{},
		notifier:   &recordingNotifier{},
		solver:     &countingSolver{result: &model.SolveResult{Status: model.ResultSubmitted}},
		locker:     newMemLocker(),
	}
	judge := &fakeJudge{user: &model.JudgeUser{Username: "alice", IsSignedIn: true}}
	f.svc = NewCommandService(f.settings, newTestJobService(f.jobs, f.dispatcher), f.solver, judge, f.locker, f.notifier,
		CredentialDefaults{LLMKey: "llm-key", TelegramBotToken: "default-token"}, time.Minute, ist, testLog)
	f.svc.now = clock
	return f
}

func update(id int64, chatID int64, text string) telegram.Update {
	return telegram.Update{UpdateID: id, Message: &telegram.Message{MessageID: id, Chat: telegram.Chat{ID: chatID}, Text: text}}
}

func TestHandleUpdate_UnknownChat(t *testing.T) {
	f := newCommandFixture(testSettings())

	require.NoError(t, f.svc.HandleUpdate(context.Background(), update(1, 99, "/solve")))
	require.Len(t, f.notifier.messages(), 1)
	assert.Equal(t, msgNotAuthorized, f.notifier.messages()[0])
	assert.Zero(t, f.jobs.count())
}

func TestHandleUpdate_IgnoresNonMessages(t *testing.T) {
	f := newCommandFixture(testSettings())
	require.NoError(t, f.svc.HandleUpdate(context.Background(), telegram.Update{UpdateID: 1}))
	assert.Empty(t, f.notifier.messages())
}

func TestHandleUpdate_SolveEnqueuesOnce(t *testing.T) {
	f := newCommandFixture(testSettings())
	ctx := context.Background()

	require.NoError(t, f.svc.HandleUpdate(ctx, update(10, 42, "/solve")))
	require.NoError(t, f.svc.HandleUpdate(ctx, update(11, 42, "/solve@my_bot")))

	assert.Equal(t, 1, f.jobs.count())
	assert.Len(t, f.dispatcher.dispatched(), 1)
	assert.Equal(t, []string{msgQueuedPOTD, msgAlreadyQueued}, f.notifier.messages())
}

func TestHandleUpdate_DuplicateUpdateRunsOnce(t *testing.T) {
	f := newCommandFixture(testSettings())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.svc.HandleUpdate(context.Background(), update(77, 42, "/next")))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.jobs.count())
	assert.Equal(t, []string{msgQueuedNext}, f.notifier.messages())
	assert.Equal(t, int64(77), *f.settings.get("settings-1").LastTelegramUpdateID)
}

func TestHandleUpdate_SolveAlreadySolvedToday(t *testing.T) {
	s := testSettings()
	s.LastSolvedDate = ptr(model.Day(fixedNow))
	f := newCommandFixture(s)

	require.NoError(t, f.svc.HandleUpdate(context.Background(), update(1, 42, "/solve")))
	assert.Equal(t, []string{msgAlreadySolved}, f.notifier.messages())
	assert.Zero(t, f.jobs.count())
}

func TestHandleUpdate_InactiveRefusesSolves(t *testing.T) {
	s := testSettings()
	s.IsActive = false
	f := newCommandFixture(s)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleUpdate(ctx, update(1, 42, "/solve")))
	require.NoError(t, f.svc.HandleUpdate(ctx, update(2, 42, "/cf")))
	assert.Equal(t, []string{msgInactive, msgInactive}, f.notifier.messages())
	assert.Zero(t, f.jobs.count())
	assert.Zero(t, f.solver.count())

	require.NoError(t, f.svc.HandleUpdate(ctx, update(3, 42, "/start")))
	assert.True(t, f.settings.get("settings-1").IsActive)
}

func TestHandleUpdate_StopPausesAutomation(t *testing.T) {
	f := newCommandFixture(testSettings())

	require.NoError(t, f.svc.HandleUpdate(context.Background(), update(1, 42, "/stop")))
	assert.False(t, f.settings.get("settings-1").IsActive)
	assert.Equal(t, []string{msgStopped}, f.notifier.messages())
}

func TestHandleUpdate_StatusReportsSession(t *testing.T) {
	f := newCommandFixture(testSettings())

	require.NoError(t, f.svc.HandleUpdate(context.Background(), update(1, 42, "/status")))
	require.Len(t, f.notifier.messages(), 1)
	assert.Contains(t, f.notifier.messages()[0], "Valid (alice)")
	assert.Contains(t, f.notifier.messages()[0], "Never")
}

func TestHandleUpdate_UnknownCommandShowsHelp(t *testing.T) {
	f := newCommandFixture(testSettings())

	require.NoError(t, f.svc.HandleUpdate(context.Background(), update(1, 42, "hello there")))
	require.Len(t, f.notifier.messages(), 1)
	assert.Contains(t, f.notifier.messages()[0], "Unknown command")
	assert.Contains(t, f.notifier.messages()[0], "/cf")
}

func TestHandleUpdate_CodeforcesRunsUnderLease(t *testing.T) {
	f := newCommandFixture(testSettings())

	require.NoError(t, f.svc.HandleUpdate(context.Background(), update(1, 42, "/cf")))
	assert.Equal(t, 1, f.solver.count())
	assert.Empty(t, f.locker.held, "lease released after the command")
	assert.Equal(t, []string{msgCFPicking}, f.notifier.messages())
}

func TestHandleUpdate_CodeforcesBusyWhileLeaseHeld(t *testing.T) {
	f := newCommandFixture(testSettings())
	ctx := context.Background()

	held, err := f.locker.Acquire(ctx, "settings-1", time.Minute)
	require.NoError(t, err)

	require.NoError(t, f.svc.HandleUpdate(ctx, update(1, 42, "/cf")))
	assert.Zero(t, f.solver.count())
	assert.Equal(t, []string{msgBusy}, f.notifier.messages())

	require.NoError(t, f.locker.Release(ctx, held))
	require.NoError(t, f.svc.HandleUpdate(ctx, update(2, 42, "/cf")))
	assert.Equal(t, 1, f.solver.count())
}

func TestHandleUpdate_MissingLeetCodeCredentials(t *testing.T) {
	s := testSettings()
	s.CSRFToken = ""
	f := newCommandFixture(s)

	require.NoError(t, f.svc.HandleUpdate(context.Background(), update(1, 42, "/next")))
	assert.Equal(t, []string{msgMissingLeetCode}, f.notifier.messages())
	assert.Zero(t, f.jobs.count())
}
