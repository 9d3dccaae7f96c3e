package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"
	_ "time/tzdata"

	"autosolver/internal/common"
	"autosolver/internal/domain/model"
	"autosolver/internal/platform/leetcode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type triggerFixture struct {
	settings   *memSettingsRepo
	jobs       *memJobRepo
	dispatcher *recordingDispatcher
	notifier   *recordingNotifier
	svc        *TriggerService
}

func newTriggerFixture(judge JudgeClient, randN func(int) int, rows ...*model.AutomationSettings) *triggerFixture {
	f := &triggerFixture{
		settings:   newMemSettingsRepo(rows...),
		jobs:       newMemJobRepo(),
		dispatcher: &recordingDispatcher{},
		notifier:   &recordingNotifier{},
	}
	jobs := newTestJobService(f.jobs, f.dispatcher)
	f.svc = NewTriggerService(f.settings, jobs, judge, f.notifier, CredentialDefaults{}, ScheduleOptions{
		Location:        ist,
		WindowStartHour: 8,
		WindowEndHour:   24,
	}, testLog)
	f.svc.now = clock
	f.svc.randN = randN
	return f
}

func first(int) int { return 0 }

func last(n int) int { return n - 1 }

func TestRandomTarget_StaysInWindow(t *testing.T) {
	day := model.Day(fixedNow)
	lo := RandomTarget(day, ist, 8, 24, first)
	hi := RandomTarget(day, ist, 8, 24, last)

	assert.Equal(t, time.Date(2024, 3, 9, 8, 0, 0, 0, ist), lo)
	assert.Equal(t, time.Date(2024, 3, 9, 23, 59, 0, 0, ist), hi)
	for _, target := range []time.Time{lo, hi} {
		got, ok := (&model.AutomationSettings{TargetTime: &target}).TargetFor(day)
		assert.True(t, ok)
		assert.Equal(t, target, got)
	}
}

func TestRandomTarget_WindowHoldsAcrossZonesAndDST(t *testing.T) {
	cases := []struct {
		name string
		zone string
		day  time.Time
	}{
		{"west of UTC", "America/New_York", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)},
		{"spring forward", "Europe/London", time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)},
		{"fall back", "America/New_York", time.Date(2024, 11, 3, 0, 0, 0, 0, time.UTC)},
		{"east of UTC", "Asia/Tokyo", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			loc, err := time.LoadLocation(tc.zone)
			require.NoError(t, err)

			var total int
			RandomTarget(tc.day, loc, 8, 24, func(n int) int { total = n; return 0 })
			require.Positive(t, total)

			for i := 0; i < total; i++ {
				got := RandomTarget(tc.day, loc, 8, 24, func(int) int { return i })
				require.True(t, model.SameDay(got, tc.day), "pick %d landed on %s", i, got.UTC())
				require.GreaterOrEqual(t, got.In(loc).Hour(), 8, "pick %d at %s", i, got)
			}
		})
	}
}

func TestRandomTarget_SpringForwardKeepsWallClock(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	day := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	lo := RandomTarget(day, london, 8, 24, first)
	hi := RandomTarget(day, london, 8, 24, last)

	assert.Equal(t, "08:00 BST", lo.Format("15:04 MST"))
	assert.Equal(t, "23:59 BST", hi.Format("15:04 MST"))
}

func TestScheduledSolve_WestOfUTCKeepsTargetForTheDay(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	f := newTriggerFixture(&fakeJudge{}, last, testSettings())
	f.svc.opts.Location = ny
	ctx := context.Background()

	// 19:30 EST on the 8th, already the 9th in UTC
	f.svc.now = func() time.Time { return time.Date(2024, 3, 9, 0, 30, 0, 0, time.UTC) }
	out, err := f.svc.ScheduledSolve(ctx)
	require.NoError(t, err)
	require.Equal(t, ActionScheduled, out.Action)
	target := *out.TargetTime
	assert.True(t, target.Equal(time.Date(2024, 3, 9, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, "18:59 EST", target.In(ny).Format("15:04 MST"))

	f.svc.now = func() time.Time { return time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC) }
	out, err = f.svc.ScheduledSolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionWaiting, out.Action)
	assert.True(t, f.settings.get("settings-1").TargetTime.Equal(target))

	f.svc.now = func() time.Time { return time.Date(2024, 3, 9, 23, 59, 30, 0, time.UTC) }
	out, err = f.svc.ScheduledSolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionEnqueued, out.Action)
}

func TestScheduledSolve_NoActiveSettings(t *testing.T) {
	s := testSettings()
	s.IsActive = false
	f := newTriggerFixture(&fakeJudge{}, first, s)

	out, err := f.svc.ScheduledSolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionIdle, out.Action)
}

func TestScheduledSolve_SolvedTodayIsNoop(t *testing.T) {
	s := testSettings()
	s.LastSolvedDate = ptr(model.Day(fixedNow))
	f := newTriggerFixture(&fakeJudge{}, first, s)

	out, err := f.svc.ScheduledSolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionAlreadySolved, out.Action)
	assert.Zero(t, f.jobs.count())
	assert.Nil(t, f.settings.get("settings-1").TargetTime)
	assert.Empty(t, f.notifier.messages())
}

func TestScheduledSolve_GatesInOrder(t *testing.T) {
	f := newTriggerFixture(&fakeJudge{}, first, testSettings())
	ctx := context.Background()

	out, err := f.svc.ScheduledSolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionScheduled, out.Action)
	require.NotNil(t, out.TargetTime)
	assert.True(t, out.TargetTime.Equal(time.Date(2024, 3, 9, 8, 0, 0, 0, ist)))
	assert.Zero(t, f.jobs.count(), "scheduling never solves in the same call")
	require.Len(t, f.notifier.messages(), 1)
	assert.Contains(t, f.notifier.messages()[0], "08:00 IST")

	out, err = f.svc.ScheduledSolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionEnqueued, out.Action)
	assert.Equal(t, []string{out.JobID}, f.dispatcher.dispatched())
	jobID := out.JobID

	out, err = f.svc.ScheduledSolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionDuplicate, out.Action)
	assert.Equal(t, 1, f.jobs.count())

	// a finished run without an Accepted verdict is not retried by the cron
	job := f.jobs.get(jobID)
	job.Status = model.JobStatusFailed
	f.jobs.put(job)

	out, err = f.svc.ScheduledSolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionAttempted, out.Action)
	assert.Equal(t, 1, f.jobs.count())
	assert.Len(t, f.dispatcher.dispatched(), 1)
}

func TestScheduledSolve_WaitsForTarget(t *testing.T) {
	f := newTriggerFixture(&fakeJudge{}, last, testSettings())
	ctx := context.Background()

	_, err := f.svc.ScheduledSolve(ctx)
	require.NoError(t, err)
	out, err := f.svc.ScheduledSolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionWaiting, out.Action)
	assert.Zero(t, f.jobs.count())
}

func TestScheduledSolve_RegeneratesStaleTarget(t *testing.T) {
	s := testSettings()
	yesterday := fixedNow.AddDate(0, 0, -1)
	s.TargetTime = &yesterday
	f := newTriggerFixture(&fakeJudge{}, last, s)

	out, err := f.svc.ScheduledSolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ActionScheduled, out.Action)
	assert.True(t, f.settings.get("settings-1").TargetTime.After(fixedNow))
}

// sessionJudge answers CurrentUser per session cookie.
type sessionJudge struct {
	fakeJudge
	users map[string]*model.JudgeUser
	errs  map[string]error
}

func (j *sessionJudge) CurrentUser(_ context.Context, auth leetcode.Auth) (*model.JudgeUser, error) {
	return j.users[auth.Session], j.errs[auth.Session]
}

func TestHeartbeat_ClassifiesSessions(t *testing.T) {
	var rows []*model.AutomationSettings
	for i, session := range []string{"good", "signed-out", "rejected", "broken"} {
		s := testSettings()
		s.ID = fmt.Sprintf("settings-%d", i)
		s.LeetCodeSession = session
		rows = append(rows, s)
	}
	judge := &sessionJudge{
		users: map[string]*model.JudgeUser{
			"good":       {Username: "alice", IsSignedIn: true},
			"signed-out": {IsSignedIn: false},
		},
		errs: map[string]error{
			"rejected": common.Errorf("graphql: %w", common.ErrSessionInvalid),
			"broken":   errors.New("connection reset"),
		},
	}
	f := newTriggerFixture(judge, first, rows...)

	results, err := f.svc.Heartbeat(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 4)
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })

	assert.Equal(t, SessionHealthy, results[0].Status)
	assert.Equal(t, "alice", results[0].Username)
	assert.Equal(t, SessionExpired, results[1].Status)
	assert.Equal(t, SessionExpired, results[2].Status)
	assert.Equal(t, SessionError, results[3].Status)
	assert.Contains(t, results[3].Message, "connection reset")

	// only expired sessions warn their owner
	assert.Len(t, f.notifier.messages(), 2)
}
