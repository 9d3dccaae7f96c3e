package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"autosolver/internal/common"
	"autosolver/internal/domain/model"
	"autosolver/internal/platform/codeforces"
	"autosolver/internal/platform/lease"
	"autosolver/internal/platform/leetcode"

	"go.uber.org/zap"
)

var testLog = zap.NewNop()

// fixedNow is 2024-03-09 12:00 UTC (17:30 in Asia/Kolkata).
var fixedNow = time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func ptr[T any](v T) *T { return &v }

type memSettingsRepo struct {
	mu         sync.Mutex
	rows       map[string]*model.AutomationSettings
	markSolved int
}

func newMemSettingsRepo(rows ...*model.AutomationSettings) *memSettingsRepo {
	r := &memSettingsRepo{rows: map[string]*model.AutomationSettings{}}
	for _, s := range rows {
		r.rows[s.ID] = s
	}
	return r
}

func (r *memSettingsRepo) get(id string) *model.AutomationSettings {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.rows[id]
	return &cp
}

func (r *memSettingsRepo) GetByID(_ context.Context, id string) (*model.AutomationSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memSettingsRepo) FindFirstActive(ctx context.Context) (*model.AutomationSettings, error) {
	rows, _ := r.ListActive(ctx)
	if len(rows) == 0 {
		return nil, common.ErrNotFound
	}
	return &rows[0], nil
}

func (r *memSettingsRepo) ListActive(_ context.Context) ([]model.AutomationSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.AutomationSettings
	for _, s := range r.rows {
		if s.IsActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memSettingsRepo) FindByChatID(_ context.Context, chatID string) (*model.AutomationSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.TelegramChatID == chatID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *memSettingsRepo) SetActive(_ context.Context, id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[id].IsActive = active
	return nil
}

func (r *memSettingsRepo) MarkSolved(_ context.Context, id string, day time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.rows[id]
	d := model.Day(day)
	if s.LastSolvedDate != nil && !s.LastSolvedDate.Before(d) {
		return false, nil
	}
	s.LastSolvedDate = &d
	r.markSolved++
	return true, nil
}

func (r *memSettingsRepo) SetTargetTimeIfUnset(_ context.Context, id string, target, notBefore time.Time) (time.Time, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.rows[id]
	if s.TargetTime != nil && !s.TargetTime.Before(notBefore) {
		return *s.TargetTime, false, nil
	}
	s.TargetTime = &target
	return target, true, nil
}

func (r *memSettingsRepo) RecordUpdateID(_ context.Context, id string, updateID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.rows[id]
	if s.LastTelegramUpdateID != nil && *s.LastTelegramUpdateID == updateID {
		return false, nil
	}
	s.LastTelegramUpdateID = &updateID
	return true, nil
}

func (r *memSettingsRepo) AcquireLease(_ context.Context, id, holder string, ttl time.Duration) (*time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.rows[id]
	if s.LeaseExpiresAt != nil && s.LeaseExpiresAt.After(fixedNow) && *s.LeaseHolder != holder {
		return nil, common.ErrLeaseHeld
	}
	exp := fixedNow.Add(ttl)
	s.LeaseHolder, s.LeaseExpiresAt = &holder, &exp
	return &exp, nil
}

func (r *memSettingsRepo) ReleaseLease(_ context.Context, id, holder string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.rows[id]
	if s.LeaseHolder != nil && *s.LeaseHolder == holder {
		s.LeaseHolder, s.LeaseExpiresAt = nil, nil
	}
	return nil
}

type memJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.SolveJob
}

func newMemJobRepo() *memJobRepo {
	return &memJobRepo{jobs: map[string]*model.SolveJob{}}
}

func (r *memJobRepo) put(job *model.SolveJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.jobs[job.ID] = &cp
}

func (r *memJobRepo) get(id string) *model.SolveJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *r.jobs[id]
	return &cp
}

func (r *memJobRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func (r *memJobRepo) openLocked(settingsID string, mode model.SolveMode) bool {
	for _, j := range r.jobs {
		if j.SettingsID == settingsID && j.Mode == mode && j.Status.Open() {
			return true
		}
	}
	return false
}

func (r *memJobRepo) Create(_ context.Context, job *model.SolveJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.openLocked(job.SettingsID, job.Mode) {
		return fmt.Errorf("duplicate: %w", common.ErrConflict)
	}
	job.CreatedAt = fixedNow
	cp := *job
	r.jobs[job.ID] = &cp
	return nil
}

func (r *memJobRepo) GetByID(_ context.Context, id string) (*model.SolveJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *memJobRepo) HasOpenJob(_ context.Context, settingsID string, mode model.SolveMode, _ time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.openLocked(settingsID, mode), nil
}

func (r *memJobRepo) HasFinishedJob(_ context.Context, settingsID string, mode model.SolveMode, _ time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.SettingsID == settingsID && j.Mode == mode && !j.Status.Open() {
			return true, nil
		}
	}
	return false, nil
}

func (r *memJobRepo) Claim(_ context.Context, id string) (*model.SolveJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	if j.Status != model.JobStatusPending {
		return nil, common.ErrJobNotPending
	}
	j.Status = model.JobStatusProcessing
	j.StartedAt = ptr(fixedNow)
	cp := *j
	return &cp, nil
}

func (r *memJobRepo) SetProblem(_ context.Context, id, title, slug string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id].ProblemTitle, r.jobs[id].ProblemSlug = &title, &slug
	return nil
}

func (r *memJobRepo) Complete(_ context.Context, id, state string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j := r.jobs[id]
	if j.Status != model.JobStatusProcessing {
		return common.ErrConflict
	}
	j.Status, j.ResultState = model.JobStatusCompleted, &state
	return nil
}

func (r *memJobRepo) Fail(_ context.Context, id, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j := r.jobs[id]
	if j.Status.Terminal() {
		return common.ErrConflict
	}
	j.Status, j.ErrorMessage = model.JobStatusFailed, &msg
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *recordingNotifier) Notify(_ context.Context, token, chatID, msg string) {
	if token == "" || chatID == "" {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *recordingNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, jobID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, jobID)
}

func (d *recordingDispatcher) dispatched() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.ids...)
}

type fakeJudge struct {
	daily      *model.DailyProblem
	next       *model.Problem
	detail     *model.Problem
	submitID   string
	submitErr  error
	verdict    *model.Verdict
	user       *model.JudgeUser
	userErr    error
	submits    int
	polls      int
	detailHits int
}

func (f *fakeJudge) DailyProblem(context.Context, leetcode.Auth) (*model.DailyProblem, error) {
	return f.daily, nil
}

func (f *fakeJudge) NextUnsolved(context.Context, leetcode.Auth) (*model.Problem, error) {
	return f.next, nil
}

func (f *fakeJudge) ProblemDetail(context.Context, string) (*model.Problem, error) {
	f.detailHits++
	return f.detail, nil
}

func (f *fakeJudge) Submit(context.Context, leetcode.Auth, *model.Problem, string, string) (string, error) {
	f.submits++
	return f.submitID, f.submitErr
}

func (f *fakeJudge) PollVerdict(context.Context, leetcode.Auth, string, time.Duration, int) (*model.Verdict, error) {
	f.polls++
	return f.verdict, nil
}

func (f *fakeJudge) CurrentUser(context.Context, leetcode.Auth) (*model.JudgeUser, error) {
	return f.user, f.userErr
}

type fakeCF struct {
	problem   *model.CFProblem
	submitErr error
	submits   int
}

func (f *fakeCF) RandomUnsolved(context.Context, string, int, int) (*model.CFProblem, error) {
	return f.problem, nil
}

func (f *fakeCF) Statement(context.Context, model.CFProblem) (string, error) {
	return "print the sum", nil
}

func (f *fakeCF) Submit(context.Context, codeforces.Session, model.CFProblem, string) error {
	f.submits++
	return f.submitErr
}

func (f *fakeCF) ProblemURL(p model.CFProblem) string {
	return codeforces.ProblemURL("https://codeforces.test", p)
}

type fakeGen struct {
	code  string
	err   error
	calls int
}

func (f *fakeGen) Generate(context.Context, string, string, string, string) (string, error) {
	f.calls++
	return f.code, f.err
}

func (f *fakeGen) GenerateProgram(context.Context, string, string) (string, error) {
	f.calls++
	return f.code, f.err
}

type countingSolver struct {
	mu     sync.Mutex
	calls  int
	result *model.SolveResult
	err    error
	block  chan struct{}
}

func (s *countingSolver) Run(ctx context.Context, req SolveRequest) (*model.SolveResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.block != nil {
		<-s.block
	}
	if req.OnProblem != nil && s.result != nil {
		req.OnProblem(ctx, s.result.Problem, s.result.Slug)
	}
	return s.result, s.err
}

func (s *countingSolver) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// twoSum is a problem offering C++ and Python templates.
func twoSum() *model.Problem {
	return &model.Problem{
		ID: "1", FrontendID: "1", Title: "Two Sum", Slug: "two-sum", Difficulty: model.DifficultyEasy,
		Content: "<p>find two numbers</p>",
		Snippets: []model.CodeSnippet{
			{Lang: "Python3", LangSlug: "python3", Code: "class Solution:"},
			{Lang: "C++", LangSlug: "cpp", Code: "class Solution {};"},
		},
	}
}

func testSettings() *model.AutomationSettings {
	return &model.AutomationSettings{
		ID:              "settings-1",
		LeetCodeSession: "sess",
		CSRFToken:       "csrf",
		TelegramToken:   "bot-token",
		TelegramChatID:  "42",
		IsActive:        true,
		CFHandle:        ptr("tourist"),
	}
}

var _ lease.Locker = (*memLocker)(nil)

type memLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func newMemLocker() *memLocker { return &memLocker{held: map[string]string{}} }

func (l *memLocker) Acquire(_ context.Context, key string, ttl time.Duration) (*lease.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return nil, common.ErrLeaseHeld
	}
	h := lease.NewHolderID()
	l.held[key] = h
	return &lease.Lease{Key: key, Holder: h, ExpiresAt: fixedNow.Add(ttl)}, nil
}

func (l *memLocker) Release(_ context.Context, ls *lease.Lease) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[ls.Key] == ls.Holder {
		delete(l.held, ls.Key)
	}
	return nil
}
