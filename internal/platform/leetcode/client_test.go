package leetcode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"autosolver/internal/common"
	"autosolver/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAuth = Auth{Session: "sess", CSRF: "csrf"}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestDailyProblem_SendsSessionAndParsesStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/graphql", r.URL.Path)
		assert.Equal(t, "csrf", r.Header.Get("X-CSRFToken"))
		assert.Contains(t, r.Header.Get("Cookie"), "LEETCODE_SESSION=sess")

		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Query, "activeDailyCodingChallengeQuestion")

		_, _ = w.Write([]byte(`{"data":{"activeDailyCodingChallengeQuestion":{"date":"2024-03-09","userStatus":"Finish",
			"question":{"questionId":"1","questionFrontendId":"1","title":"Two Sum","titleSlug":"two-sum","difficulty":"Easy"}}}}`))
	})

	daily, err := c.DailyProblem(context.Background(), testAuth)
	require.NoError(t, err)
	assert.True(t, daily.SolvedByUser())
	assert.Equal(t, "two-sum", daily.Problem.Slug)
	assert.Equal(t, model.DifficultyEasy, daily.Problem.Difficulty)
}

func TestDailyProblem_AnonymousHasNoCookie(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Cookie"))
		_, _ = w.Write([]byte(`{"data":{"activeDailyCodingChallengeQuestion":{"date":"2024-03-09","userStatus":"NotStart","question":{"titleSlug":"x"}}}}`))
	})
	daily, err := c.DailyProblem(context.Background(), Auth{})
	require.NoError(t, err)
	assert.False(t, daily.SolvedByUser())
}

func TestNextUnsolved_SkipsPaidAndDatabase(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.EqualValues(t, NextUnsolvedPageSize, req.Variables["limit"])
		_, _ = w.Write([]byte(`{"data":{"problemsetQuestionList":{"questions":[
			{"frontendQuestionId":"175","title":"Combine Two Tables","titleSlug":"combine-two-tables","topicTags":[{"name":"Database","slug":"database"}]},
			{"frontendQuestionId":"156","title":"Binary Tree Upside Down","titleSlug":"binary-tree-upside-down","paidOnly":true},
			{"frontendQuestionId":"200","title":"Number of Islands","titleSlug":"number-of-islands","difficulty":"Medium"}]}}}`))
	})

	p, err := c.NextUnsolved(context.Background(), testAuth)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "number-of-islands", p.Slug)
	assert.Equal(t, "200", p.FrontendID)
}

func TestNextUnsolved_PagesPastUnsolvableProblems(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		page := calls.Add(1)

		if page == 1 {
			assert.EqualValues(t, 0, req.Variables["skip"])
			premium := make([]string, NextUnsolvedPageSize)
			for i := range premium {
				premium[i] = fmt.Sprintf(`{"frontendQuestionId":"%d","titleSlug":"locked-%d","paidOnly":true}`, i, i)
			}
			_, _ = w.Write([]byte(`{"data":{"problemsetQuestionList":{"questions":[` + strings.Join(premium, ",") + `]}}}`))
			return
		}
		assert.EqualValues(t, NextUnsolvedPageSize, req.Variables["skip"])
		_, _ = w.Write([]byte(`{"data":{"problemsetQuestionList":{"questions":[
			{"frontendQuestionId":"200","title":"Number of Islands","titleSlug":"number-of-islands"}]}}}`))
	})

	p, err := c.NextUnsolved(context.Background(), testAuth)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "number-of-islands", p.Slug)
	assert.EqualValues(t, 2, calls.Load())
}

func TestNextUnsolved_ShortPageEndsTheList(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"data":{"problemsetQuestionList":{"questions":[
			{"frontendQuestionId":"175","titleSlug":"combine-two-tables","topicTags":[{"name":"Database","slug":"database"}]}]}}}`))
	})
	p, err := c.NextUnsolved(context.Background(), testAuth)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.EqualValues(t, 1, calls.Load())
}

func TestNextUnsolved_NoneLeft(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"problemsetQuestionList":{"questions":[]}}}`))
	})
	p, err := c.NextUnsolved(context.Background(), testAuth)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestGraphQLErrorsAreReturned(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"That question does not exist"}]}`))
	})
	_, err := c.ProblemDetail(context.Background(), "nope")
	var lcErr *Error
	require.ErrorAs(t, err, &lcErr)
	assert.Contains(t, lcErr.Message, "does not exist")
}

func TestForbiddenIsSessionInvalid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := c.CurrentUser(context.Background(), testAuth)
	assert.ErrorIs(t, err, common.ErrSessionInvalid)
}

func TestSubmit(t *testing.T) {
	problem := &model.Problem{ID: "1", Slug: "two-sum"}

	t.Run("returns submission id", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/problems/two-sum/submit/", r.URL.Path)
			assert.True(t, strings.HasSuffix(r.Header.Get("Referer"), "/problems/two-sum/"))
			var body submitRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, submitRequest{Lang: "cpp", QuestionID: "1", TypedCode: "class Solution {};"}, body)
			_, _ = w.Write([]byte(`{"submission_id": 123456}`))
		})
		id, err := c.Submit(context.Background(), testAuth, problem, "cpp", "class Solution {};")
		require.NoError(t, err)
		assert.Equal(t, "123456", id)
	})

	t.Run("missing id is rejection", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":"You have submitted too frequently"}`))
		})
		_, err := c.Submit(context.Background(), testAuth, problem, "cpp", "x")
		assert.ErrorIs(t, err, common.ErrSubmissionRejected)
		assert.Contains(t, err.Error(), "too frequently")
	})
}

func TestPollVerdict_NormalizesSuccess(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/submissions/detail/77/check/", r.URL.Path)
		if calls.Add(1) < 3 {
			_, _ = w.Write([]byte(`{"state":"STARTED"}`))
			return
		}
		_, _ = w.Write([]byte(`{"state":"SUCCESS","status_msg":"Accepted","status_runtime":"4 ms","total_correct":63,"total_testcases":63}`))
	})

	v, err := c.PollVerdict(context.Background(), testAuth, "77", time.Millisecond, 10)
	require.NoError(t, err)
	assert.True(t, v.Accepted())
	assert.Equal(t, "4 ms", v.Runtime)
	assert.Equal(t, "63/63 testcases passed", v.Message)
	assert.EqualValues(t, 3, calls.Load())
}

func TestPollVerdict_TimesOutWithinAttemptBound(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"state":"PENDING"}`))
	})

	v, err := c.PollVerdict(context.Background(), testAuth, "77", time.Millisecond, 4)
	require.NoError(t, err)
	assert.Equal(t, model.VerdictTimeout, v.State)
	assert.Equal(t, "Submitted, check manually", v.Message)
	assert.EqualValues(t, 4, calls.Load())
}

func TestPollVerdict_StopsOnCancel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"state":"PENDING"}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.PollVerdict(ctx, testAuth, "77", time.Hour, 10)
	assert.ErrorIs(t, err, context.Canceled)
}
