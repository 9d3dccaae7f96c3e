package leetcode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"autosolver/internal/common"
	"autosolver/internal/domain/model"
)

type submitRequest struct {
	Lang       string `json:"lang"`
	QuestionID string `json:"question_id"`
	TypedCode  string `json:"typed_code"`
}

// Submit sends code for judging and returns the submission id. A response without
// an id is reported as common.ErrSubmissionRejected.
func (c *Client) Submit(ctx context.Context, auth Auth, problem *model.Problem, lang, code string) (string, error) {
	body, err := json.Marshal(submitRequest{Lang: lang, QuestionID: problem.ID, TypedCode: code})
	if err != nil {
		return "", &Error{Op: "submit", Message: "encode request", Cause: err}
	}
	problemURL := fmt.Sprintf("%s/problems/%s/", c.baseURL, problem.Slug)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, problemURL+"submit/", bytes.NewReader(body))
	if err != nil {
		return "", &Error{Op: "submit", Message: "build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", problemURL)
	req.Header.Set("Origin", c.baseURL)
	auth.set(req)

	raw, err := c.do("submit", req)
	if err != nil {
		return "", err
	}
	var resp struct {
		SubmissionID json.Number `json:"submission_id"`
		Error        string      `json:"error"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || resp.SubmissionID == "" {
		msg := resp.Error
		if msg == "" {
			msg = snippet(raw)
		}
		return "", &Error{Op: "submit", Message: msg, Cause: common.ErrSubmissionRejected}
	}
	return resp.SubmissionID.String(), nil
}

type checkResponse struct {
	State          string `json:"state"`
	StatusMsg      string `json:"status_msg"`
	StatusRuntime  string `json:"status_runtime"`
	StatusMemory   string `json:"status_memory"`
	TotalCorrect   int    `json:"total_correct"`
	TotalTestcases int    `json:"total_testcases"`
	CompileError   string `json:"full_compile_error"`
	RuntimeError   string `json:"full_runtime_error"`
}

// normalize folds the judge's SUCCESS state into the verdict carried by status_msg.
func (r checkResponse) normalize(id string) *model.Verdict {
	v := &model.Verdict{
		SubmissionID: id,
		State:        r.State,
		Runtime:      r.StatusRuntime,
		Memory:       r.StatusMemory,
		TotalCorrect: r.TotalCorrect,
		TotalTests:   r.TotalTestcases,
	}
	if r.State == "SUCCESS" {
		v.State = r.StatusMsg
	}
	switch {
	case r.CompileError != "":
		v.Message = r.CompileError
	case r.RuntimeError != "":
		v.Message = r.RuntimeError
	case r.TotalTestcases > 0:
		v.Message = strconv.Itoa(r.TotalCorrect) + "/" + strconv.Itoa(r.TotalTestcases) + " testcases passed"
	}
	return v
}

// CheckSubmission queries the judge once for the submission's current state.
func (c *Client) CheckSubmission(ctx context.Context, auth Auth, submissionID string) (*model.Verdict, error) {
	u := fmt.Sprintf("%s/submissions/detail/%s/check/", c.baseURL, submissionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &Error{Op: "check submission", Message: "build request", Cause: err}
	}
	auth.set(req)

	raw, err := c.do("check submission", req)
	if err != nil {
		return nil, err
	}
	var resp checkResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &Error{Op: "check submission", Message: "decode response", Cause: err}
	}
	return resp.normalize(submissionID), nil
}

// PollVerdict checks the submission every interval, up to attempts times, until the
// judge settles it. When attempts run out it returns a TIMEOUT verdict, not an error.
func (c *Client) PollVerdict(ctx context.Context, auth Auth, submissionID string, interval time.Duration, attempts int) (*model.Verdict, error) {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}

		v, err := c.CheckSubmission(ctx, auth, submissionID)
		if err != nil {
			return nil, err
		}
		if v.Settled() {
			return v, nil
		}
		timer.Reset(interval)
	}
	return &model.Verdict{
		SubmissionID: submissionID,
		State:        model.VerdictTimeout,
		Message:      "Submitted, check manually",
	}, nil
}
