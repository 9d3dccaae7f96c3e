// Package codeforces wraps the Codeforces JSON API and its problem/submit pages.
package codeforces

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"autosolver/internal/common"
	"autosolver/internal/domain/model"

	"github.com/PuerkitoBio/goquery"
	"github.com/gosimple/slug"
)

const (
	DefaultBaseURL   = "https://codeforces.com"
	DefaultTimeout   = 30 * time.Second
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// ProgramTypeCPP20 is the judge's compiler id for C++20.
	ProgramTypeCPP20 = "54"

	statusPageSize = 1000
)

// Error is returned for failed Codeforces calls.
type Error struct {
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("codeforces %s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("codeforces %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	rand       func(n int) int
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRand replaces the candidate picker, for deterministic tests.
func WithRand(fn func(n int) int) Option {
	return func(c *Client) { c.rand = fn }
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		rand:       rand.IntN,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session is a logged-in browser session: JSESSIONID plus the csrf token.
type Session struct {
	JSessionID string
	CSRFToken  string
}

func (s Session) set(req *http.Request) {
	req.Header.Set("Cookie", fmt.Sprintf("JSESSIONID=%s; 39ce7=%s", s.JSessionID, s.CSRFToken))
}

type apiResponse struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

func (c *Client) api(ctx context.Context, method string, params url.Values, out any) error {
	u := c.baseURL + "/api/" + method
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &Error{Op: method, Message: "build request", Cause: err}
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: method, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var ar apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return &Error{Op: method, Message: fmt.Sprintf("decode response (HTTP %d)", resp.StatusCode), Cause: err}
	}
	if ar.Status != "OK" {
		return &Error{Op: method, Message: ar.Comment}
	}
	if err := json.Unmarshal(ar.Result, out); err != nil {
		return &Error{Op: method, Message: "decode result", Cause: err}
	}
	return nil
}

// ProblemKey identifies a problem across the API, e.g. "1850A".
func ProblemKey(contestID int, index string) string {
	return strconv.Itoa(contestID) + index
}

// Slug is the stable slug stored for a problem, e.g. "1850a-to-my-critics".
func Slug(p model.CFProblem) string {
	return slug.Make(ProblemKey(p.ContestID, p.Index) + " " + p.Name)
}

func ProblemURL(base string, p model.CFProblem) string {
	return fmt.Sprintf("%s/problemset/problem/%d/%s", base, p.ContestID, p.Index)
}

func (c *Client) ProblemURL(p model.CFProblem) string {
	return ProblemURL(c.baseURL, p)
}

// SolvedSet returns the keys of every problem the handle has an OK verdict on.
func (c *Client) SolvedSet(ctx context.Context, handle string) (map[string]bool, error) {
	var subs []struct {
		Verdict string          `json:"verdict"`
		Problem model.CFProblem `json:"problem"`
	}
	params := url.Values{
		"handle": {handle},
		"from":   {"1"},
		"count":  {strconv.Itoa(statusPageSize)},
	}
	if err := c.api(ctx, "user.status", params, &subs); err != nil {
		return nil, err
	}
	solved := make(map[string]bool, len(subs))
	for _, s := range subs {
		if s.Verdict == "OK" {
			solved[ProblemKey(s.Problem.ContestID, s.Problem.Index)] = true
		}
	}
	return solved, nil
}

func (c *Client) Problemset(ctx context.Context) ([]model.CFProblem, error) {
	var result struct {
		Problems []model.CFProblem `json:"problems"`
	}
	if err := c.api(ctx, "problemset.problems", nil, &result); err != nil {
		return nil, err
	}
	return result.Problems, nil
}

// Candidates keeps unsolved problems rated within [minRating, maxRating].
// Unrated problems count as minimum rating 800.
func Candidates(all []model.CFProblem, solved map[string]bool, minRating, maxRating int) []model.CFProblem {
	var out []model.CFProblem
	for _, p := range all {
		rating := p.Rating
		if rating == 0 {
			rating = 800
		}
		if solved[ProblemKey(p.ContestID, p.Index)] || rating < minRating || rating > maxRating {
			continue
		}
		out = append(out, p)
	}
	return out
}

// RandomUnsolved picks a random unsolved problem in the rating band, or nil if none remain.
func (c *Client) RandomUnsolved(ctx context.Context, handle string, minRating, maxRating int) (*model.CFProblem, error) {
	solved, err := c.SolvedSet(ctx, handle)
	if err != nil {
		return nil, err
	}
	all, err := c.Problemset(ctx)
	if err != nil {
		return nil, err
	}
	candidates := Candidates(all, solved, minRating, maxRating)
	if len(candidates) == 0 {
		return nil, nil
	}
	p := candidates[c.rand(len(candidates))]
	return &p, nil
}

// Statement scrapes the problem page and returns the statement text without sample tests.
func (c *Client) Statement(ctx context.Context, p model.CFProblem) (string, error) {
	u := c.ProblemURL(p)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", &Error{Op: "statement", Message: "build request", Cause: err}
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Op: "statement", Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", &Error{Op: "statement", Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}
	return ExtractStatement(resp.Body)
}

// ExtractStatement pulls the plaintext statement out of a problem page.
func ExtractStatement(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", &Error{Op: "statement", Message: "parse HTML", Cause: err}
	}
	stmt := doc.Find("div.problem-statement").First()
	if stmt.Length() == 0 {
		return "", &Error{Op: "statement", Message: "problem statement not found on page"}
	}
	stmt.Find(".sample-tests, script, style").Remove()
	return cleanWhitespace(stmt.Text()), nil
}

func cleanWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// CheckSession verifies the browser session is still accepted. Codeforces
// answers a dead or IP-locked session with a login redirect or a 403.
func (c *Client) CheckSession(ctx context.Context, s Session) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/settings/general", nil)
	if err != nil {
		return &Error{Op: "session check", Message: "build request", Cause: err}
	}
	req.Header.Set("User-Agent", DefaultUserAgent)
	s.set(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: "session check", Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusForbidden {
		return &Error{Op: "session check", Message: "request blocked, session cookies are often IP-locked", Cause: common.ErrJudgeBlocked}
	}
	if final := resp.Request.URL; strings.Contains(final.String(), "login") || strings.HasPrefix(final.Path, "/enter") {
		return &Error{Op: "session check", Message: "session redirected to login", Cause: common.ErrSessionInvalid}
	}
	return nil
}

// Submit posts source through the problemset submit form after a session check.
func (c *Client) Submit(ctx context.Context, s Session, p model.CFProblem, source string) error {
	if err := c.CheckSession(ctx, s); err != nil {
		return err
	}

	form := url.Values{
		"csrf_token":            {s.CSRFToken},
		"ftaa":                  {randomFTAA(c.rand)},
		"bfaa":                  {"f1a7b8e9"},
		"action":                {"submitSolution"},
		"submittedProblemIndex": {p.Index},
		"contestId":             {strconv.Itoa(p.ContestID)},
		"programTypeId":         {ProgramTypeCPP20},
		"source":                {source},
		"tabSize":               {"4"},
	}
	u := c.baseURL + "/problemset/submit?csrf_token=" + url.QueryEscape(s.CSRFToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return &Error{Op: "submit", Message: "build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Origin", c.baseURL)
	req.Header.Set("Referer", c.ProblemURL(p))
	s.set(req)

	noRedirect := *c.httpClient
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	resp, err := noRedirect.Do(req)
	if err != nil {
		return &Error{Op: "submit", Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch resp.StatusCode {
	case http.StatusFound:
		return nil
	case http.StatusOK:
		// the form page comes back with an inline error when validation fails
		text := string(body)
		if strings.Contains(text, "Source code is too short") || strings.Contains(text, `class="error`) {
			return &Error{Op: "submit", Message: "submission rejected by form validation", Cause: common.ErrSubmissionRejected}
		}
		return nil
	case http.StatusForbidden:
		return &Error{Op: "submit", Message: "HTTP 403", Cause: common.ErrJudgeBlocked}
	default:
		return &Error{Op: "submit", Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}
}

const ftaaAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomFTAA(rnd func(int) int) string {
	b := make([]byte, 18)
	for i := range b {
		b[i] = ftaaAlphabet[rnd(len(ftaaAlphabet))]
	}
	return string(b)
}
