package leetcode

import (
	"context"
	"fmt"

	"autosolver/internal/domain/model"
)

const dailyQuery = `
query questionOfToday {
  activeDailyCodingChallengeQuestion {
    date
    userStatus
    question {
      questionId
      questionFrontendId
      title
      titleSlug
      difficulty
      isPaidOnly
    }
  }
}`

const problemListQuery = `
query problemsetQuestionList($categorySlug: String, $limit: Int, $skip: Int, $filters: QuestionListFilterInput) {
  problemsetQuestionList: questionList(categorySlug: $categorySlug, limit: $limit, skip: $skip, filters: $filters) {
    questions: data {
      frontendQuestionId: questionFrontendId
      difficulty
      paidOnly: isPaidOnly
      title
      titleSlug
      topicTags { name slug }
    }
  }
}`

const questionDataQuery = `
query questionData($titleSlug: String!) {
  question(titleSlug: $titleSlug) {
    questionId
    questionFrontendId
    title
    titleSlug
    difficulty
    isPaidOnly
    content
    codeSnippets { lang langSlug code }
  }
}`

const userStatusQuery = `
query globalData {
  userStatus {
    username
    isSignedIn
  }
}`

const (
	// NextUnsolvedPageSize is how many not-started problems one list request returns.
	NextUnsolvedPageSize = 50
	// maxNextUnsolvedPages stops paging a list that never ends.
	maxNextUnsolvedPages = 100
)

type questionDTO struct {
	QuestionID         string       `json:"questionId"`
	QuestionFrontendID string       `json:"questionFrontendId"`
	FrontendQuestionID string       `json:"frontendQuestionId"`
	Title              string       `json:"title"`
	TitleSlug          string       `json:"titleSlug"`
	Difficulty         string       `json:"difficulty"`
	IsPaidOnly         bool         `json:"isPaidOnly"`
	PaidOnly           bool         `json:"paidOnly"`
	Content            string       `json:"content"`
	TopicTags          []tagDTO     `json:"topicTags"`
	CodeSnippets       []snippetDTO `json:"codeSnippets"`
}

type tagDTO struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type snippetDTO struct {
	Lang     string `json:"lang"`
	LangSlug string `json:"langSlug"`
	Code     string `json:"code"`
}

func (q questionDTO) toModel() model.Problem {
	p := model.Problem{
		ID:         q.QuestionID,
		FrontendID: q.QuestionFrontendID,
		Title:      q.Title,
		Slug:       q.TitleSlug,
		Difficulty: model.Difficulty(q.Difficulty),
		Content:    q.Content,
		PaidOnly:   q.IsPaidOnly || q.PaidOnly,
	}
	if p.FrontendID == "" {
		p.FrontendID = q.FrontendQuestionID
	}
	for _, t := range q.TopicTags {
		p.TopicTags = append(p.TopicTags, model.TopicTag{Name: t.Name, Slug: t.Slug})
	}
	for _, s := range q.CodeSnippets {
		p.Snippets = append(p.Snippets, model.CodeSnippet{Lang: s.Lang, LangSlug: s.LangSlug, Code: s.Code})
	}
	return p
}

// DailyProblem fetches the problem of the day. With a session the result also
// says whether that account already solved it.
func (c *Client) DailyProblem(ctx context.Context, auth Auth) (*model.DailyProblem, error) {
	var data struct {
		Daily *struct {
			Date       string      `json:"date"`
			UserStatus string      `json:"userStatus"`
			Question   questionDTO `json:"question"`
		} `json:"activeDailyCodingChallengeQuestion"`
	}
	if err := c.graphql(ctx, "daily problem", dailyQuery, nil, auth, &data); err != nil {
		return nil, err
	}
	if data.Daily == nil {
		return nil, &Error{Op: "daily problem", Message: "no active daily challenge"}
	}
	return &model.DailyProblem{
		Date:       data.Daily.Date,
		UserStatus: data.Daily.UserStatus,
		Problem:    data.Daily.Question.toModel(),
	}, nil
}

// NextUnsolved pages through not-started problems and returns the first one that
// passes Solvable, or nil once the list is exhausted.
func (c *Client) NextUnsolved(ctx context.Context, auth Auth) (*model.Problem, error) {
	for page := 0; page < maxNextUnsolvedPages; page++ {
		vars := map[string]any{
			"categorySlug": "",
			"limit":        NextUnsolvedPageSize,
			"skip":         page * NextUnsolvedPageSize,
			"filters":      map[string]any{"status": "NOT_STARTED"},
		}
		var data struct {
			List struct {
				Questions []questionDTO `json:"questions"`
			} `json:"problemsetQuestionList"`
		}
		if err := c.graphql(ctx, "next unsolved", problemListQuery, vars, auth, &data); err != nil {
			return nil, err
		}

		candidates := make([]model.Problem, 0, len(data.List.Questions))
		for _, q := range data.List.Questions {
			candidates = append(candidates, q.toModel())
		}
		if p, ok := FirstCandidate(candidates); ok {
			return &p, nil
		}
		if len(data.List.Questions) < NextUnsolvedPageSize {
			return nil, nil
		}
	}
	return nil, &Error{Op: "next unsolved", Message: fmt.Sprintf("no solvable problem in the first %d pages", maxNextUnsolvedPages)}
}

// ProblemDetail fetches statement and code templates for slug.
func (c *Client) ProblemDetail(ctx context.Context, slug string) (*model.Problem, error) {
	var data struct {
		Question *questionDTO `json:"question"`
	}
	if err := c.graphql(ctx, "problem detail", questionDataQuery, map[string]any{"titleSlug": slug}, Auth{}, &data); err != nil {
		return nil, err
	}
	if data.Question == nil {
		return nil, &Error{Op: "problem detail", Message: "unknown problem " + slug}
	}
	p := data.Question.toModel()
	return &p, nil
}

// CurrentUser reports who the session belongs to. IsSignedIn is false for an expired session.
func (c *Client) CurrentUser(ctx context.Context, auth Auth) (*model.JudgeUser, error) {
	var data struct {
		UserStatus struct {
			Username   string `json:"username"`
			IsSignedIn bool   `json:"isSignedIn"`
		} `json:"userStatus"`
	}
	if err := c.graphql(ctx, "current user", userStatusQuery, nil, auth, &data); err != nil {
		return nil, err
	}
	return &model.JudgeUser{Username: data.UserStatus.Username, IsSignedIn: data.UserStatus.IsSignedIn}, nil
}
