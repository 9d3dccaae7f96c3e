package model

type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

type CodeSnippet struct {
	Lang     string `json:"lang"`      // display name, e.g. "C++"
	LangSlug string `json:"lang_slug"` // judge tag, e.g. "cpp"
	Code     string `json:"code"`
}

type TopicTag struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Problem is a judge problem as seen by the solve flow. It is never persisted.
type Problem struct {
	ID         string        `json:"id"`
	FrontendID string        `json:"frontend_id"`
	Title      string        `json:"title"`
	Slug       string        `json:"slug"`
	Difficulty Difficulty    `json:"difficulty"`
	Content    string        `json:"-"`
	PaidOnly   bool          `json:"paid_only"`
	TopicTags  []TopicTag    `json:"topic_tags,omitempty"`
	Snippets   []CodeSnippet `json:"-"`
}

// DailyProblem is the problem-of-the-day plus the caller's status for it.
type DailyProblem struct {
	Date       string  `json:"date"`
	UserStatus string  `json:"user_status"`
	Problem    Problem `json:"problem"`
}

const UserStatusFinish = "Finish"

func (d *DailyProblem) SolvedByUser() bool { return d.UserStatus == UserStatusFinish }

// JudgeUser is the account behind a session, used by the heartbeat probe.
type JudgeUser struct {
	Username   string `json:"username"`
	IsSignedIn bool   `json:"is_signed_in"`
}

// CFProblem identifies a Codeforces problem.
type CFProblem struct {
	ContestID int      `json:"contestId"`
	Index     string   `json:"index"`
	Name      string   `json:"name"`
	Rating    int      `json:"rating,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}
