package model

import "time"

type Platform string

const (
	PlatformLeetCode   Platform = "leetcode"
	PlatformCodeforces Platform = "codeforces"
)

type SolveMode string

const (
	ModePOTD SolveMode = "potd"
	ModeNext SolveMode = "next"
)

func (m SolveMode) Valid() bool { return m == ModePOTD || m == ModeNext }

type JobStatus string

// pending -> processing -> completed | failed. Terminal states are never reopened.
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

func (s JobStatus) Terminal() bool { return s == JobStatusCompleted || s == JobStatusFailed }

func (s JobStatus) Open() bool { return s == JobStatusPending || s == JobStatusProcessing }

type SolveJob struct {
	ID           string     `json:"id"`
	SettingsID   string     `json:"settings_id"`
	Platform     Platform   `json:"platform"`
	Mode         SolveMode  `json:"mode"`
	Status       JobStatus  `json:"status"`
	ProblemTitle *string    `json:"problem_title,omitempty"`
	ProblemSlug  *string    `json:"problem_slug,omitempty"`
	ResultState  *string    `json:"result_state,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// DispatchMessage is the one-way payload handed to a worker.
type DispatchMessage struct {
	JobID string `json:"job_id"`
}
