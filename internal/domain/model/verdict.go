package model

const (
	VerdictPending     = "PENDING"
	VerdictStarted     = "STARTED"
	VerdictAccepted    = "Accepted"
	VerdictWrongAnswer = "Wrong Answer"
	VerdictTimeout     = "TIMEOUT"
)

type Verdict struct {
	SubmissionID string `json:"submission_id"`
	State        string `json:"state"`
	Message      string `json:"message,omitempty"`
	Runtime      string `json:"runtime,omitempty"`
	Memory       string `json:"memory,omitempty"`
	TotalCorrect int    `json:"total_correct,omitempty"`
	TotalTests   int    `json:"total_testcases,omitempty"`
}

// Settled reports whether the judge has finished with the submission.
func (v *Verdict) Settled() bool {
	return v.State != "" && v.State != VerdictPending && v.State != VerdictStarted
}

func (v *Verdict) Accepted() bool { return v.State == VerdictAccepted }
