package model

// Terminal states of one solve attempt.
const (
	ResultAlreadySolved  = "ALREADY_SOLVED"
	ResultAllSolved      = "ALL_SOLVED"
	ResultSubmitted      = "Submitted"
	ResultManualRequired = "Manual Submission Required"
)

type SolveResult struct {
	Status  string   `json:"status"`
	Message string   `json:"message,omitempty"`
	Source  string   `json:"source,omitempty"`
	Problem string   `json:"problem,omitempty"`
	Slug    string   `json:"slug,omitempty"`
	Verdict *Verdict `json:"submission_result,omitempty"`
	Code    string   `json:"code,omitempty"`
	URL     string   `json:"url,omitempty"`
}
