package model

// Credentials is everything one solve invocation needs, resolved once per invocation.
type Credentials struct {
	LeetCodeSession string
	CSRFToken       string
	LLMKey          string

	TelegramToken  string
	TelegramChatID string

	CFHandle     string
	CFJSessionID string
	CFCSRFToken  string
}

func (c Credentials) HasLeetCode() bool { return c.LeetCodeSession != "" && c.CSRFToken != "" }
