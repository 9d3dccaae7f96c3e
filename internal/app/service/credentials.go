package service

import (
	"fmt"

	"autosolver/internal/common"
	"autosolver/internal/domain/model"
)

// CredentialDefaults are the process-wide fallbacks for per-row secrets.
type CredentialDefaults struct {
	LLMKey           string
	TelegramBotToken string
}

// ResolveCredentials merges a settings row with the process defaults. Values on
// the row win.
func ResolveCredentials(s *model.AutomationSettings, d CredentialDefaults) model.Credentials {
	c := model.Credentials{
		LeetCodeSession: s.LeetCodeSession,
		CSRFToken:       s.CSRFToken,
		LLMKey:          firstNonEmpty(deref(s.GeminiAPIKey), d.LLMKey),
		TelegramToken:   firstNonEmpty(s.TelegramToken, d.TelegramBotToken),
		TelegramChatID:  s.TelegramChatID,
		CFHandle:        deref(s.CFHandle),
		CFJSessionID:    deref(s.CFJSessionID),
		CFCSRFToken:     deref(s.CFCSRFToken),
	}
	return c
}

// requireCredentials reports the first secret platform needs that c lacks.
func requireCredentials(c model.Credentials, platform model.Platform) error {
	switch platform {
	case model.PlatformCodeforces:
		if c.CFHandle == "" {
			return fmt.Errorf("codeforces handle: %w", common.ErrMissingCredentials)
		}
	default:
		if c.LeetCodeSession == "" {
			return fmt.Errorf("LeetCode session cookie: %w", common.ErrMissingCredentials)
		}
		if c.CSRFToken == "" {
			return fmt.Errorf("CSRF token: %w", common.ErrMissingCredentials)
		}
	}
	if c.LLMKey == "" {
		return fmt.Errorf("LLM API key: %w", common.ErrMissingCredentials)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
