package leetcode

import (
	"autosolver/internal/common"
	"autosolver/internal/domain/model"
)

// DefaultLanguagePreference is the allow-list of submission languages, most preferred first.
var DefaultLanguagePreference = []string{"cpp", "python3", "java", "javascript"}

// excludedTopics are categories that are not general programming problems.
var excludedTopics = map[string]bool{
	"database": true,
	"shell":    true,
}

// SelectTemplate walks prefs in order and returns the first snippet offered in that
// language. It fails with common.ErrNoSupportedLanguage when none match.
func SelectTemplate(snippets []model.CodeSnippet, prefs []string) (model.CodeSnippet, error) {
	bySlug := make(map[string]model.CodeSnippet, len(snippets))
	for _, s := range snippets {
		if _, seen := bySlug[s.LangSlug]; !seen {
			bySlug[s.LangSlug] = s
		}
	}
	for _, lang := range prefs {
		if s, ok := bySlug[lang]; ok {
			return s, nil
		}
	}
	return model.CodeSnippet{}, common.ErrNoSupportedLanguage
}

// Solvable reports whether p is a free, general programming problem.
func Solvable(p model.Problem) bool {
	if p.PaidOnly {
		return false
	}
	for _, t := range p.TopicTags {
		if excludedTopics[t.Slug] {
			return false
		}
	}
	return true
}

// FirstCandidate returns the first solvable problem in list order.
func FirstCandidate(candidates []model.Problem) (model.Problem, bool) {
	for _, p := range candidates {
		if Solvable(p) {
			return p, true
		}
	}
	return model.Problem{}, false
}
