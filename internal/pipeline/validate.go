package pipeline

import (
	"strings"

	"mcqbank-service/internal/domain"
)

// Validator enforces the MCQ schema and content policy. Candidates failing a
// check are dropped, not repaired; length truncation is the one normalization
// applied instead of a rejection.
type Validator struct {
	// OptionCount is the exact number of options a question must carry.
	OptionCount int
	// MaxQuestionLen and MaxOptionLen are platform-safe caps in runes.
	MaxQuestionLen int
	MaxOptionLen   int
	// Blocked is a case-insensitive substring denylist applied to the
	// question and every option.
	Blocked []string
}

// Validate checks a candidate in order: non-empty question, exact option
// count, pairwise-distinct options after normalization, answer index in
// range, no blocked keyword, then truncates oversized fields. The returned
// MCQ has no fingerprint yet.
func (v Validator) Validate(c domain.Candidate) (domain.MCQ, bool) {
	question := strings.TrimSpace(strings.ReplaceAll(c.Question, "\n", " "))
	if question == "" {
		return domain.MCQ{}, false
	}

	if len(c.Options) != v.OptionCount {
		return domain.MCQ{}, false
	}

	options := make([]string, len(c.Options))
	seen := make(map[string]struct{}, len(c.Options))
	for i, opt := range c.Options {
		opt = strings.TrimSpace(strings.ReplaceAll(opt, "\n", " "))
		if opt == "" {
			return domain.MCQ{}, false
		}
		norm := normalizeText(opt)
		if _, dup := seen[norm]; dup {
			return domain.MCQ{}, false
		}
		seen[norm] = struct{}{}
		options[i] = opt
	}

	if c.AnswerIndex < 0 || c.AnswerIndex >= len(options) {
		return domain.MCQ{}, false
	}

	if v.blocked(question) {
		return domain.MCQ{}, false
	}
	for _, opt := range options {
		if v.blocked(opt) {
			return domain.MCQ{}, false
		}
	}

	question = truncate(question, v.MaxQuestionLen)
	for i := range options {
		options[i] = truncate(options[i], v.MaxOptionLen)
	}

	source := c.Source
	if source == "" {
		source = domain.SourceGenerated
	}
	return domain.MCQ{
		Question:    question,
		Options:     options,
		AnswerIndex: c.AnswerIndex,
		Source:      source,
	}, true
}

func (v Validator) blocked(s string) bool {
	if len(v.Blocked) == 0 {
		return false
	}
	lower := strings.ToLower(s)
	for _, kw := range v.Blocked {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
