package pipeline

import (
	"encoding/json"
	"strings"

	"mcqbank-service/internal/domain"
)

// rawCandidate is the typed decode target for generation output. Pointer
// fields distinguish "missing" from zero values so incomplete objects can be
// rejected explicitly instead of failing on attribute access later.
type rawCandidate struct {
	Question  *string  `json:"question"`
	Options   []string `json:"options"`
	Index     *int     `json:"answer_index"`
	IndexAlt  *int     `json:"answerIndex"`
	IndexAlt2 *int     `json:"correct_answer"`
}

func (r rawCandidate) candidate() (domain.Candidate, bool) {
	if r.Question == nil || strings.TrimSpace(*r.Question) == "" || len(r.Options) == 0 {
		return domain.Candidate{}, false
	}
	idx := 0
	switch {
	case r.Index != nil:
		idx = *r.Index
	case r.IndexAlt != nil:
		idx = *r.IndexAlt
	case r.IndexAlt2 != nil:
		idx = *r.IndexAlt2
	}
	return domain.Candidate{
		Question:    *r.Question,
		Options:     r.Options,
		AnswerIndex: idx,
		Source:      domain.SourceGenerated,
	}, true
}

// Recover extracts MCQ candidates from a possibly malformed generation
// response: well-formed JSON, JSON wrapped in prose or code fences, or text
// truncated mid-object. It degrades to fewer candidates, never an error.
func Recover(raw string) []domain.Candidate {
	if cands := recoverArray(raw); cands != nil {
		return cands
	}
	return recoverObjects(raw)
}

// recoverArray parses the largest bracket-delimited span as a JSON array.
func recoverArray(raw string) []domain.Candidate {
	start := strings.IndexByte(raw, '[')
	end := strings.LastIndexByte(raw, ']')
	if start < 0 || end <= start {
		return nil
	}

	var parsed []rawCandidate
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil
	}

	cands := make([]domain.Candidate, 0, len(parsed))
	for _, r := range parsed {
		if c, ok := r.candidate(); ok {
			cands = append(cands, c)
		}
	}
	return cands
}

// recoverObjects scans for balanced brace-delimited objects and parses each
// independently, discarding any that fail to decode or lack required fields.
// A trailing truncated object never closes its braces and is skipped.
func recoverObjects(raw string) []domain.Candidate {
	var cands []domain.Candidate
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				var r rawCandidate
				if err := json.Unmarshal([]byte(raw[start:i+1]), &r); err == nil {
					if c, ok := r.candidate(); ok {
						cands = append(cands, c)
					}
				}
				start = -1
			}
		}
	}
	return cands
}
