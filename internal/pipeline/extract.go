package pipeline

import (
	"regexp"
	"strings"

	"mcqbank-service/internal/domain"
)

// Extractor recovers MCQs already present in the source text by structural
// pattern matching. It is best-effort: non-matching text yields zero
// candidates, never an error.
type Extractor struct {
	// DefaultAnswerIndex is used when a matched question carries no explicit
	// answer marker. The original material often omits the key, so this is a
	// deliberate, visible policy knob rather than a silent zero.
	DefaultAnswerIndex int
}

var (
	// "1. question", "12) question"
	numberedQuestionRe = regexp.MustCompile(`^\s*\d+\s*[.)]\s*(\S.*)$`)
	// "Q. question", "Q1. question", "Q 3: question"
	prefixedQuestionRe = regexp.MustCompile(`^\s*[Qq](?:uestion)?\.?\s*\d*\s*[.:)\-]?\s+(\S.*)$`)
	// "a) option", "A. option", "(a) option"
	optionRe = regexp.MustCompile(`^\s*\(?([a-fA-F])[).:\]]\s*(\S.*)$`)
	// "Answer: C", "Ans. (b)", "ANSWER - 3"
	answerRe = regexp.MustCompile(`^\s*[Aa][Nn][Ss](?:[Ww][Ee][Rr])?\s*[:.\-]?\s*\(?([a-fA-F1-6])\)?\s*\.?\s*$`)
)

// block is one matched MCQ with the half-open line span it occupies.
type block struct {
	start, end int
	cand       domain.Candidate
}

// Extract returns all MCQ candidates found in text. Answer indexes come from
// an explicit answer marker when present, else DefaultAnswerIndex.
func (e Extractor) Extract(text string) []domain.Candidate {
	blocks := e.scan(splitLines(text))
	cands := make([]domain.Candidate, 0, len(blocks))
	for _, b := range blocks {
		cands = append(cands, b.cand)
	}
	return cands
}

// StripMCQBlocks removes every matched MCQ block from text, leaving the
// surrounding theory text for generation.
func (e Extractor) StripMCQBlocks(text string) string {
	lines := splitLines(text)
	blocks := e.scan(lines)
	if len(blocks) == 0 {
		return strings.TrimSpace(text)
	}

	keep := make([]string, 0, len(lines))
	next := 0
	for i, line := range lines {
		for next < len(blocks) && blocks[next].end <= i {
			next++
		}
		if next < len(blocks) && i >= blocks[next].start && i < blocks[next].end {
			continue
		}
		keep = append(keep, line)
	}
	return strings.TrimSpace(collapseBlankRuns(keep))
}

func (e Extractor) scan(lines []string) []block {
	var blocks []block
	i := 0
	for i < len(lines) {
		b, ok := e.matchAt(lines, i)
		if !ok {
			i++
			continue
		}
		blocks = append(blocks, b)
		i = b.end
	}
	return blocks
}

// matchAt tries to read one full MCQ starting at line i: a question marker,
// optional continuation lines, 2-6 labeled options (each may spill onto
// following lines up to the next marker), and an optional answer marker.
func (e Extractor) matchAt(lines []string, i int) (block, bool) {
	question, ok := matchQuestion(lines[i])
	if !ok {
		return block{}, false
	}

	j := i + 1
	// The question stem may wrap onto a few more lines before the options.
	for wrapped := 0; j < len(lines) && wrapped < 3; wrapped++ {
		line := strings.TrimSpace(lines[j])
		if line == "" || optionRe.MatchString(lines[j]) {
			break
		}
		if _, isQ := matchQuestion(lines[j]); isQ || answerRe.MatchString(lines[j]) {
			break
		}
		question += " " + line
		j++
	}

	var options []string
	for j < len(lines) && len(options) < 6 {
		m := optionRe.FindStringSubmatch(lines[j])
		if m == nil {
			break
		}
		options = append(options, strings.TrimSpace(m[2]))
		j++
		// Option text may continue until the next marker line, within reason.
		for spill := 0; j < len(lines) && spill < 2; spill++ {
			line := strings.TrimSpace(lines[j])
			if line == "" || optionRe.MatchString(lines[j]) || answerRe.MatchString(lines[j]) {
				break
			}
			if _, isQ := matchQuestion(lines[j]); isQ {
				break
			}
			options[len(options)-1] += " " + line
			j++
		}
	}

	if len(options) < 2 {
		return block{}, false
	}

	answer := e.DefaultAnswerIndex
	if j < len(lines) {
		if m := answerRe.FindStringSubmatch(lines[j]); m != nil {
			if idx, ok := answerIndex(m[1]); ok && idx < len(options) {
				answer = idx
			}
			j++
		}
	}
	if answer < 0 || answer >= len(options) {
		answer = 0
	}

	return block{
		start: i,
		end:   j,
		cand: domain.Candidate{
			Question:    strings.TrimSpace(question),
			Options:     options,
			AnswerIndex: answer,
			Source:      domain.SourceExtracted,
		},
	}, true
}

func matchQuestion(line string) (string, bool) {
	if m := numberedQuestionRe.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := prefixedQuestionRe.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// answerIndex maps an answer label ("a".."f" or "1".."6") to a 0-based index.
func answerIndex(label string) (int, bool) {
	if label == "" {
		return 0, false
	}
	r := rune(strings.ToLower(label)[0])
	switch {
	case r >= 'a' && r <= 'f':
		return int(r - 'a'), true
	case r >= '1' && r <= '6':
		return int(r - '1'), true
	}
	return 0, false
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}

func collapseBlankRuns(lines []string) string {
	var sb strings.Builder
	blank := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}
