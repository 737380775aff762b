package domain

import "time"

// CandidateSource records which side of the pipeline produced a candidate.
type CandidateSource string

const (
	SourceExtracted CandidateSource = "extracted"
	SourceGenerated CandidateSource = "generated"
)

// Candidate is an untrusted MCQ recovered from pattern extraction or a
// generation response. It has passed no checks yet.
type Candidate struct {
	Question    string          `json:"question"`
	Options     []string        `json:"options"`
	AnswerIndex int             `json:"answer_index"`
	Source      CandidateSource `json:"source,omitempty"`
}

// MCQ is a candidate that passed validation and normalization: exactly the
// required number of options, all distinct after normalization, answer index
// in range, lengths within platform limits.
type MCQ struct {
	Question    string          `json:"question"`
	Options     []string        `json:"options"`
	AnswerIndex int             `json:"answer_index"`
	Fingerprint string          `json:"fingerprint"`
	Source      CandidateSource `json:"source"`
}

// Bundle is an ordered group of validated questions delivered together as
// one quiz. Seq is monotonically increasing and stable across runs.
type Bundle struct {
	Seq       int       `json:"seq"`
	Questions []MCQ     `json:"questions"`
	CreatedAt time.Time `json:"created_at"`
}

// PollRecord maps a delivered poll back to the question it carries. It is
// registered when the poll is sent and released when its window closes.
type PollRecord struct {
	PollID        string
	ChatID        int64
	BundleSeq     int
	QuestionIndex int
	CorrectIndex  int
	OpenedAt      time.Time
}

// SessionPhase is the lifecycle of a quiz session.
type SessionPhase string

const (
	PhasePending   SessionPhase = "pending"
	PhaseRunning   SessionPhase = "running"
	PhaseCompleted SessionPhase = "completed"
)

// SessionState is the durable run state of delivering one bundle to one
// chat. NextQuestion is advanced after, not before, each delivered question
// so a restart resumes with the next undelivered question.
type SessionState struct {
	ChatID       int64             `json:"chat_id"`
	BundleSeq    int               `json:"bundle_seq"`
	Phase        SessionPhase      `json:"phase"`
	NextQuestion int               `json:"next_question"`
	Scores       map[int64]float64 `json:"scores"`
	StartedAt    time.Time         `json:"started_at"`
	CompletedAt  time.Time         `json:"completed_at,omitempty"`
}

// ScoreEntry is one user's cumulative score on the leaderboard.
type ScoreEntry struct {
	UserID int64   `json:"user_id"`
	Score  float64 `json:"score"`
}

// Leaderboard is the ranked aggregate of all score entries, sorted by score
// descending with ties broken by user id ascending.
type Leaderboard struct {
	Entries   []ScoreEntry `json:"entries"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Report aggregates pipeline outcome counts for user-facing status messages.
// Individual rejection reasons are logged, not reported.
type Report struct {
	Chunks      int `json:"chunks"`
	Extracted   int `json:"extracted"`
	Generated   int `json:"generated"`
	Rejected    int `json:"rejected"`
	Duplicates  int `json:"duplicates"`
	Accepted    int `json:"accepted"`
	Bundles     int `json:"bundles"`
	FirstSeq    int `json:"first_seq"`
	FailedCalls int `json:"failed_calls"`
}
