// Package app drives quiz delivery: per-(chat, bundle) session state
// machines, answer matching, scoring, and the leaderboard.
package app

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"mcqbank-service/internal/domain"
)

// Messenger is the delivery boundary to the messaging platform.
type Messenger interface {
	// SendPoll delivers one timed quiz poll and returns the platform's poll id.
	SendPoll(ctx context.Context, chatID int64, question string, options []string, correctIndex int, window time.Duration) (string, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// BundleRepository loads persisted bundles by sequence number.
type BundleRepository interface {
	GetBundle(ctx context.Context, seq int) (domain.Bundle, error)
}

// SessionStore persists session run state so an interrupted session resumes
// from the next undelivered question instead of restarting the bundle.
type SessionStore interface {
	Load(ctx context.Context, chatID int64, seq int) (domain.SessionState, bool, error)
	Save(ctx context.Context, state domain.SessionState) error
}

// LeaderboardStore accumulates cumulative scores across completed sessions.
type LeaderboardStore interface {
	AddScores(ctx context.Context, scores map[int64]float64) error
	Top(ctx context.Context, n int) (domain.Leaderboard, error)
}

type sessionKey struct {
	chatID int64
	seq    int
}

// Runner delivers bundles as timed polls, one open question per session at a
// time. Sessions for different chats run independently; the only shared
// state is the poll registry, the session store, and the leaderboard, all of
// which serialize writes.
//
// Scoring policy: correct answer +1, wrong answer -negativeMark, no answer
// within the window 0 (not penalized).
type Runner struct {
	messenger    Messenger
	bundles      BundleRepository
	sessions     SessionStore
	board        LeaderboardStore
	polls        *PollRegistry
	clock        Clock
	window       time.Duration
	negativeMark float64

	mu      sync.Mutex // serializes session state read-modify-write
	running map[sessionKey]context.CancelFunc
}

func NewRunner(m Messenger, bundles BundleRepository, sessions SessionStore, board LeaderboardStore, clock Clock, window time.Duration, negativeMark float64) *Runner {
	return &Runner{
		messenger:    m,
		bundles:      bundles,
		sessions:     sessions,
		board:        board,
		polls:        NewPollRegistry(),
		clock:        clock,
		window:       window,
		negativeMark: negativeMark,
		running:      make(map[sessionKey]context.CancelFunc),
	}
}

// Run delivers bundle seq to chatID, resuming a prior interrupted session if
// one exists. It blocks until the session completes or is aborted; callers
// run it in its own goroutine so sessions never block one another.
func (r *Runner) Run(ctx context.Context, chatID int64, seq int) error {
	bundle, err := r.bundles.GetBundle(ctx, seq)
	if err != nil {
		return err
	}

	key := sessionKey{chatID: chatID, seq: seq}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	if _, busy := r.running[key]; busy {
		r.mu.Unlock()
		return fmt.Errorf("bundle %d already running in chat %d", seq, chatID)
	}
	r.running[key] = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.running, key)
		r.mu.Unlock()
	}()

	state, err := r.startState(ctx, chatID, seq)
	if err != nil {
		return err
	}

	for i := state.NextQuestion; i < len(bundle.Questions); i++ {
		q := bundle.Questions[i]
		pollID, err := r.messenger.SendPoll(ctx, chatID, q.Question, q.Options, q.AnswerIndex, r.window)
		if err != nil {
			// Delivery failure is per-question: log, skip, keep the session alive.
			log.Printf("runner: send poll %d/%d to chat %d: %v", i+1, len(bundle.Questions), chatID, err)
			if _, err := r.updateState(ctx, chatID, seq, func(s *domain.SessionState) {
				s.NextQuestion = i + 1
			}); err != nil {
				return err
			}
			continue
		}

		r.polls.Register(domain.PollRecord{
			PollID:        pollID,
			ChatID:        chatID,
			BundleSeq:     seq,
			QuestionIndex: i,
			CorrectIndex:  q.AnswerIndex,
			OpenedAt:      r.clock.Now(),
		})

		// The pointer advances after, not before, the send: a restart must
		// resume with the next undelivered question, never replay this one.
		if _, err := r.updateState(ctx, chatID, seq, func(s *domain.SessionState) {
			s.NextQuestion = i + 1
		}); err != nil {
			r.polls.Release(pollID)
			return err
		}

		select {
		case <-r.clock.After(r.window):
		case <-ctx.Done():
			r.polls.Release(pollID)
			return ctx.Err()
		}
		r.polls.Release(pollID)
	}

	return r.complete(ctx, chatID, seq, bundle)
}

// Abort cancels a running session. The open poll record is released, no
// further questions are scheduled, and the leaderboard stays untouched
// because scores fold in only on completion.
func (r *Runner) Abort(chatID int64, seq int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cancel, ok := r.running[sessionKey{chatID: chatID, seq: seq}]
	if ok {
		cancel()
	}
	return ok
}

// AbortChat cancels every running session in a chat.
func (r *Runner) AbortChat(chatID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for key, cancel := range r.running {
		if key.chatID == chatID {
			cancel()
			n++
		}
	}
	return n
}

// HandleAnswer scores one asynchronous answer event. Unknown or expired poll
// ids return ErrPollNotFound; repeat answers by the same user are ignored
// the same way.
func (r *Runner) HandleAnswer(ctx context.Context, pollID string, userID int64, choice int) error {
	rec, ok := r.polls.Consume(pollID, userID)
	if !ok {
		return domain.ErrPollNotFound
	}

	delta := -r.negativeMark
	if choice == rec.CorrectIndex {
		delta = 1
	}

	_, err := r.updateState(ctx, rec.ChatID, rec.BundleSeq, func(s *domain.SessionState) {
		if s.Scores == nil {
			s.Scores = make(map[int64]float64)
		}
		s.Scores[userID] += delta
	})
	return err
}

// Leaderboard returns the ranked cumulative scores.
func (r *Runner) Leaderboard(ctx context.Context, n int) (domain.Leaderboard, error) {
	return r.board.Top(ctx, n)
}

// startState loads or creates the session and moves it to Running.
func (r *Runner) startState(ctx context.Context, chatID int64, seq int) (domain.SessionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, found, err := r.sessions.Load(ctx, chatID, seq)
	if err != nil {
		return domain.SessionState{}, err
	}
	if found && state.Phase == domain.PhaseCompleted {
		return domain.SessionState{}, domain.ErrSessionCompleted
	}
	if !found {
		state = domain.SessionState{
			ChatID:    chatID,
			BundleSeq: seq,
			Phase:     domain.PhasePending,
			Scores:    make(map[int64]float64),
		}
	}
	if state.Phase == domain.PhasePending {
		state.StartedAt = r.clock.Now()
	}
	state.Phase = domain.PhaseRunning
	if err := r.sessions.Save(ctx, state); err != nil {
		return domain.SessionState{}, err
	}
	return state, nil
}

// updateState is the single read-modify-write path for session state, so the
// delivery loop and asynchronous answer events never clobber each other.
func (r *Runner) updateState(ctx context.Context, chatID int64, seq int, fn func(*domain.SessionState)) (domain.SessionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, found, err := r.sessions.Load(ctx, chatID, seq)
	if err != nil {
		return domain.SessionState{}, err
	}
	if !found {
		return domain.SessionState{}, domain.ErrSessionNotFound
	}
	fn(&state)
	if err := r.sessions.Save(ctx, state); err != nil {
		return domain.SessionState{}, err
	}
	return state, nil
}

func (r *Runner) complete(ctx context.Context, chatID int64, seq int, bundle domain.Bundle) error {
	state, err := r.updateState(ctx, chatID, seq, func(s *domain.SessionState) {
		s.Phase = domain.PhaseCompleted
		s.CompletedAt = r.clock.Now()
	})
	if err != nil {
		return err
	}

	if len(state.Scores) > 0 {
		if err := r.board.AddScores(ctx, state.Scores); err != nil {
			return err
		}
	}

	if err := r.messenger.SendMessage(ctx, chatID, formatSummary(seq, len(bundle.Questions), state.Scores)); err != nil {
		log.Printf("runner: send summary to chat %d: %v", chatID, err)
	}
	return nil
}

func formatSummary(seq, questions int, scores map[int64]float64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Quiz %d finished (%d questions).\n", seq, questions)
	if len(scores) == 0 {
		sb.WriteString("No answers were recorded.")
		return sb.String()
	}

	entries := make([]domain.ScoreEntry, 0, len(scores))
	for userID, score := range scores {
		entries = append(entries, domain.ScoreEntry{UserID: userID, Score: score})
	}
	SortEntries(entries)

	sb.WriteString("Scores:\n")
	for i, e := range entries {
		fmt.Fprintf(&sb, "%d. user %d: %s\n", i+1, e.UserID, FormatScore(e.Score))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// SortEntries orders entries by score descending, ties broken by user id
// ascending for determinism.
func SortEntries(entries []domain.ScoreEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})
}

// FormatScore renders a score without trailing zero noise (1, 0.75, -0.25).
func FormatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
