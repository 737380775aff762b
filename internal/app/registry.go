package app

import (
	"sync"

	"mcqbank-service/internal/domain"
)

// PollRegistry maps delivered-poll identifiers to their records while the
// poll window is open. Answer events are matched here by poll id, never by
// arrival order, and each user is counted at most once per poll.
type PollRegistry struct {
	mu    sync.Mutex
	polls map[string]*openPoll
}

type openPoll struct {
	rec      domain.PollRecord
	answered map[int64]struct{}
}

func NewPollRegistry() *PollRegistry {
	return &PollRegistry{polls: make(map[string]*openPoll)}
}

// Register makes a freshly sent poll answerable.
func (r *PollRegistry) Register(rec domain.PollRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.polls[rec.PollID] = &openPoll{rec: rec, answered: make(map[int64]struct{})}
}

// Consume returns the record for pollID and marks userID as having answered.
// It reports false for unknown/expired polls and for repeat answers.
func (r *PollRegistry) Consume(pollID string, userID int64) (domain.PollRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[pollID]
	if !ok {
		return domain.PollRecord{}, false
	}
	if _, dup := p.answered[userID]; dup {
		return domain.PollRecord{}, false
	}
	p.answered[userID] = struct{}{}
	return p.rec, true
}

// Release discards the record once the poll's window has elapsed or the
// session is aborted; late answers then miss and are ignored.
func (r *PollRegistry) Release(pollID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.polls, pollID)
}
