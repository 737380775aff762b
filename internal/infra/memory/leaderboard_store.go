package memory

import (
	"context"
	"sync"
	"time"

	"mcqbank-service/internal/app"
	"mcqbank-service/internal/domain"
)

// LeaderboardStore keeps cumulative scores in memory. Writes are serialized
// by a single mutex; volume is low (one batch per completed session).
type LeaderboardStore struct {
	mu     sync.Mutex
	scores map[int64]float64
	clock  func() time.Time
}

func NewLeaderboardStore() *LeaderboardStore {
	return &LeaderboardStore{scores: make(map[int64]float64), clock: time.Now}
}

func (s *LeaderboardStore) AddScores(_ context.Context, scores map[int64]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, delta := range scores {
		s.scores[userID] += delta
	}
	return nil
}

func (s *LeaderboardStore) Top(_ context.Context, n int) (domain.Leaderboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]domain.ScoreEntry, 0, len(s.scores))
	for userID, score := range s.scores {
		entries = append(entries, domain.ScoreEntry{UserID: userID, Score: score})
	}
	app.SortEntries(entries)
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return domain.Leaderboard{Entries: entries, UpdatedAt: s.clock()}, nil
}
