package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"mcqbank-service/internal/app"
	"mcqbank-service/internal/domain"
)

const leaderboardKey = "mcq:leaderboard"

// LeaderboardStore keeps cumulative scores in a Redis sorted set keyed by
// user ID. Sessions apply their score maps as ZINCRBY deltas on completion.
type LeaderboardStore struct {
	client *redis.Client
	clock  func() time.Time
}

func NewLeaderboardStore(client *redis.Client) *LeaderboardStore {
	return &LeaderboardStore{client: client, clock: time.Now}
}

func (s *LeaderboardStore) AddScores(ctx context.Context, scores map[int64]float64) error {
	if len(scores) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for userID, delta := range scores {
		pipe.ZIncrBy(ctx, leaderboardKey, delta, strconv.FormatInt(userID, 10))
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *LeaderboardStore) Top(ctx context.Context, n int) (domain.Leaderboard, error) {
	stop := int64(n - 1)
	if n <= 0 {
		stop = -1
	}
	members, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, stop).Result()
	if err != nil {
		return domain.Leaderboard{}, err
	}

	entries := make([]domain.ScoreEntry, 0, len(members))
	for _, m := range members {
		userID, err := strconv.ParseInt(m.Member.(string), 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, domain.ScoreEntry{UserID: userID, Score: m.Score})
	}
	// Redis breaks score ties by member lexicographic order; re-sort so ties
	// order by numeric user ID like every other store.
	app.SortEntries(entries)
	return domain.Leaderboard{Entries: entries, UpdatedAt: s.clock()}, nil
}
