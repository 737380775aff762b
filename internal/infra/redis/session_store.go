package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"mcqbank-service/internal/domain"
)

// SessionStore persists session snapshots as JSON values so a restarted
// process can resume a session from its saved question pointer.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Load(ctx context.Context, chatID int64, seq int) (domain.SessionState, bool, error) {
	data, err := s.client.Get(ctx, s.key(chatID, seq)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.SessionState{}, false, nil
		}
		return domain.SessionState{}, false, err
	}
	var state domain.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.SessionState{}, false, err
	}
	return state, true, nil
}

func (s *SessionStore) Save(ctx context.Context, state domain.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(state.ChatID, state.BundleSeq), data, s.ttl).Err()
}

func (s *SessionStore) key(chatID int64, seq int) string {
	return "mcq:session:" + strconv.FormatInt(chatID, 10) + ":" + strconv.Itoa(seq)
}
