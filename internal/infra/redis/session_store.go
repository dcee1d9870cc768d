package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"whatsapp-quiz-bot/internal/domain"
)

// SessionStore keeps one JSON record per conversation so sessions survive
// restarts and can be shared across instances. Records expire after the
// configured TTL; an expired or missing record reads back as a fresh idle
// session for its conversation.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Load(ctx context.Context, entityID string, isGroup bool) (*domain.FlowSession, error) {
	raw, err := s.client.Get(ctx, s.key(entityID)).Bytes()
	if err == redis.Nil {
		return domain.NewFlowSession(entityID, isGroup), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", entityID, err)
	}

	var sess domain.FlowSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		// A corrupt record should not wedge the conversation forever.
		log.Printf("session store: corrupt record for %s, resetting: %v", entityID, err)
		return domain.NewFlowSession(entityID, isGroup), nil
	}
	return &sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sess *domain.FlowSession) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sess.EntityID, err)
	}
	if err := s.client.Set(ctx, s.key(sess.EntityID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", sess.EntityID, err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, entityID string) error {
	if err := s.client.Del(ctx, s.key(entityID)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", entityID, err)
	}
	return nil
}

// Active scans for live session records and returns the ones mid-quiz or in
// ask mode. SCAN keeps this safe to call on a shared instance.
func (s *SessionStore) Active(ctx context.Context) ([]*domain.FlowSession, error) {
	var active []*domain.FlowSession
	iter := s.client.Scan(ctx, 0, keyPrefix+"session:*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue // expired between SCAN and GET
		}
		var sess domain.FlowSession
		if err := json.Unmarshal(raw, &sess); err != nil {
			log.Printf("session store: skipping corrupt record %s: %v", iter.Val(), err)
			continue
		}
		if sess.State == domain.StateInQuiz || sess.State == domain.StateInAskMode {
			active = append(active, &sess)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	return active, nil
}

const keyPrefix = "quizbot:"

func (s *SessionStore) key(entityID string) string {
	return keyPrefix + "session:" + entityID
}
