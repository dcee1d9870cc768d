package redis

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// Whitelist keeps the set of authorized conversations in a Redis set so that
// admin changes propagate to every instance without a restart.
type Whitelist struct {
	client *redis.Client
}

func NewWhitelist(client *redis.Client) *Whitelist {
	return &Whitelist{client: client}
}

func (w *Whitelist) IsAllowed(ctx context.Context, entityID string) (bool, error) {
	ok, err := w.client.SIsMember(ctx, whitelistKey, entityID).Result()
	if err != nil {
		return false, fmt.Errorf("whitelist check %s: %w", entityID, err)
	}
	return ok, nil
}

func (w *Whitelist) Add(ctx context.Context, entityID string) (bool, error) {
	n, err := w.client.SAdd(ctx, whitelistKey, entityID).Result()
	if err != nil {
		return false, fmt.Errorf("whitelist add %s: %w", entityID, err)
	}
	return n > 0, nil
}

func (w *Whitelist) Remove(ctx context.Context, entityID string) (bool, error) {
	n, err := w.client.SRem(ctx, whitelistKey, entityID).Result()
	if err != nil {
		return false, fmt.Errorf("whitelist remove %s: %w", entityID, err)
	}
	return n > 0, nil
}

func (w *Whitelist) List(ctx context.Context) ([]string, error) {
	members, err := w.client.SMembers(ctx, whitelistKey).Result()
	if err != nil {
		return nil, fmt.Errorf("whitelist list: %w", err)
	}
	sort.Strings(members)
	return members, nil
}

const whitelistKey = keyPrefix + "whitelist"
