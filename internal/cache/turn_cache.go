package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"gopherai-chat/internal/model"
)

// TurnCache keeps a session's turns in Redis tagged with the session version
// they were read at. A lookup with any other version is a miss, so appends
// never serve stale history even if an eviction is lost.
type TurnCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

type cachedTurns struct {
	Version int64        `json:"version"`
	Turns   []model.Turn `json:"turns"`
}

func NewTurnCache(client *redisv9.Client, ttl time.Duration) *TurnCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &TurnCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *TurnCache) GetTurns(ctx context.Context, sessionID string, version int64) ([]model.Turn, bool, error) {
	raw, err := c.client.Get(ctx, c.turnsKey(sessionID)).Result()
	if errors.Is(err, redisv9.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get turns failed: %w", err)
	}

	var entry cachedTurns
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached turns failed: %w", err)
	}
	if entry.Version != version {
		return nil, false, nil
	}
	if entry.Turns == nil {
		entry.Turns = []model.Turn{}
	}
	return entry.Turns, true, nil
}

func (c *TurnCache) SetTurns(ctx context.Context, sessionID string, version int64, turns []model.Turn) error {
	payload, err := json.Marshal(cachedTurns{Version: version, Turns: turns})
	if err != nil {
		return fmt.Errorf("marshal turns cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.turnsKey(sessionID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set turns failed: %w", err)
	}
	return nil
}

func (c *TurnCache) DeleteTurns(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, c.turnsKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete turns failed: %w", err)
	}
	return nil
}

func (c *TurnCache) turnsKey(sessionID string) string {
	return "chat:session:turns:" + sessionID
}
