package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/grassroots-match-tracker/internal/match-service/model"
)

// LiveCache guarda o documento da partida ao vivo no Redis com TTL
type LiveCache struct {
	R   *redis.Client
	TTL time.Duration
}

func NewLiveCache(r *redis.Client, ttl time.Duration) *LiveCache {
	return &LiveCache{R: r, TTL: ttl}
}

func keyMatch(matchID string) string { return "live:match:" + matchID }

// Get devolve ok=false em miss
func (c *LiveCache) Get(ctx context.Context, matchID string) (model.Match, bool, error) {
	b, err := c.R.Get(ctx, keyMatch(matchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Match{}, false, nil
	}
	if err != nil {
		return model.Match{}, false, err
	}
	var m model.Match
	if err := json.Unmarshal(b, &m); err != nil {
		return model.Match{}, false, err
	}
	return m, true, nil
}

func (c *LiveCache) Set(ctx context.Context, m model.Match) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return c.R.Set(ctx, keyMatch(m.ID), b, c.TTL).Err()
}

func (c *LiveCache) Delete(ctx context.Context, matchID string) error {
	return c.R.Del(ctx, keyMatch(matchID)).Err()
}
