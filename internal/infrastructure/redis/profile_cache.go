package redis

import (
	"context"
	"fmt"
	"time"

	"domain-auction/internal/domain"

	"github.com/go-redis/redis/v8"
)

// ProfileCache is a read-through cache in front of a ProfileLookup. Users
// without a profile are cached as an empty name so repeated misses do not
// reach the store.
type ProfileCache struct {
	client *redis.Client
	next   domain.ProfileLookup
	ttl    time.Duration
}

func NewProfileCache(client *redis.Client, next domain.ProfileLookup, ttl time.Duration) *ProfileCache {
	return &ProfileCache{client: client, next: next, ttl: ttl}
}

func profileKey(userID string) string {
	return fmt.Sprintf("profile:%s:name", userID)
}

func (c *ProfileCache) DisplayNames(ctx context.Context, userIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return names, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = profileKey(id)
	}

	var missing []string
	cached, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		// Cache outage: fall through to the store for everything.
		missing = userIDs
	} else {
		for i, v := range cached {
			s, ok := v.(string)
			if !ok {
				missing = append(missing, userIDs[i])
				continue
			}
			if s != "" {
				names[userIDs[i]] = s
			}
		}
	}

	if len(missing) == 0 {
		return names, nil
	}

	fetched, err := c.next.DisplayNames(ctx, missing)
	if err != nil {
		return nil, err
	}

	pipe := c.client.Pipeline()
	for _, id := range missing {
		name := fetched[id]
		if name != "" {
			names[id] = name
		}
		pipe.Set(ctx, profileKey(id), name, c.ttl)
	}
	// Best effort; a failed write only costs a future miss.
	_, _ = pipe.Exec(ctx)

	return names, nil
}
