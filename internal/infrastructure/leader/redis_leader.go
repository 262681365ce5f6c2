package leader

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const DefaultKey = "auction_leader"

var releaseScript = redis.NewScript(`
    if redis.call("GET", KEYS[1]) == ARGV[1] then
        return redis.call("DEL", KEYS[1])
    else
        return 0
    end
`)

var extendScript = redis.NewScript(`
    if redis.call("GET", KEYS[1]) == ARGV[1] then
        return redis.call("PEXPIRE", KEYS[1], ARGV[2])
    else
        return 0
    end
`)

// RedisLeaderElection elects a single instance through a key with a TTL. The
// holder keeps the key alive with a heartbeat at a third of the TTL.
type RedisLeaderElection struct {
	client *redis.Client
	key    string
	ttl    time.Duration

	mu        sync.Mutex
	heartbeat context.CancelFunc
}

func NewRedisLeaderElection(client *redis.Client, key string, ttl time.Duration) *RedisLeaderElection {
	if key == "" {
		key = DefaultKey
	}
	return &RedisLeaderElection{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

func (r *RedisLeaderElection) BecomeLeader(ctx context.Context, instanceID string) (bool, error) {
	result, err := r.client.SetNX(ctx, r.key, instanceID, r.ttl).Result()
	if err != nil {
		return false, err
	}

	if result {
		r.startHeartbeat(instanceID)
	}

	return result, nil
}

func (r *RedisLeaderElection) IsLeader(ctx context.Context, instanceID string) (bool, error) {
	currentLeader, err := r.client.Get(ctx, r.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}

	return currentLeader == instanceID, nil
}

func (r *RedisLeaderElection) ReleaseLeadership(ctx context.Context, instanceID string) error {
	r.stopHeartbeat()
	return releaseScript.Run(ctx, r.client, []string{r.key}, instanceID).Err()
}

func (r *RedisLeaderElection) startHeartbeat(instanceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.heartbeat != nil {
		r.heartbeat()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.heartbeat = cancel
	go r.maintainLeadership(ctx, instanceID)
}

func (r *RedisLeaderElection) stopHeartbeat() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.heartbeat != nil {
		r.heartbeat()
		r.heartbeat = nil
	}
}

func (r *RedisLeaderElection) maintainLeadership(ctx context.Context, instanceID string) {
	ticker := time.NewTicker(r.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		callCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		result, err := extendScript.Run(callCtx, r.client, []string{r.key},
			instanceID, r.ttl.Milliseconds()).Int64()
		cancel()

		if err != nil || result == 0 {
			// Lost leadership; the next BecomeLeader attempt restarts the heartbeat.
			return
		}
	}
}
