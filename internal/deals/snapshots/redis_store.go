// Package snapshots holds the Redis and in-memory snapshot stores. The
// Postgres store lives with the other pgx code in the repository package.
package snapshots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"deal_insights_backend/internal/deals/ports"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "deal_snapshots"

	// Members scanned newest-first before giving up on a lookup.
	defaultScanLimit = 20

	// Lower bound for the key expiry so a snapshot saved late is not
	// deleted by Redis before it is written.
	minKeyTTL = time.Minute
)

// saveScript appends a member, drops members generated before the expiry
// cutoff and those beyond the scan window, and only ever extends the key
// expiry so an older snapshot saved late cannot shorten a newer one's life.
var saveScript = redis.NewScript(`
redis.call('ZADD', KEYS[1], ARGV[1], ARGV[2])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[4])
redis.call('ZREMRANGEBYRANK', KEYS[1], 0, -(tonumber(ARGV[5]) + 1))
local current = redis.call('PTTL', KEYS[1])
local wanted = tonumber(ARGV[3])
if current < wanted then
  redis.call('PEXPIRE', KEYS[1], wanted)
end
return 1
`)

// RedisStore keeps one sorted set per snapshot key, scored by generation
// time. Expiry is evaluated per member from ttlExpiresAt; the key TTL only
// reclaims memory.
type RedisStore struct {
	client    redis.UniversalClient
	scanLimit int64
}

// NewRedisStore creates a store on an existing client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, scanLimit: defaultScanLimit}
}

// FindActive returns the newest member whose TTL is after now.
func (s *RedisStore) FindActive(ctx context.Context, key ports.SnapshotKey, now time.Time) (*ports.Snapshot, error) {
	members, err := s.client.ZRevRange(ctx, redisKey(key), 0, s.scanLimit-1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshots: %w", err)
	}

	for _, member := range members {
		var snapshot ports.Snapshot
		if err := json.Unmarshal([]byte(member), &snapshot); err != nil {
			// Unreadable members behave like absent ones.
			continue
		}
		if snapshot.ActiveAt(now) {
			return &snapshot, nil
		}
	}
	return nil, nil
}

// Save appends the snapshot to its key.
func (s *RedisStore) Save(ctx context.Context, snapshot ports.Snapshot) error {
	member, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	keyTTL := time.Until(snapshot.TTLExpiresAt)
	if keyTTL < minKeyTTL {
		keyTTL = minKeyTTL
	}

	// Snapshots share one TTL, so anything generated a full TTL before this
	// one has expired.
	expiredCutoff := "-inf"
	if ttl := snapshot.TTLExpiresAt.Sub(snapshot.GeneratedAt); ttl > 0 {
		expiredCutoff = strconv.FormatInt(snapshot.GeneratedAt.Add(-ttl).UnixMilli(), 10)
	}

	err = saveScript.Run(ctx, s.client,
		[]string{redisKey(snapshot.Key())},
		snapshot.GeneratedAt.UnixMilli(),
		string(member),
		keyTTL.Milliseconds(),
		expiredCutoff,
		s.scanLimit,
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func redisKey(key ports.SnapshotKey) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", keyPrefix, key.TenantID, key.WorkspaceID, key.DealID, key.Kind)
}
