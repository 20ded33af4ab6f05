package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"experiencehub/internal/core/domain"
	"experiencehub/internal/core/ports"
)

// presenceEntry is stored JSON encoded. Room is set only in the instance
// index; room sets leave it out.
type presenceEntry struct {
	Instance string          `json:"i"`
	Room     domain.RoomName `json:"r,omitempty"`
	Conn     domain.ConnID   `json:"c"`
	User     domain.UserID   `json:"u,omitempty"`
}

// RedisPresenceRepository keeps one sorted set per room whose members are
// scored with the owning instance's last heartbeat in unix milliseconds.
// Members older than the TTL are ignored and pruned on read, so a crashed
// instance drops out of every count even while other instances keep the
// room alive. Each instance also keeps a set of its own entries so it can
// heartbeat or remove them.
type RedisPresenceRepository struct {
	client     *redis.Client
	instanceID string
	ttl        time.Duration
	prefix     string
	now        func() time.Time
	logger     *zap.SugaredLogger
}

func NewRedisPresenceRepository(client *redis.Client, instanceID string, ttl time.Duration, logger *zap.SugaredLogger) *RedisPresenceRepository {
	return &RedisPresenceRepository{
		client:     client,
		instanceID: instanceID,
		ttl:        ttl,
		prefix:     "exphub:presence:",
		now:        time.Now,
		logger:     logger,
	}
}

func (r *RedisPresenceRepository) Join(ctx context.Context, room domain.RoomName, member domain.PresenceMember) error {
	roomMember, instanceMember, err := r.encode(room, member)
	if err != nil {
		return err
	}
	roomKey := r.roomKey(room)
	instanceKey := r.instanceKey()

	pipe := r.client.TxPipeline()
	pipe.ZAdd(ctx, roomKey, redis.Z{Score: r.heartbeat(), Member: roomMember})
	pipe.Expire(ctx, roomKey, r.ttl)
	pipe.SAdd(ctx, instanceKey, instanceMember)
	pipe.Expire(ctx, instanceKey, r.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record presence in %s: %w", room, err)
	}
	return nil
}

func (r *RedisPresenceRepository) Leave(ctx context.Context, room domain.RoomName, member domain.PresenceMember) error {
	roomMember, instanceMember, err := r.encode(room, member)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.ZRem(ctx, r.roomKey(room), roomMember)
	pipe.SRem(ctx, r.instanceKey(), instanceMember)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove presence from %s: %w", room, err)
	}
	return nil
}

func (r *RedisPresenceRepository) Count(ctx context.Context, room domain.RoomName) (int64, error) {
	pipe := r.client.TxPipeline()
	r.pruneStale(ctx, pipe, room)
	card := pipe.ZCard(ctx, r.roomKey(room))

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to count presence in %s: %w", room, err)
	}
	return card.Val(), nil
}

func (r *RedisPresenceRepository) OnlineUsers(ctx context.Context, room domain.RoomName) (int64, error) {
	pipe := r.client.TxPipeline()
	r.pruneStale(ctx, pipe, room)
	members := pipe.ZRange(ctx, r.roomKey(room), 0, -1)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to count online users in %s: %w", room, err)
	}

	users := make(map[domain.UserID]struct{})
	for _, raw := range members.Val() {
		var entry presenceEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.User == "" {
			continue
		}
		users[entry.User] = struct{}{}
	}
	return int64(len(users)), nil
}

// RefreshInstance re-scores every entry this instance owns with the current
// time and extends the key TTLs. It is meant to run on a ticker shorter than
// the TTL. An entry left concurrently may linger for at most one TTL.
func (r *RedisPresenceRepository) RefreshInstance(ctx context.Context) error {
	members, err := r.client.SMembers(ctx, r.instanceKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to load instance presence: %w", err)
	}

	now := r.heartbeat()
	pipe := r.client.Pipeline()
	pipe.Expire(ctx, r.instanceKey(), r.ttl)
	seen := make(map[domain.RoomName]struct{}, len(members))
	for _, raw := range members {
		room, roomMember, ok := decodeInstanceMember(raw)
		if !ok {
			pipe.SRem(ctx, r.instanceKey(), raw)
			continue
		}
		pipe.ZAdd(ctx, r.roomKey(room), redis.Z{Score: now, Member: roomMember})
		if _, done := seen[room]; done {
			continue
		}
		seen[room] = struct{}{}
		pipe.Expire(ctx, r.roomKey(room), r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to refresh presence: %w", err)
	}
	return nil
}

// CleanupInstance removes every presence entry this instance added.
func (r *RedisPresenceRepository) CleanupInstance(ctx context.Context) error {
	members, err := r.client.SMembers(ctx, r.instanceKey()).Result()
	if err != nil {
		return fmt.Errorf("failed to load instance presence: %w", err)
	}

	pipe := r.client.Pipeline()
	for _, raw := range members {
		room, roomMember, ok := decodeInstanceMember(raw)
		if !ok {
			continue
		}
		pipe.ZRem(ctx, r.roomKey(room), roomMember)
	}
	pipe.Del(ctx, r.instanceKey())

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to clean up presence: %w", err)
	}

	r.logger.Infow("cleaned up instance presence",
		"instance_id", r.instanceID,
		"entries", len(members),
	)
	return nil
}

func (r *RedisPresenceRepository) pruneStale(ctx context.Context, pipe redis.Pipeliner, room domain.RoomName) {
	cutoff := r.now().Add(-r.ttl).UnixMilli()
	pipe.ZRemRangeByScore(ctx, r.roomKey(room), "-inf", "("+strconv.FormatInt(cutoff, 10))
}

func (r *RedisPresenceRepository) heartbeat() float64 {
	return float64(r.now().UnixMilli())
}

func (r *RedisPresenceRepository) encode(room domain.RoomName, member domain.PresenceMember) (string, string, error) {
	entry := presenceEntry{Instance: r.instanceID, Conn: member.ConnID, User: member.UserID}
	roomMember, err := json.Marshal(entry)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode presence entry: %w", err)
	}
	entry.Room = room
	instanceMember, err := json.Marshal(entry)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode presence entry: %w", err)
	}
	return string(roomMember), string(instanceMember), nil
}

func (r *RedisPresenceRepository) roomKey(room domain.RoomName) string {
	return r.prefix + "room:" + string(room)
}

func (r *RedisPresenceRepository) instanceKey() string {
	return r.prefix + "instance:" + r.instanceID
}

// decodeInstanceMember turns an instance index entry back into its room and
// the member string stored in that room's sorted set.
func decodeInstanceMember(raw string) (domain.RoomName, string, bool) {
	var entry presenceEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return "", "", false
	}
	if entry.Room == "" || entry.Conn == "" || entry.Instance == "" {
		return "", "", false
	}
	room := entry.Room
	entry.Room = ""
	roomMember, err := json.Marshal(entry)
	if err != nil {
		return "", "", false
	}
	return room, string(roomMember), true
}

var _ ports.PresenceRepository = (*RedisPresenceRepository)(nil)
