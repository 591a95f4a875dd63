package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"lesson-progress-service/internal/domain"
)

const leaderboardScoresKey = "leaderboard:scores"

// KEYS: scores zset, entry hash. ARGV: user id, delta, seed total, seed id, created_at, updated_at.
// A missing entry is stored from the seed; otherwise the total moves by delta and stops at zero.
var applyDeltaScript = redis.NewScript(`
local total
if redis.call("EXISTS", KEYS[2]) == 1 then
	total = tonumber(redis.call("HGET", KEYS[2], "total_score")) + tonumber(ARGV[2])
	if total < 0 then total = 0 end
	redis.call("HSET", KEYS[2], "total_score", total, "updated_at", ARGV[6])
else
	total = tonumber(ARGV[3])
	redis.call("HSET", KEYS[2], "id", ARGV[4], "user_id", ARGV[1], "total_score", total, "created_at", ARGV[5], "updated_at", ARGV[6])
end
redis.call("ZADD", KEYS[1], total, ARGV[1])
return redis.call("HGETALL", KEYS[2])
`)

// Same arguments as applyDeltaScript without the delta: the stored total is replaced.
var setTotalScript = redis.NewScript(`
local total = tonumber(ARGV[2])
if redis.call("EXISTS", KEYS[2]) == 1 then
	redis.call("HSET", KEYS[2], "total_score", total, "updated_at", ARGV[5])
else
	redis.call("HSET", KEYS[2], "id", ARGV[3], "user_id", ARGV[1], "total_score", total, "created_at", ARGV[4], "updated_at", ARGV[5])
end
redis.call("ZADD", KEYS[1], total, ARGV[1])
return redis.call("HGETALL", KEYS[2])
`)

// LeaderboardStore keeps totals in Redis.
// Keys:
//   - leaderboard:scores          zset of user id -> total score
//   - leaderboard:entry:{user_id} hash with id, user_id, total_score, created_at, updated_at
type LeaderboardStore struct {
	client *redis.Client
}

func NewLeaderboardStore(client *redis.Client) *LeaderboardStore {
	return &LeaderboardStore{client: client}
}

func (s *LeaderboardStore) ApplyDelta(ctx context.Context, seed domain.LeaderboardEntry, delta int) (domain.LeaderboardEntry, error) {
	res, err := applyDeltaScript.Run(ctx, s.client,
		[]string{leaderboardScoresKey, entryKey(seed.UserID)},
		seed.UserID, delta, seed.TotalScore, seed.ID, formatTime(seed.CreatedAt), formatTime(seed.UpdatedAt),
	).Slice()
	if err != nil {
		return domain.LeaderboardEntry{}, &domain.StorageError{Op: "apply leaderboard delta", Err: err}
	}
	return entryFromReply(res)
}

func (s *LeaderboardStore) SetTotal(ctx context.Context, seed domain.LeaderboardEntry) (domain.LeaderboardEntry, error) {
	res, err := setTotalScript.Run(ctx, s.client,
		[]string{leaderboardScoresKey, entryKey(seed.UserID)},
		seed.UserID, seed.TotalScore, seed.ID, formatTime(seed.CreatedAt), formatTime(seed.UpdatedAt),
	).Slice()
	if err != nil {
		return domain.LeaderboardEntry{}, &domain.StorageError{Op: "set leaderboard total", Err: err}
	}
	return entryFromReply(res)
}

func (s *LeaderboardStore) Get(ctx context.Context, userID string) (domain.LeaderboardEntry, error) {
	fields, err := s.client.HGetAll(ctx, entryKey(userID)).Result()
	if err != nil {
		return domain.LeaderboardEntry{}, &domain.StorageError{Op: "get leaderboard entry", Err: err}
	}
	if len(fields) == 0 {
		return domain.LeaderboardEntry{}, domain.ErrLeaderboardEntryNotFound
	}
	return entryFromHash(fields)
}

// Top orders by score desc, then who reached the score earlier, then user id.
// Members tied with the last requested rank are all loaded so the tie-break is
// decided here and not by the zset's lexical order.
func (s *LeaderboardStore) Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	var members []string
	if limit > 0 {
		head, err := s.client.ZRevRangeWithScores(ctx, leaderboardScoresKey, 0, int64(limit-1)).Result()
		if err != nil {
			return nil, &domain.StorageError{Op: "top leaderboard", Err: err}
		}
		if len(head) < limit {
			for _, z := range head {
				members = append(members, z.Member.(string))
			}
		} else {
			cutoff := strconv.FormatFloat(head[len(head)-1].Score, 'f', -1, 64)
			members, err = s.client.ZRevRangeByScore(ctx, leaderboardScoresKey, &redis.ZRangeBy{Min: cutoff, Max: "+inf"}).Result()
			if err != nil {
				return nil, &domain.StorageError{Op: "top leaderboard", Err: err}
			}
		}
	} else {
		all, err := s.client.ZRevRange(ctx, leaderboardScoresKey, 0, -1).Result()
		if err != nil {
			return nil, &domain.StorageError{Op: "top leaderboard", Err: err}
		}
		members = all
	}

	entries := make([]domain.LeaderboardEntry, 0, len(members))
	if len(members) == 0 {
		return entries, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(members))
	for i, userID := range members {
		cmds[i] = pipe.HGetAll(ctx, entryKey(userID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, &domain.StorageError{Op: "load leaderboard entries", Err: err}
	}
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		entry, err := entryFromHash(fields)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		if !entries[i].UpdatedAt.Equal(entries[j].UpdatedAt) {
			return entries[i].UpdatedAt.Before(entries[j].UpdatedAt)
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func entryKey(userID string) string {
	return "leaderboard:entry:" + userID
}

func entryFromReply(reply []interface{}) (domain.LeaderboardEntry, error) {
	fields := make(map[string]string, len(reply)/2)
	for i := 0; i+1 < len(reply); i += 2 {
		fields[fmt.Sprint(reply[i])] = fmt.Sprint(reply[i+1])
	}
	return entryFromHash(fields)
}

func entryFromHash(fields map[string]string) (domain.LeaderboardEntry, error) {
	total, err := strconv.Atoi(fields["total_score"])
	if err != nil {
		return domain.LeaderboardEntry{}, &domain.StorageError{Op: "decode leaderboard entry", Err: err}
	}
	return domain.LeaderboardEntry{
		ID:         fields["id"],
		UserID:     fields["user_id"],
		TotalScore: total,
		CreatedAt:  parseTime(fields["created_at"]),
		UpdatedAt:  parseTime(fields["updated_at"]),
	}, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, raw)
	return t
}
