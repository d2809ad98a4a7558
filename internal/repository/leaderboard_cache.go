package repository

import (
	"context"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const leaderboardKey = "leaderboard:tokens"

type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID uint   `json:"userId"`
	Name   string `json:"name,omitempty"`
	Tokens int    `json:"tokens"`
}

// Leaderboard 代币排行榜存储
type Leaderboard interface {
	SetTokens(ctx context.Context, userID uint, tokens int) error
	Top(ctx context.Context, limit int) ([]LeaderboardEntry, error)
}

// RedisLeaderboard 使用有序集合保存 userID -> 代币总数
type RedisLeaderboard struct {
	rdb *redis.Client
}

func NewRedisLeaderboard(rdb *redis.Client) *RedisLeaderboard {
	return &RedisLeaderboard{rdb: rdb}
}

func (l *RedisLeaderboard) SetTokens(ctx context.Context, userID uint, tokens int) error {
	return l.rdb.ZAdd(ctx, leaderboardKey, redis.Z{
		Score:  float64(tokens),
		Member: strconv.FormatUint(uint64(userID), 10),
	}).Err()
}

func (l *RedisLeaderboard) Top(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	zs, err := l.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		id, err := strconv.ParseUint(member, 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			Rank:   len(entries) + 1,
			UserID: uint(id),
			Tokens: int(z.Score),
		})
	}
	return entries, nil
}

// DBLeaderboard 未启用 Redis 时直接从数据库汇总，SetTokens 为空操作
type DBLeaderboard struct {
	perf    *PerformanceRepository
	rewards *RewardRepository
}

func NewDBLeaderboard(perf *PerformanceRepository, rewards *RewardRepository) *DBLeaderboard {
	return &DBLeaderboard{perf: perf, rewards: rewards}
}

func (l *DBLeaderboard) SetTokens(ctx context.Context, userID uint, tokens int) error {
	return nil
}

func (l *DBLeaderboard) Top(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	totals, err := l.perf.TokensByUser(ctx)
	if err != nil {
		return nil, err
	}
	rewardTotals, err := l.rewards.TokensByUser(ctx)
	if err != nil {
		return nil, err
	}
	for id, t := range rewardTotals {
		totals[id] += t
	}

	entries := make([]LeaderboardEntry, 0, len(totals))
	for id, t := range totals {
		entries = append(entries, LeaderboardEntry{UserID: id, Tokens: t})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Tokens != entries[j].Tokens {
			return entries[i].Tokens > entries[j].Tokens
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
