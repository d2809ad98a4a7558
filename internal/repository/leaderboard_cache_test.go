package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestRedisLeaderboardRanksByTokens(t *testing.T) {
	ctx := context.Background()
	_, rdb := newTestRedis(t)
	board := NewRedisLeaderboard(rdb)

	require.NoError(t, board.SetTokens(ctx, 1, 40))
	require.NoError(t, board.SetTokens(ctx, 2, 95))
	require.NoError(t, board.SetTokens(ctx, 3, 10))
	// 重复写入覆盖旧分数
	require.NoError(t, board.SetTokens(ctx, 1, 60))

	top, err := board.Top(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []LeaderboardEntry{
		{Rank: 1, UserID: 2, Tokens: 95},
		{Rank: 2, UserID: 1, Tokens: 60},
		{Rank: 3, UserID: 3, Tokens: 10},
	}, top)

	top, err = board.Top(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, uint(1), top[1].UserID)
}

func TestRedisLeaderboardSkipsForeignMembers(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newTestRedis(t)
	board := NewRedisLeaderboard(rdb)

	require.NoError(t, board.SetTokens(ctx, 7, 30))
	_, err := mr.ZAdd(leaderboardKey, 50, "not-a-user")
	require.NoError(t, err)

	top, err := board.Top(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, uint(7), top[0].UserID)
	assert.Equal(t, 30, top[0].Tokens)
}

func TestRedisLeaderboardEmpty(t *testing.T) {
	_, rdb := newTestRedis(t)

	top, err := NewRedisLeaderboard(rdb).Top(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, top)
}
