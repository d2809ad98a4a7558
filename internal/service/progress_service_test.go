package service

import (
	"context"
	"testing"

	"focusmath_backend/internal/adaptive"
	"focusmath_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rewardTypes(earned []RewardEarned) []string {
	types := make([]string, 0, len(earned))
	for _, r := range earned {
		types = append(types, r.Type)
	}
	return types
}

func TestUpdateGameProgressFirstPerfectCompletion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "asha")
	game := env.gameByCode(t, "unit-circle")

	resp, err := env.progressSv.UpdateGameProgress(ctx, user.ID, GameProgressRequest{
		GameID:             game.ID,
		Difficulty:         1,
		StarsEarned:        3,
		Accuracy:           1,
		QuestionsCompleted: 8,
		HintsUsed:          1,
		Completed:          true,
	})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.ElementsMatch(t, []string{"level_completion", "perfect_score", "three_stars"}, rewardTypes(resp.RewardsEarned))
	require.NotNil(t, resp.Progress)
	assert.Equal(t, 3, resp.Progress.BestStars)
	assert.Equal(t, 1, resp.Progress.Attempts)
	assert.True(t, resp.Progress.Completed)
	require.NotNil(t, resp.Progress.CompletedAt)
	assert.True(t, resp.Progress.CompletedAt.Equal(testNow))

	balance, err := env.stats.TokenBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 20+15+10, balance)
}

func TestUpdateGameProgressRepeatDoesNotDoubleAward(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "ravi")
	game := env.gameByCode(t, "sine-wave")

	req := GameProgressRequest{GameID: game.ID, Difficulty: 2, StarsEarned: 3, Accuracy: 0.9, QuestionsCompleted: 5, Completed: true}
	first, err := env.progressSv.UpdateGameProgress(ctx, user.ID, req)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"level_completion", "three_stars"}, rewardTypes(first.RewardsEarned))

	again, err := env.progressSv.UpdateGameProgress(ctx, user.ID, req)
	require.NoError(t, err)
	assert.Empty(t, again.RewardsEarned)
	assert.Equal(t, 2, again.Progress.Attempts)
	assert.Equal(t, 10, again.Progress.QuestionsCompleted)

	rewards, err := env.stats.ListRewards(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, rewards, 2)
}

func TestUpdateGameProgressKeepsBestScores(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "meera")
	game := env.gameByCode(t, "dice-roll")

	_, err := env.progressSv.UpdateGameProgress(ctx, user.ID, GameProgressRequest{GameID: game.ID, Difficulty: 1, StarsEarned: 2, Accuracy: 0.8})
	require.NoError(t, err)
	resp, err := env.progressSv.UpdateGameProgress(ctx, user.ID, GameProgressRequest{GameID: game.ID, Difficulty: 1, StarsEarned: 1, Accuracy: 0.4})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Progress.BestStars)
	assert.InDelta(t, 0.8, resp.Progress.BestAccuracy, 1e-9)
	assert.False(t, resp.Progress.Completed)
	assert.Nil(t, resp.Progress.CompletedAt)
	assert.Empty(t, resp.RewardsEarned)
}

func TestUpdateGameProgressThreeStarsOnlyWhenImproving(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "kabir")
	game := env.gameByCode(t, "cube-stack")

	resp, err := env.progressSv.UpdateGameProgress(ctx, user.ID, GameProgressRequest{GameID: game.ID, Difficulty: 3, StarsEarned: 2, Accuracy: 0.7, Completed: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"level_completion"}, rewardTypes(resp.RewardsEarned))

	resp, err = env.progressSv.UpdateGameProgress(ctx, user.ID, GameProgressRequest{GameID: game.ID, Difficulty: 3, StarsEarned: 3, Accuracy: 0.9, Completed: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"three_stars"}, rewardTypes(resp.RewardsEarned))
}

func TestUpdateGameProgressChapterCompletion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "isha")
	balance := env.gameByCode(t, "balance-scale")
	pattern := env.gameByCode(t, "pattern-builder")

	resp, err := env.progressSv.UpdateGameProgress(ctx, user.ID, GameProgressRequest{GameID: balance.ID, Difficulty: 1, StarsEarned: 1, Accuracy: 0.6, Completed: true})
	require.NoError(t, err)
	assert.NotContains(t, rewardTypes(resp.RewardsEarned), "chapter_completion")

	resp, err = env.progressSv.UpdateGameProgress(ctx, user.ID, GameProgressRequest{GameID: pattern.ID, Difficulty: 4, StarsEarned: 1, Accuracy: 0.6, Completed: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"level_completion", "chapter_completion"}, rewardTypes(resp.RewardsEarned))
	for _, r := range resp.RewardsEarned {
		if r.Type == "chapter_completion" {
			assert.Equal(t, "linear-equations", r.Chapter)
			assert.Equal(t, 50, r.Tokens)
		}
	}

	// 同章节其他难度再次完成不会重复发放章节奖励
	resp, err = env.progressSv.UpdateGameProgress(ctx, user.ID, GameProgressRequest{GameID: pattern.ID, Difficulty: 5, StarsEarned: 1, Accuracy: 0.6, Completed: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"level_completion"}, rewardTypes(resp.RewardsEarned))
}

func TestUpdateGameProgressPerfectScorePerAttempt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "dev")
	game := env.gameByCode(t, "coin-flip")

	req := GameProgressRequest{GameID: game.ID, Difficulty: 1, StarsEarned: 2, Accuracy: 1, Completed: true, AttemptID: "a-1"}
	_, err := env.progressSv.UpdateGameProgress(ctx, user.ID, req)
	require.NoError(t, err)

	// 同一 attemptId 重放不再发放
	resp, err := env.progressSv.UpdateGameProgress(ctx, user.ID, req)
	require.NoError(t, err)
	assert.Empty(t, resp.RewardsEarned)

	req.AttemptID = "a-2"
	resp, err = env.progressSv.UpdateGameProgress(ctx, user.ID, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"perfect_score"}, rewardTypes(resp.RewardsEarned))
}

func TestUpdateGameProgressPerfectScoreEveryAttemptWithoutAttemptID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "pia")
	game := env.gameByCode(t, "coin-flip")

	req := GameProgressRequest{GameID: game.ID, Difficulty: 2, StarsEarned: 3, Accuracy: 1, Completed: true}
	resp, err := env.progressSv.UpdateGameProgress(ctx, user.ID, req)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"level_completion", "perfect_score", "three_stars"}, rewardTypes(resp.RewardsEarned))

	for i := 2; i <= 3; i++ {
		resp, err = env.progressSv.UpdateGameProgress(ctx, user.ID, req)
		require.NoError(t, err)
		assert.Equal(t, []string{"perfect_score"}, rewardTypes(resp.RewardsEarned), "attempt %d", i)
		assert.Equal(t, i, resp.Progress.Attempts)
	}

	balance, err := env.stats.TokenBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 20+10+3*15, balance)
}

func TestUpdateGameProgressUnknownGame(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "zoya")

	_, err := env.progressSv.UpdateGameProgress(context.Background(), user.ID, GameProgressRequest{GameID: 9999, Difficulty: 1})
	assert.ErrorIs(t, err, util.ErrGameNotFound)
}

func TestSetRewardValues(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "neel")
	game := env.gameByCode(t, "pizza-slices")

	values := adaptive.DefaultRewardValues()
	values.LevelCompletion = 40
	env.progressSv.SetRewardValues(values)

	resp, err := env.progressSv.UpdateGameProgress(ctx, user.ID, GameProgressRequest{GameID: game.ID, Difficulty: 1, StarsEarned: 1, Accuracy: 0.5, Completed: true})
	require.NoError(t, err)
	require.Len(t, resp.RewardsEarned, 1)
	assert.Equal(t, 40, resp.RewardsEarned[0].Tokens)
}
