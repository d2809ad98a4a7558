package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"focusmath_backend/internal/adaptive"
	"focusmath_backend/internal/config"
	"focusmath_backend/internal/model"
	"focusmath_backend/internal/repository"
	"focusmath_backend/pkg/database"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 10, 17, 10, 30, 0, 0, time.UTC)

type testEnv struct {
	db         *gorm.DB
	users      *repository.UserRepository
	perf       *repository.PerformanceRepository
	results    *repository.SessionResultRepository
	games      *repository.GameRepository
	progress   *repository.GameProgressRepository
	rewards    *repository.RewardRepository
	questions  *repository.QuestionRepository
	stats      *StatsService
	submission *SubmissionService
	progressSv *ProgressService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.InitDB(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	env := &testEnv{
		db:        db,
		users:     repository.NewUserRepository(db),
		perf:      repository.NewPerformanceRepository(db),
		results:   repository.NewSessionResultRepository(db),
		games:     repository.NewGameRepository(db),
		progress:  repository.NewGameProgressRepository(db),
		rewards:   repository.NewRewardRepository(db),
		questions: repository.NewQuestionRepository(db),
	}
	leaderboard := repository.NewDBLeaderboard(env.perf, env.rewards)
	env.stats = NewStatsService(env.perf, env.rewards, env.progress, env.users, leaderboard)
	env.stats.now = func() time.Time { return testNow }

	env.submission = NewSubmissionService(db, env.perf, env.results, env.stats, adaptive.DefaultParams())
	env.submission.now = func() time.Time { return testNow }

	env.progressSv = NewProgressService(db, env.games, env.progress, env.rewards, env.stats, adaptive.DefaultRewardValues())
	env.progressSv.now = func() time.Time { return testNow }
	return env
}

func (e *testEnv) createUser(t *testing.T, name string) *model.User {
	t.Helper()
	user := &model.User{Name: name, Email: name + "@example.com", Password: "x", Role: model.Student, Grade: 11}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

func (e *testEnv) gameByCode(t *testing.T, code string) *model.Game {
	t.Helper()
	var game model.Game
	require.NoError(t, e.db.Where("code = ?", code).First(&game).Error)
	return &game
}

// bumpPerformanceVersion 在接下来 n 次统计更新之前，于同一事务内先把版本号加一，
// 相当于另一个请求抢先提交。返回实际触发的次数。
func bumpPerformanceVersion(t *testing.T, db *gorm.DB, n int32) *atomic.Int32 {
	t.Helper()
	var remaining, fired atomic.Int32
	remaining.Store(n)

	name := "focusmath:bump_performance_version"
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register(name, func(tx *gorm.DB) {
		if tx.Statement.Table != "user_performance" || remaining.Add(-1) < 0 {
			return
		}
		fired.Add(1)
		tx.Session(&gorm.Session{NewDB: true}).Exec("UPDATE user_performance SET version = version + 1")
	}))
	t.Cleanup(func() {
		_ = db.Callback().Update().Remove(name)
	})
	return &fired
}
