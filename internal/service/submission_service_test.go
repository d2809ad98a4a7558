package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"focusmath_backend/internal/adaptive"
	"focusmath_backend/internal/repository"
	"focusmath_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitFirstResultStartsFromDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "asha")

	resp, err := env.submission.Submit(ctx, user.ID, SubmitResultRequest{
		SessionID:      "s1",
		Subject:        "Trigonometry",
		Correct:        true,
		ResponseTimeMs: 5000,
	})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.NextDifficulty)
	assert.Equal(t, 10, resp.Tokens)
	assert.Equal(t, 1, resp.StreakDays)
	assert.InDelta(t, 0.76, resp.Accuracy, 1e-9)

	perf, err := env.perf.FindByUserAndSubject(ctx, user.ID, "trigonometry")
	require.NoError(t, err)
	assert.InDelta(t, 9.0, perf.EMAResponseTimeSeconds, 1e-9)
	assert.InDelta(t, 0.0, perf.EMAHintsUsed, 1e-9)
	assert.Equal(t, "2026-10-17", perf.LastSessionDate)
	assert.Equal(t, int64(1), perf.Version)

	n, err := env.results.Count(ctx, user.ID, repository.HistoryFilter{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSubmitPromotesAfterFastCorrectAnswers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "ravi")

	req := SubmitResultRequest{Subject: "algebra", Correct: true, ResponseTimeMs: 5000}
	_, err := env.submission.Submit(ctx, user.ID, req)
	require.NoError(t, err)

	// 0.2 + 0.8*0.76 = 0.808 > 0.8，响应 8.2s
	resp, err := env.submission.Submit(ctx, user.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.NextDifficulty)
	assert.Equal(t, 20, resp.Tokens)
	assert.Equal(t, 1, resp.StreakDays)

	perf, err := env.perf.FindByUserAndSubject(ctx, user.ID, "algebra")
	require.NoError(t, err)
	assert.Equal(t, int64(2), perf.Version)
}

func TestSubmitDemotesOnHeavyHintUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "meera")

	// 0.2*6 = 1.2 > 1
	resp, err := env.submission.Submit(ctx, user.ID, SubmitResultRequest{
		Subject:        "volume",
		Correct:        true,
		ResponseTimeMs: 4000,
		HintsUsed:      6,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.NextDifficulty)
}

func TestSubmitSkippedOrWrongEarnsNoTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "kabir")

	resp, err := env.submission.Submit(ctx, user.ID, SubmitResultRequest{Subject: "fractions", Correct: true, Skipped: true})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Tokens)

	resp, err = env.submission.Submit(ctx, user.ID, SubmitResultRequest{Subject: "fractions", Correct: false})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Tokens)
	assert.InDelta(t, 0.2*0.0+0.8*(0.2*1+0.8*0.7), resp.Accuracy, 1e-9)
}

func TestSubmitStreakAcrossDays(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "isha")
	req := SubmitResultRequest{Subject: "probability", Correct: true, ResponseTimeMs: 3000}

	days := []struct {
		at     time.Time
		streak int
	}{
		{testNow, 1},
		{testNow.Add(2 * time.Hour), 1},
		{testNow.AddDate(0, 0, 1), 2},
		{testNow.AddDate(0, 0, 2), 3},
		{testNow.AddDate(0, 0, 5), 1},
	}
	for _, d := range days {
		at := d.at
		env.submission.now = func() time.Time { return at }
		resp, err := env.submission.Submit(ctx, user.ID, req)
		require.NoError(t, err)
		assert.Equal(t, d.streak, resp.StreakDays, "at %s", at)
	}
}

func TestSubmitRejectsUnknownSubject(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "dev")

	_, err := env.submission.Submit(context.Background(), user.ID, SubmitResultRequest{Subject: "chemistry", Correct: true})
	assert.ErrorIs(t, err, util.ErrInvalidSubject)

	var count int64
	require.NoError(t, env.db.Table("session_results").Count(&count).Error)
	assert.Zero(t, count)
}

func TestSubmitConcurrentUpdatesAreNotLost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "zoya")

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.submission.Submit(ctx, user.ID, SubmitResultRequest{Subject: "algebra", Correct: true, ResponseTimeMs: 2000})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, util.ErrConcurrentUpdate)
	}

	perf, err := env.perf.FindByUserAndSubject(ctx, user.ID, "algebra")
	require.NoError(t, err)
	assert.Equal(t, succeeded*10, perf.Tokens)
	assert.Equal(t, int64(succeeded), perf.Version)

	var results int64
	require.NoError(t, env.db.Table("session_results").Where("user_id = ?", user.ID).Count(&results).Error)
	assert.Equal(t, int64(succeeded), results)
}

func TestSubmitRetriesAfterVersionConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "leela")

	_, err := env.submission.Submit(ctx, user.ID, SubmitResultRequest{SessionID: "s1", Subject: "algebra", Correct: true})
	require.NoError(t, err)

	fired := bumpPerformanceVersion(t, env.db, 1)
	resp, err := env.submission.Submit(ctx, user.ID, SubmitResultRequest{SessionID: "s1", Subject: "algebra", Correct: true})
	require.NoError(t, err)
	assert.Equal(t, int32(1), fired.Load())
	assert.Equal(t, 20, resp.Tokens)

	// 冲突那次的事务已回滚，只留下两条作答记录
	count, err := env.results.Count(ctx, user.ID, repository.HistoryFilter{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSubmitGivesUpAfterMaxRetries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "omar")

	_, err := env.submission.Submit(ctx, user.ID, SubmitResultRequest{SessionID: "s1", Subject: "volume", Correct: true})
	require.NoError(t, err)

	retries := env.submission.Params().MaxUpdateRetries
	fired := bumpPerformanceVersion(t, env.db, 100)
	_, err = env.submission.Submit(ctx, user.ID, SubmitResultRequest{SessionID: "s1", Subject: "volume", Correct: true})
	assert.ErrorIs(t, err, util.ErrConcurrentUpdate)
	assert.Equal(t, int32(retries), fired.Load())

	perf, err := env.perf.FindByUserAndSubject(ctx, user.ID, "volume")
	require.NoError(t, err)
	assert.Equal(t, 10, perf.Tokens)
	assert.Equal(t, int64(1), perf.Version)

	count, err := env.results.Count(ctx, user.ID, repository.HistoryFilter{SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSetParamsAppliesToLaterSubmissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "neel")

	p := adaptive.DefaultParams()
	p.CorrectTokens = 25
	p.DefaultDifficulty = 4
	env.submission.SetParams(p)

	resp, err := env.submission.Submit(ctx, user.ID, SubmitResultRequest{Subject: "algebra", Correct: true, ResponseTimeMs: 5000})
	require.NoError(t, err)
	assert.Equal(t, 25, resp.Tokens)
	assert.Equal(t, 4, resp.NextDifficulty)
}

func TestHistoryNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.createUser(t, "tara")

	for _, task := range []string{"t1", "t2", "t3"} {
		_, err := env.submission.Submit(ctx, user.ID, SubmitResultRequest{SessionID: "s1", TaskID: task, Subject: "algebra", Correct: true})
		require.NoError(t, err)
	}
	_, err := env.submission.Submit(ctx, user.ID, SubmitResultRequest{SessionID: "s2", TaskID: "v1", Subject: "volume"})
	require.NoError(t, err)

	history, err := env.submission.History(ctx, user.ID, "algebra", "", 0)
	require.NoError(t, err)
	require.Len(t, history.Results, 3)
	assert.Equal(t, int64(3), history.Total)
	assert.Equal(t, "t3", history.Results[0].TaskID)
	assert.Equal(t, "t1", history.Results[2].TaskID)

	all, err := env.submission.History(ctx, user.ID, "", "", 2)
	require.NoError(t, err)
	assert.Len(t, all.Results, 2)
	assert.Equal(t, int64(4), all.Total)

	session, err := env.submission.History(ctx, user.ID, "", "s2", 0)
	require.NoError(t, err)
	require.Len(t, session.Results, 1)
	assert.Equal(t, "v1", session.Results[0].TaskID)
	assert.Equal(t, int64(1), session.Total)

	_, err = env.submission.History(ctx, user.ID, "poetry", "", 10)
	assert.ErrorIs(t, err, util.ErrInvalidSubject)
}
