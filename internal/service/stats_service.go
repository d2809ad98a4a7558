package service

import (
	"context"
	"errors"
	"focusmath_backend/internal/adaptive"
	"focusmath_backend/internal/model"
	"focusmath_backend/internal/repository"
	"focusmath_backend/internal/util"
	"focusmath_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type StatsService struct {
	PerfRepo     *repository.PerformanceRepository
	RewardRepo   *repository.RewardRepository
	ProgressRepo *repository.GameProgressRepository
	UserRepo     *repository.UserRepository
	Leaderboard  repository.Leaderboard
	now          func() time.Time
}

func NewStatsService(
	perfRepo *repository.PerformanceRepository,
	rewardRepo *repository.RewardRepository,
	progressRepo *repository.GameProgressRepository,
	userRepo *repository.UserRepository,
	leaderboard repository.Leaderboard,
) *StatsService {
	return &StatsService{
		PerfRepo:     perfRepo,
		RewardRepo:   rewardRepo,
		ProgressRepo: progressRepo,
		UserRepo:     userRepo,
		Leaderboard:  leaderboard,
		now:          time.Now,
	}
}

type SubjectStats struct {
	Subject         string  `json:"subject"`
	Accuracy        float64 `json:"accuracy"`
	ResponseSeconds float64 `json:"responseTimeSeconds"`
	HintsUsed       float64 `json:"hintsUsed"`
	Difficulty      int     `json:"difficulty"`
	StreakDays      int     `json:"streakDays"`
	StreakActive    bool    `json:"streakActive"`
	LastSessionDate string  `json:"lastSessionDate"`
	Tokens          int     `json:"tokens"`
}

type UserStats struct {
	Subjects     []SubjectStats       `json:"subjects"`
	RewardTokens int                  `json:"rewardTokens"`
	TotalTokens  int                  `json:"totalTokens"`
	BestStreak   int                  `json:"bestStreak"`
	Progress     []model.GameProgress `json:"progress"`
}

func (s *StatsService) toSubjectStats(p model.UserPerformance) SubjectStats {
	return SubjectStats{
		Subject:         p.Subject,
		Accuracy:        p.EMAAccuracy,
		ResponseSeconds: p.EMAResponseTimeSeconds,
		HintsUsed:       p.EMAHintsUsed,
		Difficulty:      p.DifficultyLevel,
		StreakDays:      p.StreakDays,
		StreakActive:    adaptive.StreakAlive(p.LastSessionDate, s.now()),
		LastSessionDate: p.LastSessionDate,
		Tokens:          p.Tokens,
	}
}

func (s *StatsService) GetUserStats(ctx context.Context, userID uint) (*UserStats, error) {
	records, err := s.PerfRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	rewardTokens, err := s.RewardRepo.SumTokens(ctx, userID)
	if err != nil {
		return nil, err
	}
	progress, err := s.ProgressRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &UserStats{
		Subjects:     make([]SubjectStats, 0, len(records)),
		RewardTokens: rewardTokens,
		TotalTokens:  rewardTokens,
		Progress:     progress,
	}
	for _, r := range records {
		ss := s.toSubjectStats(r)
		stats.Subjects = append(stats.Subjects, ss)
		stats.TotalTokens += r.Tokens
		if ss.StreakActive && ss.StreakDays > stats.BestStreak {
			stats.BestStreak = ss.StreakDays
		}
	}
	return stats, nil
}

func (s *StatsService) GetSubjectStats(ctx context.Context, userID uint, subjectIn string) (*SubjectStats, error) {
	subject, err := normalizeSubject(subjectIn)
	if err != nil {
		return nil, err
	}
	perf, err := s.PerfRepo.FindByUserAndSubject(ctx, userID, subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrPerformanceNotFound
		}
		return nil, err
	}
	ss := s.toSubjectStats(*perf)
	return &ss, nil
}

// TokenBalance 各学科答题代币与奖励代币之和
func (s *StatsService) TokenBalance(ctx context.Context, userID uint) (int, error) {
	perfTokens, err := s.PerfRepo.SumTokens(ctx, userID)
	if err != nil {
		return 0, err
	}
	rewardTokens, err := s.RewardRepo.SumTokens(ctx, userID)
	if err != nil {
		return 0, err
	}
	return perfTokens + rewardTokens, nil
}

// RefreshLeaderboard 在提交成功后调用，失败只记录日志
func (s *StatsService) RefreshLeaderboard(ctx context.Context, userID uint) {
	if s.Leaderboard == nil {
		return
	}
	balance, err := s.TokenBalance(ctx, userID)
	if err == nil {
		err = s.Leaderboard.SetTokens(ctx, userID, balance)
	}
	if err != nil {
		logger.Log.Warn("leaderboard refresh failed", zap.Uint("userId", userID), zap.Error(err))
	}
}

func (s *StatsService) TopUsers(ctx context.Context, limit int) ([]repository.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	entries, err := s.Leaderboard.Top(ctx, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}
	names, err := s.UserRepo.FindNames(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Name = names[entries[i].UserID]
	}
	return entries, nil
}

func (s *StatsService) ListRewards(ctx context.Context, userID uint) ([]model.Reward, error) {
	return s.RewardRepo.ListByUser(ctx, userID)
}
