package service

import (
	"context"
	"errors"
	"focusmath_backend/internal/adaptive"
	"focusmath_backend/internal/model"
	"focusmath_backend/internal/repository"
	"focusmath_backend/internal/util"
	"focusmath_backend/pkg/logger"
	"focusmath_backend/pkg/monitoring"
	"focusmath_backend/pkg/tracing"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type GameProgressRequest struct {
	GameID             uint    `json:"gameId" binding:"required"`
	Difficulty         int     `json:"difficulty" binding:"required,min=1,max=5"`
	StarsEarned        int     `json:"starsEarned" binding:"min=0,max=3"`
	Accuracy           float64 `json:"accuracy" binding:"min=0,max=1"`
	QuestionsCompleted int     `json:"questionsCompleted" binding:"min=0"`
	HintsUsed          int     `json:"hintsUsed" binding:"min=0"`
	Completed          bool    `json:"completed"`
	// 可选，客户端生成的单次尝试 ID，用于满分奖励按尝试去重
	AttemptID string `json:"attemptId" binding:"max=64"`
}

type RewardEarned struct {
	Type    string `json:"type"`
	Tokens  int    `json:"tokens"`
	Chapter string `json:"chapter,omitempty"`
}

type GameProgressResponse struct {
	Success       bool                `json:"success"`
	Progress      *model.GameProgress `json:"progress"`
	RewardsEarned []RewardEarned      `json:"rewardsEarned"`
}

// ProgressService 更新关卡进度并按规则发放奖励
type ProgressService struct {
	DB           *gorm.DB
	GameRepo     *repository.GameRepository
	ProgressRepo *repository.GameProgressRepository
	RewardRepo   *repository.RewardRepository
	Stats        *StatsService

	mu     sync.RWMutex
	values adaptive.RewardValues
	now    func() time.Time
}

func NewProgressService(
	db *gorm.DB,
	gameRepo *repository.GameRepository,
	progressRepo *repository.GameProgressRepository,
	rewardRepo *repository.RewardRepository,
	stats *StatsService,
	values adaptive.RewardValues,
) *ProgressService {
	return &ProgressService{
		DB:           db,
		GameRepo:     gameRepo,
		ProgressRepo: progressRepo,
		RewardRepo:   rewardRepo,
		Stats:        stats,
		values:       values,
		now:          time.Now,
	}
}

func (s *ProgressService) SetRewardValues(v adaptive.RewardValues) {
	s.mu.Lock()
	s.values = v
	s.mu.Unlock()
}

func (s *ProgressService) rewardValues() adaptive.RewardValues {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values
}

func (s *ProgressService) UpdateGameProgress(ctx context.Context, userID uint, req GameProgressRequest) (*GameProgressResponse, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ProgressService.UpdateGameProgress")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("game.id", int64(req.GameID)),
		attribute.Int("difficulty", req.Difficulty),
	)

	values := s.rewardValues()
	now := s.now()

	var (
		progress *model.GameProgress
		earned   []RewardEarned
	)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		games := s.GameRepo.WithTx(tx)
		progressRepo := s.ProgressRepo.WithTx(tx)
		rewards := s.RewardRepo.WithTx(tx)

		game, err := games.FindByID(ctx, req.GameID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.ErrGameNotFound
			}
			return err
		}

		current, err := progressRepo.FindForUpdate(ctx, userID, game.ID, req.Difficulty)
		var prior *adaptive.PriorProgress
		switch {
		case err == nil:
			prior = &adaptive.PriorProgress{Completed: current.Completed, BestStars: current.BestStars}
		case errors.Is(err, gorm.ErrRecordNotFound):
			current = &model.GameProgress{UserID: userID, GameID: game.ID, Difficulty: req.Difficulty}
		default:
			return err
		}

		mergeAttempt(current, req, now)
		if err := progressRepo.Save(ctx, current); err != nil {
			return err
		}

		chapterGames, err := games.ChapterGameIDs(ctx, game.Chapter)
		if err != nil {
			return err
		}
		completedGames, err := progressRepo.CompletedGameIDs(ctx, userID, chapterGames)
		if err != nil {
			return err
		}

		types := adaptive.EvaluateRewards(adaptive.RewardInput{
			Completed:      req.Completed,
			Accuracy:       req.Accuracy,
			Stars:          req.StarsEarned,
			Previous:       prior,
			ChapterGames:   chapterGames,
			CompletedGames: completedGames,
		})

		attempt := adaptive.AttemptKey(req.AttemptID, current.Attempts)
		for _, t := range types {
			reward := &model.Reward{
				UserID:         userID,
				Type:           string(t),
				GameID:         game.ID,
				Chapter:        game.Chapter,
				Difficulty:     req.Difficulty,
				Tokens:         values.Tokens(t),
				IdempotencyKey: adaptive.RewardKey(userID, t, game.ID, req.Difficulty, game.Chapter, attempt),
			}
			created, err := rewards.CreateIfAbsent(ctx, reward)
			if err != nil {
				return err
			}
			if !created {
				continue
			}
			re := RewardEarned{Type: reward.Type, Tokens: reward.Tokens}
			if t == adaptive.RewardChapterCompletion {
				re.Chapter = game.Chapter
			}
			earned = append(earned, re)
		}

		progress = current
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	for _, r := range earned {
		monitoring.RewardCounter.WithLabelValues(r.Type).Inc()
		logger.Log.Info("reward emitted",
			zap.Uint("userId", userID),
			zap.Uint("gameId", req.GameID),
			zap.String("type", r.Type),
			zap.Int("tokens", r.Tokens),
		)
	}
	if len(earned) > 0 && s.Stats != nil {
		s.Stats.RefreshLeaderboard(ctx, userID)
	}

	if earned == nil {
		earned = []RewardEarned{}
	}
	return &GameProgressResponse{
		Success:       true,
		Progress:      progress,
		RewardsEarned: earned,
	}, nil
}

// mergeAttempt 保留最佳星级与正确率，累加题数和提示次数
func mergeAttempt(p *model.GameProgress, req GameProgressRequest, now time.Time) {
	p.Attempts++
	if req.StarsEarned > p.BestStars {
		p.BestStars = req.StarsEarned
	}
	if req.Accuracy > p.BestAccuracy {
		p.BestAccuracy = req.Accuracy
	}
	p.QuestionsCompleted += req.QuestionsCompleted
	p.HintsUsed += req.HintsUsed
	if req.Completed && !p.Completed {
		p.Completed = true
		t := now
		p.CompletedAt = &t
	}
}

func (s *ProgressService) ListGames(ctx context.Context) ([]model.Game, error) {
	return s.GameRepo.List(ctx)
}
