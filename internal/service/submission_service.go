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
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SubmitResultRequest struct {
	SessionID      string `json:"sessionId" binding:"max=64"`
	TaskID         string `json:"taskId" binding:"max=64"`
	Subject        string `json:"subject" binding:"required"`
	Topic          string `json:"topic" binding:"max=100"`
	Difficulty     int    `json:"difficulty" binding:"min=0,max=10"`
	Correct        bool   `json:"correct"`
	ResponseTimeMs int64  `json:"responseTimeMs" binding:"min=0"`
	HintsUsed      int    `json:"hintsUsed" binding:"min=0"`
	Skipped        bool   `json:"skipped"`
}

type SubmitResultResponse struct {
	Success        bool    `json:"success"`
	NextDifficulty int     `json:"nextDifficulty"`
	Tokens         int     `json:"tokens"`
	StreakDays     int     `json:"streakDays"`
	Accuracy       float64 `json:"accuracy"`
}

// SubmissionService 记录作答并更新 (用户, 学科) 的自适应统计
type SubmissionService struct {
	DB         *gorm.DB
	PerfRepo   *repository.PerformanceRepository
	ResultRepo *repository.SessionResultRepository
	Stats      *StatsService

	mu     sync.RWMutex
	params adaptive.Params
	now    func() time.Time
}

func NewSubmissionService(
	db *gorm.DB,
	perfRepo *repository.PerformanceRepository,
	resultRepo *repository.SessionResultRepository,
	stats *StatsService,
	params adaptive.Params,
) *SubmissionService {
	return &SubmissionService{
		DB:         db,
		PerfRepo:   perfRepo,
		ResultRepo: resultRepo,
		Stats:      stats,
		params:     params.Normalize(),
		now:        time.Now,
	}
}

func (s *SubmissionService) Params() adaptive.Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// SetParams 配置热更新时替换阈值，对之后的提交生效
func (s *SubmissionService) SetParams(p adaptive.Params) {
	s.mu.Lock()
	s.params = p.Normalize()
	s.mu.Unlock()
}

// Submit 在一个事务中写入作答记录并用版本号更新统计，版本冲突时整体重试
func (s *SubmissionService) Submit(ctx context.Context, userID uint, req SubmitResultRequest) (*SubmitResultResponse, error) {
	subject, err := normalizeSubject(req.Subject)
	if err != nil {
		return nil, err
	}

	ctx, span := tracing.Tracer.Start(ctx, "SubmissionService.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.String("subject", subject),
	)

	params := s.Params()
	now := s.now()

	var (
		perf           *model.UserPerformance
		prevDifficulty int
	)
	for attempt := 1; ; attempt++ {
		perf, prevDifficulty, err = s.submitOnce(ctx, userID, subject, req, params, now)
		if !errors.Is(err, repository.ErrVersionConflict) {
			break
		}
		monitoring.VersionConflictCounter.Inc()
		logger.Log.Warn("performance version conflict",
			zap.Uint("userId", userID),
			zap.String("subject", subject),
			zap.Int("attempt", attempt),
		)
		if attempt >= params.MaxUpdateRetries {
			return nil, util.ErrConcurrentUpdate
		}
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	monitoring.SubmissionCounter.WithLabelValues(subject, strconv.FormatBool(req.Correct)).Inc()
	monitoring.RecordDifficultyChange(prevDifficulty, perf.DifficultyLevel)
	if perf.DifficultyLevel != prevDifficulty {
		logger.Log.Info("difficulty changed",
			zap.Uint("userId", userID),
			zap.String("subject", subject),
			zap.Int("from", prevDifficulty),
			zap.Int("to", perf.DifficultyLevel),
			zap.Float64("accuracy", perf.EMAAccuracy),
		)
	}

	if s.Stats != nil {
		s.Stats.RefreshLeaderboard(ctx, userID)
	}

	return &SubmitResultResponse{
		Success:        true,
		NextDifficulty: perf.DifficultyLevel,
		Tokens:         perf.Tokens,
		StreakDays:     perf.StreakDays,
		Accuracy:       perf.EMAAccuracy,
	}, nil
}

func (s *SubmissionService) submitOnce(
	ctx context.Context,
	userID uint,
	subject string,
	req SubmitResultRequest,
	params adaptive.Params,
	now time.Time,
) (*model.UserPerformance, int, error) {
	var (
		perf           *model.UserPerformance
		prevDifficulty int
	)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := &model.SessionResult{
			UserID:         userID,
			SessionID:      req.SessionID,
			TaskID:         req.TaskID,
			Subject:        subject,
			Topic:          strings.TrimSpace(req.Topic),
			Difficulty:     req.Difficulty,
			Correct:        req.Correct,
			ResponseTimeMs: req.ResponseTimeMs,
			HintsUsed:      req.HintsUsed,
			Skipped:        req.Skipped,
		}
		if err := s.ResultRepo.WithTx(tx).Create(ctx, result); err != nil {
			return err
		}

		perfRepo := s.PerfRepo.WithTx(tx)
		existing, err := perfRepo.FindByUserAndSubject(ctx, userID, subject)
		isNew := false
		if errors.Is(err, gorm.ErrRecordNotFound) {
			isNew = true
			existing = &model.UserPerformance{UserID: userID, Subject: subject}
			fromRecord(existing, params.NewRecord())
		} else if err != nil {
			return err
		}

		prevDifficulty = existing.DifficultyLevel
		next := adaptive.Apply(params, toRecord(existing), adaptive.Event{
			Correct:        req.Correct,
			ResponseTimeMs: req.ResponseTimeMs,
			HintsUsed:      req.HintsUsed,
			Skipped:        req.Skipped,
		}, now)
		fromRecord(existing, next)

		if isNew {
			if err := perfRepo.Insert(ctx, existing); err != nil {
				return err
			}
		} else if err := perfRepo.CompareAndSwap(ctx, existing); err != nil {
			return err
		}

		perf = existing
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return perf, prevDifficulty, nil
}

type HistoryResponse struct {
	Results []model.SessionResult `json:"results"`
	Total   int64                 `json:"total"`
}

// History 按时间倒序返回作答记录，Total 为不受 limit 影响的总数
func (s *SubmissionService) History(ctx context.Context, userID uint, subject, sessionID string, limit int) (*HistoryResponse, error) {
	filter := repository.HistoryFilter{SessionID: strings.TrimSpace(sessionID)}
	if subject != "" {
		normalized, err := normalizeSubject(subject)
		if err != nil {
			return nil, err
		}
		filter.Subject = normalized
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	results, err := s.ResultRepo.ListByUser(ctx, userID, filter, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.ResultRepo.Count(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return &HistoryResponse{Results: results, Total: total}, nil
}

func toRecord(p *model.UserPerformance) adaptive.Record {
	return adaptive.Record{
		EMAAccuracy:            p.EMAAccuracy,
		EMAResponseTimeSeconds: p.EMAResponseTimeSeconds,
		EMAHintsUsed:           p.EMAHintsUsed,
		DifficultyLevel:        p.DifficultyLevel,
		StreakDays:             p.StreakDays,
		LastSessionDate:        p.LastSessionDate,
		Tokens:                 p.Tokens,
	}
}

func fromRecord(p *model.UserPerformance, r adaptive.Record) {
	p.EMAAccuracy = r.EMAAccuracy
	p.EMAResponseTimeSeconds = r.EMAResponseTimeSeconds
	p.EMAHintsUsed = r.EMAHintsUsed
	p.DifficultyLevel = r.DifficultyLevel
	p.StreakDays = r.StreakDays
	p.LastSessionDate = r.LastSessionDate
	p.Tokens = r.Tokens
}
