package repository

import (
	"context"
	"errors"
	"focusmath_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrVersionConflict 记录已被其他请求修改（或并发创建）
var ErrVersionConflict = errors.New("performance version conflict")

type PerformanceRepository struct {
	DB *gorm.DB
}

func NewPerformanceRepository(db *gorm.DB) *PerformanceRepository {
	return &PerformanceRepository{DB: db}
}

func (r *PerformanceRepository) WithTx(tx *gorm.DB) *PerformanceRepository {
	return &PerformanceRepository{DB: tx}
}

func (r *PerformanceRepository) FindByUserAndSubject(ctx context.Context, userID uint, subject string) (*model.UserPerformance, error) {
	var perf model.UserPerformance
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND subject = ?", userID, subject).
		First(&perf).Error
	if err != nil {
		return nil, err
	}
	return &perf, nil
}

func (r *PerformanceRepository) FindByUser(ctx context.Context, userID uint) ([]model.UserPerformance, error) {
	var records []model.UserPerformance
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("subject ASC").
		Find(&records).Error
	return records, err
}

// Insert 首次创建记录，唯一索引冲突时返回 ErrVersionConflict
func (r *PerformanceRepository) Insert(ctx context.Context, perf *model.UserPerformance) error {
	perf.Version = 1
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "subject"}},
			DoNothing: true,
		}).
		Create(perf)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// CompareAndSwap 仅当数据库中的版本仍为 perf.Version 时写入，成功后版本号加一
func (r *PerformanceRepository) CompareAndSwap(ctx context.Context, perf *model.UserPerformance) error {
	expected := perf.Version
	res := r.DB.WithContext(ctx).
		Model(&model.UserPerformance{}).
		Where("id = ? AND version = ?", perf.ID, expected).
		Updates(map[string]interface{}{
			"ema_accuracy":              perf.EMAAccuracy,
			"ema_response_time_seconds": perf.EMAResponseTimeSeconds,
			"ema_hints_used":            perf.EMAHintsUsed,
			"difficulty_level":          perf.DifficultyLevel,
			"streak_days":               perf.StreakDays,
			"last_session_date":         perf.LastSessionDate,
			"tokens":                    perf.Tokens,
			"version":                   expected + 1,
			"updated_at":                time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	perf.Version = expected + 1
	return nil
}

func (r *PerformanceRepository) SumTokens(ctx context.Context, userID uint) (int, error) {
	var total int
	err := r.DB.WithContext(ctx).
		Model(&model.UserPerformance{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(tokens), 0)").
		Scan(&total).Error
	return total, err
}

// TokensByUser 按用户汇总代币，用于无 Redis 时的排行榜
func (r *PerformanceRepository) TokensByUser(ctx context.Context) (map[uint]int, error) {
	var rows []struct {
		UserID uint
		Total  int
	}
	err := r.DB.WithContext(ctx).
		Model(&model.UserPerformance{}).
		Select("user_id, COALESCE(SUM(tokens), 0) AS total").
		Group("user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	totals := make(map[uint]int, len(rows))
	for _, row := range rows {
		totals[row.UserID] = row.Total
	}
	return totals, nil
}
