package repository

import (
	"context"
	"focusmath_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RewardRepository struct {
	DB *gorm.DB
}

func NewRewardRepository(db *gorm.DB) *RewardRepository {
	return &RewardRepository{DB: db}
}

func (r *RewardRepository) WithTx(tx *gorm.DB) *RewardRepository {
	return &RewardRepository{DB: tx}
}

// CreateIfAbsent 按幂等键插入，已存在时返回 false
func (r *RewardRepository) CreateIfAbsent(ctx context.Context, reward *model.Reward) (bool, error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "idempotency_key"}},
			DoNothing: true,
		}).
		Create(reward)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *RewardRepository) ListByUser(ctx context.Context, userID uint) ([]model.Reward, error) {
	var rewards []model.Reward
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&rewards).Error
	return rewards, err
}

func (r *RewardRepository) SumTokens(ctx context.Context, userID uint) (int, error) {
	var total int
	err := r.DB.WithContext(ctx).
		Model(&model.Reward{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(tokens), 0)").
		Scan(&total).Error
	return total, err
}

func (r *RewardRepository) TokensByUser(ctx context.Context) (map[uint]int, error) {
	var rows []struct {
		UserID uint
		Total  int
	}
	err := r.DB.WithContext(ctx).
		Model(&model.Reward{}).
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
