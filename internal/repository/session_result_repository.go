package repository

import (
	"context"
	"focusmath_backend/internal/model"

	"gorm.io/gorm"
)

// SessionResultRepository 作答记录只允许追加和查询
type SessionResultRepository struct {
	DB *gorm.DB
}

func NewSessionResultRepository(db *gorm.DB) *SessionResultRepository {
	return &SessionResultRepository{DB: db}
}

func (r *SessionResultRepository) WithTx(tx *gorm.DB) *SessionResultRepository {
	return &SessionResultRepository{DB: tx}
}

func (r *SessionResultRepository) Create(ctx context.Context, result *model.SessionResult) error {
	return r.DB.WithContext(ctx).Create(result).Error
}

// HistoryFilter 作答记录查询条件，空字段不过滤
type HistoryFilter struct {
	Subject   string
	SessionID string
}

func (f HistoryFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Subject != "" {
		q = q.Where("subject = ?", f.Subject)
	}
	if f.SessionID != "" {
		q = q.Where("session_id = ?", f.SessionID)
	}
	return q
}

func (r *SessionResultRepository) ListByUser(ctx context.Context, userID uint, filter HistoryFilter, limit int) ([]model.SessionResult, error) {
	var results []model.SessionResult
	q := filter.apply(r.DB.WithContext(ctx).Where("user_id = ?", userID))
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Order("created_at DESC, id DESC").Find(&results).Error
	return results, err
}

// Count 符合条件的作答总数，不受分页限制
func (r *SessionResultRepository) Count(ctx context.Context, userID uint, filter HistoryFilter) (int64, error) {
	var count int64
	err := filter.apply(r.DB.WithContext(ctx).Model(&model.SessionResult{}).Where("user_id = ?", userID)).
		Count(&count).Error
	return count, err
}
