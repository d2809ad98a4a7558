package repository

import (
	"context"
	"focusmath_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) CreateBatch(ctx context.Context, questions []model.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Create(&questions).Error
}

func (r *QuestionRepository) FindBySubjectAndDifficulty(ctx context.Context, subject string, difficulty, limit int) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.WithContext(ctx).
		Where("subject = ? AND difficulty = ?", subject, difficulty).
		Order("id DESC").
		Limit(limit).
		Find(&questions).Error
	return questions, err
}
