package repository

import (
	"context"
	"focusmath_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GameRepository struct {
	DB *gorm.DB
}

func NewGameRepository(db *gorm.DB) *GameRepository {
	return &GameRepository{DB: db}
}

func (r *GameRepository) WithTx(tx *gorm.DB) *GameRepository {
	return &GameRepository{DB: tx}
}

func (r *GameRepository) FindByID(ctx context.Context, id uint) (*model.Game, error) {
	var game model.Game
	if err := r.DB.WithContext(ctx).First(&game, id).Error; err != nil {
		return nil, err
	}
	return &game, nil
}

func (r *GameRepository) List(ctx context.Context) ([]model.Game, error) {
	var games []model.Game
	err := r.DB.WithContext(ctx).
		Where("enabled = ?", true).
		Order("chapter ASC, sort_order ASC").
		Find(&games).Error
	return games, err
}

// ChapterGameIDs 章节内所有启用的游戏
func (r *GameRepository) ChapterGameIDs(ctx context.Context, chapter string) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).
		Model(&model.Game{}).
		Where("chapter = ? AND enabled = ?", chapter, true).
		Pluck("id", &ids).Error
	return ids, err
}

type GameProgressRepository struct {
	DB *gorm.DB
}

func NewGameProgressRepository(db *gorm.DB) *GameProgressRepository {
	return &GameProgressRepository{DB: db}
}

func (r *GameProgressRepository) WithTx(tx *gorm.DB) *GameProgressRepository {
	return &GameProgressRepository{DB: tx}
}

// FindForUpdate 查询 (用户, 游戏, 难度) 的进度，事务内对支持的数据库加行锁
func (r *GameProgressRepository) FindForUpdate(ctx context.Context, userID, gameID uint, difficulty int) (*model.GameProgress, error) {
	var progress model.GameProgress
	q := r.DB.WithContext(ctx)
	if q.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.Where("user_id = ? AND game_id = ? AND difficulty = ?", userID, gameID, difficulty).
		First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *GameProgressRepository) Save(ctx context.Context, progress *model.GameProgress) error {
	return r.DB.WithContext(ctx).Save(progress).Error
}

// CompletedGameIDs 返回 gameIDs 中用户至少完成过一个难度的游戏
func (r *GameProgressRepository) CompletedGameIDs(ctx context.Context, userID uint, gameIDs []uint) (map[uint]bool, error) {
	done := make(map[uint]bool)
	if len(gameIDs) == 0 {
		return done, nil
	}
	var ids []uint
	err := r.DB.WithContext(ctx).
		Model(&model.GameProgress{}).
		Where("user_id = ? AND completed = ? AND game_id IN ?", userID, true, gameIDs).
		Distinct().
		Pluck("game_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		done[id] = true
	}
	return done, nil
}

func (r *GameProgressRepository) ListByUser(ctx context.Context, userID uint) ([]model.GameProgress, error) {
	var list []model.GameProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("game_id ASC, difficulty ASC").
		Find(&list).Error
	return list, err
}
