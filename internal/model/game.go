package model

import "time"

// Game 一个小游戏/关卡，同一 Chapter 的游戏构成一个章节
// swagger:model Game
type Game struct {
	BaseModel
	Code    string `gorm:"size:64;uniqueIndex;not null" json:"code"`
	Title   string `gorm:"size:200;not null" json:"title"`
	Chapter string `gorm:"size:64;index;not null" json:"chapter"`
	Subject string `gorm:"size:50;not null" json:"subject"`
	Order   int    `gorm:"column:sort_order;default:0" json:"order"`
	Enabled bool   `gorm:"default:true" json:"enabled"`
}

func (Game) TableName() string {
	return "games"
}

// GameProgress 用户在某游戏某难度下的最佳成绩
// swagger:model GameProgress
type GameProgress struct {
	BaseModel
	UserID             uint       `gorm:"not null;uniqueIndex:idx_progress_user_game_diff" json:"userId"`
	GameID             uint       `gorm:"not null;uniqueIndex:idx_progress_user_game_diff" json:"gameId"`
	Difficulty         int        `gorm:"not null;uniqueIndex:idx_progress_user_game_diff" json:"difficulty"`
	BestStars          int        `gorm:"default:0" json:"bestStars"`
	BestAccuracy       float64    `gorm:"default:0" json:"bestAccuracy"`
	QuestionsCompleted int        `gorm:"default:0" json:"questionsCompleted"`
	HintsUsed          int        `gorm:"default:0" json:"hintsUsed"`
	Attempts           int        `gorm:"default:0" json:"attempts"`
	Completed          bool       `gorm:"default:false" json:"completed"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
}

func (GameProgress) TableName() string {
	return "game_progress"
}
