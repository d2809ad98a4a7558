package model

import "time"

// UserPerformance 每个 (用户, 学科) 一行的滚动统计，按提交原地更新
// swagger:model UserPerformance
type UserPerformance struct {
	ID                     uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID                 uint      `gorm:"not null;uniqueIndex:idx_perf_user_subject" json:"userId"`
	Subject                string    `gorm:"size:50;not null;uniqueIndex:idx_perf_user_subject" json:"subject"`
	EMAAccuracy            float64   `gorm:"not null" json:"emaAccuracy"`
	EMAResponseTimeSeconds float64   `gorm:"not null" json:"emaResponseTimeSeconds"`
	EMAHintsUsed           float64   `gorm:"not null" json:"emaHintsUsed"`
	DifficultyLevel        int       `gorm:"not null" json:"difficultyLevel"`
	StreakDays             int       `gorm:"not null;default:0" json:"streakDays"`
	LastSessionDate        string    `gorm:"size:10" json:"lastSessionDate"` // YYYY-MM-DD (UTC)
	Tokens                 int       `gorm:"not null;default:0" json:"tokens"`
	Version                int64     `gorm:"not null;default:0" json:"-"` // 乐观锁版本号
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

func (UserPerformance) TableName() string {
	return "user_performance"
}
