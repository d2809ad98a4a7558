package model

import "time"

// Reward 奖励记录，发放后不撤销；IdempotencyKey 保证同一奖励最多发放一次
// swagger:model Reward
type Reward struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"userId"`
	Type           string    `gorm:"size:32;not null" json:"type"`
	GameID         uint      `json:"gameId"`
	Chapter        string    `gorm:"size:64" json:"chapter"`
	Difficulty     int       `json:"difficulty"`
	Tokens         int       `gorm:"default:0" json:"tokens"`
	IdempotencyKey string    `gorm:"size:64;uniqueIndex;not null" json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (Reward) TableName() string {
	return "rewards"
}
