package model

import "time"

// SessionResult 单题作答记录，只追加不修改
// swagger:model SessionResult
type SessionResult struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID         uint      `gorm:"not null;index:idx_result_user_subject" json:"userId"`
	SessionID      string    `gorm:"size:64;index" json:"sessionId"`
	TaskID         string    `gorm:"size:64" json:"taskId"`
	Subject        string    `gorm:"size:50;not null;index:idx_result_user_subject" json:"subject"`
	Topic          string    `gorm:"size:100" json:"topic"`
	Difficulty     int       `json:"difficulty"`
	Correct        bool      `json:"correct"`
	ResponseTimeMs int64     `json:"responseTimeMs"`
	HintsUsed      int       `json:"hintsUsed"`
	Skipped        bool      `json:"skipped"`
	CreatedAt      time.Time `gorm:"index" json:"createdAt"`
}

func (SessionResult) TableName() string {
	return "session_results"
}
