package model

const (
	QuestionSourceAI   = "ai"
	QuestionSourceSeed = "seed"
)

// swagger:model Question
type Question struct {
	BaseModel
	Subject     string   `gorm:"size:50;not null;index:idx_question_subject_diff" json:"subject"`
	Topic       string   `gorm:"size:100" json:"topic"`
	Difficulty  int      `gorm:"not null;index:idx_question_subject_diff" json:"difficulty"`
	Prompt      string   `gorm:"type:text;not null" json:"prompt"`
	Options     []string `gorm:"serializer:json;type:text" json:"options"`
	AnswerIndex int      `json:"answerIndex"`
	Explanation string   `gorm:"type:text" json:"explanation"`
	Hint        string   `gorm:"type:text" json:"hint"`
	Source      string   `gorm:"size:16;default:'ai'" json:"source"`
}

func (Question) TableName() string {
	return "questions"
}
