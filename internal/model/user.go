package model

type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name     string   `gorm:"size:100;not null" json:"name"`
	Email    string   `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password string   `gorm:"size:100;not null" json:"-"`
	Role     UserRole `gorm:"size:20;default:'student'" json:"role"`
	Grade    int      `gorm:"default:11" json:"grade"` // 11 或 12 年级
}

func (User) TableName() string {
	return "users"
}
