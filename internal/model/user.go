package model

import "time"

type UserRole string

const (
	Student UserRole = "STUDENT"
	Teacher UserRole = "TEACHER"
	Admin   UserRole = "ADMIN"
)

// swagger:model User
type User struct {
	UUIDBase

	Code        string     `gorm:"uniqueIndex;type:varchar(16)" json:"code"`
	Nickname    string     `gorm:"type:varchar(64)" json:"nickname"`
	Email       string     `gorm:"uniqueIndex;type:varchar(128)" json:"email"`
	Password    string     `gorm:"type:varchar(128)" json:"-"`
	Role        UserRole   `gorm:"type:varchar(16);default:STUDENT" json:"role"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

func (User) TableName() string {
	return "users"
}
