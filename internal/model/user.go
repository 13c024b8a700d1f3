package model

import "time"

// User 用户（密码为 bcrypt 散列）
type User struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Username  string `gorm:"type:varchar(64);uniqueIndex;not null"`
	Email     string `gorm:"type:varchar(128)"`
	Password  string `gorm:"type:varchar(128);not null"`
	Age       int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string { return "users" }
