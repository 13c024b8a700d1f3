package model

import "time"

// Like 点赞（user, post 复合唯一，避免重复点赞）
type Like struct {
	ID         string     `gorm:"primaryKey;type:varchar(36)"`
	UserID     string     `gorm:"type:varchar(36);uniqueIndex:ux_like_user_post;not null"`
	PostID     string     `gorm:"type:varchar(36);uniqueIndex:ux_like_user_post;index:idx_like_post;not null"`
	Visibility Visibility `gorm:"type:varchar(16);not null;default:'public'"`
	CreatedAt  time.Time
}

func (Like) TableName() string { return "likes" }
