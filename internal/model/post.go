package model

import "time"

// Post 内容主体
type Post struct {
	ID         string     `gorm:"primaryKey;type:varchar(36)"`
	AuthorID   string     `gorm:"type:varchar(36);index:idx_post_author"`
	Body       string     `gorm:"type:text"`
	Visibility Visibility `gorm:"type:varchar(16);not null;default:'public'"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Post) TableName() string { return "posts" }
