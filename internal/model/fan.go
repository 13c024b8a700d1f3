package model

import "time"

// Fan 粉丝关系（B 的粉丝是 A）冗余自 Follow，扇出按它分页枚举
type Fan struct {
	ID     string `gorm:"primaryKey;type:varchar(36)"`
	UserID string `gorm:"type:varchar(36);index:idx_fan_user;index:idx_fan_pair,unique;not null"`
	FanID  string `gorm:"type:varchar(36);not null;index:idx_fan_pair,unique"`
	// FollowID 对应的关注边，作为投递的 source_relation
	FollowID   string     `gorm:"type:varchar(36);not null"`
	Visibility Visibility `gorm:"type:varchar(16);not null;default:'public'"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Fan) TableName() string { return "fans" }
