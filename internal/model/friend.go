package model

import "time"

// FriendStatus 好友关系状态
type FriendStatus string

const (
	FriendPending  FriendStatus = "pending"
	FriendAccepted FriendStatus = "accepted"
)

// Friend 好友关系（对称，双方确认）。UserAID < UserBID 规范化存储，一对只存一行。
type Friend struct {
	ID          string       `gorm:"primaryKey;type:varchar(36)"`
	UserAID     string       `gorm:"type:varchar(36);index:idx_friend_pair,unique;not null"`
	UserBID     string       `gorm:"type:varchar(36);index:idx_friend_pair,unique;not null"`
	RequesterID string       `gorm:"type:varchar(36);not null"`
	Status      FriendStatus `gorm:"type:varchar(16);not null;default:'pending'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Friend) TableName() string { return "friends" }
