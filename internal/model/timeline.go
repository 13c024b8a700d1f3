package model

import "time"

// LogKind 时间线日志类型：own 为本人动态，inbound 为收件箱 feed
type LogKind string

const (
	LogOwn     LogKind = "own"
	LogInbound LogKind = "inbound"
)

func (l LogKind) Valid() bool { return l == LogOwn || l == LogInbound }

// TimelineEntry 反范式化时间线指针（按 user_id 切分）
type TimelineEntry struct {
	ID      string  `gorm:"primaryKey;type:varchar(36)"`
	Log     LogKind `gorm:"type:varchar(8);uniqueIndex:ux_timeline_log_user_time;not null"`
	UserID  string  `gorm:"type:varchar(36);uniqueIndex:ux_timeline_log_user_time;index:idx_timeline_user;not null"`
	// Time 为 timekey 排序键，同时充当分页游标；(log, user_id, time) 唯一，重复投递幂等
	Time           int64      `gorm:"uniqueIndex:ux_timeline_log_user_time;not null"`
	EventID        string     `gorm:"type:varchar(36);index:idx_timeline_event;not null"`
	EventKind      EventKind  `gorm:"type:varchar(16);not null"`
	Visibility     Visibility `gorm:"type:varchar(16);not null"`
	// SourceRelation 记录投递来源的关注边，unfollow 时按它批量撤回
	SourceRelation *string   `gorm:"type:varchar(36);index:idx_timeline_source"`
	CreatedAt      time.Time
}

func (TimelineEntry) TableName() string { return "timeline_entries" }
