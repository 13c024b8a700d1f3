package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/social-timeline/internal/model"
)

// TimelineRepository 时间线存储：(log, user_id, time) 唯一，写入走 upsert 保证幂等
type TimelineRepository interface {
	Upsert(ctx context.Context, entry *model.TimelineEntry) error
	UpsertBatch(ctx context.Context, entries []model.TimelineEntry) error
	Delete(ctx context.Context, log model.LogKind, userID string, timeKey int64) error
	// Range 按 time 游标扫描；forward=false 取 time < cursor 的倒序页（cursor=0 表示从最新开始），
	// forward=true 取 time > cursor 的正序页（backfill 回放用）
	Range(ctx context.Context, log model.LogKind, userID string, cursor int64, limit int, forward bool) ([]*model.TimelineEntry, error)
	ListByEvent(ctx context.Context, eventID string) ([]*model.TimelineEntry, error)
	DeleteBySource(ctx context.Context, userID, followID string) error
}

type timelineRepository struct{ db *gorm.DB }

func NewTimelineRepository(db *gorm.DB) TimelineRepository { return &timelineRepository{db: db} }

func (r *timelineRepository) Upsert(ctx context.Context, entry *model.TimelineEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(entry).Error
}

func (r *timelineRepository) UpsertBatch(ctx context.Context, entries []model.TimelineEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.New().String()
		}
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entries).Error
}

func (r *timelineRepository) Delete(ctx context.Context, log model.LogKind, userID string, timeKey int64) error {
	return r.db.WithContext(ctx).
		Where("log = ? AND user_id = ? AND time = ?", log, userID, timeKey).
		Delete(&model.TimelineEntry{}).Error
}

func (r *timelineRepository) Range(ctx context.Context, log model.LogKind, userID string, cursor int64, limit int, forward bool) ([]*model.TimelineEntry, error) {
	q := r.db.WithContext(ctx).
		Where("log = ? AND user_id = ?", log, userID).
		Limit(limit)
	if forward {
		q = q.Where("time > ?", cursor).Order("time ASC")
	} else {
		if cursor > 0 {
			q = q.Where("time < ?", cursor)
		}
		q = q.Order("time DESC")
	}
	var res []*model.TimelineEntry
	err := q.Find(&res).Error
	return res, err
}

func (r *timelineRepository) ListByEvent(ctx context.Context, eventID string) ([]*model.TimelineEntry, error) {
	var res []*model.TimelineEntry
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Find(&res).Error
	return res, err
}

func (r *timelineRepository) DeleteBySource(ctx context.Context, userID, followID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND source_relation = ?", userID, followID).
		Delete(&model.TimelineEntry{}).Error
}
