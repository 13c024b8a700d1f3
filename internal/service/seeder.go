package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/d60-Lab/social-timeline/internal/model"
	"github.com/d60-Lab/social-timeline/internal/repository"
	"github.com/d60-Lab/social-timeline/pkg/cache"
	"github.com/d60-Lab/social-timeline/pkg/timekey"
)

// TaskSeed 回填任务名；新关注建立后把被关注者近期动态补进关注者收件箱
const TaskSeed = "timeline.seed"

type seedPayload struct {
	UserID     string        `json:"user_id"`
	FollowedID string        `json:"followed_id"`
	FollowID   string        `json:"follow_id"`
	Window     time.Duration `json:"window"`
}

// SeederService 关注建立时的时间线回填
type SeederService struct {
	feed         *FeedService
	timelineRepo repository.TimelineRepository
	cache        *cache.Cache
	pageSize     int
	window       time.Duration
}

func NewSeederService(feed *FeedService, timelineRepo repository.TimelineRepository, c *cache.Cache, pageSize int, window time.Duration) *SeederService {
	if pageSize <= 0 {
		pageSize = 100
	}
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	return &SeederService{feed: feed, timelineRepo: timelineRepo, cache: c, pageSize: pageSize, window: window}
}

// Seed 从 now-window 起正向回放 followedID 的 own-activity 日志，
// 把回放时刻仍为 public 的条目按原始 time 写入 userID 的收件箱。
// 可见性在回放时重新裁决而非沿用发布时的结论（关系可能已变化）。
func (s *SeederService) Seed(ctx context.Context, userID, followedID, followID string, window time.Duration) error {
	if window <= 0 {
		window = s.window
	}
	cursor := timekey.At(time.Now().Add(-window), "")
	for {
		page, err := s.feed.Page(ctx, userID, followedID, model.LogOwn, cursor, s.pageSize, true)
		if err != nil {
			return err
		}
		batch := make([]model.TimelineEntry, 0, len(page.Items))
		for _, it := range page.Items {
			if it.Visibility != model.VisibilityPublic {
				continue
			}
			src := followID
			batch = append(batch, model.TimelineEntry{
				Log: model.LogInbound, UserID: userID, Time: it.Time,
				EventID: it.EventID, EventKind: it.Kind, Visibility: it.Visibility,
				SourceRelation: &src,
			})
		}
		if err := s.timelineRepo.UpsertBatch(ctx, batch); err != nil {
			return transient("seed inbound log", err)
		}
		if page.NextCursor == nil {
			break
		}
		cursor = *page.NextCursor
	}
	s.cache.Invalidate(ctx, feedKey(userID))
	return nil
}

// HandleSeed 异步任务消费入口
func (s *SeederService) HandleSeed(ctx context.Context, payload []byte) error {
	var p seedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return ErrInvalidInput
	}
	return s.Seed(ctx, p.UserID, p.FollowedID, p.FollowID, p.Window)
}
