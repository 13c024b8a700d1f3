package service

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/d60-Lab/social-timeline/internal/model"
	"github.com/d60-Lab/social-timeline/internal/repository"
	"github.com/d60-Lab/social-timeline/pkg/cache"
	"github.com/d60-Lab/social-timeline/pkg/logger"
	"github.com/d60-Lab/social-timeline/pkg/timekey"
)

// TaskFanoutDeliver 异步扇出任务名；载荷为 JSON 编码的 model.Event
const TaskFanoutDeliver = "fanout.deliver"

// TaskRunner 延迟任务投递契约（at-least-once，消费端幂等）
type TaskRunner interface {
	Submit(ctx context.Context, name string, payload []byte) error
}

// FanoutService 写扩散引擎：事件发布、接收者计算、投递与撤回
type FanoutService struct {
	timelineRepo repository.TimelineRepository
	fanRepo      repository.FanRepository
	friendRepo   repository.FriendRepository
	userRepo     repository.UserRepository
	cache        *cache.Cache
	runner       TaskRunner // 可为 nil，全部走同步路径
	batchSize    int
	inlineLimit  int
}

func NewFanoutService(
	timelineRepo repository.TimelineRepository,
	fanRepo repository.FanRepository,
	friendRepo repository.FriendRepository,
	userRepo repository.UserRepository,
	c *cache.Cache,
	runner TaskRunner,
	batchSize, inlineLimit int,
) *FanoutService {
	if batchSize <= 0 {
		batchSize = 500
	}
	if inlineLimit <= 0 {
		inlineLimit = 64
	}
	return &FanoutService{
		timelineRepo: timelineRepo,
		fanRepo:      fanRepo,
		friendRepo:   friendRepo,
		userRepo:     userRepo,
		cache:        c,
		runner:       runner,
		batchSize:    batchSize,
		inlineLimit:  inlineLimit,
	}
}

// Publish 发布事件：先无条件写入所有者自己的两条日志（失败即整体失败），
// personal 到此为止；其余按粉丝量决定同步扇出还是投递异步任务。
// 所有者日志一旦落库不再回滚，扇出中途失败返回可重试错误，重试安全（keyed upsert）。
func (s *FanoutService) Publish(ctx context.Context, ev *model.Event) error {
	if ev.ID == "" || ev.OwnerID == "" || !ev.Kind.Valid() || !ev.Visibility.Valid() {
		return ErrInvalidInput
	}
	key := timekey.At(ev.CreatedAt, ev.ID)
	own := []model.TimelineEntry{
		{Log: model.LogOwn, UserID: ev.OwnerID, Time: key, EventID: ev.ID, EventKind: ev.Kind, Visibility: ev.Visibility},
		{Log: model.LogInbound, UserID: ev.OwnerID, Time: key, EventID: ev.ID, EventKind: ev.Kind, Visibility: ev.Visibility},
	}
	if err := s.timelineRepo.UpsertBatch(ctx, own); err != nil {
		return transient("write own logs", err)
	}
	s.cache.Invalidate(ctx, feedKey(ev.OwnerID))

	if ev.Visibility == model.VisibilityPersonal {
		return nil
	}

	if s.runner != nil {
		cnt, err := s.fanRepo.CountFans(ctx, ev.OwnerID)
		if err == nil && cnt > int64(s.inlineLimit) {
			payload, mErr := json.Marshal(ev)
			if mErr == nil {
				if sErr := s.runner.Submit(ctx, TaskFanoutDeliver, payload); sErr == nil {
					return nil
				}
				logger.Warn("fanout submit failed, delivering inline", zap.String("event", ev.ID))
			}
		}
	}
	return s.Deliver(ctx, ev)
}

// HandleDeliver 异步任务消费入口
func (s *FanoutService) HandleDeliver(ctx context.Context, payload []byte) error {
	var ev model.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return ErrInvalidInput
	}
	return s.Deliver(ctx, &ev)
}

// Deliver 接收者计算与投递。同步与异步路径共用，产生完全相同的存储状态。
// 粉丝扇出与 mention 扇出相互独立，一方失败不阻止另一方执行。
func (s *FanoutService) Deliver(ctx context.Context, ev *model.Event) error {
	return errors.Join(
		s.deliverFollowers(ctx, ev),
		s.deliverMentions(ctx, ev),
	)
}

// deliverFollowers 分页枚举粉丝（大 V 粉丝集不整体进内存），逐个过可见性裁决后批量 upsert。
// time 取事件创建时刻派生的 key，而非投递时刻，保证所有接收者侧排序一致。
func (s *FanoutService) deliverFollowers(ctx context.Context, ev *model.Event) error {
	key := timekey.At(ev.CreatedAt, ev.ID)
	offset := 0
	for {
		fans, err := s.fanRepo.ListFans(ctx, ev.OwnerID, offset, s.batchSize)
		if err != nil {
			return transient("list followers", err)
		}
		if len(fans) == 0 {
			return nil
		}
		batch := make([]model.TimelineEntry, 0, len(fans))
		keys := make([]string, 0, len(fans))
		for _, f := range fans {
			rel := Relation{}
			if ev.Visibility == model.VisibilityPrivate {
				ok, fErr := s.friendRepo.IsFriend(ctx, ev.OwnerID, f.FanID)
				if fErr != nil {
					return transient("check friendship", fErr)
				}
				rel.IsFriend = ok
			}
			if !CanDeliver(ev.Visibility, rel) {
				continue
			}
			followID := f.FollowID
			batch = append(batch, model.TimelineEntry{
				Log: model.LogInbound, UserID: f.FanID, Time: key,
				EventID: ev.ID, EventKind: ev.Kind, Visibility: ev.Visibility,
				SourceRelation: &followID,
			})
			keys = append(keys, feedKey(f.FanID))
		}
		if err := s.timelineRepo.UpsertBatch(ctx, batch); err != nil {
			return transient("deliver to followers", err)
		}
		s.cache.Invalidate(ctx, keys...)
		if len(fans) < s.batchSize {
			return nil
		}
		offset += s.batchSize
	}
}

// deliverMentions 仅 post 事件。解析 @username，未解析的 token 静默跳过；
// 当前已是粉丝的（粉丝路径已覆盖）与作者本人不再投递。
func (s *FanoutService) deliverMentions(ctx context.Context, ev *model.Event) error {
	if ev.Kind != model.KindPost {
		return nil
	}
	key := timekey.At(ev.CreatedAt, ev.ID)
	for _, name := range ParseMentions(ev.Body) {
		u, err := s.userRepo.GetByUsername(ctx, name)
		if err != nil {
			if errors.Is(notFoundOr(err), ErrNotFound) {
				continue
			}
			return transient("resolve mention", err)
		}
		if u.ID == ev.OwnerID {
			continue
		}
		isFollower, err := s.fanRepo.Exists(ctx, ev.OwnerID, u.ID)
		if err != nil {
			return transient("check follower", err)
		}
		if isFollower {
			continue
		}
		rel := Relation{}
		if ev.Visibility == model.VisibilityPrivate {
			ok, fErr := s.friendRepo.IsFriend(ctx, ev.OwnerID, u.ID)
			if fErr != nil {
				return transient("check friendship", fErr)
			}
			rel.IsFriend = ok
		}
		if !CanDeliver(ev.Visibility, rel) {
			continue
		}
		entry := &model.TimelineEntry{
			Log: model.LogInbound, UserID: u.ID, Time: key,
			EventID: ev.ID, EventKind: ev.Kind, Visibility: ev.Visibility,
		}
		if err := s.timelineRepo.Upsert(ctx, entry); err != nil {
			return transient("deliver mention", err)
		}
		s.cache.Invalidate(ctx, feedKey(u.ID))
	}
	return nil
}

// Retract 撤回事件：扫 event_id 索引逐条按 (log, user, time) 精确删除，
// 不重算接收者集合（关系可能已变化，重算会多删或漏删）。错误原样上抛，由调用方决定重试。
func (s *FanoutService) Retract(ctx context.Context, eventID string) error {
	entries, err := s.timelineRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := s.timelineRepo.Delete(ctx, e.Log, e.UserID, e.Time); err != nil {
			return err
		}
		s.cache.Invalidate(ctx, feedKey(e.UserID))
	}
	return nil
}

func feedKey(userID string) string { return "feed:inbound:" + userID }
