package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/social-timeline/internal/model"
	"github.com/d60-Lab/social-timeline/internal/repository"
	"github.com/d60-Lab/social-timeline/pkg/cache"
	"github.com/d60-Lab/social-timeline/pkg/logger"
)

// RelationshipService 关系链服务：关注 / 好友，以及关系变化触发的时间线副作用
type RelationshipService interface {
	Follow(ctx context.Context, fromUserID, toUserID string, visibility model.Visibility) (*model.Follow, error)
	Unfollow(ctx context.Context, fromUserID, toUserID string) error
	ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error)
	ListFans(ctx context.Context, userID string, page, pageSize int) ([]string, error)
	RequestFriend(ctx context.Context, fromUserID, toUserID string) (*model.Friend, error)
	AcceptFriend(ctx context.Context, userID, otherID string) error
	RemoveFriend(ctx context.Context, userID, otherID string) error
}

type relationshipService struct {
	followRepo   repository.FollowRepository
	fanRepo      repository.FanRepository
	friendRepo   repository.FriendRepository
	timelineRepo repository.TimelineRepository
	fanout       *FanoutService
	seeder       *SeederService
	runner       TaskRunner
	cache        *cache.Cache
	seedWindow   time.Duration
}

func NewRelationshipService(
	followRepo repository.FollowRepository,
	fanRepo repository.FanRepository,
	friendRepo repository.FriendRepository,
	timelineRepo repository.TimelineRepository,
	fanout *FanoutService,
	seeder *SeederService,
	runner TaskRunner,
	c *cache.Cache,
	seedWindow time.Duration,
) RelationshipService {
	return &relationshipService{
		followRepo:   followRepo,
		fanRepo:      fanRepo,
		friendRepo:   friendRepo,
		timelineRepo: timelineRepo,
		fanout:       fanout,
		seeder:       seeder,
		runner:       runner,
		cache:        c,
		seedWindow:   seedWindow,
	}
}

// Follow 建立关注：写关注边 + 冗余粉丝表，发布 follow 事件，回填近期动态
func (s *relationshipService) Follow(ctx context.Context, fromUserID, toUserID string, visibility model.Visibility) (*model.Follow, error) {
	if fromUserID == toUserID {
		return nil, ErrFollowSelf
	}
	if !visibility.Valid() {
		visibility = model.VisibilityPublic
	}
	if existing, err := s.followRepo.Get(ctx, fromUserID, toUserID); err == nil {
		return existing, nil // 重复关注幂等
	}
	f := &model.Follow{
		ID:         uuid.New().String(),
		FollowerID: fromUserID,
		FolloweeID: toUserID,
		Visibility: visibility,
	}
	if err := s.followRepo.Create(ctx, f); err != nil {
		return nil, err
	}
	if err := s.fanRepo.Create(ctx, toUserID, fromUserID, f.ID, visibility); err != nil {
		return nil, err
	}

	ev := &model.Event{ID: f.ID, OwnerID: fromUserID, Kind: model.KindFollow, Visibility: visibility, CreatedAt: time.Now()}
	if err := s.fanout.Publish(ctx, ev); err != nil {
		logger.Warn("follow event fanout failed", zap.String("follow", f.ID), zap.Error(err))
	}
	s.enqueueSeed(ctx, fromUserID, toUserID, f.ID)
	return f, nil
}

func (s *relationshipService) enqueueSeed(ctx context.Context, userID, followedID, followID string) {
	if s.runner != nil {
		payload, err := json.Marshal(seedPayload{UserID: userID, FollowedID: followedID, FollowID: followID, Window: s.seedWindow})
		if err == nil {
			if err := s.runner.Submit(ctx, TaskSeed, payload); err == nil {
				return
			}
		}
	}
	if err := s.seeder.Seed(ctx, userID, followedID, followID, s.seedWindow); err != nil {
		logger.Warn("inline seed failed", zap.String("user", userID), zap.Error(err))
	}
}

// Unfollow 取消关注：撤回 follow 事件本身，并按 source_relation 批量撤回经这条边投递的条目
func (s *relationshipService) Unfollow(ctx context.Context, fromUserID, toUserID string) error {
	f, err := s.followRepo.Get(ctx, fromUserID, toUserID)
	if err != nil {
		return notFoundOr(err)
	}
	if err := s.fanout.Retract(ctx, f.ID); err != nil {
		return err
	}
	if err := s.timelineRepo.DeleteBySource(ctx, fromUserID, f.ID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, feedKey(fromUserID))
	if err := s.followRepo.Delete(ctx, fromUserID, toUserID); err != nil {
		return err
	}
	return s.fanRepo.Delete(ctx, toUserID, fromUserID)
}

func (s *relationshipService) ListFollowing(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	offset := (page - 1) * pageSize
	items, err := s.followRepo.ListFollowings(ctx, userID, offset, pageSize)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.FolloweeID
	}
	return res, nil
}

func (s *relationshipService) ListFans(ctx context.Context, userID string, page, pageSize int) ([]string, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	offset := (page - 1) * pageSize
	items, err := s.fanRepo.ListFans(ctx, userID, offset, pageSize)
	if err != nil {
		return nil, err
	}
	res := make([]string, len(items))
	for i, it := range items {
		res[i] = it.FanID
	}
	return res, nil
}

func (s *relationshipService) RequestFriend(ctx context.Context, fromUserID, toUserID string) (*model.Friend, error) {
	if fromUserID == toUserID {
		return nil, ErrFriendSelf
	}
	return s.friendRepo.Request(ctx, fromUserID, toUserID)
}

// AcceptFriend 仅被请求方可确认；确认后发布 friend 事件
func (s *relationshipService) AcceptFriend(ctx context.Context, userID, otherID string) error {
	f, err := s.friendRepo.Get(ctx, userID, otherID)
	if err != nil {
		return notFoundOr(err)
	}
	if f.RequesterID == userID {
		return ErrForbidden
	}
	if f.Status == model.FriendAccepted {
		return nil
	}
	if err := s.friendRepo.Accept(ctx, userID, otherID); err != nil {
		return err
	}
	ev := &model.Event{ID: f.ID, OwnerID: userID, Kind: model.KindFriend, Visibility: model.VisibilityPublic, CreatedAt: time.Now()}
	if err := s.fanout.Publish(ctx, ev); err != nil {
		logger.Warn("friend event fanout failed", zap.String("friend", f.ID), zap.Error(err))
	}
	return nil
}

func (s *relationshipService) RemoveFriend(ctx context.Context, userID, otherID string) error {
	f, err := s.friendRepo.Get(ctx, userID, otherID)
	if err != nil {
		return notFoundOr(err)
	}
	if err := s.fanout.Retract(ctx, f.ID); err != nil {
		return err
	}
	return s.friendRepo.Delete(ctx, userID, otherID)
}
