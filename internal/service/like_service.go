package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/social-timeline/internal/model"
	"github.com/d60-Lab/social-timeline/internal/repository"
)

// LikeService 点赞实体服务
type LikeService struct {
	likeRepo   repository.LikeRepository
	friendRepo repository.FriendRepository
	posts      *PostService
	fanout     *FanoutService
}

func NewLikeService(likeRepo repository.LikeRepository, friendRepo repository.FriendRepository, posts *PostService, fanout *FanoutService) *LikeService {
	return &LikeService{likeRepo: likeRepo, friendRepo: friendRepo, posts: posts, fanout: fanout}
}

// Create 点赞：目标 post 必须对点赞者可见
func (s *LikeService) Create(ctx context.Context, userID, postID string, visibility model.Visibility) (*model.Like, error) {
	if !visibility.Valid() {
		return nil, ErrInvalidInput
	}
	if _, err := s.posts.GetByID(ctx, userID, postID); err != nil {
		return nil, err
	}
	now := time.Now()
	l := &model.Like{
		ID:         uuid.New().String(),
		UserID:     userID,
		PostID:     postID,
		Visibility: visibility,
		CreatedAt:  now,
	}
	if err := s.likeRepo.Create(ctx, l); err != nil {
		return nil, err
	}
	ev := &model.Event{ID: l.ID, OwnerID: userID, Kind: model.KindLike, Visibility: visibility, CreatedAt: now}
	if err := s.fanout.Publish(ctx, ev); err != nil {
		return l, err
	}
	return l, nil
}

// GetByID 按观察者读取点赞记录
func (s *LikeService) GetByID(ctx context.Context, viewerID, id string) (*model.Like, error) {
	l, err := s.likeRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if l.UserID == viewerID {
		return l, nil
	}
	switch l.Visibility {
	case model.VisibilityPublic:
		return l, nil
	case model.VisibilityPrivate:
		ok, fErr := s.friendRepo.IsFriend(ctx, l.UserID, viewerID)
		if fErr != nil {
			return nil, fErr
		}
		if !ok {
			return nil, ErrForbidden
		}
		return l, nil
	default:
		return nil, ErrForbidden
	}
}

// Delete 取消点赞：撤回事件后删实体
func (s *LikeService) Delete(ctx context.Context, viewerID, id string) error {
	l, err := s.likeRepo.GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err)
	}
	if l.UserID != viewerID {
		return ErrForbidden
	}
	if err := s.fanout.Retract(ctx, id); err != nil {
		return err
	}
	return s.likeRepo.Delete(ctx, id)
}
