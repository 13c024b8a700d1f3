package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/social-timeline/internal/model"
	"github.com/d60-Lab/social-timeline/internal/repository"
)

// PostService 内容实体服务；读取按观察者执行可见性裁决
type PostService struct {
	postRepo   repository.PostRepository
	friendRepo repository.FriendRepository
	fanout     *FanoutService
}

func NewPostService(postRepo repository.PostRepository, friendRepo repository.FriendRepository, fanout *FanoutService) *PostService {
	return &PostService{postRepo: postRepo, friendRepo: friendRepo, fanout: fanout}
}

// Create 落地 post 并发布事件。事件发布失败时 post 已存在，
// 错误上抛由调用方重试 Publish（投递幂等，重试安全）。
func (s *PostService) Create(ctx context.Context, authorID, body string, visibility model.Visibility) (*model.Post, error) {
	if !visibility.Valid() {
		return nil, ErrInvalidInput
	}
	now := time.Now()
	p := &model.Post{
		ID:         uuid.New().String(),
		AuthorID:   authorID,
		Body:       body,
		Visibility: visibility,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.postRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	ev := &model.Event{ID: p.ID, OwnerID: authorID, Kind: model.KindPost, Visibility: visibility, Body: body, CreatedAt: now}
	if err := s.fanout.Publish(ctx, ev); err != nil {
		return p, err
	}
	return p, nil
}

// GetByID 按观察者读取：作者本人无条件可见；personal 仅作者；private 需好友关系
func (s *PostService) GetByID(ctx context.Context, viewerID, id string) (*model.Post, error) {
	p, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	if p.AuthorID == viewerID {
		return p, nil
	}
	switch p.Visibility {
	case model.VisibilityPublic:
		return p, nil
	case model.VisibilityPrivate:
		ok, fErr := s.friendRepo.IsFriend(ctx, p.AuthorID, viewerID)
		if fErr != nil {
			return nil, fErr
		}
		if !ok {
			return nil, ErrForbidden
		}
		return p, nil
	default:
		return nil, ErrForbidden
	}
}

// Delete 先从全部时间线撤回，再删实体
func (s *PostService) Delete(ctx context.Context, viewerID, id string) error {
	p, err := s.postRepo.GetByID(ctx, id)
	if err != nil {
		return notFoundOr(err)
	}
	if p.AuthorID != viewerID {
		return ErrForbidden
	}
	if err := s.fanout.Retract(ctx, id); err != nil {
		return err
	}
	return s.postRepo.Delete(ctx, id)
}
