package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/social-timeline/internal/model"
)

type LikeRepository interface {
	Create(ctx context.Context, like *model.Like) error
	GetByID(ctx context.Context, id string) (*model.Like, error)
	Delete(ctx context.Context, id string) error
}

type likeRepository struct{ db *gorm.DB }

func NewLikeRepository(db *gorm.DB) LikeRepository { return &likeRepository{db: db} }

func (r *likeRepository) Create(ctx context.Context, like *model.Like) error {
	// 幂等：重复点赞不报错
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(like).Error
}

func (r *likeRepository) GetByID(ctx context.Context, id string) (*model.Like, error) {
	var l model.Like
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *likeRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Like{}).Error
}
