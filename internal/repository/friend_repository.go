package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/social-timeline/internal/model"
)

// FriendRepository 好友关系。一对用户只存一行，UserAID < UserBID 规范化。
type FriendRepository interface {
	Request(ctx context.Context, requesterID, otherID string) (*model.Friend, error)
	Accept(ctx context.Context, userA, userB string) error
	Delete(ctx context.Context, userA, userB string) error
	Get(ctx context.Context, userA, userB string) (*model.Friend, error)
	GetByID(ctx context.Context, id string) (*model.Friend, error)
	IsFriend(ctx context.Context, userA, userB string) (bool, error)
}

type friendRepository struct{ db *gorm.DB }

func NewFriendRepository(db *gorm.DB) FriendRepository { return &friendRepository{db: db} }

func pairKey(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

func (r *friendRepository) Request(ctx context.Context, requesterID, otherID string) (*model.Friend, error) {
	a, b := pairKey(requesterID, otherID)
	f := &model.Friend{
		ID:          uuid.New().String(),
		UserAID:     a,
		UserBID:     b,
		RequesterID: requesterID,
		Status:      model.FriendPending,
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(f)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// 该对已有记录（可能已 accepted，或对方先发起），返回库里的行
		return r.Get(ctx, requesterID, otherID)
	}
	return f, nil
}

func (r *friendRepository) Accept(ctx context.Context, userA, userB string) error {
	a, b := pairKey(userA, userB)
	return r.db.WithContext(ctx).
		Model(&model.Friend{}).
		Where("user_a_id = ? AND user_b_id = ?", a, b).
		Update("status", model.FriendAccepted).Error
}

func (r *friendRepository) Delete(ctx context.Context, userA, userB string) error {
	a, b := pairKey(userA, userB)
	return r.db.WithContext(ctx).
		Where("user_a_id = ? AND user_b_id = ?", a, b).
		Delete(&model.Friend{}).Error
}

func (r *friendRepository) Get(ctx context.Context, userA, userB string) (*model.Friend, error) {
	a, b := pairKey(userA, userB)
	var f model.Friend
	err := r.db.WithContext(ctx).
		Where("user_a_id = ? AND user_b_id = ?", a, b).
		First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *friendRepository) GetByID(ctx context.Context, id string) (*model.Friend, error) {
	var f model.Friend
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *friendRepository) IsFriend(ctx context.Context, userA, userB string) (bool, error) {
	a, b := pairKey(userA, userB)
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Friend{}).
		Where("user_a_id = ? AND user_b_id = ? AND status = ?", a, b, model.FriendAccepted).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}
