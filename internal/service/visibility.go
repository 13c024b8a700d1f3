package service

import "github.com/d60-Lab/social-timeline/internal/model"

// Relation 事件所有者与候选接收者之间的关系证据。好友关系不可由关注推导，
// 必须逐个候选人取证。
type Relation struct {
	IsFriend bool
}

// CanDeliver 可见性裁决，无副作用：
//   - personal 不投递给任何人（所有者自己的日志不经过这里）
//   - private 仅投递给已确认的对称好友
//   - public 无条件投递
func CanDeliver(v model.Visibility, rel Relation) bool {
	switch v {
	case model.VisibilityPublic:
		return true
	case model.VisibilityPrivate:
		return rel.IsFriend
	default:
		return false
	}
}
