package model

import "time"

// EventKind 事件类型
type EventKind string

const (
	KindPost   EventKind = "post"
	KindLike   EventKind = "like"
	KindFollow EventKind = "follow"
	KindFriend EventKind = "friend"
)

func (k EventKind) Valid() bool {
	switch k {
	case KindPost, KindLike, KindFollow, KindFriend:
		return true
	}
	return false
}

// Visibility 可见性等级
type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityPrivate  Visibility = "private"  // 仅确认的好友可见
	VisibilityPersonal Visibility = "personal" // 仅本人可见，不参与扇出
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityPersonal:
		return true
	}
	return false
}

// Event 扇出载荷：对某条实体记录（post/like/follow/friend）的不可变引用。
// Body 仅 post 事件携带，用于 mention 解析；跨进程投递时整体 JSON 编码。
type Event struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	Kind       EventKind  `json:"kind"`
	Visibility Visibility `json:"visibility"`
	Body       string     `json:"body,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
