package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/d60-Lab/social-timeline/internal/model"
	"github.com/d60-Lab/social-timeline/internal/repository"
	"github.com/d60-Lab/social-timeline/pkg/cache"
	"github.com/d60-Lab/social-timeline/pkg/timekey"
)

// ActorSnapshot feed 项上展示的最小用户信息
type ActorSnapshot struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// FeedItem 水合后的时间线条目
type FeedItem struct {
	Time       int64            `json:"time"`
	EventID    string           `json:"event_id"`
	Kind       model.EventKind  `json:"kind"`
	Visibility model.Visibility `json:"visibility"` // 实体当前可见性（回放补种依据）
	Age        string           `json:"age"`

	ActorID            string         `json:"actor_id"`
	Actor              *ActorSnapshot `json:"actor,omitempty"`
	IsSelf             bool           `json:"is_self"`
	ViewerFollowsActor bool           `json:"viewer_follows_actor"`
	ActorFollowsViewer bool           `json:"actor_follows_viewer"`

	Post   *model.Post   `json:"post,omitempty"`
	Like   *model.Like   `json:"like,omitempty"`
	Follow *model.Follow `json:"follow,omitempty"`
	Friend *model.Friend `json:"friend,omitempty"`
}

// FeedPage 一页 feed；NextCursor 为 nil 表示没有更多
type FeedPage struct {
	Items      []*FeedItem `json:"items"`
	NextCursor *int64      `json:"next_cursor"`
}

// FeedService 读路径：游标扫描 + 并发水合 + 观察者相关标记
type FeedService struct {
	timelineRepo repository.TimelineRepository
	followRepo   repository.FollowRepository
	friendRepo   repository.FriendRepository
	userRepo     repository.UserRepository
	posts        *PostService
	likes        *LikeService
	cache        *cache.Cache
	defaultLimit int
	maxLimit     int
	hydrateConc  int
}

func NewFeedService(
	timelineRepo repository.TimelineRepository,
	followRepo repository.FollowRepository,
	friendRepo repository.FriendRepository,
	userRepo repository.UserRepository,
	posts *PostService,
	likes *LikeService,
	c *cache.Cache,
	defaultLimit, maxLimit, hydrateConc int,
) *FeedService {
	if defaultLimit <= 0 {
		defaultLimit = 20
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit * 5
	}
	if hydrateConc <= 0 {
		hydrateConc = 8
	}
	return &FeedService{
		timelineRepo: timelineRepo,
		followRepo:   followRepo,
		friendRepo:   friendRepo,
		userRepo:     userRepo,
		posts:        posts,
		likes:        likes,
		cache:        c,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		hydrateConc:  hydrateConc,
	}
}

// Page 读取一页时间线。forward=false 为常规 feed（time 严格递减），
// forward=true 为回放（backfill 用）。多取一行探测是否还有下一页；
// 水合失败（NotFound/Forbidden）的行静默丢弃但仍推进游标。
func (s *FeedService) Page(ctx context.Context, viewerID, userID string, log model.LogKind, cursor int64, limit int, forward bool) (*FeedPage, error) {
	if cursor < 0 || !log.Valid() || userID == "" {
		return nil, ErrInvalidInput
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	// 仅默认 limit 的首页走缓存：key 不含 limit，混存不同 limit 的页会把
	// 截短的页原样端给要更多行的调用方
	cacheable := log == model.LogInbound && !forward && cursor == 0 &&
		viewerID == userID && limit == s.defaultLimit
	if cacheable {
		var page FeedPage
		if s.cache.GetJSON(ctx, feedKey(userID), &page) {
			return &page, nil
		}
	}

	rows, err := s.timelineRepo.Range(ctx, log, userID, cursor, limit+1, forward)
	if err != nil {
		return nil, transient("scan timeline", err)
	}
	var nextCursor *int64
	if len(rows) == limit+1 {
		rows = rows[:limit]
		last := rows[len(rows)-1].Time
		nextCursor = &last
	}

	items, err := s.hydrate(ctx, viewerID, rows)
	if err != nil {
		return nil, err
	}
	if err := s.decorate(ctx, viewerID, items); err != nil {
		return nil, err
	}

	page := &FeedPage{Items: items, NextCursor: nextCursor}
	if cacheable {
		s.cache.SetJSON(ctx, feedKey(userID), page)
	}
	return page, nil
}

// hydrate 并发水合，保持行序；nil 槽位（被丢弃的行）压缩掉
func (s *FeedService) hydrate(ctx context.Context, viewerID string, rows []*model.TimelineEntry) ([]*FeedItem, error) {
	results := make([]*FeedItem, len(rows))
	errs := make([]error, len(rows))
	sem := make(chan struct{}, s.hydrateConc)
	var wg sync.WaitGroup
	now := time.Now()
	for i, row := range rows {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, row *model.TimelineEntry) {
			defer wg.Done()
			defer func() { <-sem }()
			item, err := s.hydrateOne(ctx, viewerID, row, now)
			results[i] = item
			errs[i] = err
		}(i, row)
	}
	wg.Wait()

	items := make([]*FeedItem, 0, len(rows))
	for i := range rows {
		if err := errs[i]; err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) {
				continue // 行丢弃，游标照常推进
			}
			return nil, err
		}
		if results[i] != nil {
			items = append(items, results[i])
		}
	}
	return items, nil
}

func (s *FeedService) hydrateOne(ctx context.Context, viewerID string, row *model.TimelineEntry, now time.Time) (*FeedItem, error) {
	item := &FeedItem{
		Time:    row.Time,
		EventID: row.EventID,
		Kind:    row.EventKind,
		Age:     timekey.Age(row.Time, now),
	}
	switch row.EventKind {
	case model.KindPost:
		p, err := s.posts.GetByID(ctx, viewerID, row.EventID)
		if err != nil {
			return nil, err
		}
		item.Post = p
		item.ActorID = p.AuthorID
		item.Visibility = p.Visibility
	case model.KindLike:
		l, err := s.likes.GetByID(ctx, viewerID, row.EventID)
		if err != nil {
			return nil, err
		}
		p, err := s.posts.GetByID(ctx, viewerID, l.PostID)
		if err != nil {
			return nil, err // 被点赞的 post 已不可见，点赞随之丢弃
		}
		item.Like = l
		item.Post = p
		item.ActorID = l.UserID
		item.Visibility = l.Visibility
	case model.KindFollow:
		f, err := s.followRepo.GetByID(ctx, row.EventID)
		if err != nil {
			return nil, notFoundOr(err)
		}
		if err := s.checkActorVisibility(ctx, f.FollowerID, viewerID, f.Visibility); err != nil {
			return nil, err
		}
		item.Follow = f
		item.ActorID = f.FollowerID
		item.Visibility = f.Visibility
	case model.KindFriend:
		f, err := s.friendRepo.GetByID(ctx, row.EventID)
		if err != nil {
			return nil, notFoundOr(err)
		}
		if f.Status != model.FriendAccepted {
			return nil, ErrNotFound
		}
		if err := s.checkActorVisibility(ctx, f.RequesterID, viewerID, row.Visibility); err != nil {
			return nil, err
		}
		item.Friend = f
		item.ActorID = f.RequesterID
		item.Visibility = row.Visibility
	default:
		return nil, ErrInvalidInput
	}
	return item, nil
}

func (s *FeedService) checkActorVisibility(ctx context.Context, actorID, viewerID string, v model.Visibility) error {
	if actorID == viewerID {
		return nil
	}
	switch v {
	case model.VisibilityPublic:
		return nil
	case model.VisibilityPrivate:
		ok, err := s.friendRepo.IsFriend(ctx, actorID, viewerID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}

// decorate 批量补充 actor 快照与观察者相关标记。
// 快照走缓存 MGet，miss 的批量回源后写回。
func (s *FeedService) decorate(ctx context.Context, viewerID string, items []*FeedItem) error {
	if len(items) == 0 {
		return nil
	}
	actorIDs := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.ActorID]; !ok {
			seen[it.ActorID] = struct{}{}
			actorIDs = append(actorIDs, it.ActorID)
		}
	}

	snaps, err := s.loadSnapshots(ctx, actorIDs)
	if err != nil {
		return err
	}

	type rel struct{ viewerFollows, followsViewer bool }
	rels := make(map[string]rel, len(actorIDs))
	for _, id := range actorIDs {
		if id == viewerID {
			continue
		}
		vf, err := s.followRepo.Exists(ctx, viewerID, id)
		if err != nil {
			return transient("check follow", err)
		}
		fv, err := s.followRepo.Exists(ctx, id, viewerID)
		if err != nil {
			return transient("check follow", err)
		}
		rels[id] = rel{viewerFollows: vf, followsViewer: fv}
	}

	for _, it := range items {
		it.IsSelf = it.ActorID == viewerID
		if snap, ok := snaps[it.ActorID]; ok {
			it.Actor = snap
		}
		if r, ok := rels[it.ActorID]; ok {
			it.ViewerFollowsActor = r.viewerFollows
			it.ActorFollowsViewer = r.followsViewer
		}
	}
	return nil
}

func (s *FeedService) loadSnapshots(ctx context.Context, ids []string) (map[string]*ActorSnapshot, error) {
	snaps := make(map[string]*ActorSnapshot, len(ids))
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = "user:" + id
	}
	cached := s.cache.MGetJSON(ctx, keys)
	missing := make([]string, 0, len(ids))
	for i, id := range ids {
		if raw, ok := cached[keys[i]]; ok {
			var snap ActorSnapshot
			if json.Unmarshal([]byte(raw), &snap) == nil {
				snaps[id] = &snap
				continue
			}
		}
		missing = append(missing, id)
	}
	if len(missing) > 0 {
		users, err := s.userRepo.ListByIDs(ctx, missing)
		if err != nil {
			return nil, transient("load users", err)
		}
		for _, u := range users {
			snap := &ActorSnapshot{ID: u.ID, Username: u.Username}
			snaps[u.ID] = snap
			s.cache.SetJSON(ctx, "user:"+u.ID, snap)
		}
	}
	return snaps, nil
}
