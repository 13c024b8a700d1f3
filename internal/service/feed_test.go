package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/social-timeline/internal/model"
)

func publishN(t *testing.T, e *testEnv, author *model.User, n int) []*model.Post {
	t.Helper()
	ctx := context.Background()
	posts := make([]*model.Post, n)
	base := time.Now().Add(-time.Duration(n) * time.Minute)
	for i := 0; i < n; i++ {
		p := &model.Post{ID: fmt.Sprintf("p%03d", i), AuthorID: author.ID, Body: fmt.Sprintf("post %d", i),
			Visibility: model.VisibilityPublic, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, e.db.Create(p).Error)
		ev := &model.Event{ID: p.ID, OwnerID: author.ID, Kind: model.KindPost, Visibility: p.Visibility, Body: p.Body, CreatedAt: p.CreatedAt}
		require.NoError(t, e.fanout.Publish(ctx, ev))
		posts[i] = p
	}
	return posts
}

func TestPageLimitPlusOneTrick(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	author := e.newUser(t, "author")
	publishN(t, e, author, 3)

	page, err := e.feed.Page(ctx, author.ID, author.ID, model.LogInbound, 0, 2, false)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, page.Items[1].Time, *page.NextCursor)

	page2, err := e.feed.Page(ctx, author.ID, author.ID, model.LogInbound, *page.NextCursor, 2, false)
	require.NoError(t, err)
	require.Len(t, page2.Items, 1)
	assert.Nil(t, page2.NextCursor)
}

func TestPaginationCompleteness(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	author := e.newUser(t, "author")
	reader := e.newUser(t, "reader")
	e.follow(t, reader, author)
	publishN(t, e, author, 10)

	seen := make(map[string]int)
	var lastTime int64
	var cursor int64
	first := true
	for {
		page, err := e.feed.Page(ctx, reader.ID, reader.ID, model.LogInbound, cursor, 3, false)
		require.NoError(t, err)
		for _, it := range page.Items {
			if !first {
				assert.Less(t, it.Time, lastTime, "strictly decreasing time order across pages")
			}
			first = false
			lastTime = it.Time
			seen[it.EventID]++
		}
		if page.NextCursor == nil {
			break
		}
		cursor = *page.NextCursor
	}
	assert.Len(t, seen, 10, "every entry exactly once")
	for id, n := range seen {
		assert.Equal(t, 1, n, "event %s delivered once", id)
	}
}

func TestResilientHydrationDropsDeletedEntity(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	author := e.newUser(t, "author")
	posts := publishN(t, e, author, 3)

	// 实体在投递后被直接删掉（绕过撤回），指针悬空
	require.NoError(t, e.db.Delete(&model.Post{}, "id = ?", posts[1].ID).Error)

	page, err := e.feed.Page(ctx, author.ID, author.ID, model.LogInbound, 0, 2, false)
	require.NoError(t, err, "hydration miss must not fail the page")
	require.Len(t, page.Items, 1, "dropped row still counts toward the limit")
	require.NotNil(t, page.NextCursor, "cursor advances past the dropped row")

	page2, err := e.feed.Page(ctx, author.ID, author.ID, model.LogInbound, *page.NextCursor, 2, false)
	require.NoError(t, err)
	require.Len(t, page2.Items, 1)
	assert.Equal(t, posts[0].ID, page2.Items[0].EventID)
}

func TestHydrationHidesForbiddenEntities(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	author := e.newUser(t, "author")
	reader := e.newUser(t, "reader")
	e.follow(t, reader, author)
	e.befriend(t, author, reader)

	_, err := e.posts.Create(ctx, author.ID, "for friends", model.VisibilityPrivate)
	require.NoError(t, err)
	require.Len(t, e.inboundEntries(t, reader.ID), 1)

	// 投递后友尽：条目还在，但水合时被 Forbidden 拦下
	require.NoError(t, e.friendRepo.Delete(ctx, author.ID, reader.ID))

	page, err := e.feed.Page(ctx, reader.ID, reader.ID, model.LogInbound, 0, 10, false)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestPageRejectsInvalidInput(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_, err := e.feed.Page(ctx, "u", "u", model.LogInbound, -1, 10, false)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = e.feed.Page(ctx, "u", "u", model.LogKind("archive"), 0, 10, false)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = e.feed.Page(ctx, "u", "", model.LogInbound, 0, 10, false)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestViewerRelativeFlags(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	author := e.newUser(t, "author")
	reader := e.newUser(t, "reader")
	e.follow(t, reader, author)
	publishN(t, e, author, 1)

	page, err := e.feed.Page(ctx, reader.ID, reader.ID, model.LogInbound, 0, 10, false)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	it := page.Items[0]
	assert.False(t, it.IsSelf)
	assert.True(t, it.ViewerFollowsActor)
	assert.False(t, it.ActorFollowsViewer)
	require.NotNil(t, it.Actor)
	assert.Equal(t, "author", it.Actor.Username)
	assert.NotEmpty(t, it.Age)

	own, err := e.feed.Page(ctx, author.ID, author.ID, model.LogOwn, 0, 10, false)
	require.NoError(t, err)
	require.Len(t, own.Items, 1)
	assert.True(t, own.Items[0].IsSelf)
}

func TestLikeHydrationIncludesPost(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	author := e.newUser(t, "author")
	liker := e.newUser(t, "liker")
	fan := e.newUser(t, "fan")
	e.follow(t, fan, liker)

	p, err := e.posts.Create(ctx, author.ID, "likeable", model.VisibilityPublic)
	require.NoError(t, err)
	l, err := e.likes.Create(ctx, liker.ID, p.ID, model.VisibilityPublic)
	require.NoError(t, err)

	page, err := e.feed.Page(ctx, fan.ID, fan.ID, model.LogInbound, 0, 10, false)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.Items[0].Like)
	require.NotNil(t, page.Items[0].Post)
	assert.Equal(t, l.ID, page.Items[0].Like.ID)
	assert.Equal(t, p.ID, page.Items[0].Post.ID)
}
