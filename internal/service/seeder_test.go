package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/social-timeline/internal/model"
)

func publishAt(t *testing.T, e *testEnv, author *model.User, id, body string, vis model.Visibility, at time.Time) {
	t.Helper()
	ctx := context.Background()
	p := &model.Post{ID: id, AuthorID: author.ID, Body: body, Visibility: vis, CreatedAt: at}
	require.NoError(t, e.db.Create(p).Error)
	ev := &model.Event{ID: p.ID, OwnerID: author.ID, Kind: model.KindPost, Visibility: vis, Body: body, CreatedAt: at}
	require.NoError(t, e.fanout.Publish(ctx, ev))
}

func TestSeedBackfillsWindowedPublicItems(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	author := e.newUser(t, "author")
	follower := e.newUser(t, "newbie")
	now := time.Now()

	publishAt(t, e, author, "old", "too old", model.VisibilityPublic, now.Add(-30*24*time.Hour))
	publishAt(t, e, author, "pub", "recent public", model.VisibilityPublic, now.Add(-time.Hour))
	publishAt(t, e, author, "priv", "recent private", model.VisibilityPrivate, now.Add(-2*time.Hour))
	publishAt(t, e, author, "pers", "recent personal", model.VisibilityPersonal, now.Add(-3*time.Hour))

	f := e.follow(t, follower, author)
	require.NoError(t, e.seeder.Seed(ctx, follower.ID, author.ID, f.ID, 7*24*time.Hour))

	rows := e.inboundEntries(t, follower.ID)
	require.Len(t, rows, 1, "only recent public items are replayed")
	assert.Equal(t, "pub", rows[0].EventID)
	require.NotNil(t, rows[0].SourceRelation)
	assert.Equal(t, f.ID, *rows[0].SourceRelation)
}

func TestSeedChecksVisibilityAtReplayTime(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	author := e.newUser(t, "author")
	follower := e.newUser(t, "newbie")
	now := time.Now()

	// 发布时 public，回放前改为 private：按回放时刻的可见性裁决，不再补种
	publishAt(t, e, author, "flip", "was public", model.VisibilityPublic, now.Add(-time.Hour))
	require.NoError(t, e.db.Model(&model.Post{}).Where("id = ?", "flip").Update("visibility", model.VisibilityPrivate).Error)

	f := e.follow(t, follower, author)
	require.NoError(t, e.seeder.Seed(ctx, follower.ID, author.ID, f.ID, 7*24*time.Hour))
	assert.Empty(t, e.inboundEntries(t, follower.ID))
}

func TestSeedIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	author := e.newUser(t, "author")
	follower := e.newUser(t, "newbie")
	publishAt(t, e, author, "p1", "hello", model.VisibilityPublic, time.Now().Add(-time.Hour))

	f := e.follow(t, follower, author)
	require.NoError(t, e.seeder.Seed(ctx, follower.ID, author.ID, f.ID, 7*24*time.Hour))
	require.NoError(t, e.seeder.Seed(ctx, follower.ID, author.ID, f.ID, 7*24*time.Hour))
	assert.Len(t, e.inboundEntries(t, follower.ID), 1)
}

func TestFollowSeedsAndUnfollowRetracts(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	author := e.newUser(t, "author")
	follower := e.newUser(t, "newbie")
	publishAt(t, e, author, "p1", "hello", model.VisibilityPublic, time.Now().Add(-time.Hour))

	_, err := e.rel.Follow(ctx, follower.ID, author.ID, model.VisibilityPublic)
	require.NoError(t, err)

	rows := e.inboundEntries(t, follower.ID)
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.EventID
	}
	assert.Contains(t, ids, "p1", "backfill lands in the new follower's inbox")

	require.NoError(t, e.rel.Unfollow(ctx, follower.ID, author.ID))
	for _, r := range e.inboundEntries(t, follower.ID) {
		assert.NotEqual(t, "p1", r.EventID, "entries delivered via the removed edge are retracted")
	}
	ok, err := e.followRepo.Exists(ctx, follower.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFollowSelfRejected(t *testing.T) {
	e := newTestEnv(t)
	u := e.newUser(t, "solo")
	_, err := e.rel.Follow(context.Background(), u.ID, u.ID, model.VisibilityPublic)
	assert.ErrorIs(t, err, ErrFollowSelf)
}

func TestAcceptFriendOnlyByRequestee(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := e.newUser(t, "alice")
	b := e.newUser(t, "bob")
	_, err := e.rel.RequestFriend(ctx, a.ID, b.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, e.rel.AcceptFriend(ctx, a.ID, b.ID), ErrForbidden, "requester cannot accept own request")
	require.NoError(t, e.rel.AcceptFriend(ctx, b.ID, a.ID))

	ok, err := e.friendRepo.IsFriend(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRepeatFriendRequestReturnsStoredRow(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	a := e.newUser(t, "alice")
	b := e.newUser(t, "bob")

	first, err := e.rel.RequestFriend(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.NoError(t, e.rel.AcceptFriend(ctx, b.ID, a.ID))

	// 重复请求不得伪造一条 pending 的新行，必须回显库里已 accepted 的那条
	again, err := e.rel.RequestFriend(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, model.FriendAccepted, again.Status)

	// 反向发起同样命中既有行
	mirror, err := e.rel.RequestFriend(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, mirror.ID)
}
