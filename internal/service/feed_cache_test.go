package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/social-timeline/internal/model"
	"github.com/d60-Lab/social-timeline/pkg/cache"
)

func newRedisCache(t *testing.T) *cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return cache.NewCache(rdb, time.Minute)
}

func TestFeedFirstPageIsMemoized(t *testing.T) {
	e := newTestEnvWithCache(t, newRedisCache(t))
	ctx := context.Background()
	author := e.newUser(t, "author")
	reader := e.newUser(t, "reader")
	e.follow(t, reader, author)
	publishN(t, e, author, 2)

	page, err := e.feed.Page(ctx, reader.ID, reader.ID, model.LogInbound, 0, 0, false)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	// 绕过引擎直接清表：缓存命中时读路径不应察觉
	require.NoError(t, e.db.Where("user_id = ?", reader.ID).Delete(&model.TimelineEntry{}).Error)

	cached, err := e.feed.Page(ctx, reader.ID, reader.ID, model.LogInbound, 0, 0, false)
	require.NoError(t, err)
	assert.Len(t, cached.Items, 2, "served from cache")
}

func TestCacheHonorsRequestedLimit(t *testing.T) {
	e := newTestEnvWithCache(t, newRedisCache(t))
	ctx := context.Background()
	author := e.newUser(t, "author")
	reader := e.newUser(t, "reader")
	e.follow(t, reader, author)
	publishN(t, e, author, 5)

	// 截短页在前：后续更大的 limit 必须拿到完整的页，而不是缓存里的短页
	short, err := e.feed.Page(ctx, reader.ID, reader.ID, model.LogInbound, 0, 2, false)
	require.NoError(t, err)
	require.Len(t, short.Items, 2)
	require.NotNil(t, short.NextCursor)

	full, err := e.feed.Page(ctx, reader.ID, reader.ID, model.LogInbound, 0, 10, false)
	require.NoError(t, err)
	assert.Len(t, full.Items, 5)
	assert.Nil(t, full.NextCursor)

	// 默认 limit 的首页落缓存后，小 limit 的请求也不得吃到它
	warm, err := e.feed.Page(ctx, reader.ID, reader.ID, model.LogInbound, 0, 0, false)
	require.NoError(t, err)
	require.Len(t, warm.Items, 5)

	short2, err := e.feed.Page(ctx, reader.ID, reader.ID, model.LogInbound, 0, 2, false)
	require.NoError(t, err)
	assert.Len(t, short2.Items, 2)
	require.NotNil(t, short2.NextCursor)
}

func TestDeliveryInvalidatesFeedCache(t *testing.T) {
	e := newTestEnvWithCache(t, newRedisCache(t))
	ctx := context.Background()
	author := e.newUser(t, "author")
	reader := e.newUser(t, "reader")
	e.follow(t, reader, author)
	publishN(t, e, author, 1)

	page, err := e.feed.Page(ctx, reader.ID, reader.ID, model.LogInbound, 0, 0, false)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	// 新投递使缓存失效，下一次读取看到两条
	publishAt(t, e, author, "fresh", "new post", model.VisibilityPublic, time.Now())
	page2, err := e.feed.Page(ctx, reader.ID, reader.ID, model.LogInbound, 0, 0, false)
	require.NoError(t, err)
	assert.Len(t, page2.Items, 2)
}

func TestCacheAbsenceDegradesGracefully(t *testing.T) {
	// cache client 为 nil：行为正确只是少了 memoization
	e := newTestEnv(t)
	ctx := context.Background()
	author := e.newUser(t, "author")
	publishN(t, e, author, 1)

	page, err := e.feed.Page(ctx, author.ID, author.ID, model.LogInbound, 0, 10, false)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}
