package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/social-timeline/internal/model"
	"github.com/d60-Lab/social-timeline/internal/repository"
	"github.com/d60-Lab/social-timeline/pkg/cache"
)

type testEnv struct {
	db           *gorm.DB
	userRepo     repository.UserRepository
	followRepo   repository.FollowRepository
	fanRepo      repository.FanRepository
	friendRepo   repository.FriendRepository
	timelineRepo repository.TimelineRepository
	cache        *cache.Cache
	fanout       *FanoutService
	posts        *PostService
	likes        *LikeService
	feed         *FeedService
	seeder       *SeederService
	rel          RelationshipService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithCache(t, cache.NewCache(nil, time.Minute))
}

func newTestEnvWithCache(t *testing.T, c *cache.Cache) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: glogger.Default.LogMode(glogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.User{}, &model.Post{}, &model.Like{},
		&model.Follow{}, &model.Fan{}, &model.Friend{},
		&model.TimelineEntry{},
	))

	e := &testEnv{
		db:           db,
		userRepo:     repository.NewUserRepository(db),
		followRepo:   repository.NewFollowRepository(db),
		fanRepo:      repository.NewFanRepository(db),
		friendRepo:   repository.NewFriendRepository(db),
		timelineRepo: repository.NewTimelineRepository(db),
		cache:        c,
	}
	postRepo := repository.NewPostRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	e.fanout = NewFanoutService(e.timelineRepo, e.fanRepo, e.friendRepo, e.userRepo, c, nil, 50, 64)
	e.posts = NewPostService(postRepo, e.friendRepo, e.fanout)
	e.likes = NewLikeService(likeRepo, e.friendRepo, e.posts, e.fanout)
	e.feed = NewFeedService(e.timelineRepo, e.followRepo, e.friendRepo, e.userRepo, e.posts, e.likes, c, 20, 100, 4)
	e.seeder = NewSeederService(e.feed, e.timelineRepo, c, 50, 7*24*time.Hour)
	e.rel = NewRelationshipService(e.followRepo, e.fanRepo, e.friendRepo, e.timelineRepo, e.fanout, e.seeder, nil, c, 7*24*time.Hour)
	return e
}

func (e *testEnv) newUser(t *testing.T, username string) *model.User {
	t.Helper()
	u := &model.User{ID: uuid.New().String(), Username: username, Email: username + "@example.com", Password: "p"}
	require.NoError(t, e.userRepo.Create(context.Background(), u))
	return u
}

// follow 直接落关注边 + 粉丝冗余，不触发事件与回填（测试里按需单独触发）
func (e *testEnv) follow(t *testing.T, from, to *model.User) *model.Follow {
	t.Helper()
	ctx := context.Background()
	f := &model.Follow{ID: uuid.New().String(), FollowerID: from.ID, FolloweeID: to.ID, Visibility: model.VisibilityPublic}
	require.NoError(t, e.followRepo.Create(ctx, f))
	require.NoError(t, e.fanRepo.Create(ctx, to.ID, from.ID, f.ID, model.VisibilityPublic))
	return f
}

func (e *testEnv) befriend(t *testing.T, a, b *model.User) {
	t.Helper()
	ctx := context.Background()
	_, err := e.friendRepo.Request(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.NoError(t, e.friendRepo.Accept(ctx, a.ID, b.ID))
}

func (e *testEnv) inboundEntries(t *testing.T, userID string) []*model.TimelineEntry {
	t.Helper()
	rows, err := e.timelineRepo.Range(context.Background(), model.LogInbound, userID, 0, 1000, false)
	require.NoError(t, err)
	return rows
}

func (e *testEnv) ownEntries(t *testing.T, userID string) []*model.TimelineEntry {
	t.Helper()
	rows, err := e.timelineRepo.Range(context.Background(), model.LogOwn, userID, 0, 1000, false)
	require.NoError(t, err)
	return rows
}
