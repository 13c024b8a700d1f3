package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/social-timeline/config"
	"github.com/d60-Lab/social-timeline/internal/model"
	"github.com/d60-Lab/social-timeline/internal/repository"
	"github.com/d60-Lab/social-timeline/internal/service"
	"github.com/d60-Lab/social-timeline/internal/task"
	"github.com/d60-Lab/social-timeline/pkg/cache"
	"github.com/d60-Lab/social-timeline/pkg/database"
	"github.com/d60-Lab/social-timeline/pkg/logger"
)

func must[T any](v T, err error) T { if err != nil { panic(err) }; return v }

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 { return 0 }
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 { k = 0 }
	if k >= len(xs) { k = len(xs)-1 }
	return xs[k]
}

func main() {
	ctx := context.Background()
	cfg := must(config.Load())
	_ = logger.Init("release")
	db := must(database.InitDB(cfg))

	// params
	N := 2000    // followers of the author
	POSTS := 50  // posts to publish
	WORKERS := 8 // fanout workers
	BATCH := 500 // delivery upsert batch
	if s := os.Getenv("N"); s != "" { if v, e := strconv.Atoi(s); e == nil && v > 0 { N = v } }
	if s := os.Getenv("POSTS"); s != "" { if v, e := strconv.Atoi(s); e == nil && v > 0 { POSTS = v } }
	if s := os.Getenv("WORKERS"); s != "" { if v, e := strconv.Atoi(s); e == nil && v > 0 { WORKERS = v } }
	if s := os.Getenv("BATCH"); s != "" { if v, e := strconv.Atoi(s); e == nil && v > 0 { BATCH = v } }

	// clean tables for a reproducible run (ok for local bench)
	_ = db.Migrator().DropTable(&model.TimelineEntry{}, &model.Post{}, &model.Like{}, &model.Follow{}, &model.Fan{}, &model.Friend{}, &model.User{})
	if err := db.AutoMigrate(&model.User{}, &model.Post{}, &model.Like{}, &model.Follow{}, &model.Fan{}, &model.Friend{}, &model.TimelineEntry{}); err != nil {
		panic(err)
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	followRepo := repository.NewFollowRepository(db)
	fanRepo := repository.NewFanRepository(db)
	friendRepo := repository.NewFriendRepository(db)
	timelineRepo := repository.NewTimelineRepository(db)
	c := cache.NewCache(cache.New(cfg), cfg.Redis.TTL)

	runner := task.NewRunner(WORKERS, 65536, 3, 50*time.Millisecond)
	runner.Retryable = service.IsTransient
	fanout := service.NewFanoutService(timelineRepo, fanRepo, friendRepo, userRepo, c, runner, BATCH, 16)
	postSvc := service.NewPostService(postRepo, friendRepo, fanout)
	likeSvc := service.NewLikeService(likeRepo, friendRepo, postSvc, fanout)
	feedSvc := service.NewFeedService(timelineRepo, followRepo, friendRepo, userRepo, postSvc, likeSvc, c, 50, 200, 8)
	runner.Register(service.TaskFanoutDeliver, fanout.HandleDeliver)
	stop := runner.Start()
	defer stop(ctx)

	// seed one author and N followers
	author := &model.User{ID: "author0", Username: "author0", Email: "author0@example.com", Password: "p"}
	_ = userRepo.Create(ctx, author)
	followers := make([]model.User, N)
	for i := 0; i < N; i++ {
		id := uuid.New().String()
		followers[i] = model.User{ID: id, Username: "u" + id[:8], Email: id[:8] + "@example.com", Password: "p"}
	}
	_ = db.CreateInBatches(&followers, 1000).Error
	for i := 0; i < N; i++ {
		f := &model.Follow{ID: uuid.New().String(), FollowerID: followers[i].ID, FolloweeID: author.ID, Visibility: model.VisibilityPublic}
		_ = followRepo.Create(ctx, f)
		_ = fanRepo.Create(ctx, author.ID, followers[i].ID, f.ID, model.VisibilityPublic)
	}

	// publish POSTS through the real engine
	pubDurations := make([]time.Duration, 0, POSTS)
	for i := 0; i < POSTS; i++ {
		st := time.Now()
		if _, err := postSvc.Create(ctx, author.ID, fmt.Sprintf("hello %d", i), model.VisibilityPublic); err != nil {
			panic(err)
		}
		pubDurations = append(pubDurations, time.Since(st))
	}

	// wait for async deliveries to land in follower0's inbox
	deadline := time.After(2 * time.Minute)
	landed := 0
	for landed < POSTS {
		select {
		case <-deadline:
			fmt.Printf("timeout waiting for fanout: got=%d want=%d\n", landed, POSTS)
			goto PRINT
		default:
			rows, err := timelineRepo.Range(ctx, model.LogInbound, followers[0].ID, 0, POSTS+1, false)
			if err == nil {
				landed = len(rows)
			}
			if landed < POSTS {
				time.Sleep(50 * time.Millisecond)
			}
		}
	}

PRINT:
	var pubSum time.Duration
	for _, d := range pubDurations { pubSum += d }
	fmt.Printf("N=%d POSTS=%d WORKERS=%d BATCH=%d\n", N, POSTS, WORKERS, BATCH)
	fmt.Printf("Publish latency: avg=%v p95=%v p99=%v\n", pubSum/time.Duration(len(pubDurations)), pct(pubDurations, 0.95), pct(pubDurations, 0.99))

	// read follower0's feed page by page, cursor chained
	readDurations := make([]time.Duration, 0, 8)
	var cursor int64
	total := 0
	for {
		st := time.Now()
		page, err := feedSvc.Page(ctx, followers[0].ID, followers[0].ID, model.LogInbound, cursor, 20, false)
		if err != nil { panic(err) }
		readDurations = append(readDurations, time.Since(st))
		total += len(page.Items)
		if page.NextCursor == nil { break }
		cursor = *page.NextCursor
	}
	var readSum time.Duration
	for _, d := range readDurations { readSum += d }
	fmt.Printf("Feed read: pages=%d items=%d avg=%v p95=%v\n", len(readDurations), total, readSum/time.Duration(len(readDurations)), pct(readDurations, 0.95))
}
