package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/social-timeline/config"
	"github.com/d60-Lab/social-timeline/internal/api"
	"github.com/d60-Lab/social-timeline/internal/api/handler"
	"github.com/d60-Lab/social-timeline/internal/model"
	"github.com/d60-Lab/social-timeline/internal/repository"
	"github.com/d60-Lab/social-timeline/internal/service"
	"github.com/d60-Lab/social-timeline/internal/task"
	"github.com/d60-Lab/social-timeline/pkg/cache"
	"github.com/d60-Lab/social-timeline/pkg/database"
	"github.com/d60-Lab/social-timeline/pkg/logger"
	"github.com/d60-Lab/social-timeline/pkg/tracing"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func mustDo(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	ctx := context.Background()
	cfg := must(config.Load())
	if err := logger.Init(cfg.Server.Mode); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	shutdownTracing := must(tracing.Init(ctx, cfg, "social-timeline"))
	defer func() { _ = shutdownTracing(ctx) }()

	db := must(database.InitDB(cfg))
	mustDo(db.AutoMigrate(
		&model.User{}, &model.Post{}, &model.Like{},
		&model.Follow{}, &model.Fan{}, &model.Friend{},
		&model.TimelineEntry{},
	))

	rdb := cache.New(cfg)
	c := cache.NewCache(rdb, cfg.Redis.TTL)

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	followRepo := repository.NewFollowRepository(db)
	fanRepo := repository.NewFanRepository(db)
	friendRepo := repository.NewFriendRepository(db)
	timelineRepo := repository.NewTimelineRepository(db)

	runner := task.NewRunner(cfg.Fanout.Workers, cfg.Fanout.QueueSize, cfg.Fanout.MaxRetries, cfg.Fanout.RetryDelay)
	runner.Retryable = service.IsTransient

	fanout := service.NewFanoutService(timelineRepo, fanRepo, friendRepo, userRepo, c, runner, cfg.Fanout.BatchSize, cfg.Fanout.InlineLimit)
	postSvc := service.NewPostService(postRepo, friendRepo, fanout)
	likeSvc := service.NewLikeService(likeRepo, friendRepo, postSvc, fanout)
	userSvc := service.NewUserService(userRepo, cfg.JWT.Secret, cfg.JWT.TTL)
	feedSvc := service.NewFeedService(timelineRepo, followRepo, friendRepo, userRepo, postSvc, likeSvc, c,
		cfg.Feed.DefaultLimit, cfg.Feed.MaxLimit, cfg.Feed.HydrateConc)
	seeder := service.NewSeederService(feedSvc, timelineRepo, c, cfg.Fanout.BatchSize, cfg.Fanout.SeedWindow)
	relSvc := service.NewRelationshipService(followRepo, fanRepo, friendRepo, timelineRepo, fanout, seeder, runner, c, cfg.Fanout.SeedWindow)

	runner.Register(service.TaskFanoutDeliver, fanout.HandleDeliver)
	runner.Register(service.TaskSeed, seeder.HandleSeed)
	stopRunner := runner.Start()

	h := handler.NewHandler(userSvc, postSvc, likeSvc, relSvc, feedSvc)
	r := api.NewRouter(cfg, h)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: r}
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server exited", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = stopRunner(shutdownCtx)
}
