package api

import (
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/social-timeline/config"
	_ "github.com/d60-Lab/social-timeline/docs"
	"github.com/d60-Lab/social-timeline/internal/api/handler"
	"github.com/d60-Lab/social-timeline/internal/api/middleware"
	"github.com/d60-Lab/social-timeline/internal/model"
)

// NewRouter 装配路由与中间件
func NewRouter(cfg *config.Config, h *handler.Handler) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	registerValidators()

	r := gin.New()
	r.Use(
		middleware.RequestLogger(),
		gin.Recovery(),
		sentrygin.New(sentrygin.Options{Repanic: true}),
		gzip.Gzip(gzip.DefaultCompression),
		otelgin.Middleware("social-timeline"),
		middleware.RateLimit(cfg.Server.RateRPS, cfg.Server.RateBurst),
	)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	v1.POST("/users/register", h.Register)
	v1.POST("/users/login", h.Login)

	auth := v1.Group("")
	auth.Use(middleware.Auth(cfg.JWT.Secret))
	{
		auth.POST("/posts", h.CreatePost)
		auth.GET("/posts/:id", h.GetPost)
		auth.DELETE("/posts/:id", h.DeletePost)

		auth.POST("/likes", h.CreateLike)
		auth.DELETE("/likes/:id", h.DeleteLike)

		auth.POST("/relations/follow", h.Follow)
		auth.POST("/relations/unfollow", h.Unfollow)
		auth.GET("/relations/:user_id/following", h.ListFollowing)
		auth.GET("/relations/:user_id/fans", h.ListFans)
		auth.POST("/relations/friends/request", h.RequestFriend)
		auth.POST("/relations/friends/accept", h.AcceptFriend)
		auth.POST("/relations/friends/remove", h.RemoveFriend)

		auth.GET("/feed", h.Feed)
		auth.GET("/timeline/:user_id", h.Profile)
	}
	return r
}

func registerValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("visibility", func(fl validator.FieldLevel) bool {
			return model.Visibility(fl.Field().String()).Valid()
		})
	}
}
