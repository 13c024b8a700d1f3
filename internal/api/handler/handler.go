package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/social-timeline/internal/service"
	"github.com/d60-Lab/social-timeline/pkg/response"
)

// Handler 聚合全部 HTTP 处理器依赖
type Handler struct {
	userSvc *service.UserService
	postSvc *service.PostService
	likeSvc *service.LikeService
	relSvc  service.RelationshipService
	feedSvc *service.FeedService
}

func NewHandler(
	userSvc *service.UserService,
	postSvc *service.PostService,
	likeSvc *service.LikeService,
	relSvc service.RelationshipService,
	feedSvc *service.FeedService,
) *Handler {
	return &Handler{userSvc: userSvc, postSvc: postSvc, likeSvc: likeSvc, relSvc: relSvc, feedSvc: feedSvc}
}

// viewer 取认证中间件写入的用户 ID
func viewer(c *gin.Context) string { return c.GetString("user_id") }

// respondErr 错误分类到 HTTP 状态码
func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrFollowSelf),
		errors.Is(err, service.ErrFriendSelf):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
