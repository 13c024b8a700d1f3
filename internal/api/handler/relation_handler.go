package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/social-timeline/internal/model"
	"github.com/d60-Lab/social-timeline/pkg/response"
)

type followRequest struct {
	ToUserID   string `json:"to_user_id" binding:"required"`
	Visibility string `json:"visibility" binding:"omitempty,visibility"`
}

// Follow 建立关注（发布 follow 事件并回填近期动态）
// @Summary 关注用户
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body followRequest true "关注信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/relations/follow [post]
func (h *Handler) Follow(c *gin.Context) {
	var req followRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	f, err := h.relSvc.Follow(c.Request.Context(), viewer(c), req.ToUserID, model.Visibility(req.Visibility))
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, f)
}

type unfollowRequest struct {
	ToUserID string `json:"to_user_id" binding:"required"`
}

// Unfollow 取消关注（批量撤回经这条边投递的时间线条目）
// @Summary 取消关注
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body unfollowRequest true "取消关注信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/relations/unfollow [post]
func (h *Handler) Unfollow(c *gin.Context) {
	var req unfollowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.relSvc.Unfollow(c.Request.Context(), viewer(c), req.ToUserID); err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, nil)
}

// ListFollowing 查询某用户关注的人
// @Summary 查询关注列表
// @Tags 关系链
// @Param user_id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/relations/{user_id}/following [get]
func (h *Handler) ListFollowing(c *gin.Context) {
	userID := c.Param("user_id")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	list, err := h.relSvc.ListFollowing(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

// ListFans 查询某用户的粉丝
// @Summary 查询粉丝列表（来自冗余表）
// @Tags 关系链
// @Param user_id path string true "用户ID"
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(10)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/relations/{user_id}/fans [get]
func (h *Handler) ListFans(c *gin.Context) {
	userID := c.Param("user_id")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	list, err := h.relSvc.ListFans(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}

type friendRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// RequestFriend 发起好友请求
// @Summary 发起好友请求
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body friendRequest true "对方用户ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/relations/friends/request [post]
func (h *Handler) RequestFriend(c *gin.Context) {
	var req friendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	f, err := h.relSvc.RequestFriend(c.Request.Context(), viewer(c), req.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, f)
}

// AcceptFriend 确认好友请求（仅被请求方）
// @Summary 确认好友请求
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body friendRequest true "对方用户ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/relations/friends/accept [post]
func (h *Handler) AcceptFriend(c *gin.Context) {
	var req friendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.relSvc.AcceptFriend(c.Request.Context(), viewer(c), req.UserID); err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, nil)
}

// RemoveFriend 解除好友关系
// @Summary 解除好友关系
// @Tags 关系链
// @Accept json
// @Produce json
// @Param request body friendRequest true "对方用户ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/relations/friends/remove [post]
func (h *Handler) RemoveFriend(c *gin.Context) {
	var req friendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.relSvc.RemoveFriend(c.Request.Context(), viewer(c), req.UserID); err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, nil)
}
