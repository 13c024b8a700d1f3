package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/social-timeline/internal/model"
	"github.com/d60-Lab/social-timeline/pkg/response"
)

type createPostRequest struct {
	Body       string `json:"body" binding:"required"`
	Visibility string `json:"visibility" binding:"omitempty,visibility"`
}

// CreatePost 发布 post 并扇出
// @Summary 发布内容
// @Tags 内容
// @Accept json
// @Produce json
// @Param request body createPostRequest true "内容"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	vis := model.Visibility(req.Visibility)
	if req.Visibility == "" {
		vis = model.VisibilityPublic
	}
	p, err := h.postSvc.Create(c.Request.Context(), viewer(c), req.Body, vis)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, p)
}

// GetPost 按观察者读取单条 post
// @Summary 读取内容
// @Tags 内容
// @Param id path string true "post ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/posts/{id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	p, err := h.postSvc.GetByID(c.Request.Context(), viewer(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, p)
}

// DeletePost 删除 post（先撤回全部时间线条目）
// @Summary 删除内容
// @Tags 内容
// @Param id path string true "post ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/posts/{id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	if err := h.postSvc.Delete(c.Request.Context(), viewer(c), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, nil)
}
