package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/social-timeline/internal/model"
	"github.com/d60-Lab/social-timeline/pkg/response"
)

type createLikeRequest struct {
	PostID     string `json:"post_id" binding:"required"`
	Visibility string `json:"visibility" binding:"omitempty,visibility"`
}

// CreateLike 点赞并扇出
// @Summary 点赞
// @Tags 点赞
// @Accept json
// @Produce json
// @Param request body createLikeRequest true "点赞信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/likes [post]
func (h *Handler) CreateLike(c *gin.Context) {
	var req createLikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	vis := model.Visibility(req.Visibility)
	if req.Visibility == "" {
		vis = model.VisibilityPublic
	}
	l, err := h.likeSvc.Create(c.Request.Context(), viewer(c), req.PostID, vis)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, l)
}

// DeleteLike 取消点赞
// @Summary 取消点赞
// @Tags 点赞
// @Param id path string true "like ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/likes/{id} [delete]
func (h *Handler) DeleteLike(c *gin.Context) {
	if err := h.likeSvc.Delete(c.Request.Context(), viewer(c), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, nil)
}
