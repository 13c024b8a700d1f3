package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/social-timeline/internal/model"
	"github.com/d60-Lab/social-timeline/pkg/response"
)

// Feed 读取自己的收件箱 feed（倒序分页）
// @Summary 首页 feed
// @Tags 时间线
// @Param cursor query int false "上一页最后一行的 time，0 表示从最新开始"
// @Param limit query int false "每页数量"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/feed [get]
func (h *Handler) Feed(c *gin.Context) {
	h.page(c, viewer(c), model.LogInbound)
}

// Profile 读取某用户的 own-activity 日志（个人主页）
// @Summary 个人主页时间线
// @Tags 时间线
// @Param user_id path string true "用户ID"
// @Param cursor query int false "上一页最后一行的 time"
// @Param limit query int false "每页数量"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/timeline/{user_id} [get]
func (h *Handler) Profile(c *gin.Context) {
	h.page(c, c.Param("user_id"), model.LogOwn)
}

func (h *Handler) page(c *gin.Context, userID string, log model.LogKind) {
	cursorStr := c.DefaultQuery("cursor", "0")
	cursor, err := strconv.ParseInt(cursorStr, 10, 64)
	if err != nil {
		response.BadRequest(c, "malformed cursor")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	page, err := h.feedSvc.Page(c.Request.Context(), viewer(c), userID, log, cursor, limit, false)
	if err != nil {
		respondErr(c, err)
		return
	}
	response.Success(c, page)
}
