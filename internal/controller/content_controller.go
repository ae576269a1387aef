package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ContentController struct {
	ContentService *service.ContentService
}

func NewContentController(contentService *service.ContentService) *ContentController {
	return &ContentController{ContentService: contentService}
}

// ListMine godoc
// @Summary 当前用户可见的内容
// @Tags content
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.ContentSummary}
// @Router /api/contents [get]
func (c *ContentController) ListMine(ctx *gin.Context) {
	identity, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	list, err := c.ContentService.ListForUser(ctx.Request.Context(), identity)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// Get godoc
// @Summary 内容详情（管理）
// @Tags content
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "内容ID"
// @Success 200 {object} util.Response{data=model.Content}
// @Failure 404 {object} util.Response
// @Router /api/admin/contents/{id} [get]
func (c *ContentController) Get(ctx *gin.Context) {
	content, err := c.ContentService.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, content)
}

// Create godoc
// @Summary 创建内容
// @Description 级别 1-2 的内容会自动分配给所选部门的全部用户
// @Tags content
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param content body service.ContentDraft true "内容"
// @Success 201 {object} util.Response{data=model.Content}
// @Failure 400 {object} util.Response
// @Router /api/admin/contents [post]
func (c *ContentController) Create(ctx *gin.Context) {
	var draft service.ContentDraft
	if err := ctx.ShouldBindJSON(&draft); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	content, err := c.ContentService.Create(ctx.Request.Context(), draft)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, content)
}

// Update godoc
// @Summary 更新内容
// @Tags content
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "内容ID"
// @Param content body service.ContentDraft true "内容"
// @Success 200 {object} util.Response{data=model.Content}
// @Router /api/admin/contents/{id} [put]
func (c *ContentController) Update(ctx *gin.Context) {
	var draft service.ContentDraft
	if err := ctx.ShouldBindJSON(&draft); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	content, err := c.ContentService.Update(ctx.Request.Context(), ctx.Param("id"), draft)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, content)
}
