package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TemplateController struct {
	TemplateService *service.TemplateService
}

func NewTemplateController(templateService *service.TemplateService) *TemplateController {
	return &TemplateController{TemplateService: templateService}
}

// List godoc
// @Summary 活动模板列表
// @Tags template
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Template}
// @Router /api/admin/templates [get]
func (c *TemplateController) List(ctx *gin.Context) {
	list, err := c.TemplateService.List(ctx.Request.Context())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// Get godoc
// @Summary 活动模板详情
// @Tags template
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "模板ID"
// @Success 200 {object} util.Response{data=model.Template}
// @Failure 404 {object} util.Response
// @Router /api/admin/templates/{id} [get]
func (c *TemplateController) Get(ctx *gin.Context) {
	t, err := c.TemplateService.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, t)
}

// Create godoc
// @Summary 创建活动模板
// @Description 负载可放在 template 或 data 字段，缺省字段按类型补齐
// @Tags template
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param template body service.TemplateDraft true "模板"
// @Success 201 {object} util.Response{data=model.Template}
// @Failure 400 {object} util.Response
// @Router /api/admin/templates [post]
func (c *TemplateController) Create(ctx *gin.Context) {
	var draft service.TemplateDraft
	if err := ctx.ShouldBindJSON(&draft); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	t, err := c.TemplateService.Create(ctx.Request.Context(), draft)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, t)
}

// Update godoc
// @Summary 更新活动模板
// @Tags template
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "模板ID"
// @Param template body service.TemplateDraft true "模板"
// @Success 200 {object} util.Response{data=model.Template}
// @Router /api/admin/templates/{id} [put]
func (c *TemplateController) Update(ctx *gin.Context) {
	var draft service.TemplateDraft
	if err := ctx.ShouldBindJSON(&draft); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	t, err := c.TemplateService.Update(ctx.Request.Context(), ctx.Param("id"), draft)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, t)
}
