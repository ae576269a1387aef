package controller

import (
	"lms_backend/internal/model"
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GradeController struct {
	GradingService *service.GradingService
}

func NewGradeController(gradingService *service.GradingService) *GradeController {
	return &GradeController{GradingService: gradingService}
}

// Tracking godoc
// @Summary 内容的学员进度表
// @Tags grading
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "内容ID"
// @Success 200 {object} util.Response{data=[]service.TrackingRow}
// @Router /api/admin/contents/{id}/tracking [get]
func (c *GradeController) Tracking(ctx *gin.Context) {
	rows, err := c.GradingService.Tracking(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// Grade godoc
// @Summary 人工批改
// @Description 通过时若内容关联证书则同时颁发
// @Tags grading
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "内容ID"
// @Param grade body model.GradeSubmission true "批改结果"
// @Success 200 {object} util.Response{data=service.GradeResult}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/admin/contents/{id}/grade [post]
func (c *GradeController) Grade(ctx *gin.Context) {
	var req model.GradeSubmission
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	res, err := c.GradingService.Grade(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// Reset godoc
// @Summary 重置未通过学员的进度
// @Tags grading
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "内容ID"
// @Param userId path string true "用户ID"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response "进度不是未通过状态"
// @Router /api/admin/contents/{id}/users/{userId}/reset [post]
func (c *GradeController) Reset(ctx *gin.Context) {
	content, err := c.GradingService.Reset(ctx.Request.Context(), ctx.Param("id"), ctx.Param("userId"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"content_id": content.ID, "user_id": ctx.Param("userId")})
}
