package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CertificateController struct {
	CertificateService *service.CertificateService
}

func NewCertificateController(certificateService *service.CertificateService) *CertificateController {
	return &CertificateController{CertificateService: certificateService}
}

// List godoc
// @Summary 证书列表
// @Tags certificate
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Certificate}
// @Router /api/certificates [get]
func (c *CertificateController) List(ctx *gin.Context) {
	list, err := c.CertificateService.List(ctx.Request.Context())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// Preview godoc
// @Summary 检查关联证书的级别冲突
// @Description 返回每个冲突证书及建议级别，保存前需逐一确认
// @Tags certificate
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param certificate body service.CertificateDraft true "证书"
// @Success 200 {object} util.Response{data=[]service.LevelConflict}
// @Router /api/admin/certificates/preview [post]
func (c *CertificateController) Preview(ctx *gin.Context) {
	var draft service.CertificateDraft
	if err := ctx.ShouldBindJSON(&draft); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	conflicts, err := c.CertificateService.Preview(ctx.Request.Context(), draft)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, conflicts)
}

// Create godoc
// @Summary 创建证书
// @Tags certificate
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body service.SaveCertificateRequest true "证书及冲突确认"
// @Success 201 {object} util.Response{data=service.SaveCertificateResult}
// @Failure 409 {object} util.Response "存在未确认的级别冲突"
// @Failure 500 {object} util.Response "部分提交"
// @Router /api/admin/certificates [post]
func (c *CertificateController) Create(ctx *gin.Context) {
	var req service.SaveCertificateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	req.Certificate.ID = ""
	res, err := c.CertificateService.Save(ctx.Request.Context(), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, res)
}

// Update godoc
// @Summary 更新证书
// @Tags certificate
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "证书ID"
// @Param request body service.SaveCertificateRequest true "证书及冲突确认"
// @Success 200 {object} util.Response{data=service.SaveCertificateResult}
// @Router /api/admin/certificates/{id} [put]
func (c *CertificateController) Update(ctx *gin.Context) {
	var req service.SaveCertificateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	req.Certificate.ID = ctx.Param("id")
	res, err := c.CertificateService.Save(ctx.Request.Context(), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}
