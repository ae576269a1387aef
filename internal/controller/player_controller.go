package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PlayerController struct {
	PlayerService *service.PlayerService
}

func NewPlayerController(playerService *service.PlayerService) *PlayerController {
	return &PlayerController{PlayerService: playerService}
}

// View godoc
// @Summary 打开内容播放器
// @Description 返回当前活动、作答和进度；游标在会话过期前保留
// @Tags player
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "内容ID"
// @Success 200 {object} util.Response{data=service.PlayerView}
// @Failure 401 {object} util.Response
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/player/{id} [get]
func (c *PlayerController) View(ctx *gin.Context) {
	identity, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	view, err := c.PlayerService.View(ctx.Request.Context(), ctx.Param("id"), identity)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// Answer godoc
// @Summary 提交当前活动的作答
// @Description 视频结束、文档查看、阅读计时或滚动、选择题、文本和上传都走这里
// @Tags player
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "内容ID"
// @Param input body service.ActivityInput true "交互事件"
// @Success 200 {object} util.Response{data=object}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Failure 502 {object} util.Response
// @Router /api/player/{id}/answer [post]
func (c *PlayerController) Answer(ctx *gin.Context) {
	identity, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	var in service.ActivityInput
	if err := ctx.ShouldBindJSON(&in); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	view, res, err := c.PlayerService.Answer(ctx.Request.Context(), ctx.Param("id"), identity, in)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"view": view, "result": res})
}

// Next godoc
// @Summary 前进到下一个活动或完成内容
// @Tags player
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "内容ID"
// @Success 200 {object} util.Response{data=object}
// @Failure 409 {object} util.Response "当前必做活动未完成"
// @Failure 500 {object} util.Response "部分提交"
// @Router /api/player/{id}/next [post]
func (c *PlayerController) Next(ctx *gin.Context) {
	identity, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	view, res, err := c.PlayerService.Next(ctx.Request.Context(), ctx.Param("id"), identity)
	if err != nil {
		if res.Concluded {
			logger.Log.Warn("content concluded with follow-up failure",
				zap.String("content_id", ctx.Param("id")),
				zap.String("user_id", identity.ID),
				zap.Int("index", view.Index))
		}
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"view": view, "result": res})
}

// Previous godoc
// @Summary 回到上一个活动
// @Tags player
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "内容ID"
// @Success 200 {object} util.Response{data=service.PlayerView}
// @Router /api/player/{id}/previous [post]
func (c *PlayerController) Previous(ctx *gin.Context) {
	identity, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	view, err := c.PlayerService.Previous(ctx.Request.Context(), ctx.Param("id"), identity)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// Exit godoc
// @Summary 离开播放器前的确认信息
// @Tags player
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "内容ID"
// @Success 200 {object} util.Response{data=service.ExitPrompt}
// @Router /api/player/{id}/exit [get]
func (c *PlayerController) Exit(ctx *gin.Context) {
	identity, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	prompt, err := c.PlayerService.Exit(ctx.Request.Context(), ctx.Param("id"), identity)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, prompt)
}

// Upload godoc
// @Summary 上传作答文件
// @Description 返回文件地址，随后通过 answer 接口以 file_url 提交
// @Tags player
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "内容ID"
// @Param file formData file true "作答文件"
// @Success 201 {object} util.Response{data=object}
// @Failure 400 {object} util.Response
// @Router /api/player/{id}/upload [post]
func (c *PlayerController) Upload(ctx *gin.Context) {
	identity, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "File is required")
		return
	}
	src, err := file.Open()
	if err != nil {
		util.BadRequest(ctx, "File cannot be read")
		return
	}
	defer src.Close()

	contentType, reader, err := util.SniffContentType(src, file.Header.Get("Content-Type"))
	if err != nil {
		util.BadRequest(ctx, "File cannot be read")
		return
	}
	url, err := c.PlayerService.UploadAnswerFile(ctx.Request.Context(), ctx.Param("id"), identity, file.Filename, file.Size, reader, contentType)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"url": url})
}
