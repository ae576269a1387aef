package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	ProfileService *service.ProfileService
}

func NewUserController(profileService *service.ProfileService) *UserController {
	return &UserController{ProfileService: profileService}
}

// GetProfile godoc
// @Summary 当前用户的证书档案
// @Description 证书按关联关系分组，组内按级别从高到低
// @Tags user
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.Profile}
// @Router /api/profile [get]
func (c *UserController) GetProfile(ctx *gin.Context) {
	identity, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	c.respondProfile(ctx, identity.ID)
}

// GetUserProfile godoc
// @Summary 查看指定用户的证书档案
// @Tags user
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "用户ID"
// @Success 200 {object} util.Response{data=service.Profile}
// @Failure 403 {object} util.Response
// @Router /api/users/{id}/profile [get]
func (c *UserController) GetUserProfile(ctx *gin.Context) {
	c.respondProfile(ctx, ctx.Param("id"))
}

func (c *UserController) respondProfile(ctx *gin.Context, userID string) {
	identity, ok := currentIdentity(ctx)
	if !ok {
		return
	}
	profile, err := c.ProfileService.Profile(ctx.Request.Context(), identity, userID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, profile)
}
