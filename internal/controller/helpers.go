package controller

import (
	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// currentIdentity 未登录时直接返回 401
func currentIdentity(ctx *gin.Context) (model.Identity, bool) {
	identity, ok := util.GetIdentity(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return model.Identity{}, false
	}
	return identity, true
}
