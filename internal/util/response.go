package util

import (
	"errors"
	"lms_backend/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, message)
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err))
	InternalServerError(c)
}

// RespondError 按错误分类映射 HTTP 状态码
func RespondError(c *gin.Context, err error) {
	var partial *PartialCommitError
	switch {
	case errors.As(err, &partial):
		logger.Log.Error("partial commit",
			zap.Int("step", partial.Step),
			zap.String("step_name", partial.StepName),
			zap.Strings("applied", partial.Applied),
			zap.Error(partial.Err))
		c.JSON(http.StatusInternalServerError, Response{
			Code:    http.StatusInternalServerError,
			Message: err.Error(),
			Data: gin.H{
				"step":      partial.Step,
				"step_name": partial.StepName,
				"applied":   partial.Applied,
			},
		})
	case errors.Is(err, ErrValidation):
		BadRequest(c, err.Error())
	case IsNotFound(err):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrContentNotAccessible), errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrNotAssigned):
		Error(c, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrActivityBlocked),
		errors.Is(err, ErrActivityLocked),
		errors.Is(err, ErrSubmissionInFlight),
		errors.Is(err, ErrConflictsUnresolved),
		errors.Is(err, ErrNotRejected),
		errors.Is(err, ErrAlreadyApproved),
		errors.Is(err, ErrAutomaticCorrection):
		Conflict(c, err.Error())
	case errors.Is(err, ErrUnsupportedActivity), errors.Is(err, ErrEmptySequence):
		Error(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrNetwork):
		logger.Log.Warn("collaborator failure", zap.Error(err))
		Error(c, http.StatusBadGateway, err.Error())
	default:
		LogInternalError(c, err)
	}
}
