package util

import (
	"net/http"

	"reading_edu_backend/pkg/logger"

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

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err))
	InternalServerError(c)
}

// FailWithError 按错误分类映射 HTTP 状态码：
// NotFound→404、InvalidState→409、TransactionConflict→503（可重试）、其余→500
func FailWithError(c *gin.Context, err error) {
	appErr := AsAppError(err)
	if appErr == nil {
		LogInternalError(c, err)
		return
	}

	switch appErr.Kind {
	case KindNotFound:
		Error(c, http.StatusNotFound, appErr.Message)
	case KindInvalidState:
		Error(c, http.StatusConflict, appErr.Message)
	case KindTransactionConflict:
		c.Header("Retry-After", "1")
		Error(c, http.StatusServiceUnavailable, appErr.Message)
	default:
		logger.Log.Error("integrity violation", zap.Error(err))
		Error(c, http.StatusInternalServerError, appErr.Message)
	}
}
