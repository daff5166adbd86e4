package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "sudooom.im.roomgate/pkg/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Kind    string      `json:"kind,omitempty"`
	Message string      `json:"message"`
	Method  string      `json:"method,omitempty"`
	Data    interface{} `json:"data"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    appErrors.CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Error 从错误生成响应，非 AppError 按服务器内部错误处理
func Error(c *gin.Context, err error) {
	appErr := appErrors.As(err)
	c.JSON(StatusOf(appErr), Response{
		Code:    appErr.Code,
		Kind:    appErr.Kind,
		Message: appErr.Message,
		Method:  appErr.Method,
		Data:    nil,
	})
}

// Unauthorized 未认证
func Unauthorized(c *gin.Context, err *appErrors.AppError) {
	c.JSON(http.StatusUnauthorized, Response{
		Code:    err.Code,
		Kind:    err.Kind,
		Message: err.Message,
		Data:    nil,
	})
}

// StatusOf 错误码对应的 HTTP 状态码
func StatusOf(err *appErrors.AppError) int {
	switch err.Code {
	case appErrors.CodeInvalidParams, appErrors.CodeInvalidRoom, appErrors.CodeInvalidUser:
		return http.StatusBadRequest
	case appErrors.CodeUnauthenticated, appErrors.CodeTokenInvalid, appErrors.CodeTokenExpired:
		return http.StatusUnauthorized
	case appErrors.CodeNotAllowed:
		return http.StatusForbidden
	case appErrors.CodeTooManyReqest:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
