package errors

import (
	"errors"
	"fmt"
)

// AppError 应用错误类型
// 包含数字错误码、机器可读的错误类型、用户可见消息以及触发错误的方法名
type AppError struct {
	Code    int    // 错误码
	Kind    string // 机器可读的错误类型，例如 error-invalid-room
	Message string // 用户可见的错误消息
	Method  string // 触发错误的方法（用于诊断）
	Err     error  // 原始错误（可选，用于调试）
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	prefix := fmt.Sprintf("[%d] %s", e.Code, e.Message)
	if e.Method != "" {
		prefix = fmt.Sprintf("[%d] %s (%s)", e.Code, e.Message, e.Method)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return prefix
}

// Unwrap 支持 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewError 创建新错误
func NewError(code int, kind, message string) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// Wrap 包装原始错误
func (e *AppError) Wrap(err error) *AppError {
	c := *e
	c.Err = err
	return &c
}

// WithMethod 标记触发错误的方法
func (e *AppError) WithMethod(method string) *AppError {
	c := *e
	c.Method = method
	return &c
}

// WithMessage 替换用户可见消息，保留错误码和类型
func (e *AppError) WithMessage(message string) *AppError {
	c := *e
	c.Message = message
	return &c
}

// Is 判断是否为指定错误
func Is(err error, target *AppError) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

// As 提取 AppError，非 AppError 时包装为服务器内部错误
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrServerError.Wrap(err)
}

// GetCode 获取错误码，如果不是 AppError 返回默认错误码
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeServerError
}

// GetMessage 获取错误消息
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Internal server error"
}

// ============== 错误码定义 ==============

const (
	CodeSuccess = 0

	// 认证相关 10000-10999
	CodeTokenInvalid    = 10003
	CodeTokenExpired    = 10004
	CodeUnauthenticated = 10006

	// 参数相关 11000-11999
	CodeInvalidParams = 11002

	// 房间相关 13000-13999
	CodeInvalidRoom = 13001
	CodeInvalidUser = 13002
	CodeNotAllowed  = 13003

	// 系统错误 50000-50999
	CodeServerError   = 50001
	CodeDBError       = 50002
	CodeTooManyReqest = 50003
)

// ============== 预定义错误 ==============

// 认证相关
var (
	ErrTokenInvalid    = NewError(CodeTokenInvalid, "error-token-invalid", "Token is invalid")
	ErrTokenExpired    = NewError(CodeTokenExpired, "error-token-expired", "Token has expired")
	ErrUnauthenticated = NewError(CodeUnauthenticated, "error-unauthenticated", "Unauthenticated")
)

// 房间相关
var (
	ErrInvalidRoom = NewError(CodeInvalidRoom, "error-invalid-room", "Invalid room")
	ErrInvalidUser = NewError(CodeInvalidUser, "error-invalid-user", "Invalid user")
	ErrNotAllowed  = NewError(CodeNotAllowed, "error-not-allowed", "Not allowed")
)

// 系统相关
var (
	ErrInvalidParams  = NewError(CodeInvalidParams, "error-invalid-params", "Invalid params")
	ErrServerError    = NewError(CodeServerError, "error-server", "Internal server error")
	ErrDBError        = NewError(CodeDBError, "error-database", "Database error")
	ErrTooManyRequest = NewError(CodeTooManyReqest, "error-too-many-requests", "Too many requests, retry later")
)
