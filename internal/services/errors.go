package services

import "errors"

// 面向用户的可恢复错误分类。handlers 层据此决定渲染表单提示、
// 重定向登录、403 或 404；其余错误一律按内部错误处理。
var (
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrDuplicateTitle  = errors.New("post title already exists")
	ErrUnknownEmail    = errors.New("unknown email")
	ErrInvalidPassword = errors.New("invalid password")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("login required")
	ErrValidation      = errors.New("missing required field")
)
