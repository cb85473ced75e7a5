package util

import (
	"net/http"

	"meal-planner/internal/apperr"

	"github.com/gin-gonic/gin"
)

// 通用返回结构里的 data 使用 map
type Response map[string]interface{}

// 业务错误码
const (
	CodeOK           = 0
	CodeInvalidParam = 40001
	CodeAuth         = 40101
	CodeForbidden    = 40301
	CodeNotFound     = 40401
	CodeConflict     = 40901
	CodeServerErr    = 50001
)

// 内部错误不把细节返回给前端
const msgServerErr = "Erreur interne du serveur"

// Success 统一成功返回
func Success(c *gin.Context, data Response) {
	c.JSON(http.StatusOK, gin.H{
		"code": CodeOK,
		"data": data,
	})
}

// Error 统一错误返回
func Error(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
	})
}

// Fail 按 apperr.Kind 映射 HTTP 状态码和业务码。
// 内部错误挂到 c.Errors 上，由请求日志中间件统一输出。
func Fail(c *gin.Context, err error) {
	status, code := StatusOf(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		Error(c, status, code, msgServerErr)
		return
	}
	Error(c, status, code, apperr.MessageOf(err, http.StatusText(status)))
}

// StatusOf 返回错误对应的 HTTP 状态码和业务码
func StatusOf(err error) (int, int) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest, CodeInvalidParam
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized, CodeAuth
	case apperr.KindForbidden:
		return http.StatusForbidden, CodeForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound, CodeNotFound
	case apperr.KindConflict:
		return http.StatusConflict, CodeConflict
	default:
		return http.StatusInternalServerError, CodeServerErr
	}
}
