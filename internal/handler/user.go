package handler

import (
	"github.com/gin-gonic/gin"

	"meal-planner/internal/util"
)

// GetMe 返回当前登录用户信息（需要经过 AuthMiddleware）
func GetMe(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}

	util.Success(c, util.Response{
		"user": userJSON(user),
	})
}
