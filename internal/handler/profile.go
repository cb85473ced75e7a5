package handler

import (
	"net/http"
	"strings"

	"meal-planner/internal/middleware"
	"meal-planner/internal/models"
	"meal-planner/internal/service"
	"meal-planner/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// UpdateProfileReq 更新基本资料请求
type UpdateProfileReq struct {
	FirstName string `json:"firstName" binding:"max=255"`
	LastName  string `json:"lastName" binding:"max=255"`
}

// ChangePasswordReq 修改密码请求
type ChangePasswordReq struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// UpdateProfile 更新当前用户的姓名
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := mustUser(c)
		if !ok {
			return
		}

		var req UpdateProfileReq
		if err := c.ShouldBindJSON(&req); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, msgInvalidParam)
			return
		}

		first := strings.TrimSpace(req.FirstName)
		last := strings.TrimSpace(req.LastName)
		if err := db.WithContext(c.Request.Context()).
			Model(&models.User{}).
			Where("id = ?", user.ID).
			Updates(map[string]interface{}{"first_name": first, "last_name": last}).Error; err != nil {
			util.Fail(c, err)
			return
		}

		user.FirstName = first
		user.LastName = last

		util.Success(c, util.Response{
			"user": userJSON(user),
		})
	}
}

// ChangePassword 修改当前用户密码，并注销其他会话
func ChangePassword(db *gorm.DB, users *service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := mustUser(c)
		if !ok {
			return
		}

		var req ChangePasswordReq
		if err := c.ShouldBindJSON(&req); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, msgInvalidParam)
			return
		}

		ctx := c.Request.Context()
		if err := users.ChangePassword(ctx, user, req.OldPassword, req.NewPassword); err != nil {
			util.Fail(c, err)
			return
		}

		sid := c.GetString(middleware.SessionIDKey)
		if err := db.WithContext(ctx).
			Model(&models.Session{}).
			Where("user_id = ? AND id <> ?", user.ID, sid).
			Update("revoked", true).Error; err != nil {
			util.Fail(c, err)
			return
		}

		util.Success(c, util.Response{
			"message": "Mot de passe modifié",
		})
	}
}
