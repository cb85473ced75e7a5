package handler

import (
	"net/http"
	"strconv"

	"meal-planner/internal/middleware"
	"meal-planner/internal/models"
	"meal-planner/internal/util"

	"github.com/gin-gonic/gin"
)

const (
	msgNotLoggedIn  = "Utilisateur non authentifié"
	msgInvalidParam = "Paramètres invalides"
)

// mustUser 取当前用户，没有则直接返回 401
func mustUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, msgNotLoggedIn)
		return nil, false
	}
	return user, true
}

// paramID 解析路径中的数字 ID，非法时返回 400
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Identifiant invalide")
		return 0, false
	}
	return uint(id), true
}

func userJSON(u *models.User) gin.H {
	return gin.H{
		"id":        u.ID,
		"email":     u.Email,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
		"createdAt": u.CreatedAt,
	}
}
