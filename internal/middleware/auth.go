package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"meal-planner/internal/models"
	"meal-planner/internal/util"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// context keys
const (
	CurrentUserKey = "currentUser"
	SessionIDKey   = "sessionID"
)

// AuthMiddleware 校验 JWT 和会话状态，并在 context 里放入当前用户。
func AuthMiddleware(jwtSecret string, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := extractToken(c)
		if tokenStr == "" {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Utilisateur non authentifié")
			c.Abort()
			return
		}

		claims, err := util.ParseToken(jwtSecret, tokenStr)
		if err != nil || claims.ExpiresAt == nil || claims.ExpiresAt.Before(time.Now()) {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Session expirée, veuillez vous reconnecter")
			c.Abort()
			return
		}

		ctx := c.Request.Context()

		// 登录签发的 token 都带 jti；没有 jti 的无法注销，一律拒绝
		if claims.ID == "" {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Session expirée, veuillez vous reconnecter")
			c.Abort()
			return
		}

		// 已注销（revoked）的会话不再放行
		var sess models.Session
		err = db.WithContext(ctx).Where("id = ?", claims.ID).First(&sess).Error
		if err != nil || sess.Revoked || sess.UserID != claims.UserID {
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Erreur interne du serveur")
			} else {
				util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Session expirée, veuillez vous reconnecter")
			}
			c.Abort()
			return
		}
		c.Set(SessionIDKey, sess.ID)

		var user models.User
		if err := db.WithContext(ctx).First(&user, claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Utilisateur introuvable")
			} else {
				util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Erreur interne du serveur")
			}
			c.Abort()
			return
		}

		c.Set(CurrentUserKey, &user)
		c.Next()
	}
}

// extractToken 依次查找 Authorization 头、?token= 参数、mp_token cookie
func extractToken(c *gin.Context) string {
	// 1) Header: Authorization: Bearer xxx
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	// 2) URL 查询参数 ?token=xxx（用于下载等无法自定义 Header 的场景）
	if tok := c.Query("token"); tok != "" {
		return tok
	}

	// 3) Cookie
	if cookie, err := c.Cookie("mp_token"); err == nil {
		return cookie
	}
	return ""
}

// CurrentUser returns the user set by AuthMiddleware.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(CurrentUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}
