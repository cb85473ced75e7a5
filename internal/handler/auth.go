package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"meal-planner/internal/config"
	"meal-planner/internal/logger"
	"meal-planner/internal/middleware"
	"meal-planner/internal/models"
	"meal-planner/internal/service"
	"meal-planner/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const msgBadCredentials = "Identifiants invalides"

// AuthHandler 负责登录/注册/登出接口
type AuthHandler struct {
	DB           *gorm.DB
	Log          *logger.Logger
	Users        *service.UserService
	JWTSecret    string
	Issuer       string
	TokenTTL     time.Duration
	MaxFailed    int
	LockDuration time.Duration
}

// NewAuthHandler 构造函数
func NewAuthHandler(db *gorm.DB, log *logger.Logger, users *service.UserService, cfg *config.Config) *AuthHandler {
	ttlHours := cfg.JWT.ExpireHours
	if ttlHours <= 0 {
		ttlHours = 24
	}
	maxFailed := cfg.Security.MaxFailedLogins
	if maxFailed <= 0 {
		maxFailed = 5
	}
	lockMinutes := cfg.Security.LockMinutes
	if lockMinutes <= 0 {
		lockMinutes = 10
	}
	return &AuthHandler{
		DB:           db,
		Log:          log,
		Users:        users,
		JWTSecret:    cfg.JWT.Secret,
		Issuer:       cfg.JWT.Issuer,
		TokenTTL:     time.Duration(ttlHours) * time.Hour,
		MaxFailed:    maxFailed,
		LockDuration: time.Duration(lockMinutes) * time.Minute,
	}
}

// ---------- 注册 ----------

type registerReq struct {
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
	FirstName       string `json:"firstName" binding:"max=255"`
	LastName        string `json:"lastName" binding:"max=255"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, msgInvalidParam)
		return
	}

	// 两次输入一致
	if req.Password != req.ConfirmPassword {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Les mots de passe ne correspondent pas")
		return
	}

	user, err := h.Users.Register(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		util.Fail(c, err)
		return
	}

	util.Success(c, util.Response{
		"message": "Inscription réussie",
		"user":    userJSON(user),
	})
}

// ---------- 登录 ----------

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, msgInvalidParam)
		return
	}

	db := h.DB.WithContext(c.Request.Context())
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, msgBadCredentials)
		} else {
			_ = c.Error(err)
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "Erreur interne du serveur")
		}
		return
	}

	now := time.Now()

	// 检查是否被锁定
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Compte verrouillé, réessayez plus tard")
		return
	}

	// 校验密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		// 失败次数达到上限则锁定一段时间，锁定后计数清零
		updates := map[string]interface{}{"failed_login_attempts": user.FailedLoginAttempts + 1}
		if user.FailedLoginAttempts+1 >= h.MaxFailed {
			updates["locked_until"] = now.Add(h.LockDuration)
			updates["failed_login_attempts"] = 0
			h.Log.Warn("account locked", "user_id", user.ID, "ip", c.ClientIP())
		}
		_ = db.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, msgBadCredentials)
		return
	}

	// 登录成功：重置失败次数和锁定时间，记录登录 IP 和时间
	ip := c.ClientIP()
	if err := db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"failed_login_attempts": 0,
		"locked_until":          nil,
		"last_login_ip":         ip,
		"last_login_at":         now,
	}).Error; err != nil {
		util.Fail(c, err)
		return
	}

	// 每次登录一条会话，jti 即会话 ID
	sess := models.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		ExpiresAt: now.Add(h.TokenTTL),
		IP:        ip,
	}
	if err := db.Omit("User").Create(&sess).Error; err != nil {
		util.Fail(c, err)
		return
	}

	token, err := util.GenerateToken(h.JWTSecret, h.Issuer, user.ID, user.Email, sess.ID, h.TokenTTL)
	if err != nil {
		util.Fail(c, err)
		return
	}

	h.Log.Info("user logged in", "user_id", user.ID, "ip", ip)
	util.Success(c, util.Response{
		"token":     token,
		"expiresAt": sess.ExpiresAt,
		"user":      userJSON(&user),
	})
}

// ---------- 登出 ----------

func (h *AuthHandler) Logout(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	sid := c.GetString(middleware.SessionIDKey)
	if sid != "" {
		if err := h.DB.WithContext(c.Request.Context()).
			Model(&models.Session{}).
			Where("id = ? AND user_id = ?", sid, user.ID).
			Update("revoked", true).Error; err != nil {
			util.Fail(c, err)
			return
		}
	}
	util.Success(c, util.Response{
		"message": "Déconnexion réussie",
	})
}
