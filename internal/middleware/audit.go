package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"meal-planner/internal/logger"
	"meal-planner/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 请求体超过该长度时不记录
const maxAuditBody = 2000

var redactedKeys = map[string]bool{
	"password":        true,
	"confirmPassword": true,
	"oldPassword":     true,
	"newPassword":     true,
}

// AuditMiddleware 记录登录用户的写操作（POST/PUT/PATCH/DELETE）
func AuditMiddleware(db *gorm.DB, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isMutating(c.Request.Method) {
			c.Next()
			return
		}

		// 读取请求体后放回去，后面的 handler 还要用
		var bodyBytes []byte
		if c.Request.Body != nil {
			bodyBytes, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		c.Next()

		user, ok := CurrentUser(c)
		if !ok {
			return
		}
		userID := user.ID

		entry := models.AuditLog{
			UserID:    &userID,
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			Status:    c.Writer.Status(),
			IP:        c.ClientIP(),
			UserAgent: truncate(c.Request.UserAgent(), 255),
			Metadata:  summarizeBody(bodyBytes),
		}
		if err := db.WithContext(c.Request.Context()).Create(&entry).Error; err != nil && log != nil {
			log.Warn("audit log write failed", "error", err, "path", entry.Path)
		}
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// summarizeBody 只保留 JSON 对象，密码字段打码
func summarizeBody(body []byte) datatypes.JSON {
	if len(body) == 0 || len(body) > maxAuditBody {
		return nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil
	}
	for k := range obj {
		if redactedKeys[k] {
			obj[k] = "***"
		}
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return nil
	}
	return datatypes.JSON(out)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
