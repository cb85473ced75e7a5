package handler

import (
	"fmt"

	"meal-planner/internal/service"
	"meal-planner/internal/util"

	"github.com/gin-gonic/gin"
)

// BackupHandler 负责菜谱备份相关接口
type BackupHandler struct {
	Backups *service.BackupService
}

// NewBackupHandler 构造函数
func NewBackupHandler(backups *service.BackupService) *BackupHandler {
	return &BackupHandler{Backups: backups}
}

// CreateBackup 生成当前用户的菜谱备份文件
func (h *BackupHandler) CreateBackup(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	b, err := h.Backups.Create(c.Request.Context(), user.ID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"backup": backupJSON(b)})
}

// ListBackups 列出当前用户已有的备份
func (h *BackupHandler) ListBackups(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	list, err := h.Backups.List(c.Request.Context(), user.ID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	items := make([]gin.H, 0, len(list))
	for i := range list {
		items = append(items, backupJSON(&list[i]))
	}
	util.Success(c, util.Response{"items": items})
}

// DownloadBackup 下载指定备份文件
func (h *BackupHandler) DownloadBackup(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	b, err := h.Backups.Get(c.Request.Context(), user.ID, id)
	if err != nil {
		util.Fail(c, err)
		return
	}
	c.Header("Content-Type", "application/x-yaml")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", b.FileName))
	c.File(b.FilePath)
}

// DeleteBackup 删除备份记录及对应文件
func (h *BackupHandler) DeleteBackup(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Backups.Delete(c.Request.Context(), user.ID, id); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"message": "Sauvegarde supprimée"})
}

// RestoreBackup 用备份内容替换当前用户的菜谱
func (h *BackupHandler) RestoreBackup(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	n, err := h.Backups.Restore(c.Request.Context(), user.ID, id)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{
		"message":   "Restauration réussie",
		"mealCount": n,
	})
}
