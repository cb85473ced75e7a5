package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records mutating requests of authenticated users.
type AuditLog struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    *uint  `gorm:"index"`
	Method    string `gorm:"size:16"`
	Path      string `gorm:"size:255;index"`
	Status    int
	IP        string         `gorm:"size:64"`
	UserAgent string         `gorm:"size:255"`
	Metadata  datatypes.JSON // 请求体摘要
	CreatedAt time.Time      `gorm:"index"`
}
