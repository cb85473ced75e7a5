package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents application user.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"size:180;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	FirstName    string `gorm:"size:255"`
	LastName     string `gorm:"size:255"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	FailedLoginAttempts int        `gorm:"default:0"` // 连续登录失败次数
	LockedUntil         *time.Time `gorm:"index"`     // 账户锁定到期时间
	LastLoginAt         *time.Time // 最近登录时间
	LastLoginIP         string     `gorm:"size:64"` // 最近登录 IP
}

// BeforeSave 邮箱统一小写，登录时不区分大小写
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)
	return nil
}
