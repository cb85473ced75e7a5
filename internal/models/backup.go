package models

import "time"

// Backup 菜谱目录备份文件记录
type Backup struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index;not null"`
	FileName  string `gorm:"size:255;not null"`
	FilePath  string `gorm:"size:1024;not null"`
	Size      int64
	MealCount int
	CreatedAt time.Time
}
