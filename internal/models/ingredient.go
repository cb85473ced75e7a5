package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Ingredient 食材目录，按名字精确匹配（区分大小写和空白），所有用户共享
type Ingredient struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:255;uniqueIndex;not null"`
	Unit        string `gorm:"size:50;not null"` // 默认计量单位
	Description string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (i *Ingredient) BeforeSave(tx *gorm.DB) error {
	i.Unit = strings.TrimSpace(i.Unit)
	return nil
}
