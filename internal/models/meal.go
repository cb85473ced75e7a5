package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Meal 一道菜谱，配料数量按 Portions 份计
type Meal struct {
	ID              uint   `gorm:"primaryKey"`
	UserID          uint   `gorm:"index;not null"`
	Name            string `gorm:"size:255;not null"`
	Description     string `gorm:"type:text"`
	PreparationTime int    `gorm:"not null;default:0"` // 分钟
	Portions        int    `gorm:"not null"`           // 基准份量，旧数据可能为 0
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Ingredients []MealIngredient `gorm:"constraint:OnDelete:CASCADE"`
}

func (m *Meal) BeforeSave(tx *gorm.DB) error {
	m.Name = strings.TrimSpace(m.Name)
	return nil
}

// MealIngredient 菜谱与食材的关联。Unit 为空时沿用食材自身单位。
type MealIngredient struct {
	ID           uint            `gorm:"primaryKey"`
	MealID       uint            `gorm:"index;not null"`
	IngredientID uint            `gorm:"index;not null"`
	Quantity     decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	Unit         string          `gorm:"size:50"`
	Optional     string          `gorm:"size:50"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Ingredient Ingredient `gorm:"constraint:OnDelete:RESTRICT"`
}

func (mi *MealIngredient) BeforeSave(tx *gorm.DB) error {
	mi.Unit = strings.TrimSpace(mi.Unit)
	mi.Quantity = mi.Quantity.Round(QuantityScale)
	return nil
}

// EffectiveUnit 返回关联自身的单位，没有则用食材默认单位
func (mi *MealIngredient) EffectiveUnit() string {
	if mi.Unit != "" {
		return mi.Unit
	}
	return mi.Ingredient.Unit
}
