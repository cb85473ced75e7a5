package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// QuantityScale 数量保留的小数位，与 decimal(12,4) 列一致
const QuantityScale = 4

func init() {
	// 数量以 JSON 数字输出，前端直接做运算
	decimal.MarshalJSONWithoutQuotes = true
}

// ShoppingList 某用户某周的购物清单，(user_id, week_start) 唯一
type ShoppingList struct {
	ID          uint      `gorm:"primaryKey"`
	UserID      uint      `gorm:"uniqueIndex:idx_shopping_list_user_week;not null"`
	WeekStart   string    `gorm:"size:10;uniqueIndex:idx_shopping_list_user_week;not null"`
	GeneratedAt time.Time `gorm:"not null"`
	Completed   bool      `gorm:"not null;default:false"`
	Notes       string    `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Items []ShoppingItem `gorm:"constraint:OnDelete:CASCADE"`
}

// ShoppingItem 清单中的一项
type ShoppingItem struct {
	ID             uint            `gorm:"primaryKey"`
	ShoppingListID uint            `gorm:"index;not null"`
	IngredientID   uint            `gorm:"index;not null"`
	Quantity       decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	Unit           string          `gorm:"size:50"`
	IsAvailable    bool            `gorm:"not null;default:false"`
	Notes          string          `gorm:"type:text"`
	Position       int             `gorm:"not null;default:0"` // 生成时的先后顺序
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Ingredient Ingredient `gorm:"constraint:OnDelete:RESTRICT"`
}

func (it *ShoppingItem) BeforeSave(tx *gorm.DB) error {
	it.Unit = strings.TrimSpace(it.Unit)
	it.Quantity = it.Quantity.Round(QuantityScale)
	return nil
}
