package models

import "time"

const (
	PeriodLunch  = "midi"
	PeriodDinner = "soir"
)

// WeekMeal 某周某天某餐安排的一道菜
type WeekMeal struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"index:idx_week_meal_user_week;not null"`
	WeekStart string `gorm:"size:10;index:idx_week_meal_user_week;not null"` // YYYY-MM-DD，周一
	MealID    uint   `gorm:"index;not null"`
	Day       int    `gorm:"not null"` // 0=周一 … 6=周日
	Period    string `gorm:"size:10;not null"`
	Portions  int    `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Meal Meal `gorm:"constraint:OnDelete:CASCADE"`
}
