package database

import (
	"fmt"

	"meal-planner/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate runs database schema migrations for all models.
// Order matters: referenced tables first.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Ingredient{},
		&models.Meal{},
		&models.MealIngredient{},
		&models.WeekMeal{},
		&models.ShoppingList{},
		&models.ShoppingItem{},
		&models.AuditLog{},
		&models.Backup{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
