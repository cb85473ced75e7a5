package testutil

import (
	"context"
	"testing"
	"time"

	"meal-planner/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Password is the plain password of every seeded user.
const Password = "Secret123"

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *models.User {
	tb.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		tb.Fatalf("hash password: %v", err)
	}
	u := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    "A",
		LastName:     "B",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedIngredient(tb testing.TB, ctx context.Context, tx *gorm.DB, name, unit string) *models.Ingredient {
	tb.Helper()
	ing := &models.Ingredient{Name: name, Unit: unit}
	if err := tx.WithContext(ctx).Create(ing).Error; err != nil {
		tb.Fatalf("seed ingredient: %v", err)
	}
	return ing
}

// MealLine describes one ingredient line of a seeded meal.
type MealLine struct {
	Ingredient *models.Ingredient
	Quantity   string
	Unit       string
}

func SeedMeal(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uint, name string, portions int, lines ...MealLine) *models.Meal {
	tb.Helper()
	meal := &models.Meal{UserID: userID, Name: name, Portions: portions}
	if err := tx.WithContext(ctx).Create(meal).Error; err != nil {
		tb.Fatalf("seed meal: %v", err)
	}
	for _, l := range lines {
		mi := &models.MealIngredient{
			MealID:       meal.ID,
			IngredientID: l.Ingredient.ID,
			Quantity:     decimal.RequireFromString(l.Quantity),
			Unit:         l.Unit,
		}
		if err := tx.WithContext(ctx).Create(mi).Error; err != nil {
			tb.Fatalf("seed meal ingredient: %v", err)
		}
	}
	return meal
}

func SeedWeekMeal(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, mealID uint, week string, day int, period string, portions int) *models.WeekMeal {
	tb.Helper()
	wm := &models.WeekMeal{
		UserID:    userID,
		MealID:    mealID,
		WeekStart: week,
		Day:       day,
		Period:    period,
		Portions:  portions,
	}
	if err := tx.WithContext(ctx).Create(wm).Error; err != nil {
		tb.Fatalf("seed week meal: %v", err)
	}
	return wm
}

func SeedShoppingList(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uint, week string) *models.ShoppingList {
	tb.Helper()
	l := &models.ShoppingList{UserID: userID, WeekStart: week, GeneratedAt: time.Now()}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed shopping list: %v", err)
	}
	return l
}

func SeedShoppingItem(tb testing.TB, ctx context.Context, tx *gorm.DB, listID, ingredientID uint, qty, unit string) *models.ShoppingItem {
	tb.Helper()
	it := &models.ShoppingItem{
		ShoppingListID: listID,
		IngredientID:   ingredientID,
		Quantity:       decimal.RequireFromString(qty),
		Unit:           unit,
	}
	if err := tx.WithContext(ctx).Create(it).Error; err != nil {
		tb.Fatalf("seed shopping item: %v", err)
	}
	return it
}
