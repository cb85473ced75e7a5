package service

import (
	"context"
	"testing"

	"meal-planner/internal/apperr"
	"meal-planner/internal/models"
	"meal-planner/internal/testutil"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func newMealService(t *testing.T) (*MealService, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return NewMealService(db, log, NewIngredientResolver(db, log, "unité")), db
}

func qty(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestMealCreate_ResolvesIngredientsAndDefaults(t *testing.T) {
	ctx := context.Background()
	svc, db := newMealService(t)
	u := testutil.SeedUser(t, ctx, db, "a@example.com")
	existing := testutil.SeedIngredient(t, ctx, db, "Oignon", "pièce")

	meal, err := svc.Create(ctx, u.ID, MealInput{
		Name: " Soupe ",
		Ingredients: []MealIngredientInput{
			{Name: "Oignon", Quantity: qty("2")},
			{Name: "Bouillon", Unit: "ml", Quantity: qty("500")},
			{Name: "Sel"},
			{Name: "   "},
		},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if meal.Name != "Soupe" || meal.Portions != 1 {
		t.Errorf("meal = %+v, want trimmed name and 1 portion", meal)
	}
	if len(meal.Ingredients) != 3 {
		t.Fatalf("len(Ingredients) = %d, want 3 (empty name skipped)", len(meal.Ingredients))
	}
	if meal.Ingredients[0].IngredientID != existing.ID {
		t.Errorf("Oignon not resolved to existing ingredient")
	}
	if meal.Ingredients[1].Ingredient.Unit != "ml" {
		t.Errorf("new ingredient unit = %q, want ml", meal.Ingredients[1].Ingredient.Unit)
	}
	sel := meal.Ingredients[2]
	if !sel.Quantity.Equal(decimal.NewFromInt(1)) || sel.Ingredient.Unit != "unité" {
		t.Errorf("Sel line = %+v, want quantity 1 unit unité", sel)
	}
}

func TestMealCreate_Validation(t *testing.T) {
	ctx := context.Background()
	svc, db := newMealService(t)
	u := testutil.SeedUser(t, ctx, db, "a@example.com")

	if _, err := svc.Create(ctx, u.ID, MealInput{Name: ""}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("Create(no name) error = %v, want validation", err)
	}
	zero := 0
	if _, err := svc.Create(ctx, u.ID, MealInput{Name: "X", Portions: &zero}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("Create(0 portions) error = %v, want validation", err)
	}
}

func TestMealUpdate_ReplacesIngredients(t *testing.T) {
	ctx := context.Background()
	svc, db := newMealService(t)
	u := testutil.SeedUser(t, ctx, db, "a@example.com")

	meal, err := svc.Create(ctx, u.ID, MealInput{Name: "Salade", Ingredients: []MealIngredientInput{{Name: "Laitue"}}})
	if err != nil {
		t.Fatal(err)
	}
	four := 4
	updated, err := svc.Update(ctx, u.ID, meal.ID, MealInput{
		Name:        "Salade composée",
		Portions:    &four,
		Ingredients: []MealIngredientInput{{Name: "Tomates", Quantity: qty("3")}, {Name: "Feta", Quantity: qty("200"), Unit: "g"}},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "Salade composée" || updated.Portions != 4 || len(updated.Ingredients) != 2 {
		t.Errorf("updated = %+v", updated)
	}

	var n int64
	db.Model(&models.MealIngredient{}).Where("meal_id = ?", meal.ID).Count(&n)
	if n != 2 {
		t.Errorf("meal ingredient rows = %d, want 2", n)
	}
}

func TestMealDelete_CascadesToLinesAndOccurrences(t *testing.T) {
	ctx := context.Background()
	svc, db := newMealService(t)
	u := testutil.SeedUser(t, ctx, db, "a@example.com")
	x := testutil.SeedIngredient(t, ctx, db, "Riz", "g")
	meal := testutil.SeedMeal(t, ctx, db, u.ID, "Risotto", 2, testutil.MealLine{Ingredient: x, Quantity: "200"})
	testutil.SeedWeekMeal(t, ctx, db, u.ID, meal.ID, week, 0, "midi", 2)

	if err := svc.Delete(ctx, u.ID, meal.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	var lines, occ, ings int64
	db.Model(&models.MealIngredient{}).Count(&lines)
	db.Model(&models.WeekMeal{}).Count(&occ)
	db.Model(&models.Ingredient{}).Count(&ings)
	if lines != 0 || occ != 0 {
		t.Errorf("lines = %d occurrences = %d, want 0", lines, occ)
	}
	// 食材本身不会被自动删除
	if ings != 1 {
		t.Errorf("ingredients = %d, want 1", ings)
	}
}

func TestMeal_Ownership(t *testing.T) {
	ctx := context.Background()
	svc, db := newMealService(t)
	owner := testutil.SeedUser(t, ctx, db, "owner@example.com")
	other := testutil.SeedUser(t, ctx, db, "other@example.com")
	meal := testutil.SeedMeal(t, ctx, db, owner.ID, "Tarte", 6)

	if _, err := svc.Get(ctx, other.ID, meal.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("Get() error = %v, want forbidden", err)
	}
	if err := svc.Delete(ctx, other.ID, meal.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("Delete() error = %v, want forbidden", err)
	}
	if _, err := svc.Get(ctx, owner.ID, 9999); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Get(unknown) error = %v, want not found", err)
	}
	mine, _ := svc.List(ctx, other.ID)
	if len(mine) != 0 {
		t.Errorf("List(other) = %d meals, want 0", len(mine))
	}
}
