package service

import (
	"context"
	"testing"

	"meal-planner/internal/apperr"
	"meal-planner/internal/models"
	"meal-planner/internal/testutil"
)

func TestResolve_CreatesWithDefaultUnit(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	r := NewIngredientResolver(db, testutil.Logger(t), "unité")

	ing, err := r.Resolve(ctx, nil, "  Carottes ", "")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if ing.ID == 0 || ing.Name != "Carottes" || ing.Unit != "unité" {
		t.Errorf("Resolve() = %+v", ing)
	}
}

func TestResolve_ExistingUnitNeverOverwritten(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	r := NewIngredientResolver(db, testutil.Logger(t), "unité")
	existing := testutil.SeedIngredient(t, ctx, db, "Lait", "l")

	ing, err := r.Resolve(ctx, nil, "Lait", "ml")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if ing.ID != existing.ID || ing.Unit != "l" {
		t.Errorf("Resolve() = %+v, want existing with unit l", ing)
	}

	var count int64
	db.Model(&models.Ingredient{}).Count(&count)
	if count != 1 {
		t.Errorf("ingredients = %d, want 1", count)
	}
}

func TestResolve_CaseSensitive(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	r := NewIngredientResolver(db, testutil.Logger(t), "unité")
	lower := testutil.SeedIngredient(t, ctx, db, "sel", "g")

	ing, err := r.Resolve(ctx, nil, "Sel", "g")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if ing.ID == lower.ID {
		t.Error("Resolve(Sel) matched sel, want a distinct ingredient")
	}
}

func TestResolve_EmptyName(t *testing.T) {
	r := NewIngredientResolver(testutil.DB(t), testutil.Logger(t), "unité")
	if _, err := r.Resolve(context.Background(), nil, "   ", "g"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("Resolve(empty) error = %v, want validation", err)
	}
}

func TestResolve_InsideRolledBackTx(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	r := NewIngredientResolver(db, testutil.Logger(t), "unité")

	tx := db.Begin()
	if _, err := r.Resolve(ctx, tx, "Poivre", "g"); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	tx.Rollback()

	var count int64
	db.Model(&models.Ingredient{}).Where("name = ?", "Poivre").Count(&count)
	if count != 0 {
		t.Errorf("ingredient persisted after rollback, count = %d", count)
	}
}

func TestIngredientList(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	r := NewIngredientResolver(db, testutil.Logger(t), "unité")
	testutil.SeedIngredient(t, ctx, db, "Tomates", "pièce")
	testutil.SeedIngredient(t, ctx, db, "Ail", "gousse")
	testutil.SeedIngredient(t, ctx, db, "Tomates cerises", "g")

	all, err := r.List(ctx, "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 || all[0].Name != "Ail" {
		t.Errorf("List() = %+v, want 3 sorted by name", all)
	}
	some, _ := r.List(ctx, "Tomates")
	if len(some) != 2 {
		t.Errorf("List(Tomates) len = %d, want 2", len(some))
	}
}
