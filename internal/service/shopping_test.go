package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"meal-planner/internal/apperr"
	"meal-planner/internal/models"
	"meal-planner/internal/testutil"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const week = "2024-01-15"

func newShoppingService(t *testing.T) (*ShoppingService, *gorm.DB) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	resolver := NewIngredientResolver(db, log, "unité")
	return NewShoppingService(db, log, resolver, "pièce"), db
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type tuple struct {
	ingredientID uint
	qty          string
	unit         string
}

func tuples(items []models.ShoppingItem) []tuple {
	out := make([]tuple, 0, len(items))
	for _, it := range items {
		out = append(out, tuple{it.IngredientID, it.Quantity.String(), it.Unit})
	}
	return out
}

// TestGenerate_AggregatesWithPortionRatio 100×(2/4) + 50×(1/1) = 100 g
func TestGenerate_AggregatesWithPortionRatio(t *testing.T) {
	ctx := context.Background()
	svc, db := newShoppingService(t)

	u := testutil.SeedUser(t, ctx, db, "a@example.com")
	x := testutil.SeedIngredient(t, ctx, db, "Farine", "g")
	mealA := testutil.SeedMeal(t, ctx, db, u.ID, "A", 4, testutil.MealLine{Ingredient: x, Quantity: "100", Unit: "g"})
	mealB := testutil.SeedMeal(t, ctx, db, u.ID, "B", 1, testutil.MealLine{Ingredient: x, Quantity: "50", Unit: "g"})
	testutil.SeedWeekMeal(t, ctx, db, u.ID, mealA.ID, week, 0, "midi", 2)
	testutil.SeedWeekMeal(t, ctx, db, u.ID, mealB.ID, week, 1, "soir", 1)

	list, err := svc.Generate(ctx, u.ID, week)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(list.Items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(list.Items))
	}
	it := list.Items[0]
	if it.IngredientID != x.ID {
		t.Errorf("IngredientID = %d, want %d", it.IngredientID, x.ID)
	}
	if !it.Quantity.Equal(dec("100")) {
		t.Errorf("Quantity = %s, want 100", it.Quantity)
	}
	if it.Unit != "g" || it.IsAvailable {
		t.Errorf("item = %+v, want unit g and not available", it)
	}

	// 持久化后的值一致
	got, err := svc.Get(ctx, u.ID, week)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Items) != 1 || !got.Items[0].Quantity.Equal(dec("100")) || got.Items[0].Ingredient.Name != "Farine" {
		t.Errorf("persisted items = %+v", got.Items)
	}
}

func TestGenerate_ZeroBasePortionsUsesRatioOne(t *testing.T) {
	ctx := context.Background()
	svc, db := newShoppingService(t)

	u := testutil.SeedUser(t, ctx, db, "a@example.com")
	x := testutil.SeedIngredient(t, ctx, db, "Oeufs", "pièce")
	meal := testutil.SeedMeal(t, ctx, db, u.ID, "Omelette", 0, testutil.MealLine{Ingredient: x, Quantity: "3"})
	testutil.SeedWeekMeal(t, ctx, db, u.ID, meal.ID, week, 2, "midi", 4)

	list, err := svc.Generate(ctx, u.ID, week)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(list.Items) != 1 || !list.Items[0].Quantity.Equal(dec("3")) {
		t.Fatalf("items = %+v, want one item of 3", tuples(list.Items))
	}
	// 关联没有单位时沿用食材单位
	if list.Items[0].Unit != "pièce" {
		t.Errorf("Unit = %q, want pièce", list.Items[0].Unit)
	}
}

func TestGenerate_FirstUnitWinsAndOrderIsStable(t *testing.T) {
	ctx := context.Background()
	svc, db := newShoppingService(t)

	u := testutil.SeedUser(t, ctx, db, "a@example.com")
	lait := testutil.SeedIngredient(t, ctx, db, "Lait", "l")
	sucre := testutil.SeedIngredient(t, ctx, db, "Sucre", "g")
	m1 := testutil.SeedMeal(t, ctx, db, u.ID, "Crêpes", 2,
		testutil.MealLine{Ingredient: lait, Quantity: "500", Unit: "ml"},
		testutil.MealLine{Ingredient: sucre, Quantity: "30"})
	m2 := testutil.SeedMeal(t, ctx, db, u.ID, "Flan", 1,
		testutil.MealLine{Ingredient: sucre, Quantity: "20"},
		testutil.MealLine{Ingredient: lait, Quantity: "1", Unit: "l"})
	// 周二晚在前，周一午在后插入：顺序按 day/period 而不是插入顺序
	testutil.SeedWeekMeal(t, ctx, db, u.ID, m2.ID, week, 1, "soir", 1)
	testutil.SeedWeekMeal(t, ctx, db, u.ID, m1.ID, week, 0, "midi", 1)

	list, err := svc.Generate(ctx, u.ID, week)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	want := []tuple{
		{lait.ID, "251", "ml"}, // 500×1/2 + 1，单位不换算
		{sucre.ID, "35", "g"},  // 30×1/2 + 20
	}
	got := tuples(list.Items)
	if len(got) != len(want) {
		t.Fatalf("items = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestGenerate_RoundsToFourDecimals(t *testing.T) {
	ctx := context.Background()
	svc, db := newShoppingService(t)

	u := testutil.SeedUser(t, ctx, db, "a@example.com")
	x := testutil.SeedIngredient(t, ctx, db, "Beurre", "g")
	meal := testutil.SeedMeal(t, ctx, db, u.ID, "Gâteau", 3, testutil.MealLine{Ingredient: x, Quantity: "100"})
	testutil.SeedWeekMeal(t, ctx, db, u.ID, meal.ID, week, 0, "midi", 1)
	testutil.SeedWeekMeal(t, ctx, db, u.ID, meal.ID, week, 0, "soir", 1)

	list, err := svc.Generate(ctx, u.ID, week)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	// 100/3 + 100/3 先求和再舍入
	if got := list.Items[0].Quantity; !got.Equal(dec("66.6667")) {
		t.Errorf("Quantity = %s, want 66.6667", got)
	}
}

func TestGenerate_IdempotentUnderStableInput(t *testing.T) {
	ctx := context.Background()
	svc, db := newShoppingService(t)

	u := testutil.SeedUser(t, ctx, db, "a@example.com")
	x := testutil.SeedIngredient(t, ctx, db, "Riz", "g")
	y := testutil.SeedIngredient(t, ctx, db, "Poulet", "g")
	meal := testutil.SeedMeal(t, ctx, db, u.ID, "Poulet riz", 2,
		testutil.MealLine{Ingredient: x, Quantity: "150"},
		testutil.MealLine{Ingredient: y, Quantity: "300"})
	testutil.SeedWeekMeal(t, ctx, db, u.ID, meal.ID, week, 3, "soir", 3)

	first, err := svc.Generate(ctx, u.ID, week)
	if err != nil {
		t.Fatalf("Generate() #1 error = %v", err)
	}
	second, err := svc.Generate(ctx, u.ID, week)
	if err != nil {
		t.Fatalf("Generate() #2 error = %v", err)
	}

	a, b := tuples(first.Items), tuples(second.Items)
	if len(a) != len(b) {
		t.Fatalf("item sets differ: %+v vs %+v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("item[%d] %+v != %+v", i, a[i], b[i])
		}
	}

	var lists int64
	db.Model(&models.ShoppingList{}).Where("user_id = ? AND week_start = ?", u.ID, week).Count(&lists)
	if lists != 1 {
		t.Errorf("lists for week = %d, want 1", lists)
	}
}

func TestGenerate_ReplacesManualItems(t *testing.T) {
	ctx := context.Background()
	svc, db := newShoppingService(t)

	u := testutil.SeedUser(t, ctx, db, "a@example.com")
	x := testutil.SeedIngredient(t, ctx, db, "Pâtes", "g")
	meal := testutil.SeedMeal(t, ctx, db, u.ID, "Pâtes", 1, testutil.MealLine{Ingredient: x, Quantity: "100"})
	testutil.SeedWeekMeal(t, ctx, db, u.ID, meal.ID, week, 0, "midi", 1)

	list, err := svc.Generate(ctx, u.ID, week)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	manual, err := svc.AddItem(ctx, u.ID, list.ID, AddItemInput{IngredientName: "Éponges", Quantity: dec("2")})
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}
	if manual.Unit != "pièce" {
		t.Errorf("manual item unit = %q, want pièce", manual.Unit)
	}

	regenerated, err := svc.Generate(ctx, u.ID, week)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	for _, it := range regenerated.Items {
		if it.IngredientID == manual.IngredientID {
			t.Errorf("manual item survived regeneration: %+v", it)
		}
	}

	// sqlite 会复用被删除的 rowid，所以按总数而不是按 id 检查
	var items, lists int64
	db.Model(&models.ShoppingItem{}).Count(&items)
	db.Model(&models.ShoppingList{}).Count(&lists)
	if items != 1 || lists != 1 {
		t.Errorf("items = %d lists = %d after regeneration, want 1 and 1", items, lists)
	}
}

func TestGenerate_EmptyWeekAndBadWeek(t *testing.T) {
	ctx := context.Background()
	svc, db := newShoppingService(t)
	u := testutil.SeedUser(t, ctx, db, "a@example.com")

	list, err := svc.Generate(ctx, u.ID, "2024-01-17") // 周三归一到周一
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if list.WeekStart != week || len(list.Items) != 0 {
		t.Errorf("list = %+v, want empty list for %s", list, week)
	}

	if _, err := svc.Generate(ctx, u.ID, "15/01/2024"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("Generate(bad week) error = %v, want validation", err)
	}
}

func TestGenerate_ConcurrentCallsLeaveOneList(t *testing.T) {
	ctx := context.Background()
	svc, db := newShoppingService(t)

	u := testutil.SeedUser(t, ctx, db, "a@example.com")
	x := testutil.SeedIngredient(t, ctx, db, "Pommes", "pièce")
	meal := testutil.SeedMeal(t, ctx, db, u.ID, "Compote", 1, testutil.MealLine{Ingredient: x, Quantity: "4"})
	testutil.SeedWeekMeal(t, ctx, db, u.ID, meal.ID, week, 0, "midi", 1)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Generate(ctx, u.ID, week)
		}()
	}
	wg.Wait()

	var lists, items int64
	db.Model(&models.ShoppingList{}).Where("user_id = ?", u.ID).Count(&lists)
	db.Model(&models.ShoppingItem{}).Count(&items)
	if lists != 1 || items != 1 {
		t.Errorf("lists = %d items = %d, want 1 and 1", lists, items)
	}
}

func TestGet_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, db := newShoppingService(t)
	u := testutil.SeedUser(t, ctx, db, "a@example.com")

	if _, err := svc.Get(ctx, u.ID, week); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Get() error = %v, want not found", err)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	ctx := context.Background()
	svc, db := newShoppingService(t)

	owner := testutil.SeedUser(t, ctx, db, "owner@example.com")
	other := testutil.SeedUser(t, ctx, db, "other@example.com")
	x := testutil.SeedIngredient(t, ctx, db, "Tomates", "pièce")
	list := testutil.SeedShoppingList(t, ctx, db, owner.ID, week)
	item := testutil.SeedShoppingItem(t, ctx, db, list.ID, x.ID, "3", "pièce")

	if _, err := svc.Get(ctx, other.ID, week); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Get() by other user error = %v, want not found", err)
	}
	if _, err := svc.ToggleItem(ctx, other.ID, item.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("ToggleItem() error = %v, want forbidden", err)
	}
	q := dec("10")
	if _, err := svc.EditItem(ctx, other.ID, item.ID, EditItemInput{Quantity: &q}); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("EditItem() error = %v, want forbidden", err)
	}
	if err := svc.DeleteItem(ctx, other.ID, item.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("DeleteItem() error = %v, want forbidden", err)
	}
	if _, err := svc.AddItem(ctx, other.ID, list.ID, AddItemInput{IngredientName: "Sel", Quantity: dec("1")}); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("AddItem() error = %v, want forbidden", err)
	}
	if _, err := svc.Save(ctx, other.ID, list.ID, SaveInput{}); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("Save() error = %v, want forbidden", err)
	}

	var after models.ShoppingItem
	if err := db.First(&after, item.ID).Error; err != nil {
		t.Fatalf("item gone: %v", err)
	}
	if after.IsAvailable || !after.Quantity.Equal(dec("3")) {
		t.Errorf("item changed by other user: %+v", after)
	}

	if _, err := svc.ToggleItem(ctx, owner.ID, 9999); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("ToggleItem(unknown) error = %v, want not found", err)
	}
}

func TestToggleItem_TwiceRestores(t *testing.T) {
	ctx := context.Background()
	svc, db := newShoppingService(t)

	u := testutil.SeedUser(t, ctx, db, "a@example.com")
	x := testutil.SeedIngredient(t, ctx, db, "Pain", "pièce")
	list := testutil.SeedShoppingList(t, ctx, db, u.ID, week)
	item := testutil.SeedShoppingItem(t, ctx, db, list.ID, x.ID, "1", "pièce")

	v1, err := svc.ToggleItem(ctx, u.ID, item.ID)
	if err != nil || !v1 {
		t.Fatalf("first toggle = %v, %v; want true", v1, err)
	}
	v2, err := svc.ToggleItem(ctx, u.ID, item.ID)
	if err != nil || v2 {
		t.Fatalf("second toggle = %v, %v; want false", v2, err)
	}

	var after models.ShoppingItem
	db.First(&after, item.ID)
	if after.IsAvailable != item.IsAvailable {
		t.Errorf("IsAvailable = %v, want %v", after.IsAvailable, item.IsAvailable)
	}
}

func TestEditItem_RenameToExistingRepoints(t *testing.T) {
	ctx := context.Background()
	svc, db := newShoppingService(t)

	u := testutil.SeedUser(t, ctx, db, "a@example.com")
	tomate := testutil.SeedIngredient(t, ctx, db, "tomate", "pièce")
	tomates := testutil.SeedIngredient(t, ctx, db, "Tomates", "pièce")
	list := testutil.SeedShoppingList(t, ctx, db, u.ID, week)
	item := testutil.SeedShoppingItem(t, ctx, db, list.ID, tomate.ID, "2", "pièce")

	name := "Tomates"
	got, err := svc.EditItem(ctx, u.ID, item.ID, EditItemInput{IngredientName: &name})
	if err != nil {
		t.Fatalf("EditItem() error = %v", err)
	}
	if got.IngredientID != tomates.ID {
		t.Errorf("IngredientID = %d, want existing %d", got.IngredientID, tomates.ID)
	}

	var count int64
	db.Model(&models.Ingredient{}).Where("name = ?", "Tomates").Count(&count)
	if count != 1 {
		t.Errorf("ingredients named Tomates = %d, want 1", count)
	}
	// 原食材不受影响
	var old models.Ingredient
	db.First(&old, tomate.ID)
	if old.Name != "tomate" {
		t.Errorf("old ingredient renamed to %q", old.Name)
	}
}

func TestEditItem_RenameSharedIngredientForks(t *testing.T) {
	ctx := context.Background()
	svc, db := newShoppingService(t)

	u := testutil.SeedUser(t, ctx, db, "a@example.com")
	x := testutil.SeedIngredient(t, ctx, db, "Crème", "ml")
	testutil.SeedMeal(t, ctx, db, u.ID, "Quiche", 4, testutil.MealLine{Ingredient: x, Quantity: "200"})
	list := testutil.SeedShoppingList(t, ctx, db, u.ID, week)
	item := testutil.SeedShoppingItem(t, ctx, db, list.ID, x.ID, "200", "ml")

	name := "Crème fraîche"
	unit := "cl"
	got, err := svc.EditItem(ctx, u.ID, item.ID, EditItemInput{IngredientName: &name, Unit: &unit})
	if err != nil {
		t.Fatalf("EditItem() error = %v", err)
	}
	if got.IngredientID == x.ID {
		t.Fatal("item still points at the shared ingredient")
	}
	if got.Ingredient.Name != "Crème fraîche" || got.Ingredient.Unit != "cl" || got.Unit != "cl" {
		t.Errorf("forked = %+v, item unit %q", got.Ingredient, got.Unit)
	}

	var orig models.Ingredient
	db.First(&orig, x.ID)
	if orig.Name != "Crème" || orig.Unit != "ml" {
		t.Errorf("shared ingredient mutated: %+v", orig)
	}
}

func TestEditItem_RenameUnsharedInPlace(t *testing.T) {
	ctx := context.Background()
	svc, db := newShoppingService(t)

	u := testutil.SeedUser(t, ctx, db, "a@example.com")
	x := testutil.SeedIngredient(t, ctx, db, "Savn", "pièce")
	list := testutil.SeedShoppingList(t, ctx, db, u.ID, week)
	item := testutil.SeedShoppingItem(t, ctx, db, list.ID, x.ID, "1", "pièce")

	name := "Savon"
	q := dec("2.5")
	got, err := svc.EditItem(ctx, u.ID, item.ID, EditItemInput{IngredientName: &name, Quantity: &q})
	if err != nil {
		t.Fatalf("EditItem() error = %v", err)
	}
	if got.IngredientID != x.ID || got.Ingredient.Name != "Savon" {
		t.Errorf("item = %+v, want same ingredient renamed", got)
	}
	if !got.Quantity.Equal(q) {
		t.Errorf("Quantity = %s, want 2.5", got.Quantity)
	}
}

func TestEditItem_Validation(t *testing.T) {
	ctx := context.Background()
	svc, db := newShoppingService(t)

	u := testutil.SeedUser(t, ctx, db, "a@example.com")
	x := testutil.SeedIngredient(t, ctx, db, "Lait", "l")
	list := testutil.SeedShoppingList(t, ctx, db, u.ID, week)
	item := testutil.SeedShoppingItem(t, ctx, db, list.ID, x.ID, "1", "l")

	empty := "  "
	if _, err := svc.EditItem(ctx, u.ID, item.ID, EditItemInput{IngredientName: &empty}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("EditItem(empty name) error = %v, want validation", err)
	}
	neg := dec("-1")
	if _, err := svc.EditItem(ctx, u.ID, item.ID, EditItemInput{Quantity: &neg}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("EditItem(negative qty) error = %v, want validation", err)
	}
	if _, err := svc.AddItem(ctx, u.ID, list.ID, AddItemInput{IngredientName: "Sel"}); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("AddItem(no qty) error = %v, want validation", err)
	}
}

func TestDeleteItemAndList(t *testing.T) {
	ctx := context.Background()
	svc, db := newShoppingService(t)

	u := testutil.SeedUser(t, ctx, db, "a@example.com")
	x := testutil.SeedIngredient(t, ctx, db, "Café", "g")
	list := testutil.SeedShoppingList(t, ctx, db, u.ID, week)
	a := testutil.SeedShoppingItem(t, ctx, db, list.ID, x.ID, "250", "g")
	b := testutil.SeedShoppingItem(t, ctx, db, list.ID, x.ID, "100", "g")

	if _, err := svc.ToggleItem(ctx, u.ID, b.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteItem(ctx, u.ID, a.ID); err != nil {
		t.Fatalf("DeleteItem() error = %v", err)
	}
	if err := svc.DeleteItem(ctx, u.ID, a.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("second DeleteItem() error = %v, want not found", err)
	}

	summaries, err := svc.List(ctx, u.ID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("len(List()) = %d, want 1", len(summaries))
	}
	s := summaries[0]
	if s.ItemCount != 1 || s.CompletedItems != 1 || !s.IsCompleted {
		t.Errorf("summary = %+v, want 1/1 completed", s)
	}
}

func TestList_NewestWeekFirst(t *testing.T) {
	ctx := context.Background()
	svc, db := newShoppingService(t)

	u := testutil.SeedUser(t, ctx, db, "a@example.com")
	testutil.SeedShoppingList(t, ctx, db, u.ID, "2024-01-08")
	testutil.SeedShoppingList(t, ctx, db, u.ID, "2024-02-05")
	testutil.SeedShoppingList(t, ctx, db, u.ID, "2024-01-15")

	got, err := svc.List(ctx, u.ID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"2024-02-05", "2024-01-15", "2024-01-08"}
	for i, w := range want {
		if got[i].WeekStart != w {
			t.Errorf("List()[%d].WeekStart = %s, want %s", i, got[i].WeekStart, w)
		}
		if got[i].IsCompleted {
			t.Errorf("empty list %s reported completed", w)
		}
	}
}

func TestSave_TouchesUpdatedAt(t *testing.T) {
	ctx := context.Background()
	svc, db := newShoppingService(t)

	u := testutil.SeedUser(t, ctx, db, "a@example.com")
	list := testutil.SeedShoppingList(t, ctx, db, u.ID, week)

	later := list.UpdatedAt.Add(time.Hour)
	svc.now = func() time.Time { return later }

	done := true
	saved, err := svc.Save(ctx, u.ID, list.ID, SaveInput{Completed: &done})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !saved.Completed {
		t.Error("Completed = false, want true")
	}

	var after models.ShoppingList
	db.First(&after, list.ID)
	if !after.UpdatedAt.After(list.UpdatedAt) {
		t.Errorf("UpdatedAt = %v, want after %v", after.UpdatedAt, list.UpdatedAt)
	}
	if _, err := svc.Save(ctx, u.ID, 9999, SaveInput{}); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Save(unknown) error = %v, want not found", err)
	}
}

func TestGenerate_CancelledCallerDoesNotFailSharedRun(t *testing.T) {
	ctx := context.Background()
	svc, db := newShoppingService(t)

	u := testutil.SeedUser(t, ctx, db, "a@example.com")
	x := testutil.SeedIngredient(t, ctx, db, "Riz", "g")
	meal := testutil.SeedMeal(t, ctx, db, u.ID, "Risotto", 2, testutil.MealLine{Ingredient: x, Quantity: "150", Unit: "g"})
	testutil.SeedWeekMeal(t, ctx, db, u.ID, meal.ID, week, 0, "soir", 2)

	// 第一次查询 shopping_lists 时挂住，保证两个调用方落在同一次生成上
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	err := db.Callback().Query().Before("gorm:query").Register("test:hold_list_query", func(tx *gorm.DB) {
		if tx.Statement.Schema == nil || tx.Statement.Schema.Table != "shopping_lists" {
			return
		}
		once.Do(func() {
			close(entered)
			<-release
		})
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	cancelledCtx, cancel := context.WithCancel(ctx)
	errA := make(chan error, 1)
	go func() {
		_, err := svc.Generate(cancelledCtx, u.ID, week)
		errA <- err
	}()
	<-entered

	type result struct {
		list *models.ShoppingList
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		list, err := svc.Generate(ctx, u.ID, week)
		resB <- result{list, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller error = %v, want context.Canceled", err)
	}
	close(release)

	b := <-resB
	if b.err != nil {
		t.Fatalf("live caller error = %v", b.err)
	}
	if len(b.list.Items) != 1 || !b.list.Items[0].Quantity.Equal(dec("150")) {
		t.Fatalf("live caller items = %+v", b.list.Items)
	}
	got, err := svc.Get(ctx, u.ID, week)
	if err != nil || len(got.Items) != 1 {
		t.Fatalf("Get() = %+v, %v", got, err)
	}
}

func TestGenerate_FailureKeepsPreviousList(t *testing.T) {
	ctx := context.Background()
	svc, db := newShoppingService(t)

	u := testutil.SeedUser(t, ctx, db, "a@example.com")
	x := testutil.SeedIngredient(t, ctx, db, "Farine", "g")
	meal := testutil.SeedMeal(t, ctx, db, u.ID, "Crêpes", 1, testutil.MealLine{Ingredient: x, Quantity: "100", Unit: "g"})
	testutil.SeedWeekMeal(t, ctx, db, u.ID, meal.ID, week, 0, "midi", 1)

	old, err := svc.Generate(ctx, u.ID, week)
	if err != nil {
		t.Fatalf("first Generate() error = %v", err)
	}

	// 让清单项的批量插入失败
	var fail atomic.Bool
	err = db.Callback().Create().Before("gorm:create").Register("test:fail_items", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*[]models.ShoppingItem); ok && fail.Load() {
			_ = tx.AddError(errors.New("insert items failed"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	fail.Store(true)

	// 换一个份量，成功的话数量会变
	testutil.SeedWeekMeal(t, ctx, db, u.ID, meal.ID, week, 1, "soir", 3)
	if _, err := svc.Generate(ctx, u.ID, week); err == nil {
		t.Fatal("Generate() error = nil, want failure")
	}

	got, err := svc.Get(ctx, u.ID, week)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != old.ID {
		t.Errorf("list id = %d, want previous %d", got.ID, old.ID)
	}
	if len(got.Items) != 1 || !got.Items[0].Quantity.Equal(dec("100")) || got.Items[0].Unit != "g" {
		t.Errorf("items = %+v, want the previous single 100 g item", got.Items)
	}

	var lists int64
	db.Model(&models.ShoppingList{}).Where("user_id = ?", u.ID).Count(&lists)
	if lists != 1 {
		t.Errorf("lists = %d, want 1", lists)
	}
}
