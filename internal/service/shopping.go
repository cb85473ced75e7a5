package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"meal-planner/internal/apperr"
	"meal-planner/internal/logger"
	"meal-planner/internal/models"
	"meal-planner/internal/util"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	msgListNotFound = "Liste de courses non trouvée"
	msgItemNotFound = "Élément non trouvé"
	msgForbidden    = "Accès non autorisé"
	msgInvalidWeek  = "Date de semaine invalide"
)

// ShoppingService 生成购物清单并处理清单项的增删改
type ShoppingService struct {
	db              *gorm.DB
	log             *logger.Logger
	resolver        *IngredientResolver
	itemDefaultUnit string

	// 同一进程内同一 (用户, 周) 的并发生成合并为一次
	group singleflight.Group
	now   func() time.Time
}

func NewShoppingService(db *gorm.DB, log *logger.Logger, resolver *IngredientResolver, itemDefaultUnit string) *ShoppingService {
	if itemDefaultUnit == "" {
		itemDefaultUnit = "pièce"
	}
	return &ShoppingService{
		db:              db,
		log:             log,
		resolver:        resolver,
		itemDefaultUnit: itemDefaultUnit,
		now:             time.Now,
	}
}

// ListSummary is one row of the shopping-list index.
type ListSummary struct {
	ID             uint      `json:"id"`
	WeekStart      string    `json:"weekStart"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	ItemCount      int       `json:"itemCount"`
	CompletedItems int       `json:"completedItems"`
	IsCompleted    bool      `json:"isCompleted"`
}

type AddItemInput struct {
	IngredientName string
	Quantity       decimal.Decimal
	Unit           string
}

// EditItemInput 只更新非 nil 字段
type EditItemInput struct {
	Quantity       *decimal.Decimal
	Unit           *string
	IngredientName *string
}

type SaveInput struct {
	Completed *bool
	Notes     *string
}

// Generate rebuilds the shopping list of (userID, week) from the planned meals.
// The previous list and its items are removed in the same transaction, so a
// failure leaves the old list untouched.
func (s *ShoppingService) Generate(ctx context.Context, userID uint, week string) (*models.ShoppingList, error) {
	week, err := util.ParseWeekStart(week)
	if err != nil {
		return nil, apperr.Validation(msgInvalidWeek)
	}

	// 共享的那次生成不跟随任何一个调用方的取消；每个调用方只等待自己的 ctx
	key := fmt.Sprintf("%d:%s", userID, week)
	runCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.generate(runCtx, userID, week)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.log.Debug("shopping list generation shared", "user_id", userID, "week", week)
		}
		return res.Val.(*models.ShoppingList), nil
	}
}

func (s *ShoppingService) generate(ctx context.Context, userID uint, week string) (*models.ShoppingList, error) {
	var list *models.ShoppingList

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 删除旧清单（先删项，再删清单）
		var existing models.ShoppingList
		err := tx.Where("user_id = ? AND week_start = ?", userID, week).First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Where("shopping_list_id = ?", existing.ID).Delete(&models.ShoppingItem{}).Error; err != nil {
				return apperr.Internal("delete old items", err)
			}
			if err := tx.Delete(&existing).Error; err != nil {
				return apperr.Internal("delete old list", err)
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return apperr.Internal("find old list", err)
		}

		// 2. 新建空清单
		list = &models.ShoppingList{
			UserID:      userID,
			WeekStart:   week,
			GeneratedAt: s.now(),
		}
		if err := tx.Omit("Items").Create(list).Error; err != nil {
			return apperr.Internal("create list", err)
		}

		// 3. 读取本周安排
		var weekMeals []models.WeekMeal
		if err := tx.
			Preload("Meal").
			Preload("Meal.Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
			Preload("Meal.Ingredients.Ingredient").
			Where("user_id = ? AND week_start = ?", userID, week).
			Order("day ASC, period ASC, id ASC").
			Find(&weekMeals).Error; err != nil {
			return apperr.Internal("load week meals", err)
		}

		// 4. 汇总 5. 落库
		lines := Aggregate(weekMeals)
		items := make([]models.ShoppingItem, 0, len(lines))
		for i, l := range lines {
			items = append(items, models.ShoppingItem{
				ShoppingListID: list.ID,
				IngredientID:   l.IngredientID,
				Quantity:       l.Quantity,
				Unit:           l.Unit,
				IsAvailable:    false,
				Position:       i,
			})
		}
		if len(items) > 0 {
			if err := tx.Omit("Ingredient").Create(&items).Error; err != nil {
				return apperr.Internal("create items", err)
			}
		}
		for i := range items {
			items[i].Ingredient = lines[i].Ingredient
		}
		list.Items = items
		return nil
	})
	if err != nil {
		s.log.Error("generate shopping list failed", "user_id", userID, "week", week, "error", err)
		return nil, err
	}

	s.log.Info("shopping list generated", "user_id", userID, "week", week, "list_id", list.ID, "items", len(list.Items))
	return list, nil
}

// Get returns the list of (userID, week) with its items and ingredients.
func (s *ShoppingService) Get(ctx context.Context, userID uint, week string) (*models.ShoppingList, error) {
	week, err := util.ParseWeekStart(week)
	if err != nil {
		return nil, apperr.Validation(msgInvalidWeek)
	}

	var list models.ShoppingList
	err = s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Preload("Items.Ingredient").
		Where("user_id = ? AND week_start = ?", userID, week).
		First(&list).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(msgListNotFound)
	}
	if err != nil {
		return nil, apperr.Internal("get list", err)
	}
	return &list, nil
}

// List returns the user's lists with item counters, newest week first.
func (s *ShoppingService) List(ctx context.Context, userID uint) ([]ListSummary, error) {
	db := s.db.WithContext(ctx)

	var lists []models.ShoppingList
	if err := db.Where("user_id = ?", userID).Order("week_start DESC").Find(&lists).Error; err != nil {
		return nil, apperr.Internal("list shopping lists", err)
	}
	out := make([]ListSummary, 0, len(lists))
	if len(lists) == 0 {
		return out, nil
	}

	ids := make([]uint, 0, len(lists))
	for _, l := range lists {
		ids = append(ids, l.ID)
	}

	type countRow struct {
		ShoppingListID uint
		Total          int
		Done           int
	}
	var rows []countRow
	if err := db.Model(&models.ShoppingItem{}).
		Select("shopping_list_id, COUNT(*) AS total, SUM(CASE WHEN is_available THEN 1 ELSE 0 END) AS done").
		Where("shopping_list_id IN ?", ids).
		Group("shopping_list_id").
		Scan(&rows).Error; err != nil {
		return nil, apperr.Internal("count items", err)
	}
	counts := make(map[uint]countRow, len(rows))
	for _, r := range rows {
		counts[r.ShoppingListID] = r
	}

	for _, l := range lists {
		c := counts[l.ID]
		out = append(out, ListSummary{
			ID:             l.ID,
			WeekStart:      l.WeekStart,
			CreatedAt:      l.GeneratedAt,
			UpdatedAt:      l.UpdatedAt,
			ItemCount:      c.Total,
			CompletedItems: c.Done,
			IsCompleted:    c.Total > 0 && c.Done == c.Total,
		})
	}
	return out, nil
}

// Save touches the list's updated_at, optionally setting completed/notes.
func (s *ShoppingService) Save(ctx context.Context, userID, listID uint, in SaveInput) (*models.ShoppingList, error) {
	var list *models.ShoppingList
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if list, err = loadOwnedList(tx, userID, listID); err != nil {
			return err
		}
		updates := map[string]interface{}{"updated_at": s.now()}
		if in.Completed != nil {
			updates["completed"] = *in.Completed
		}
		if in.Notes != nil {
			updates["notes"] = strings.TrimSpace(*in.Notes)
		}
		if err := tx.Model(&models.ShoppingList{}).Where("id = ?", list.ID).Updates(updates).Error; err != nil {
			return apperr.Internal("save list", err)
		}
		list.UpdatedAt = updates["updated_at"].(time.Time)
		if in.Completed != nil {
			list.Completed = *in.Completed
		}
		if in.Notes != nil {
			list.Notes = updates["notes"].(string)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// AddItem appends a manual item to a list the user owns.
func (s *ShoppingService) AddItem(ctx context.Context, userID, listID uint, in AddItemInput) (*models.ShoppingItem, error) {
	name := strings.TrimSpace(in.IngredientName)
	if err := util.ValidateIngredientName(name); err != nil {
		return nil, apperr.Validation("Le nom de l'ingrédient est requis")
	}
	if err := util.ValidateQuantity(in.Quantity); err != nil {
		return nil, apperr.Validation("Quantité invalide")
	}

	var item *models.ShoppingItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		list, err := loadOwnedList(tx, userID, listID)
		if err != nil {
			return err
		}

		ing, err := s.resolver.Resolve(ctx, tx, name, s.itemDefaultUnit)
		if err != nil {
			return err
		}

		unit := strings.TrimSpace(in.Unit)
		if unit == "" {
			unit = ing.Unit
		}

		var maxPos int
		if err := tx.Model(&models.ShoppingItem{}).
			Where("shopping_list_id = ?", list.ID).
			Select("COALESCE(MAX(position), -1)").
			Scan(&maxPos).Error; err != nil {
			return apperr.Internal("next position", err)
		}

		item = &models.ShoppingItem{
			ShoppingListID: list.ID,
			IngredientID:   ing.ID,
			Quantity:       in.Quantity,
			Unit:           unit,
			IsAvailable:    false,
			Position:       maxPos + 1,
		}
		if err := tx.Omit("Ingredient").Create(item).Error; err != nil {
			return apperr.Internal("create item", err)
		}
		item.Ingredient = *ing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ToggleItem flips is_available and returns the new value.
func (s *ShoppingService) ToggleItem(ctx context.Context, userID, itemID uint) (bool, error) {
	var newValue bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := loadOwnedItem(tx, userID, itemID)
		if err != nil {
			return err
		}
		newValue = !item.IsAvailable
		if err := tx.Model(&models.ShoppingItem{}).Where("id = ?", item.ID).Update("is_available", newValue).Error; err != nil {
			return apperr.Internal("toggle item", err)
		}
		return nil
	})
	return newValue, err
}

// EditItem updates quantity/unit and optionally renames the item's ingredient.
// Renaming to an existing name re-points the item. Otherwise an ingredient still
// used elsewhere is forked under the new name, and an unshared one is renamed in place.
func (s *ShoppingService) EditItem(ctx context.Context, userID, itemID uint, in EditItemInput) (*models.ShoppingItem, error) {
	if in.Quantity != nil {
		if err := util.ValidateQuantity(*in.Quantity); err != nil {
			return nil, apperr.Validation("Quantité invalide")
		}
	}
	var newName string
	if in.IngredientName != nil {
		newName = strings.TrimSpace(*in.IngredientName)
		if err := util.ValidateIngredientName(newName); err != nil {
			return nil, apperr.Validation("Le nom de l'ingrédient est requis")
		}
	}
	var newUnit string
	if in.Unit != nil {
		newUnit = strings.TrimSpace(*in.Unit)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := loadOwnedItem(tx, userID, itemID)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if in.Quantity != nil {
			updates["quantity"] = in.Quantity.Round(models.QuantityScale)
		}
		if in.Unit != nil {
			updates["unit"] = newUnit
		}

		if in.IngredientName != nil && newName != item.Ingredient.Name {
			ingredientID, err := s.renameIngredient(ctx, tx, item, newName, newUnit)
			if err != nil {
				return err
			}
			if ingredientID != item.IngredientID {
				updates["ingredient_id"] = ingredientID
			}
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.ShoppingItem{}).Where("id = ?", item.ID).Updates(updates).Error; err != nil {
			return apperr.Internal("update item", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out models.ShoppingItem
	if err := s.db.WithContext(ctx).Preload("Ingredient").First(&out, itemID).Error; err != nil {
		return nil, apperr.Internal("reload item", err)
	}
	return &out, nil
}

// renameIngredient returns the ingredient id the item should point at after the rename.
func (s *ShoppingService) renameIngredient(ctx context.Context, tx *gorm.DB, item *models.ShoppingItem, newName, newUnit string) (uint, error) {
	existing, err := findIngredientByName(tx, newName)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}

	shared, err := ingredientSharedBeyond(tx, item.IngredientID, item.ID)
	if err != nil {
		return 0, err
	}

	unit := newUnit
	if unit == "" {
		unit = item.Ingredient.Unit
	}

	if shared {
		forked, err := s.resolver.Resolve(ctx, tx, newName, unit)
		if err != nil {
			return 0, err
		}
		s.log.Info("ingredient forked on rename",
			"from_id", item.IngredientID, "to_id", forked.ID, "name", newName)
		return forked.ID, nil
	}

	updates := map[string]interface{}{"name": newName}
	if newUnit != "" {
		updates["unit"] = newUnit
	}
	if err := tx.Model(&models.Ingredient{}).Where("id = ?", item.IngredientID).Updates(updates).Error; err != nil {
		return 0, apperr.Internal("rename ingredient", err)
	}
	return item.IngredientID, nil
}

// DeleteItem removes one item from a list the user owns.
func (s *ShoppingService) DeleteItem(ctx context.Context, userID, itemID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := loadOwnedItem(tx, userID, itemID)
		if err != nil {
			return err
		}
		if err := tx.Delete(&models.ShoppingItem{}, item.ID).Error; err != nil {
			return apperr.Internal("delete item", err)
		}
		return nil
	})
}

func loadOwnedList(tx *gorm.DB, userID, listID uint) (*models.ShoppingList, error) {
	var list models.ShoppingList
	err := tx.First(&list, listID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(msgListNotFound)
	}
	if err != nil {
		return nil, apperr.Internal("find list", err)
	}
	if list.UserID != userID {
		return nil, apperr.Forbidden(msgForbidden)
	}
	return &list, nil
}

// loadOwnedItem 校验 item -> list -> user 的归属
func loadOwnedItem(tx *gorm.DB, userID, itemID uint) (*models.ShoppingItem, error) {
	var item models.ShoppingItem
	err := tx.Preload("Ingredient").First(&item, itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(msgItemNotFound)
	}
	if err != nil {
		return nil, apperr.Internal("find item", err)
	}

	var owner uint
	if err := tx.Model(&models.ShoppingList{}).
		Where("id = ?", item.ShoppingListID).
		Select("user_id").
		Scan(&owner).Error; err != nil {
		return nil, apperr.Internal("find list owner", err)
	}
	if owner != userID {
		return nil, apperr.Forbidden(msgForbidden)
	}
	return &item, nil
}

// ingredientSharedBeyond reports whether anything other than item itemID
// references the ingredient.
func ingredientSharedBeyond(tx *gorm.DB, ingredientID, itemID uint) (bool, error) {
	var n int64
	if err := tx.Model(&models.MealIngredient{}).Where("ingredient_id = ?", ingredientID).Count(&n).Error; err != nil {
		return false, apperr.Internal("count meal references", err)
	}
	if n > 0 {
		return true, nil
	}
	if err := tx.Model(&models.ShoppingItem{}).
		Where("ingredient_id = ? AND id <> ?", ingredientID, itemID).
		Count(&n).Error; err != nil {
		return false, apperr.Internal("count item references", err)
	}
	return n > 0, nil
}
