package service

import (
	"context"
	"errors"
	"strings"

	"meal-planner/internal/apperr"
	"meal-planner/internal/logger"
	"meal-planner/internal/models"
	"meal-planner/internal/util"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const msgMealNotFound = "Repas non trouvé"

// MealService 菜谱的增删改查，配料按名字解析为食材
type MealService struct {
	db       *gorm.DB
	log      *logger.Logger
	resolver *IngredientResolver
}

func NewMealService(db *gorm.DB, log *logger.Logger, resolver *IngredientResolver) *MealService {
	return &MealService{db: db, log: log, resolver: resolver}
}

type MealIngredientInput struct {
	Name     string
	Quantity *decimal.Decimal // nil 时默认 1
	Unit     string
	Optional string
}

type MealInput struct {
	Name            string
	Description     string
	PreparationTime int
	Portions        *int // nil 时默认 1
	Ingredients     []MealIngredientInput
}

func (in *MealInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return apperr.Validation("Le nom du repas est requis")
	}
	if in.PreparationTime < 0 {
		return apperr.Validation("Temps de préparation invalide")
	}
	if in.Portions != nil {
		if err := util.ValidatePortions(*in.Portions); err != nil {
			return apperr.Validation("Nombre de portions invalide")
		}
	}
	for _, ing := range in.Ingredients {
		if ing.Quantity != nil && strings.TrimSpace(ing.Name) != "" {
			if err := util.ValidateQuantity(*ing.Quantity); err != nil {
				return apperr.Validation("Quantité invalide")
			}
		}
	}
	return nil
}

func (s *MealService) List(ctx context.Context, userID uint) ([]models.Meal, error) {
	var meals []models.Meal
	if err := s.db.WithContext(ctx).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Ingredients.Ingredient").
		Where("user_id = ?", userID).
		Order("name ASC, id ASC").
		Find(&meals).Error; err != nil {
		return nil, apperr.Internal("list meals", err)
	}
	return meals, nil
}

func (s *MealService) Get(ctx context.Context, userID, mealID uint) (*models.Meal, error) {
	return loadOwnedMeal(s.db.WithContext(ctx), userID, mealID, true)
}

func (s *MealService) Create(ctx context.Context, userID uint, in MealInput) (*models.Meal, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	meal := &models.Meal{
		UserID:          userID,
		Name:            in.Name,
		Description:     strings.TrimSpace(in.Description),
		PreparationTime: in.PreparationTime,
		Portions:        1,
	}
	if in.Portions != nil {
		meal.Portions = *in.Portions
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Ingredients").Create(meal).Error; err != nil {
			return apperr.Internal("create meal", err)
		}
		return s.replaceIngredients(ctx, tx, meal.ID, in.Ingredients)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("meal created", "user_id", userID, "meal_id", meal.ID)
	return s.Get(ctx, userID, meal.ID)
}

// Update overwrites the meal fields and replaces all ingredient lines.
func (s *MealService) Update(ctx context.Context, userID, mealID uint, in MealInput) (*models.Meal, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		meal, err := loadOwnedMeal(tx, userID, mealID, false)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{
			"name":             in.Name,
			"description":      strings.TrimSpace(in.Description),
			"preparation_time": in.PreparationTime,
		}
		if in.Portions != nil {
			updates["portions"] = *in.Portions
		}
		if err := tx.Model(&models.Meal{}).Where("id = ?", meal.ID).Updates(updates).Error; err != nil {
			return apperr.Internal("update meal", err)
		}
		if err := tx.Where("meal_id = ?", meal.ID).Delete(&models.MealIngredient{}).Error; err != nil {
			return apperr.Internal("delete meal ingredients", err)
		}
		return s.replaceIngredients(ctx, tx, meal.ID, in.Ingredients)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, mealID)
}

// Delete removes the meal with its ingredient lines and planned occurrences.
func (s *MealService) Delete(ctx context.Context, userID, mealID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		meal, err := loadOwnedMeal(tx, userID, mealID, false)
		if err != nil {
			return err
		}
		if err := tx.Where("meal_id = ?", meal.ID).Delete(&models.WeekMeal{}).Error; err != nil {
			return apperr.Internal("delete week meals", err)
		}
		if err := tx.Where("meal_id = ?", meal.ID).Delete(&models.MealIngredient{}).Error; err != nil {
			return apperr.Internal("delete meal ingredients", err)
		}
		if err := tx.Delete(&models.Meal{}, meal.ID).Error; err != nil {
			return apperr.Internal("delete meal", err)
		}
		return nil
	})
}

// replaceIngredients 空名字跳过，数量缺省为 1
func (s *MealService) replaceIngredients(ctx context.Context, tx *gorm.DB, mealID uint, lines []MealIngredientInput) error {
	for _, l := range lines {
		name := strings.TrimSpace(l.Name)
		if name == "" {
			continue
		}
		ing, err := s.resolver.Resolve(ctx, tx, name, l.Unit)
		if err != nil {
			return err
		}
		qty := decimal.NewFromInt(1)
		if l.Quantity != nil {
			qty = *l.Quantity
		}
		mi := &models.MealIngredient{
			MealID:       mealID,
			IngredientID: ing.ID,
			Quantity:     qty,
			Unit:         strings.TrimSpace(l.Unit),
			Optional:     strings.TrimSpace(l.Optional),
		}
		if err := tx.Omit("Ingredient").Create(mi).Error; err != nil {
			return apperr.Internal("create meal ingredient", err)
		}
	}
	return nil
}

func loadOwnedMeal(tx *gorm.DB, userID, mealID uint, withIngredients bool) (*models.Meal, error) {
	q := tx
	if withIngredients {
		q = q.Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
			Preload("Ingredients.Ingredient")
	}
	var meal models.Meal
	err := q.First(&meal, mealID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(msgMealNotFound)
	}
	if err != nil {
		return nil, apperr.Internal("find meal", err)
	}
	if meal.UserID != userID {
		return nil, apperr.Forbidden(msgForbidden)
	}
	return &meal, nil
}
