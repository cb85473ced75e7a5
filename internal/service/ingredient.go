package service

import (
	"context"
	"errors"
	"strings"

	"meal-planner/internal/apperr"
	"meal-planner/internal/logger"
	"meal-planner/internal/models"
	"meal-planner/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IngredientResolver 按名字查找食材，不存在则创建
type IngredientResolver struct {
	db          *gorm.DB
	log         *logger.Logger
	defaultUnit string
}

func NewIngredientResolver(db *gorm.DB, log *logger.Logger, defaultUnit string) *IngredientResolver {
	if defaultUnit == "" {
		defaultUnit = "unité"
	}
	return &IngredientResolver{db: db, log: log, defaultUnit: defaultUnit}
}

// Resolve returns the ingredient named exactly name, creating it with
// defaultUnit when missing. The unit of an existing ingredient is never changed.
// tx may be nil, in which case the resolver's own handle is used.
func (r *IngredientResolver) Resolve(ctx context.Context, tx *gorm.DB, name, defaultUnit string) (*models.Ingredient, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	transaction = transaction.WithContext(ctx)

	name = strings.TrimSpace(name)
	if err := util.ValidateIngredientName(name); err != nil {
		return nil, apperr.Validation("Le nom de l'ingrédient est requis")
	}

	ing, err := findIngredientByName(transaction, name)
	if err != nil {
		return nil, err
	}
	if ing != nil {
		return ing, nil
	}

	unit := strings.TrimSpace(defaultUnit)
	if unit == "" {
		unit = r.defaultUnit
	}
	created := &models.Ingredient{Name: name, Unit: unit}
	// 并发创建同名食材时由唯一索引兜底，输家重新读取赢家那一行
	res := transaction.Clauses(clause.OnConflict{DoNothing: true}).Create(created)
	if res.Error != nil {
		return nil, apperr.Internal("create ingredient", res.Error)
	}
	if res.RowsAffected == 0 {
		ing, err := findIngredientByName(transaction, name)
		if err != nil {
			return nil, err
		}
		if ing == nil {
			return nil, apperr.Internal("create ingredient", errors.New("conflict without existing row"))
		}
		return ing, nil
	}

	r.log.Debug("ingredient created", "ingredient_id", created.ID, "name", created.Name, "unit", created.Unit)
	return created, nil
}

// List 返回食材目录，q 非空时按名字模糊匹配
func (r *IngredientResolver) List(ctx context.Context, q string) ([]models.Ingredient, error) {
	query := r.db.WithContext(ctx).Model(&models.Ingredient{})
	if q = strings.TrimSpace(q); q != "" {
		query = query.Where("name LIKE ?", "%"+q+"%")
	}
	var out []models.Ingredient
	if err := query.Order("name ASC").Find(&out).Error; err != nil {
		return nil, apperr.Internal("list ingredients", err)
	}
	return out, nil
}

func findIngredientByName(tx *gorm.DB, name string) (*models.Ingredient, error) {
	var ing models.Ingredient
	err := tx.Where("name = ?", name).First(&ing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("find ingredient", err)
	}
	return &ing, nil
}
