package service

import (
	"context"
	"errors"

	"meal-planner/internal/apperr"
	"meal-planner/internal/logger"
	"meal-planner/internal/models"
	"meal-planner/internal/util"

	"gorm.io/gorm"
)

const msgWeekMealNotFound = "Repas planifié non trouvé"

// PlanningService 管理每周的菜谱安排
type PlanningService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlanningService(db *gorm.DB, log *logger.Logger) *PlanningService {
	return &PlanningService{db: db, log: log}
}

type WeekMealInput struct {
	MealID    uint
	WeekStart string
	Day       int
	Period    string
	Portions  *int
}

// WeekMealPatch 只更新非 nil 字段
type WeekMealPatch struct {
	Day      *int
	Period   *string
	Portions *int
}

// List returns the week's occurrences ordered by day then period.
func (s *PlanningService) List(ctx context.Context, userID uint, week string) ([]models.WeekMeal, error) {
	week, err := util.ParseWeekStart(week)
	if err != nil {
		return nil, apperr.Validation(msgInvalidWeek)
	}
	var out []models.WeekMeal
	if err := s.db.WithContext(ctx).
		Preload("Meal").
		Where("user_id = ? AND week_start = ?", userID, week).
		Order("day ASC, period ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, apperr.Internal("list week meals", err)
	}
	return out, nil
}

func (s *PlanningService) Create(ctx context.Context, userID uint, in WeekMealInput) (*models.WeekMeal, error) {
	week, err := util.ParseWeekStart(in.WeekStart)
	if err != nil {
		return nil, apperr.Validation(msgInvalidWeek)
	}
	if err := util.ValidateDay(in.Day); err != nil {
		return nil, apperr.Validation("Jour invalide")
	}
	if err := util.ValidatePeriod(in.Period); err != nil {
		return nil, apperr.Validation("Période invalide (midi ou soir)")
	}
	portions := 1
	if in.Portions != nil {
		portions = *in.Portions
	}
	if err := util.ValidatePortions(portions); err != nil {
		return nil, apperr.Validation("Nombre de portions invalide")
	}

	db := s.db.WithContext(ctx)
	meal, err := loadOwnedMeal(db, userID, in.MealID, false)
	if err != nil {
		return nil, err
	}

	wm := &models.WeekMeal{
		UserID:    userID,
		WeekStart: week,
		MealID:    meal.ID,
		Day:       in.Day,
		Period:    in.Period,
		Portions:  portions,
	}
	if err := db.Omit("Meal").Create(wm).Error; err != nil {
		return nil, apperr.Internal("create week meal", err)
	}
	wm.Meal = *meal
	return wm, nil
}

func (s *PlanningService) Update(ctx context.Context, userID, id uint, p WeekMealPatch) (*models.WeekMeal, error) {
	updates := map[string]interface{}{}
	if p.Day != nil {
		if err := util.ValidateDay(*p.Day); err != nil {
			return nil, apperr.Validation("Jour invalide")
		}
		updates["day"] = *p.Day
	}
	if p.Period != nil {
		if err := util.ValidatePeriod(*p.Period); err != nil {
			return nil, apperr.Validation("Période invalide (midi ou soir)")
		}
		updates["period"] = *p.Period
	}
	if p.Portions != nil {
		if err := util.ValidatePortions(*p.Portions); err != nil {
			return nil, apperr.Validation("Nombre de portions invalide")
		}
		updates["portions"] = *p.Portions
	}

	db := s.db.WithContext(ctx)
	wm, err := loadOwnedWeekMeal(db, userID, id)
	if err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := db.Model(&models.WeekMeal{}).Where("id = ?", wm.ID).Updates(updates).Error; err != nil {
			return nil, apperr.Internal("update week meal", err)
		}
	}
	return loadOwnedWeekMeal(db, userID, id)
}

func (s *PlanningService) Delete(ctx context.Context, userID, id uint) error {
	db := s.db.WithContext(ctx)
	wm, err := loadOwnedWeekMeal(db, userID, id)
	if err != nil {
		return err
	}
	if err := db.Delete(&models.WeekMeal{}, wm.ID).Error; err != nil {
		return apperr.Internal("delete week meal", err)
	}
	return nil
}

func loadOwnedWeekMeal(db *gorm.DB, userID, id uint) (*models.WeekMeal, error) {
	var wm models.WeekMeal
	err := db.Preload("Meal").First(&wm, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(msgWeekMealNotFound)
	}
	if err != nil {
		return nil, apperr.Internal("find week meal", err)
	}
	if wm.UserID != userID {
		return nil, apperr.Forbidden(msgForbidden)
	}
	return &wm, nil
}
