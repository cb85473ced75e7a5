package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"meal-planner/internal/apperr"
	"meal-planner/internal/logger"
	"meal-planner/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

const msgBackupNotFound = "Sauvegarde non trouvée"

// BackupService 把用户的菜谱目录导出为 YAML 文件，并可从文件恢复
type BackupService struct {
	db    *gorm.DB
	log   *logger.Logger
	meals *MealService
	dir   string
	now   func() time.Time
}

func NewBackupService(db *gorm.DB, log *logger.Logger, meals *MealService, dir string) *BackupService {
	return &BackupService{db: db, log: log, meals: meals, dir: dir, now: time.Now}
}

// backupData 是写入备份文件的内容结构
type backupData struct {
	UserID  uint         `yaml:"user_id"`
	Created time.Time    `yaml:"created"`
	Meals   []backupMeal `yaml:"meals"`
}

type backupMeal struct {
	Name            string             `yaml:"name"`
	Description     string             `yaml:"description,omitempty"`
	PreparationTime int                `yaml:"preparation_time"`
	Portions        int                `yaml:"portions"`
	Ingredients     []backupIngredient `yaml:"ingredients"`
}

type backupIngredient struct {
	Name     string `yaml:"name"`
	Quantity string `yaml:"quantity"`
	Unit     string `yaml:"unit,omitempty"`
	Optional string `yaml:"optional,omitempty"`
}

func (s *BackupService) Create(ctx context.Context, userID uint) (*models.Backup, error) {
	meals, err := s.meals.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	data := backupData{UserID: userID, Created: s.now(), Meals: make([]backupMeal, 0, len(meals))}
	for _, m := range meals {
		bm := backupMeal{
			Name:            m.Name,
			Description:     m.Description,
			PreparationTime: m.PreparationTime,
			Portions:        m.Portions,
		}
		for _, mi := range m.Ingredients {
			bm.Ingredients = append(bm.Ingredients, backupIngredient{
				Name:     mi.Ingredient.Name,
				Quantity: mi.Quantity.String(),
				Unit:     mi.Unit,
				Optional: mi.Optional,
			})
		}
		data.Meals = append(data.Meals, bm)
	}

	raw, err := yaml.Marshal(&data)
	if err != nil {
		return nil, apperr.Internal("marshal backup", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, apperr.Internal("create backup dir", err)
	}

	// 使用 uuid 作为文件名
	fileName := fmt.Sprintf("backup-%d-%s.yaml", userID, uuid.New().String())
	filePath := filepath.Join(s.dir, fileName)
	if err := os.WriteFile(filePath, raw, 0o600); err != nil {
		return nil, apperr.Internal("write backup file", err)
	}

	backup := &models.Backup{
		UserID:    userID,
		FileName:  fileName,
		FilePath:  filePath,
		Size:      int64(len(raw)),
		MealCount: len(data.Meals),
	}
	if err := s.db.WithContext(ctx).Create(backup).Error; err != nil {
		_ = os.Remove(filePath)
		return nil, apperr.Internal("save backup record", err)
	}
	s.log.Info("backup created", "user_id", userID, "backup_id", backup.ID, "meals", backup.MealCount)
	return backup, nil
}

func (s *BackupService) List(ctx context.Context, userID uint) ([]models.Backup, error) {
	var list []models.Backup
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, apperr.Internal("list backups", err)
	}
	return list, nil
}

// Get 只能取到自己的备份，别人的按不存在处理
func (s *BackupService) Get(ctx context.Context, userID, id uint) (*models.Backup, error) {
	var b models.Backup
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound(msgBackupNotFound)
	}
	if err != nil {
		return nil, apperr.Internal("find backup", err)
	}
	return &b, nil
}

// Delete removes the file first, then the record.
func (s *BackupService) Delete(ctx context.Context, userID, id uint) error {
	b, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	_ = os.Remove(b.FilePath)
	if err := s.db.WithContext(ctx).Delete(b).Error; err != nil {
		return apperr.Internal("delete backup record", err)
	}
	return nil
}

// Restore replaces the user's meals (and so their planned occurrences) with the
// backup content in one transaction. Returns the number of restored meals.
func (s *BackupService) Restore(ctx context.Context, userID, id uint) (int, error) {
	b, err := s.Get(ctx, userID, id)
	if err != nil {
		return 0, err
	}
	raw, err := os.ReadFile(b.FilePath)
	if err != nil {
		return 0, apperr.Internal("read backup file", err)
	}
	var data backupData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return 0, apperr.Internal("parse backup file", err)
	}
	// 简单校验：备份中记录的 user_id 必须等于当前用户
	if data.UserID != 0 && data.UserID != userID {
		return 0, apperr.Validation("La sauvegarde n'appartient pas à cet utilisateur")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mealIDs := tx.Model(&models.Meal{}).Select("id").Where("user_id = ?", userID)
		if err := tx.Where("meal_id IN (?)", mealIDs).Delete(&models.WeekMeal{}).Error; err != nil {
			return apperr.Internal("delete week meals", err)
		}
		if err := tx.Where("meal_id IN (?)", mealIDs).Delete(&models.MealIngredient{}).Error; err != nil {
			return apperr.Internal("delete meal ingredients", err)
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Meal{}).Error; err != nil {
			return apperr.Internal("delete meals", err)
		}

		for _, bm := range data.Meals {
			meal := &models.Meal{
				UserID:          userID,
				Name:            bm.Name,
				Description:     bm.Description,
				PreparationTime: bm.PreparationTime,
				Portions:        bm.Portions,
			}
			if err := tx.Omit("Ingredients").Create(meal).Error; err != nil {
				return apperr.Internal("restore meal", err)
			}
			lines := make([]MealIngredientInput, 0, len(bm.Ingredients))
			for _, bi := range bm.Ingredients {
				qty, err := decimal.NewFromString(bi.Quantity)
				if err != nil {
					return apperr.Validation("Quantité invalide dans la sauvegarde")
				}
				lines = append(lines, MealIngredientInput{
					Name:     bi.Name,
					Quantity: &qty,
					Unit:     bi.Unit,
					Optional: bi.Optional,
				})
			}
			if err := s.meals.replaceIngredients(ctx, tx, meal.ID, lines); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("backup restored", "user_id", userID, "backup_id", id, "meals", len(data.Meals))
	return len(data.Meals), nil
}
