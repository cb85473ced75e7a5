package handler

import (
	"meal-planner/internal/models"

	"github.com/gin-gonic/gin"
)

// 模型不带 json tag，这里统一转成前端使用的 camelCase 结构

func ingredientJSON(i *models.Ingredient) gin.H {
	return gin.H{
		"id":          i.ID,
		"name":        i.Name,
		"unit":        i.Unit,
		"description": i.Description,
	}
}

func mealJSON(m *models.Meal) gin.H {
	lines := make([]gin.H, 0, len(m.Ingredients))
	for i := range m.Ingredients {
		mi := &m.Ingredients[i]
		lines = append(lines, gin.H{
			"id":       mi.ID,
			"quantity": mi.Quantity,
			"unit":     mi.EffectiveUnit(),
			"optional": mi.Optional,
			"ingredient": gin.H{
				"id":   mi.Ingredient.ID,
				"name": mi.Ingredient.Name,
				"unit": mi.Ingredient.Unit,
			},
		})
	}
	return gin.H{
		"id":              m.ID,
		"name":            m.Name,
		"description":     m.Description,
		"preparationTime": m.PreparationTime,
		"portions":        m.Portions,
		"ingredients":     lines,
		"createdAt":       m.CreatedAt,
		"updatedAt":       m.UpdatedAt,
	}
}

func weekMealJSON(wm *models.WeekMeal) gin.H {
	return gin.H{
		"id":        wm.ID,
		"weekStart": wm.WeekStart,
		"day":       wm.Day,
		"period":    wm.Period,
		"portions":  wm.Portions,
		"meal": gin.H{
			"id":              wm.Meal.ID,
			"name":            wm.Meal.Name,
			"preparationTime": wm.Meal.PreparationTime,
			"portions":        wm.Meal.Portions,
		},
	}
}

func shoppingItemJSON(it *models.ShoppingItem) gin.H {
	return gin.H{
		"id":          it.ID,
		"quantity":    it.Quantity,
		"unit":        it.Unit,
		"isAvailable": it.IsAvailable,
		"notes":       it.Notes,
		"ingredient": gin.H{
			"id":   it.Ingredient.ID,
			"name": it.Ingredient.Name,
		},
	}
}

func shoppingListJSON(l *models.ShoppingList) gin.H {
	items := make([]gin.H, 0, len(l.Items))
	for i := range l.Items {
		items = append(items, shoppingItemJSON(&l.Items[i]))
	}
	return gin.H{
		"id":            l.ID,
		"weekStart":     l.WeekStart,
		"generatedAt":   l.GeneratedAt,
		"completed":     l.Completed,
		"notes":         l.Notes,
		"createdAt":     l.CreatedAt,
		"updatedAt":     l.UpdatedAt,
		"shoppingItems": items,
	}
}

func backupJSON(b *models.Backup) gin.H {
	return gin.H{
		"id":        b.ID,
		"fileName":  b.FileName,
		"size":      b.Size,
		"mealCount": b.MealCount,
		"createdAt": b.CreatedAt,
	}
}
