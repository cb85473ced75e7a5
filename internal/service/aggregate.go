package service

import (
	"meal-planner/internal/models"

	"github.com/shopspring/decimal"
)

// Line is one aggregated shopping need.
type Line struct {
	IngredientID uint
	Ingredient   models.Ingredient
	Quantity     decimal.Decimal
	Unit         string
}

type accumulator struct {
	ingredient models.Ingredient
	total      decimal.Decimal
	unit       string
}

// Aggregate sums the ingredient quantities of the planned meals, scaled by
// occurrence portions over meal base portions (ratio 1 when the base is 0).
// Lines are keyed by ingredient id and returned in order of first appearance.
// The unit is the first one seen for an ingredient; units are never converted.
// Quantities are rounded to models.QuantityScale only after summing.
func Aggregate(weekMeals []models.WeekMeal) []Line {
	acc := make(map[uint]*accumulator)
	var order []uint

	for i := range weekMeals {
		wm := &weekMeals[i]
		planned := decimal.NewFromInt(int64(wm.Portions))
		base := decimal.NewFromInt(int64(wm.Meal.Portions))

		for j := range wm.Meal.Ingredients {
			mi := &wm.Meal.Ingredients[j]
			if mi.IngredientID == 0 {
				continue
			}

			qty := mi.Quantity
			if base.IsPositive() {
				// qty * planned / base，先乘后除减少精度损失
				qty = qty.Mul(planned).Div(base)
			}

			a, ok := acc[mi.IngredientID]
			if !ok {
				a = &accumulator{ingredient: mi.Ingredient, total: decimal.Zero, unit: mi.EffectiveUnit()}
				acc[mi.IngredientID] = a
				order = append(order, mi.IngredientID)
			}
			a.total = a.total.Add(qty)
		}
	}

	lines := make([]Line, 0, len(order))
	for _, id := range order {
		a := acc[id]
		lines = append(lines, Line{
			IngredientID: id,
			Ingredient:   a.ingredient,
			Quantity:     a.total.Round(models.QuantityScale),
			Unit:         a.unit,
		})
	}
	return lines
}
