package handler

import (
	"net/http"

	"meal-planner/internal/service"
	"meal-planner/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// MealHandler 菜谱接口
type MealHandler struct {
	Meals *service.MealService
}

func NewMealHandler(meals *service.MealService) *MealHandler {
	return &MealHandler{Meals: meals}
}

type mealIngredientReq struct {
	Name     string           `json:"name"`
	Quantity *decimal.Decimal `json:"quantity"`
	Unit     string           `json:"unit"`
	Optional string           `json:"optional"`
}

type mealReq struct {
	Name            string              `json:"name" binding:"required"`
	Description     string              `json:"description"`
	PreparationTime int                 `json:"preparationTime"`
	Portions        *int                `json:"portions"`
	Ingredients     []mealIngredientReq `json:"ingredients"`
}

func (r *mealReq) input() service.MealInput {
	in := service.MealInput{
		Name:            r.Name,
		Description:     r.Description,
		PreparationTime: r.PreparationTime,
		Portions:        r.Portions,
	}
	for _, l := range r.Ingredients {
		in.Ingredients = append(in.Ingredients, service.MealIngredientInput{
			Name:     l.Name,
			Quantity: l.Quantity,
			Unit:     l.Unit,
			Optional: l.Optional,
		})
	}
	return in
}

func (h *MealHandler) ListMeals(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	meals, err := h.Meals.List(c.Request.Context(), user.ID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	items := make([]gin.H, 0, len(meals))
	for i := range meals {
		items = append(items, mealJSON(&meals[i]))
	}
	util.Success(c, util.Response{"items": items})
}

func (h *MealHandler) GetMeal(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	meal, err := h.Meals.Get(c.Request.Context(), user.ID, id)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"meal": mealJSON(meal)})
}

func (h *MealHandler) CreateMeal(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	var req mealReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, msgInvalidParam)
		return
	}
	meal, err := h.Meals.Create(c.Request.Context(), user.ID, req.input())
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"meal": mealJSON(meal)})
}

func (h *MealHandler) UpdateMeal(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req mealReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, msgInvalidParam)
		return
	}
	meal, err := h.Meals.Update(c.Request.Context(), user.ID, id, req.input())
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"meal": mealJSON(meal)})
}

func (h *MealHandler) DeleteMeal(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Meals.Delete(c.Request.Context(), user.ID, id); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"message": "Repas supprimé"})
}
