package handler

import (
	"net/http"

	"meal-planner/internal/service"
	"meal-planner/internal/util"

	"github.com/gin-gonic/gin"
)

// WeekMealHandler 周计划接口
type WeekMealHandler struct {
	Planning *service.PlanningService
}

func NewWeekMealHandler(planning *service.PlanningService) *WeekMealHandler {
	return &WeekMealHandler{Planning: planning}
}

type weekMealReq struct {
	MealID    uint   `json:"mealId" binding:"required"`
	WeekStart string `json:"weekStart" binding:"required"`
	Day       int    `json:"day"`
	Period    string `json:"period" binding:"required"`
	Portions  *int   `json:"portions"`
}

type weekMealPatchReq struct {
	Day      *int    `json:"day"`
	Period   *string `json:"period"`
	Portions *int    `json:"portions"`
}

// ListWeekMeals GET /api/week-meals?weekStart=YYYY-MM-DD
func (h *WeekMealHandler) ListWeekMeals(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	list, err := h.Planning.List(c.Request.Context(), user.ID, c.Query("weekStart"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	items := make([]gin.H, 0, len(list))
	for i := range list {
		items = append(items, weekMealJSON(&list[i]))
	}
	util.Success(c, util.Response{"items": items})
}

func (h *WeekMealHandler) CreateWeekMeal(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	var req weekMealReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, msgInvalidParam)
		return
	}
	wm, err := h.Planning.Create(c.Request.Context(), user.ID, service.WeekMealInput{
		MealID:    req.MealID,
		WeekStart: req.WeekStart,
		Day:       req.Day,
		Period:    req.Period,
		Portions:  req.Portions,
	})
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"weekMeal": weekMealJSON(wm)})
}

func (h *WeekMealHandler) UpdateWeekMeal(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req weekMealPatchReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, msgInvalidParam)
		return
	}
	wm, err := h.Planning.Update(c.Request.Context(), user.ID, id, service.WeekMealPatch{
		Day:      req.Day,
		Period:   req.Period,
		Portions: req.Portions,
	})
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"weekMeal": weekMealJSON(wm)})
}

func (h *WeekMealHandler) DeleteWeekMeal(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Planning.Delete(c.Request.Context(), user.ID, id); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"message": "Repas retiré du planning"})
}
