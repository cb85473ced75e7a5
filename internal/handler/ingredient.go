package handler

import (
	"net/http"

	"meal-planner/internal/service"
	"meal-planner/internal/util"

	"github.com/gin-gonic/gin"
)

// IngredientHandler 食材目录接口
type IngredientHandler struct {
	Resolver *service.IngredientResolver
}

func NewIngredientHandler(resolver *service.IngredientResolver) *IngredientHandler {
	return &IngredientHandler{Resolver: resolver}
}

// ListIngredients GET /api/ingredients?q=
func (h *IngredientHandler) ListIngredients(c *gin.Context) {
	list, err := h.Resolver.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	items := make([]gin.H, 0, len(list))
	for i := range list {
		items = append(items, ingredientJSON(&list[i]))
	}
	util.Success(c, util.Response{"items": items})
}

type ingredientReq struct {
	Name string `json:"name" binding:"required"`
	Unit string `json:"unit"`
}

// CreateIngredient 按名字查找，没有则创建
func (h *IngredientHandler) CreateIngredient(c *gin.Context) {
	var req ingredientReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, msgInvalidParam)
		return
	}
	ing, err := h.Resolver.Resolve(c.Request.Context(), nil, req.Name, req.Unit)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"ingredient": ingredientJSON(ing)})
}
