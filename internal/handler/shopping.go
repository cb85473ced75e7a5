package handler

import (
	"net/http"

	"meal-planner/internal/service"
	"meal-planner/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ShoppingHandler 购物清单接口
type ShoppingHandler struct {
	Shopping *service.ShoppingService
}

func NewShoppingHandler(shopping *service.ShoppingService) *ShoppingHandler {
	return &ShoppingHandler{Shopping: shopping}
}

// ListShoppingLists GET /api/shopping-lists
func (h *ShoppingHandler) ListShoppingLists(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	list, err := h.Shopping.List(c.Request.Context(), user.ID)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"items": list})
}

// Generate POST /api/shopping-list/generate/:week
func (h *ShoppingHandler) Generate(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	list, err := h.Shopping.Generate(c.Request.Context(), user.ID, c.Param("week"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{
		"message":        "Liste de courses générée avec succès",
		"shoppingListId": list.ID,
		"itemsCount":     len(list.Items),
		"shoppingList":   shoppingListJSON(list),
	})
}

// GetByWeek GET /api/shopping-list/:key，key 为周一日期
func (h *ShoppingHandler) GetByWeek(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	list, err := h.Shopping.Get(c.Request.Context(), user.ID, c.Param("key"))
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"shoppingList": shoppingListJSON(list)})
}

type saveReq struct {
	Completed *bool   `json:"completed"`
	Notes     *string `json:"notes"`
}

// Save POST /api/shopping-list/:key/save，key 为清单 ID
func (h *ShoppingHandler) Save(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "key")
	if !ok {
		return
	}
	var req saveReq
	// 请求体可以为空
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, msgInvalidParam)
			return
		}
	}
	list, err := h.Shopping.Save(c.Request.Context(), user.ID, id, service.SaveInput{
		Completed: req.Completed,
		Notes:     req.Notes,
	})
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{
		"message":   "Liste de courses sauvegardée avec succès",
		"id":        list.ID,
		"updatedAt": list.UpdatedAt,
		"completed": list.Completed,
	})
}

type addItemReq struct {
	IngredientName string           `json:"ingredientName" binding:"required"`
	Quantity       *decimal.Decimal `json:"quantity" binding:"required"`
	Unit           string           `json:"unit"`
}

// AddItem POST /api/shopping-list/:key/item，key 为清单 ID
func (h *ShoppingHandler) AddItem(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "key")
	if !ok {
		return
	}
	var req addItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, msgInvalidParam)
		return
	}
	item, err := h.Shopping.AddItem(c.Request.Context(), user.ID, id, service.AddItemInput{
		IngredientName: req.IngredientName,
		Quantity:       *req.Quantity,
		Unit:           req.Unit,
	})
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{
		"message": "Élément ajouté avec succès",
		"item":    shoppingItemJSON(item),
	})
}

type editItemReq struct {
	Quantity       *decimal.Decimal `json:"quantity"`
	Unit           *string          `json:"unit"`
	IngredientName *string          `json:"ingredientName"`
}

// EditItem PUT /api/shopping-list/item/:id
func (h *ShoppingHandler) EditItem(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req editItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, msgInvalidParam)
		return
	}
	item, err := h.Shopping.EditItem(c.Request.Context(), user.ID, id, service.EditItemInput{
		Quantity:       req.Quantity,
		Unit:           req.Unit,
		IngredientName: req.IngredientName,
	})
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{
		"message": "Élément mis à jour avec succès",
		"item":    shoppingItemJSON(item),
	})
}

// ToggleItem PATCH /api/shopping-list/item/:id/toggle
func (h *ShoppingHandler) ToggleItem(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	available, err := h.Shopping.ToggleItem(c.Request.Context(), user.ID, id)
	if err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{
		"message":     "Statut mis à jour",
		"isAvailable": available,
	})
}

// DeleteItem DELETE /api/shopping-list/item/:id
func (h *ShoppingHandler) DeleteItem(c *gin.Context) {
	user, ok := mustUser(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Shopping.DeleteItem(c.Request.Context(), user.ID, id); err != nil {
		util.Fail(c, err)
		return
	}
	util.Success(c, util.Response{"message": "Élément supprimé avec succès"})
}
