package handlers

import (
	"net/http"

	"food-ordering-api/middleware"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
)

// ── Restaurant Management ────────────────────────────────────────────────────

// CreateRestaurant lets a restaurant-role user create their restaurant
func (h *Handler) CreateRestaurant(c *gin.Context) {
	var req services.RestaurantInput
	if !h.bindJSON(c, "create_restaurant", &req) {
		return
	}
	restaurant, err := h.restaurants.CreateRestaurant(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		h.fail(c, "create_restaurant", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Restaurant created", "restaurant": restaurant})
}

// GetMyRestaurant fetches the restaurant owned by the logged-in user
func (h *Handler) GetMyRestaurant(c *gin.Context) {
	restaurant, err := h.restaurants.OwnedRestaurant(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		h.fail(c, "get_my_restaurant", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": restaurant})
}

// UpdateRestaurant replaces the restaurant profile fields
func (h *Handler) UpdateRestaurant(c *gin.Context) {
	var req services.RestaurantInput
	if !h.bindJSON(c, "update_restaurant", &req) {
		return
	}
	restaurant, err := h.restaurants.UpdateRestaurant(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		h.fail(c, "update_restaurant", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant updated", "restaurant": restaurant})
}

// ── Menu Management ─────────────────────────────────────────────────────────

func (h *Handler) GetMyMenu(c *gin.Context) {
	items, err := h.restaurants.OwnMenu(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		h.fail(c, "get_my_menu", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "menu": items})
}

// AddMenuItem adds a new item to the restaurant's menu
func (h *Handler) AddMenuItem(c *gin.Context) {
	var req services.MenuItemInput
	if !h.bindJSON(c, "add_menu_item", &req) {
		return
	}
	item, err := h.restaurants.AddMenuItem(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		h.fail(c, "add_menu_item", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Menu item added", "item": item})
}

// UpdateMenuItem updates a menu item (owner or admin)
func (h *Handler) UpdateMenuItem(c *gin.Context) {
	itemID, ok := h.paramID(c, "update_menu_item", "itemId")
	if !ok {
		return
	}
	var req services.MenuItemInput
	if !h.bindJSON(c, "update_menu_item", &req) {
		return
	}
	item, err := h.restaurants.UpdateMenuItem(c.Request.Context(), middleware.GetActor(c), itemID, req)
	if err != nil {
		h.fail(c, "update_menu_item", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item updated", "item": item})
}

// DeleteMenuItem removes a menu item from the menu; past orders still show it
func (h *Handler) DeleteMenuItem(c *gin.Context) {
	itemID, ok := h.paramID(c, "delete_menu_item", "itemId")
	if !ok {
		return
	}
	if err := h.restaurants.DeleteMenuItem(c.Request.Context(), middleware.GetActor(c), itemID); err != nil {
		h.fail(c, "delete_menu_item", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item deleted"})
}
