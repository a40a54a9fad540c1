package handlers

import (
	"net/http"

	"food-ordering-api/models"
	"food-ordering-api/services"
	"food-ordering-api/statemachine"

	"github.com/gin-gonic/gin"
)

// ListRestaurants searches active restaurants (public)
func (h *Handler) ListRestaurants(c *gin.Context) {
	var params services.SearchParams
	if !h.bindQuery(c, "list_restaurants", &params) {
		return
	}
	restaurants, err := h.restaurants.Search(c.Request.Context(), params)
	if err != nil {
		h.fail(c, "list_restaurants", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":       len(restaurants),
		"restaurants": restaurants,
	})
}

// GetRestaurant returns a single restaurant with its menu and rating
func (h *Handler) GetRestaurant(c *gin.Context) {
	restaurantID, ok := h.paramID(c, "get_restaurant", "id")
	if !ok {
		return
	}
	restaurant, err := h.restaurants.GetRestaurant(c.Request.Context(), restaurantID)
	if err != nil {
		h.fail(c, "get_restaurant", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": restaurant})
}

// GetMenu returns the menu for a specific restaurant (public)
func (h *Handler) GetMenu(c *gin.Context) {
	restaurantID, ok := h.paramID(c, "get_menu", "id")
	if !ok {
		return
	}
	restaurant, items, err := h.restaurants.Menu(c.Request.Context(), restaurantID)
	if err != nil {
		h.fail(c, "get_menu", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"restaurant": restaurant.Name,
		"count":      len(items),
		"menu":       items,
	})
}

// GetStateMachineInfo returns the full state machine for informational purposes
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	terminal := []models.OrderStatus{}
	for _, s := range models.AllOrderStatuses {
		if statemachine.IsTerminal(s) {
			terminal = append(terminal, s)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"state_machine":   statemachine.GetAllTransitions(),
		"terminal_states": terminal,
		"description":     "Food Ordering Order Lifecycle State Machine",
	})
}
