package handlers

import (
	"net/http"

	"food-ordering-api/middleware"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
)

// GetRestaurantOrders pages through orders of the owner's restaurant
func (h *Handler) GetRestaurantOrders(c *gin.Context) {
	var params services.ListParams
	if !h.bindQuery(c, "list_restaurant_orders", &params) {
		return
	}
	page, err := h.orders.ListRestaurantOrders(c.Request.Context(), middleware.GetActor(c), params)
	if err != nil {
		h.fail(c, "list_restaurant_orders", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// UpdateOrderStatus moves an order one step along the state machine.
// Shared by restaurant owners and admins; the access policy tells them apart.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := h.paramID(c, "update_order_status", "id")
	if !ok {
		return
	}
	var req services.UpdateStatusInput
	if !h.bindJSON(c, "update_order_status", &req) {
		return
	}

	order, err := h.orders.UpdateOrderStatus(c.Request.Context(), middleware.GetActor(c), orderID, req)
	if err != nil {
		h.fail(c, "update_order_status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated",
		"order":   order,
	})
}
