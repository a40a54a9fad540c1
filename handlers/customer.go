package handlers

import (
	"net/http"

	"food-ordering-api/middleware"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
)

// PlaceOrder creates a new order (customer only)
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req services.CreateOrderInput
	if !h.bindJSON(c, "place_order", &req) {
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		h.fail(c, "place_order", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"order":   order,
	})
}

// GetMyOrders pages through the logged-in customer's orders
func (h *Handler) GetMyOrders(c *gin.Context) {
	var params services.ListParams
	if !h.bindQuery(c, "list_my_orders", &params) {
		return
	}
	page, err := h.orders.ListCustomerOrders(c.Request.Context(), middleware.GetActor(c), params)
	if err != nil {
		h.fail(c, "list_my_orders", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetOrderDetail returns a single order's full detail with history
func (h *Handler) GetOrderDetail(c *gin.Context) {
	orderID, ok := h.paramID(c, "get_order", "id")
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), middleware.GetActor(c), orderID)
	if err != nil {
		h.fail(c, "get_order", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// CancelOrder cancels a pending or confirmed order inside the cancellation window
func (h *Handler) CancelOrder(c *gin.Context) {
	orderID, ok := h.paramID(c, "cancel_order", "id")
	if !ok {
		return
	}
	order, err := h.orders.CancelOrder(c.Request.Context(), middleware.GetActor(c), orderID)
	if err != nil {
		h.fail(c, "cancel_order", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled successfully", "order": order})
}

// RateRestaurant records the customer's stars for a restaurant
func (h *Handler) RateRestaurant(c *gin.Context) {
	restaurantID, ok := h.paramID(c, "rate_restaurant", "id")
	if !ok {
		return
	}
	var req services.RatingInput
	if !h.bindJSON(c, "rate_restaurant", &req) {
		return
	}
	rating, err := h.restaurants.Rate(c.Request.Context(), middleware.GetActor(c), restaurantID, req)
	if err != nil {
		h.fail(c, "rate_restaurant", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Rating saved", "rating": rating})
}
