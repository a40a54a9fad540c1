package handlers

import (
	"net/http"

	"food-ordering-api/middleware"

	"github.com/gin-gonic/gin"
)

// GetAvailableOrders shows ready orders that have no driver assigned
func (h *Handler) GetAvailableOrders(c *gin.Context) {
	orders, err := h.orders.AvailableForPickup(c.Request.Context())
	if err != nil {
		h.fail(c, "list_available_orders", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// GetMyDeliveries returns all orders assigned to the logged-in driver
func (h *Handler) GetMyDeliveries(c *gin.Context) {
	orders, err := h.orders.DriverOrders(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		h.fail(c, "list_my_deliveries", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// PickupOrder assigns the order to the driver and moves it out for delivery
func (h *Handler) PickupOrder(c *gin.Context) {
	orderID, ok := h.paramID(c, "pickup_order", "id")
	if !ok {
		return
	}
	order, err := h.orders.PickupOrder(c.Request.Context(), middleware.GetActor(c), orderID)
	if err != nil {
		h.fail(c, "pickup_order", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order picked up successfully", "order": order})
}

// DeliverOrder completes a delivery
func (h *Handler) DeliverOrder(c *gin.Context) {
	orderID, ok := h.paramID(c, "deliver_order", "id")
	if !ok {
		return
	}
	order, err := h.orders.DeliverOrder(c.Request.Context(), middleware.GetActor(c), orderID)
	if err != nil {
		h.fail(c, "deliver_order", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order delivered successfully", "order": order})
}
