package handlers

import (
	"net/http"

	"food-ordering-api/models"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
)

// AdminGetAllOrders pages through every order with optional filters
func (h *Handler) AdminGetAllOrders(c *gin.Context) {
	var params services.ListParams
	if !h.bindQuery(c, "admin_list_orders", &params) {
		return
	}
	page, err := h.orders.ListAllOrders(c.Request.Context(), params)
	if err != nil {
		h.fail(c, "admin_list_orders", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// AdminGetAllUsers returns all users, optionally filtered by role
func (h *Handler) AdminGetAllUsers(c *gin.Context) {
	users, err := h.auth.ListUsers(c.Request.Context(), models.UserRole(c.Query("role")))
	if err != nil {
		h.fail(c, "admin_list_users", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}

// AdminGetAllRestaurants returns every restaurant regardless of status
func (h *Handler) AdminGetAllRestaurants(c *gin.Context) {
	restaurants, err := h.restaurants.ListAll(c.Request.Context())
	if err != nil {
		h.fail(c, "admin_list_restaurants", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(restaurants), "restaurants": restaurants})
}

type restaurantStatusRequest struct {
	Status models.RestaurantStatus `json:"status" binding:"required"`
}

// AdminSetRestaurantStatus activates, suspends or deactivates a restaurant
func (h *Handler) AdminSetRestaurantStatus(c *gin.Context) {
	restaurantID, ok := h.paramID(c, "admin_set_restaurant_status", "id")
	if !ok {
		return
	}
	var req restaurantStatusRequest
	if !h.bindJSON(c, "admin_set_restaurant_status", &req) {
		return
	}
	restaurant, err := h.restaurants.SetStatus(c.Request.Context(), restaurantID, req.Status)
	if err != nil {
		h.fail(c, "admin_set_restaurant_status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant status updated", "restaurant": restaurant})
}

// ── Coupons ─────────────────────────────────────────────────────────────────

func (h *Handler) AdminCreateCoupon(c *gin.Context) {
	var req services.CouponInput
	if !h.bindJSON(c, "admin_create_coupon", &req) {
		return
	}
	coupon, err := h.coupons.Create(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "admin_create_coupon", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Coupon created", "coupon": coupon})
}

func (h *Handler) AdminListCoupons(c *gin.Context) {
	coupons, err := h.coupons.List(c.Request.Context())
	if err != nil {
		h.fail(c, "admin_list_coupons", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(coupons), "coupons": coupons})
}

type couponActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// AdminSetCouponActive switches a coupon on or off
func (h *Handler) AdminSetCouponActive(c *gin.Context) {
	couponID, ok := h.paramID(c, "admin_set_coupon_active", "id")
	if !ok {
		return
	}
	var req couponActiveRequest
	if !h.bindJSON(c, "admin_set_coupon_active", &req) {
		return
	}
	coupon, err := h.coupons.SetActive(c.Request.Context(), couponID, *req.IsActive)
	if err != nil {
		h.fail(c, "admin_set_coupon_active", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Coupon updated", "coupon": coupon})
}
