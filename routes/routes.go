package routes

import (
	"food-ordering-api/handlers"
	"food-ordering-api/middleware"
	"food-ordering-api/models"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func SetupRoutes(r *gin.Engine, h *handlers.Handler, tm *middleware.TokenManager) {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		services.RegisterValidators(v)
	}

	authed := middleware.AuthRequired(tm)
	customerOnly := middleware.RoleRequired(models.RoleCustomer)
	ownerOnly := middleware.RoleRequired(models.RoleRestaurant)

	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		// Auth
		public.POST("/auth/register", h.Register)
		public.POST("/auth/login", h.Login)

		// Restaurants & menus (no auth needed)
		public.GET("/restaurants", h.ListRestaurants)
		public.GET("/restaurants/:id", h.GetRestaurant)
		public.GET("/restaurants/:id/menu", h.GetMenu)

		public.GET("/state-machine", h.GetStateMachineInfo)
	}

	// ── Authenticated routes ───────────────────────────────────────
	auth := r.Group("/api")
	auth.Use(authed)
	{
		auth.GET("/profile", h.GetProfile)
		auth.PUT("/profile", h.UpdateProfile)
		auth.PUT("/profile/password", h.ChangePassword)
		auth.POST("/restaurants/:id/ratings", customerOnly, h.RateRestaurant)
	}

	// ── Orders ─────────────────────────────────────────────────────
	orders := r.Group("/api/orders")
	orders.Use(authed)
	{
		orders.POST("", customerOnly, h.PlaceOrder)
		orders.GET("", customerOnly, h.GetMyOrders)
		orders.GET("/restaurant", ownerOnly, h.GetRestaurantOrders)
		// Any role may ask; the access policy decides who sees what
		orders.GET("/:id", h.GetOrderDetail)
		orders.PUT("/:id/cancel", customerOnly, h.CancelOrder)
		orders.PUT("/:id/status", middleware.RoleRequired(models.RoleRestaurant, models.RoleAdmin), h.UpdateOrderStatus)
	}

	// ── Restaurant owner routes ────────────────────────────────────
	restaurant := r.Group("/api/restaurant")
	restaurant.Use(authed)
	{
		restaurant.POST("", ownerOnly, h.CreateRestaurant)
		restaurant.GET("", ownerOnly, h.GetMyRestaurant)
		restaurant.PUT("", ownerOnly, h.UpdateRestaurant)

		// Menu management
		restaurant.GET("/menu", ownerOnly, h.GetMyMenu)
		restaurant.POST("/menu", ownerOnly, h.AddMenuItem)
		ownerOrAdmin := middleware.RoleRequired(models.RoleRestaurant, models.RoleAdmin)
		restaurant.PUT("/menu/:itemId", ownerOrAdmin, h.UpdateMenuItem)
		restaurant.DELETE("/menu/:itemId", ownerOrAdmin, h.DeleteMenuItem)
	}

	// ── Delivery routes ────────────────────────────────────────────
	delivery := r.Group("/api/delivery")
	delivery.Use(authed, middleware.RoleRequired(models.RoleDelivery))
	{
		delivery.GET("/orders/available", h.GetAvailableOrders)
		delivery.GET("/orders/mine", h.GetMyDeliveries)
		delivery.PUT("/orders/:id/pickup", h.PickupOrder)
		delivery.PUT("/orders/:id/deliver", h.DeliverOrder)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(authed, middleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/orders", h.AdminGetAllOrders)
		admin.PUT("/orders/:id/status", h.UpdateOrderStatus)
		admin.GET("/users", h.AdminGetAllUsers)
		admin.GET("/restaurants", h.AdminGetAllRestaurants)
		admin.PUT("/restaurants/:id/status", h.AdminSetRestaurantStatus)
		admin.POST("/coupons", h.AdminCreateCoupon)
		admin.GET("/coupons", h.AdminListCoupons)
		admin.PUT("/coupons/:id/active", h.AdminSetCouponActive)
	}
}
