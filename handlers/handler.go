package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"food-ordering-api/apperr"
	"food-ordering-api/logger"
	"food-ordering-api/middleware"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
)

// Handler holds the services every route delegates to
type Handler struct {
	orders      *services.OrderService
	restaurants *services.RestaurantService
	auth        *services.AuthService
	coupons     *services.CouponService
	tokens      *middleware.TokenManager
	log         *logger.Logger
}

func New(
	orders *services.OrderService,
	restaurants *services.RestaurantService,
	auth *services.AuthService,
	coupons *services.CouponService,
	tokens *middleware.TokenManager,
	log *logger.Logger,
) *Handler {
	return &Handler{
		orders:      orders,
		restaurants: restaurants,
		auth:        auth,
		coupons:     coupons,
		tokens:      tokens,
		log:         log,
	}
}

// fail writes err as {"error": msg} with the status of its kind
func (h *Handler) fail(c *gin.Context, action string, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	case errors.Is(err, services.ErrWrongPassword):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect"})
		return
	}
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		h.log.Error(action, middleware.GetRequestID(c), "Request failed", err)
	}
	c.JSON(kind.HTTPStatus(), gin.H{"error": apperr.PublicMessage(err)})
}

func (h *Handler) bindJSON(c *gin.Context, action string, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.fail(c, action, services.BindError(err))
		return false
	}
	return true
}

func (h *Handler) bindQuery(c *gin.Context, action string, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		h.fail(c, action, services.BindError(err))
		return false
	}
	return true
}

// paramID parses a positive integer path parameter
func (h *Handler) paramID(c *gin.Context, action, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		h.fail(c, action, apperr.Validation("Invalid %s", name))
		return 0, false
	}
	return uint(id), true
}
