package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"food-ordering-api/apperr"
	"food-ordering-api/events"
	"food-ordering-api/logger"
	"food-ordering-api/models"
	"food-ordering-api/policy"
	"food-ordering-api/pricing"
	"food-ordering-api/statemachine"
)

// CancellationWindow is how long after creation a customer may still cancel
const CancellationWindow = 5 * time.Minute

// maxOrderTotal is the largest value the decimal(10,2) total column holds
var maxOrderTotal = decimal.RequireFromString("99999999.99")

const (
	defaultCustomerLimit   = 10
	defaultRestaurantLimit = 20
	maxPageLimit           = 100
)

type OrderLine struct {
	MenuItemID uint `json:"menu_item_id" binding:"required,gt=0"`
	Quantity   int  `json:"quantity" binding:"required,min=1,max=100"`
}

type CreateOrderInput struct {
	RestaurantID    uint        `json:"restaurant_id" binding:"required,gt=0"`
	Items           []OrderLine `json:"items" binding:"required,min=1,dive"`
	CouponID        *uint       `json:"coupon_id" binding:"omitempty,gt=0"`
	DeliveryAddress string      `json:"delivery_address" binding:"required,min=10"`
}

type UpdateStatusInput struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Note   string             `json:"note" binding:"max=500"`
}

// ListParams are the query parameters shared by every order listing
type ListParams struct {
	Page         int                `form:"page" binding:"omitempty,min=1,max=100000"`
	Limit        int                `form:"limit" binding:"omitempty,min=1,max=100"`
	Status       models.OrderStatus `form:"status"`
	CustomerID   uint               `form:"customer_id"`
	RestaurantID uint               `form:"restaurant_id"`
}

type Pagination struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalOrders int64 `json:"total_orders"`
	HasNext     bool  `json:"has_next"`
	HasPrev     bool  `json:"has_prev"`
}

type OrderPage struct {
	Orders     []models.Order `json:"orders"`
	Pagination Pagination     `json:"pagination"`
}

type OrderService struct {
	db        *gorm.DB
	publisher events.Publisher
	log       *logger.Logger
	now       func() time.Time
}

func NewOrderService(db *gorm.DB, publisher events.Publisher, log *logger.Logger) *OrderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &OrderService{
		db:        db,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// CreateOrder validates the request against live restaurant and menu state, prices it and
// persists the order with its items in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, actor policy.Actor, in CreateOrderInput) (*models.Order, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var restaurant models.Restaurant
		err := tx.Where("id = ? AND status = ?", in.RestaurantID, models.RestaurantActive).First(&restaurant).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Restaurant not found or inactive")
			}
			return apperr.Internal(err, "failed to load restaurant")
		}

		lines := make([]pricing.Line, 0, len(in.Items))
		items := make([]models.OrderItem, 0, len(in.Items))
		for _, reqItem := range in.Items {
			var menuItem models.MenuItem
			err := tx.Where("id = ? AND restaurant_id = ?", reqItem.MenuItemID, restaurant.ID).First(&menuItem).Error
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("Menu item with ID %d not found", reqItem.MenuItemID)
				}
				return apperr.Internal(err, "failed to load menu item")
			}
			lines = append(lines, pricing.Line{
				MenuItemID: menuItem.ID,
				UnitPrice:  menuItem.Price.Decimal,
				Quantity:   reqItem.Quantity,
			})
			items = append(items, models.OrderItem{
				MenuItemID: menuItem.ID,
				Quantity:   reqItem.Quantity,
				Price:      menuItem.Price,
				Name:       menuItem.Name,
			})
		}

		coupon, err := s.findActiveCoupon(tx, in.CouponID)
		if err != nil {
			return err
		}
		quote := pricing.Calculate(lines, coupon)
		if quote.Total.GreaterThan(maxOrderTotal) {
			return apperr.Validation("Order total must not exceed %s", maxOrderTotal.StringFixed(2))
		}

		order = models.Order{
			CustomerID:      actor.ID,
			RestaurantID:    restaurant.ID,
			Status:          models.StatusPending,
			TotalPrice:      models.NewMoney(quote.Total),
			DeliveryAddress: in.DeliveryAddress,
			Items:           items,
			CreatedAt:       s.now(),
		}
		// Only a coupon that was actually applied is linked to the order
		if coupon != nil {
			order.CouponID = &coupon.ID
		}

		if err := tx.Create(&order).Error; err != nil {
			return apperr.Internal(err, "failed to create order")
		}

		history := models.OrderStatusHistory{
			OrderID:   order.ID,
			ToStatus:  models.StatusPending,
			ChangedBy: actor.ID,
			Note:      "Order placed by customer",
		}
		if err := tx.Create(&history).Error; err != nil {
			return apperr.Internal(err, "failed to record order history")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.OrderEvent{
		Type:         events.TypeOrderCreated,
		OrderID:      order.ID,
		RestaurantID: order.RestaurantID,
		CustomerID:   order.CustomerID,
		NewStatus:    order.Status,
		ChangedBy:    actor.ID,
		Timestamp:    order.CreatedAt,
	})

	return s.loadOrder(ctx, order.ID)
}

// findActiveCoupon returns nil when no id is given or the coupon is missing or inactive.
// A bad coupon never fails the order; the customer is simply charged full price.
func (s *OrderService) findActiveCoupon(tx *gorm.DB, couponID *uint) (*models.Coupon, error) {
	if couponID == nil {
		return nil, nil
	}
	var coupon models.Coupon
	err := tx.Where("id = ? AND is_active = ?", *couponID, true).First(&coupon).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperr.Internal(err, "failed to load coupon")
	}
	return &coupon, nil
}

// GetOrder returns a hydrated order visible to actor
func (s *OrderService) GetOrder(ctx context.Context, actor policy.Actor, orderID uint) (*models.Order, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor, policy.ActionViewOrder, policy.OrderResource(order)); err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateOrderStatus moves an order along the state machine on behalf of its restaurant or an admin
func (s *OrderService) UpdateOrderStatus(ctx context.Context, actor policy.Actor, orderID uint, in UpdateStatusInput) (*models.Order, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if !in.Status.Valid() {
		return nil, apperr.Validation("status must be one of: pending, confirmed, preparing, ready, out_for_delivery, delivered, cancelled")
	}

	err := s.transition(ctx, actor, orderID, in.Status, in.Note, func(order *models.Order) error {
		if err := policy.Authorize(actor, policy.ActionUpdateStatus, policy.OrderResource(order)); err != nil {
			return err
		}
		return statemachine.CanTransition(order.Status, in.Status, actor.Role)
	}, nil)
	if err != nil {
		return nil, err
	}
	return s.loadOrder(ctx, orderID)
}

// CancelOrder lets the ordering customer cancel while the order is pending or confirmed
// and no more than CancellationWindow has passed since it was placed.
func (s *OrderService) CancelOrder(ctx context.Context, actor policy.Actor, orderID uint) (*models.Order, error) {
	err := s.transition(ctx, actor, orderID, models.StatusCancelled, "Order cancelled by customer", func(order *models.Order) error {
		if err := policy.Authorize(actor, policy.ActionCancelOrder, policy.OrderResource(order)); err != nil {
			return err
		}
		if order.Status != models.StatusPending && order.Status != models.StatusConfirmed {
			return apperr.Conflict("Order cannot be cancelled at this stage")
		}
		if s.now().Sub(order.CreatedAt) > CancellationWindow {
			return apperr.Conflict("Order cannot be cancelled after 5 minutes")
		}
		return statemachine.CanTransition(order.Status, models.StatusCancelled, models.RoleCustomer)
	}, nil)
	if err != nil {
		return nil, err
	}
	return s.loadOrder(ctx, orderID)
}

// PickupOrder assigns a ready order to the calling delivery agent
func (s *OrderService) PickupOrder(ctx context.Context, actor policy.Actor, orderID uint) (*models.Order, error) {
	err := s.transition(ctx, actor, orderID, models.StatusOutForDelivery, "Driver picked up the order", func(order *models.Order) error {
		if err := policy.Authorize(actor, policy.ActionPickupOrder, policy.OrderResource(order)); err != nil {
			return err
		}
		if order.DriverID != nil {
			return apperr.Conflict("Order has already been picked up by another driver")
		}
		return statemachine.CanTransition(order.Status, models.StatusOutForDelivery, models.RoleDelivery)
	}, map[string]any{"driver_id": actor.ID})
	if err != nil {
		return nil, err
	}
	return s.loadOrder(ctx, orderID)
}

// DeliverOrder completes an order carried by the calling delivery agent
func (s *OrderService) DeliverOrder(ctx context.Context, actor policy.Actor, orderID uint) (*models.Order, error) {
	err := s.transition(ctx, actor, orderID, models.StatusDelivered, "Order delivered to customer", func(order *models.Order) error {
		if err := policy.Authorize(actor, policy.ActionDeliverOrder, policy.OrderResource(order)); err != nil {
			return err
		}
		return statemachine.CanTransition(order.Status, models.StatusDelivered, models.RoleDelivery)
	}, nil)
	if err != nil {
		return nil, err
	}
	return s.loadOrder(ctx, orderID)
}

// transition loads the order, runs check, then writes the new status and a history row atomically.
// The update is conditional on the status read so a concurrent change surfaces as a conflict.
func (s *OrderService) transition(
	ctx context.Context,
	actor policy.Actor,
	orderID uint,
	to models.OrderStatus,
	note string,
	check func(order *models.Order) error,
	extra map[string]any,
) error {
	var evt events.OrderEvent
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("Restaurant").First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Order not found")
			}
			return apperr.Internal(err, "failed to load order")
		}
		if err := check(&order); err != nil {
			return err
		}

		updates := map[string]any{"status": to, "updated_at": s.now()}
		for k, v := range extra {
			updates[k] = v
		}
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, order.Status).
			Updates(updates)
		if res.Error != nil {
			return apperr.Internal(res.Error, "failed to update order status")
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("Order status changed concurrently, please retry")
		}

		history := models.OrderStatusHistory{
			OrderID:    order.ID,
			FromStatus: order.Status,
			ToStatus:   to,
			ChangedBy:  actor.ID,
			Note:       note,
		}
		if err := tx.Create(&history).Error; err != nil {
			return apperr.Internal(err, "failed to record order history")
		}

		evt = events.OrderEvent{
			Type:         events.TypeOrderStatusChange,
			OrderID:      order.ID,
			RestaurantID: order.RestaurantID,
			CustomerID:   order.CustomerID,
			OldStatus:    order.Status,
			NewStatus:    to,
			ChangedBy:    actor.ID,
			Timestamp:    s.now(),
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.publish(ctx, evt)
	return nil
}

// ListCustomerOrders pages through the caller's own orders
func (s *OrderService) ListCustomerOrders(ctx context.Context, actor policy.Actor, p ListParams) (*OrderPage, error) {
	if err := normalizeListParams(&p, defaultCustomerLimit); err != nil {
		return nil, err
	}
	return s.paginate(ctx, p, func(db *gorm.DB) *gorm.DB {
		return db.Where("customer_id = ?", actor.ID)
	}, "Restaurant", "Items.MenuItem")
}

// ListRestaurantOrders pages through orders of the restaurant owned by the caller
func (s *OrderService) ListRestaurantOrders(ctx context.Context, actor policy.Actor, p ListParams) (*OrderPage, error) {
	if err := normalizeListParams(&p, defaultRestaurantLimit); err != nil {
		return nil, err
	}
	var restaurant models.Restaurant
	if err := s.db.WithContext(ctx).Where("owner_id = ?", actor.ID).First(&restaurant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Restaurant not found")
		}
		return nil, apperr.Internal(err, "failed to load restaurant")
	}
	return s.paginate(ctx, p, func(db *gorm.DB) *gorm.DB {
		return db.Where("restaurant_id = ?", restaurant.ID)
	}, "Customer", "Driver", "Items.MenuItem")
}

// ListAllOrders is the admin view with optional customer and restaurant filters
func (s *OrderService) ListAllOrders(ctx context.Context, p ListParams) (*OrderPage, error) {
	if err := normalizeListParams(&p, defaultRestaurantLimit); err != nil {
		return nil, err
	}
	return s.paginate(ctx, p, func(db *gorm.DB) *gorm.DB {
		if p.CustomerID != 0 {
			db = db.Where("customer_id = ?", p.CustomerID)
		}
		if p.RestaurantID != 0 {
			db = db.Where("restaurant_id = ?", p.RestaurantID)
		}
		return db
	}, "Customer", "Restaurant", "Driver", "Items.MenuItem")
}

// AvailableForPickup lists ready orders nobody has claimed yet, oldest first
func (s *OrderService) AvailableForPickup(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).Preload("Restaurant").Preload("Customer").
		Where("status = ? AND driver_id IS NULL", models.StatusReady).
		Order("created_at asc").
		Find(&orders).Error
	if err != nil {
		return nil, apperr.Internal(err, "failed to list available orders")
	}
	return orders, nil
}

// DriverOrders lists orders assigned to the calling delivery agent
func (s *OrderService) DriverOrders(ctx context.Context, actor policy.Actor) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).Preload("Restaurant").Preload("Customer").Preload("Items.MenuItem", unscoped).
		Where("driver_id = ?", actor.ID).
		Order("updated_at desc").
		Find(&orders).Error
	if err != nil {
		return nil, apperr.Internal(err, "failed to list deliveries")
	}
	return orders, nil
}

func normalizeListParams(p *ListParams, defaultLimit int) error {
	if err := validateStruct(*p); err != nil {
		return err
	}
	if p.Page == 0 {
		p.Page = 1
	}
	if p.Limit == 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	if p.Status != "" && !p.Status.Valid() {
		return apperr.Validation("Invalid status filter %q", p.Status)
	}
	return nil
}

func (s *OrderService) paginate(ctx context.Context, p ListParams, scope func(*gorm.DB) *gorm.DB, preloads ...string) (*OrderPage, error) {
	filter := func(db *gorm.DB) *gorm.DB {
		db = scope(db)
		if p.Status != "" {
			db = db.Where("status = ?", p.Status)
		}
		return db
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Order{}).Scopes(filter).Count(&total).Error; err != nil {
		return nil, apperr.Internal(err, "failed to count orders")
	}

	query := s.db.WithContext(ctx).Scopes(filter)
	for _, rel := range preloads {
		if rel == "Items.MenuItem" {
			query = query.Preload(rel, unscoped)
			continue
		}
		query = query.Preload(rel)
	}

	orders := []models.Order{}
	err := query.Order("created_at desc").Order("id desc").
		Limit(p.Limit).
		Offset((p.Page - 1) * p.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, apperr.Internal(err, "failed to list orders")
	}

	return &OrderPage{
		Orders:     orders,
		Pagination: newPagination(p.Page, p.Limit, total),
	}, nil
}

func newPagination(page, limit int, total int64) Pagination {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalOrders: total,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

// loadOrder fetches an order with everything a client displays
func (s *OrderService) loadOrder(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Restaurant").
		Preload("Items.MenuItem", unscoped).
		Preload("Coupon").
		Preload("Customer").
		Preload("Driver").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Order not found")
		}
		return nil, apperr.Internal(err, "failed to load order")
	}
	return &order, nil
}

// unscoped lets historical order lines see menu items deleted since
func unscoped(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

// publish is fire-and-forget: a broker outage must never fail a committed order
func (s *OrderService) publish(ctx context.Context, evt events.OrderEvent) {
	if err := s.publisher.PublishOrderEvent(context.WithoutCancel(ctx), evt); err != nil {
		s.log.Error("order_event_publish_failed", logger.RequestID(ctx), "Failed to publish order event", err,
			slog.String("type", evt.Type),
			slog.Uint64("order_id", uint64(evt.OrderID)),
		)
	}
}
