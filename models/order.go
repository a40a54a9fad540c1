package models

import (
	"time"
)

// OrderStatus represents all possible states of a food order
type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusPreparing      OrderStatus = "preparing"
	StatusReady          OrderStatus = "ready"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

var AllOrderStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, st := range AllOrderStatuses {
		if s == st {
			return true
		}
	}
	return false
}

type Order struct {
	ID              uint                 `json:"id" gorm:"primaryKey"`
	CustomerID      uint                 `json:"customer_id" gorm:"not null;index"`
	Customer        *User                `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	RestaurantID    uint                 `json:"restaurant_id" gorm:"not null;index"`
	Restaurant      *Restaurant          `json:"restaurant,omitempty" gorm:"foreignKey:RestaurantID"`
	DriverID        *uint                `json:"driver_id"`
	Driver          *User                `json:"driver,omitempty" gorm:"foreignKey:DriverID"`
	CouponID        *uint                `json:"coupon_id"`
	Coupon          *Coupon              `json:"coupon,omitempty" gorm:"foreignKey:CouponID"`
	Status          OrderStatus          `json:"status" gorm:"not null;default:'pending';index"`
	TotalPrice      Money                `json:"total_price" gorm:"type:decimal(10,2);not null"`
	DeliveryAddress string               `json:"delivery_address" gorm:"not null"`
	Items           []OrderItem          `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	StatusHistory   []OrderStatusHistory `json:"status_history,omitempty" gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

type OrderItem struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	OrderID    uint            `json:"order_id" gorm:"not null;index"`
	MenuItemID uint            `json:"menu_item_id" gorm:"not null"`
	MenuItem   *MenuItem       `json:"menu_item,omitempty" gorm:"foreignKey:MenuItemID"`
	Quantity   int             `json:"quantity" gorm:"not null"`
	Price      Money           `json:"price" gorm:"type:decimal(10,2);not null"` // snapshot price at time of order
	Name       string          `json:"name"`                                     // snapshot name
}

// OrderStatusHistory tracks every status change
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"order_id" gorm:"not null;index"`
	FromStatus OrderStatus `json:"from_status"`
	ToStatus   OrderStatus `json:"to_status" gorm:"not null"`
	ChangedBy  uint        `json:"changed_by"`
	Note       string      `json:"note"`
	CreatedAt  time.Time   `json:"created_at"`
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	Code          string          `json:"code" gorm:"uniqueIndex;not null"`
	DiscountType  DiscountType    `json:"discount_type" gorm:"not null"`
	DiscountValue Money           `json:"discount_value" gorm:"type:decimal(10,2);not null"`
	IsActive      bool            `json:"is_active" gorm:"not null"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
