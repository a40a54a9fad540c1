package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RestaurantStatus string

const (
	RestaurantActive    RestaurantStatus = "active"
	RestaurantInactive  RestaurantStatus = "inactive"
	RestaurantPending   RestaurantStatus = "pending"
	RestaurantSuspended RestaurantStatus = "suspended"
)

func (s RestaurantStatus) Valid() bool {
	switch s {
	case RestaurantActive, RestaurantInactive, RestaurantPending, RestaurantSuspended:
		return true
	}
	return false
}

// MaxMenuPrice is the ceiling for a single menu item price
var MaxMenuPrice = decimal.RequireFromString("999999.99")

type Restaurant struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	OwnerID   uint             `json:"owner_id" gorm:"not null;index"`
	Owner     *User            `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Name      string           `json:"name" gorm:"not null"`
	Address   string           `json:"address" gorm:"not null"`
	Phone     string           `json:"phone"`
	Image     string           `json:"image"`
	Lat       float64          `json:"lat"`
	Lng       float64          `json:"lng"`
	Status    RestaurantStatus `json:"status" gorm:"not null;default:'pending';index"`
	MenuItems []MenuItem       `json:"menu_items,omitempty" gorm:"foreignKey:RestaurantID"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`

	// Derived on read from Ratings, never stored
	Rating       float64  `json:"rating" gorm:"-"`
	RatingsCount int      `json:"ratings_count" gorm:"-"`
	Distance     *float64 `json:"distance,omitempty" gorm:"-"`
}

type MenuItem struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	RestaurantID uint            `json:"restaurant_id" gorm:"not null;index"`
	Name         string          `json:"name" gorm:"not null"`
	Description  string          `json:"description"`
	Price        Money           `json:"price" gorm:"type:decimal(10,2);not null"`
	Image        string          `json:"image"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	// Soft delete keeps historical order lines resolvable
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

type Rating struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       uint      `json:"user_id" gorm:"not null;index"`
	User         *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	RestaurantID uint      `json:"restaurant_id" gorm:"not null;index"`
	Stars        int       `json:"stars" gorm:"not null"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
}
