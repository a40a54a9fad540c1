package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"food-ordering-api/config"
	"food-ordering-api/events"
	"food-ordering-api/logger"
	"food-ordering-api/models"
	"food-ordering-api/policy"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDB(&config.Config{DBDriver: "sqlite", DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { _ = config.CloseDB(db) })
	return db
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, evt events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []events.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.OrderEvent(nil), p.events...)
}

// fixture is a small marketplace: one customer, two owners with one active restaurant each,
// a delivery agent and an admin.
type fixture struct {
	db        *gorm.DB
	orders    *OrderService
	publisher *recordingPublisher

	customer      policy.Actor
	otherCustomer policy.Actor
	owner         policy.Actor
	otherOwner    policy.Actor
	driver        policy.Actor
	otherDriver   policy.Actor
	admin         policy.Actor

	pizzaPalace models.Restaurant
	burgerBarn  models.Restaurant
	margherita  models.MenuItem
	cola        models.MenuItem
	burger      models.MenuItem
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	pub := &recordingPublisher{}
	f := &fixture{
		db:        db,
		orders:    NewOrderService(db, pub, logger.Discard()),
		publisher: pub,
	}

	f.customer = f.user(t, "customer", models.RoleCustomer)
	f.otherCustomer = f.user(t, "other-customer", models.RoleCustomer)
	f.owner = f.user(t, "owner", models.RoleRestaurant)
	f.otherOwner = f.user(t, "other-owner", models.RoleRestaurant)
	f.driver = f.user(t, "driver", models.RoleDelivery)
	f.otherDriver = f.user(t, "other-driver", models.RoleDelivery)
	f.admin = f.user(t, "admin", models.RoleAdmin)

	f.pizzaPalace = f.restaurant(t, f.owner, "Pizza Palace", models.RestaurantActive)
	f.burgerBarn = f.restaurant(t, f.otherOwner, "Burger Barn", models.RestaurantActive)
	f.margherita = f.menuItem(t, f.pizzaPalace, "Margherita", "12.99")
	f.cola = f.menuItem(t, f.pizzaPalace, "Cola", "2.50")
	f.burger = f.menuItem(t, f.burgerBarn, "Cheeseburger", "9.00")
	return f
}

func (f *fixture) user(t *testing.T, name string, role models.UserRole) policy.Actor {
	t.Helper()
	u := models.User{
		Name:         name,
		Email:        fmt.Sprintf("%s@example.com", name),
		PasswordHash: "not-a-real-hash",
		Role:         role,
	}
	if err := f.db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return policy.Actor{ID: u.ID, Role: role}
}

func (f *fixture) restaurant(t *testing.T, owner policy.Actor, name string, status models.RestaurantStatus) models.Restaurant {
	t.Helper()
	r := models.Restaurant{OwnerID: owner.ID, Name: name, Address: "1 Food Street", Status: status}
	if err := f.db.Create(&r).Error; err != nil {
		t.Fatalf("create restaurant %s: %v", name, err)
	}
	return r
}

func (f *fixture) menuItem(t *testing.T, r models.Restaurant, name, price string) models.MenuItem {
	t.Helper()
	m := models.MenuItem{RestaurantID: r.ID, Name: name, Price: models.NewMoney(decimal.RequireFromString(price))}
	if err := f.db.Create(&m).Error; err != nil {
		t.Fatalf("create menu item %s: %v", name, err)
	}
	return m
}

func (f *fixture) coupon(t *testing.T, code string, typ models.DiscountType, value string, active bool) models.Coupon {
	t.Helper()
	c := models.Coupon{Code: code, DiscountType: typ, DiscountValue: models.NewMoney(decimal.RequireFromString(value)), IsActive: active}
	if err := f.db.Create(&c).Error; err != nil {
		t.Fatalf("create coupon %s: %v", code, err)
	}
	return c
}

// placeOrder creates a two-margherita order at Pizza Palace for the customer
func (f *fixture) placeOrder(t *testing.T) *models.Order {
	t.Helper()
	order, err := f.orders.CreateOrder(context.Background(), f.customer, CreateOrderInput{
		RestaurantID:    f.pizzaPalace.ID,
		Items:           []OrderLine{{MenuItemID: f.margherita.ID, Quantity: 2}},
		DeliveryAddress: "123 Main St Apt 4",
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return order
}

// setStatus forces an order into a status without going through the state machine
func (f *fixture) setStatus(t *testing.T, orderID uint, status models.OrderStatus) {
	t.Helper()
	if err := f.db.Model(&models.Order{}).Where("id = ?", orderID).Update("status", status).Error; err != nil {
		t.Fatalf("set status: %v", err)
	}
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
