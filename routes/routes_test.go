package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"food-ordering-api/config"
	"food-ordering-api/events"
	"food-ordering-api/handlers"
	"food-ordering-api/logger"
	"food-ordering-api/middleware"
	"food-ordering-api/services"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	auth   *services.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := config.OpenDB(&config.Config{DBDriver: "sqlite", DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	if err := config.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { _ = config.CloseDB(db) })

	log := logger.Discard()
	tokens := middleware.NewTokenManager([]byte("test-secret"), time.Hour)
	auth := services.NewAuthService(db)
	h := handlers.New(
		services.NewOrderService(db, events.NopPublisher{}, log),
		services.NewRestaurantService(db),
		auth,
		services.NewCouponService(db),
		tokens,
		log,
	)

	r := gin.New()
	r.Use(middleware.RequestLogger(log))
	SetupRoutes(r, h, tokens)
	return &testServer{t: t, router: r, auth: auth}
}

func (s *testServer) do(method, path, token string, body any) (int, map[string]any) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			s.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code, out
}

func (s *testServer) expect(want int, method, path, token string, body any) map[string]any {
	s.t.Helper()
	code, out := s.do(method, path, token, body)
	if code != want {
		s.t.Fatalf("%s %s = %d, want %d (%v)", method, path, code, want, out)
	}
	return out
}

func (s *testServer) register(name, role, phone string) string {
	s.t.Helper()
	out := s.expect(http.StatusCreated, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     name,
		"email":    name + "@example.com",
		"password": "secret123",
		"phone":    phone,
		"role":     role,
	})
	return out["token"].(string)
}

func id(obj map[string]any, key string) int {
	return int(obj[key].(map[string]any)["id"].(float64))
}

func TestOrderFlow(t *testing.T) {
	s := newTestServer(t)

	owner := s.register("owner", "restaurant", "+15550000001")
	customer := s.register("customer", "customer", "+15550000002")
	rider := s.register("rider", "delivery", "+15550000003")
	other := s.register("other", "customer", "+15550000004")

	if _, err := s.auth.EnsureAdmin(context.Background(), "admin@example.com", "admin-pass"); err != nil {
		t.Fatal(err)
	}
	admin := s.expect(http.StatusOK, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "admin@example.com", "password": "admin-pass",
	})["token"].(string)

	// Restaurant and menu
	restaurant := s.expect(http.StatusCreated, http.MethodPost, "/api/restaurant", owner, gin.H{
		"name": "Pizza Palace", "address": "1 Food Street", "phone": "+15551112222", "lat": 1.0, "lng": 2.0,
	})
	restaurantID := id(restaurant, "restaurant")
	item := s.expect(http.StatusCreated, http.MethodPost, "/api/restaurant/menu", owner, gin.H{
		"name": "Margherita", "price": 12.99, "description": "Tomato and mozzarella",
	})
	itemID := id(item, "item")

	orderBody := gin.H{
		"restaurant_id":    restaurantID,
		"items":            []gin.H{{"menu_item_id": itemID, "quantity": 2}},
		"delivery_address": "123 Main St Apt 4",
	}

	// Pending restaurants are hidden and do not take orders
	s.expect(http.StatusNotFound, http.MethodGet, fmt.Sprintf("/api/restaurants/%d", restaurantID), "", nil)
	s.expect(http.StatusNotFound, http.MethodGet, fmt.Sprintf("/api/restaurants/%d/menu", restaurantID), "", nil)
	s.expect(http.StatusNotFound, http.MethodPost, "/api/orders", customer, orderBody)
	s.expect(http.StatusOK, http.MethodPut, fmt.Sprintf("/api/admin/restaurants/%d/status", restaurantID), admin, gin.H{"status": "active"})
	s.expect(http.StatusOK, http.MethodGet, fmt.Sprintf("/api/restaurants/%d", restaurantID), "", nil)

	created := s.expect(http.StatusCreated, http.MethodPost, "/api/orders", customer, orderBody)
	order := created["order"].(map[string]any)
	if order["status"] != "pending" || order["total_price"] != "25.98" {
		t.Fatalf("unexpected order %v", order)
	}
	orderID := int(order["id"].(float64))
	orderPath := fmt.Sprintf("/api/orders/%d", orderID)

	// Listings
	mine := s.expect(http.StatusOK, http.MethodGet, "/api/orders?page=1&limit=5", customer, nil)
	if p := mine["pagination"].(map[string]any); p["total_orders"].(float64) != 1 || p["has_next"] != false {
		t.Fatalf("customer pagination %v", p)
	}
	byRestaurant := s.expect(http.StatusOK, http.MethodGet, "/api/orders/restaurant", owner, nil)
	if len(byRestaurant["orders"].([]any)) != 1 {
		t.Fatalf("restaurant orders %v", byRestaurant)
	}

	// Access policy at the edge
	s.expect(http.StatusOK, http.MethodGet, orderPath, customer, nil)
	s.expect(http.StatusOK, http.MethodGet, orderPath, owner, nil)
	s.expect(http.StatusForbidden, http.MethodGet, orderPath, other, nil)
	s.expect(http.StatusForbidden, http.MethodPut, orderPath+"/status", customer, gin.H{"status": "confirmed"})
	s.expect(http.StatusForbidden, http.MethodPut, orderPath+"/cancel", other, nil)

	// Strict adjacency
	s.expect(http.StatusConflict, http.MethodPut, orderPath+"/status", owner, gin.H{"status": "ready"})
	for _, status := range []string{"confirmed", "preparing", "ready"} {
		s.expect(http.StatusOK, http.MethodPut, orderPath+"/status", owner, gin.H{"status": status})
	}

	// Too late to cancel once preparing has started
	out := s.expect(http.StatusConflict, http.MethodPut, orderPath+"/cancel", customer, nil)
	if out["error"] != "Order cannot be cancelled at this stage" {
		t.Fatalf("cancel error %v", out)
	}

	// Delivery
	available := s.expect(http.StatusOK, http.MethodGet, "/api/delivery/orders/available", rider, nil)
	if available["count"].(float64) != 1 {
		t.Fatalf("available %v", available)
	}
	s.expect(http.StatusOK, http.MethodPut, fmt.Sprintf("/api/delivery/orders/%d/pickup", orderID), rider, nil)
	s.expect(http.StatusOK, http.MethodPut, fmt.Sprintf("/api/delivery/orders/%d/deliver", orderID), rider, nil)

	detail := s.expect(http.StatusOK, http.MethodGet, orderPath, customer, nil)["order"].(map[string]any)
	if detail["status"] != "delivered" || len(detail["status_history"].([]any)) != 6 {
		t.Fatalf("final order %v", detail)
	}

	// Admin views
	all := s.expect(http.StatusOK, http.MethodGet, "/api/admin/orders?status=delivered", admin, nil)
	if all["pagination"].(map[string]any)["total_orders"].(float64) != 1 {
		t.Fatalf("admin orders %v", all)
	}
	s.expect(http.StatusOK, http.MethodGet, "/api/admin/users?role=customer", admin, nil)
	s.expect(http.StatusForbidden, http.MethodGet, "/api/admin/users", owner, nil)
}

func TestCouponOverHTTP(t *testing.T) {
	s := newTestServer(t)
	owner := s.register("owner", "restaurant", "+15550000001")
	customer := s.register("customer", "customer", "+15550000002")
	if _, err := s.auth.EnsureAdmin(context.Background(), "admin@example.com", "admin-pass"); err != nil {
		t.Fatal(err)
	}
	admin := s.expect(http.StatusOK, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "admin@example.com", "password": "admin-pass",
	})["token"].(string)

	restaurantID := id(s.expect(http.StatusCreated, http.MethodPost, "/api/restaurant", owner, gin.H{
		"name": "Pizza Palace", "address": "1 Food Street", "phone": "+15551112222", "lat": 1.0, "lng": 2.0,
	}), "restaurant")
	itemID := id(s.expect(http.StatusCreated, http.MethodPost, "/api/restaurant/menu", owner, gin.H{
		"name": "Margherita", "price": "12.99", "description": "Tomato and mozzarella",
	}), "item")
	s.expect(http.StatusOK, http.MethodPut, fmt.Sprintf("/api/admin/restaurants/%d/status", restaurantID), admin, gin.H{"status": "active"})

	couponID := id(s.expect(http.StatusCreated, http.MethodPost, "/api/admin/coupons", admin, gin.H{
		"code": "TENOFF", "discount_type": "percentage", "discount_value": 10,
	}), "coupon")

	order := func() map[string]any {
		return s.expect(http.StatusCreated, http.MethodPost, "/api/orders", customer, gin.H{
			"restaurant_id":    restaurantID,
			"items":            []gin.H{{"menu_item_id": itemID, "quantity": 2}},
			"coupon_id":        couponID,
			"delivery_address": "123 Main St Apt 4",
		})["order"].(map[string]any)
	}

	if got := order()["total_price"]; got != "23.38" {
		t.Fatalf("discounted total = %v, want 23.38", got)
	}

	s.expect(http.StatusOK, http.MethodPut, fmt.Sprintf("/api/admin/coupons/%d/active", couponID), admin, gin.H{"is_active": false})
	if got := order()["total_price"]; got != "25.98" {
		t.Fatalf("total with inactive coupon = %v, want 25.98", got)
	}
}

func TestRequestErrors(t *testing.T) {
	s := newTestServer(t)
	customer := s.register("customer", "customer", "+15550000002")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		status int
		error  string
	}{
		{"no token", http.MethodGet, "/api/orders", "", nil, http.StatusUnauthorized, ""},
		{"bad token", http.MethodGet, "/api/orders", "garbage", nil, http.StatusUnauthorized, "Invalid token"},
		{"non numeric id", http.MethodGet, "/api/orders/abc", customer, nil, http.StatusBadRequest, "Invalid id"},
		{"missing order", http.MethodGet, "/api/orders/999", customer, nil, http.StatusNotFound, "Order not found"},
		{"empty items", http.MethodPost, "/api/orders", customer, gin.H{
			"restaurant_id": 1, "items": []gin.H{}, "delivery_address": "123 Main St Apt 4",
		}, http.StatusBadRequest, "items must contain at least 1 items"},
		{"bad page", http.MethodGet, "/api/orders?page=-1", customer, nil, http.StatusBadRequest, ""},
		{"huge page", http.MethodGet, "/api/orders?page=922337203685477581", customer, nil, http.StatusBadRequest, "page must be at most 100000"},
		{"huge restaurant page", http.MethodGet, "/api/restaurants?page=922337203685477581", "", nil, http.StatusBadRequest, "page must be at most 100000"},
		{"quantity above limit", http.MethodPost, "/api/orders", customer, gin.H{
			"restaurant_id": 1, "items": []gin.H{{"menu_item_id": 1, "quantity": 1000}}, "delivery_address": "123 Main St Apt 4",
		}, http.StatusBadRequest, "items[0].quantity must be at most 100"},
		{"bad status filter", http.MethodGet, "/api/orders?status=lost", customer, nil, http.StatusBadRequest, "Invalid status filter \"lost\""},
		{"wrong password", http.MethodPost, "/api/auth/login", "", gin.H{
			"email": "customer@example.com", "password": "nope-nope",
		}, http.StatusUnauthorized, "Invalid email or password"},
		{"duplicate registration", http.MethodPost, "/api/auth/register", "", gin.H{
			"name": "customer", "email": "customer@example.com", "password": "secret123", "phone": "+15550000009", "role": "customer",
		}, http.StatusConflict, "Email or phone already registered"},
		{"admin self registration", http.MethodPost, "/api/auth/register", "", gin.H{
			"name": "mallory", "email": "mallory@example.com", "password": "secret123", "phone": "+15550000010", "role": "admin",
		}, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out := s.do(tt.method, tt.path, tt.token, tt.body)
			if code != tt.status {
				t.Fatalf("status = %d, want %d (%v)", code, tt.status, out)
			}
			if tt.error != "" && out["error"] != tt.error {
				t.Fatalf("error = %v, want %q", out["error"], tt.error)
			}
		})
	}
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	sm := s.expect(http.StatusOK, http.MethodGet, "/api/state-machine", "", nil)
	if len(sm["state_machine"].([]any)) == 0 || len(sm["terminal_states"].([]any)) != 2 {
		t.Fatalf("state machine %v", sm)
	}
	list := s.expect(http.StatusOK, http.MethodGet, "/api/restaurants?sort=name", "", nil)
	if list["count"].(float64) != 0 {
		t.Fatalf("restaurants %v", list)
	}
	s.expect(http.StatusBadRequest, http.MethodGet, "/api/restaurants?sort=price", "", nil)
	s.expect(http.StatusNotFound, http.MethodGet, "/api/restaurants/42", "", nil)
}

func TestProfileOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.register("ada", "customer", "+15550000020")
	s.register("grace", "customer", "+15550000021")

	updated := s.expect(http.StatusOK, http.MethodPut, "/api/profile", token, gin.H{
		"name": "Ada Lovelace", "image_url": "https://img.example.com/ada.png",
	})
	user := updated["user"].(map[string]any)
	if user["name"] != "Ada Lovelace" || user["image_url"] != "https://img.example.com/ada.png" || user["phone"] != "+15550000020" {
		t.Fatalf("updated profile %v", user)
	}
	if _, ok := user["password_hash"]; ok {
		t.Fatal("password hash leaked")
	}

	profile := s.expect(http.StatusOK, http.MethodGet, "/api/profile", token, nil)
	if profile["user"].(map[string]any)["name"] != "Ada Lovelace" {
		t.Fatalf("profile %v", profile)
	}

	s.expect(http.StatusConflict, http.MethodPut, "/api/profile", token, gin.H{"phone": "+15550000021"})
	s.expect(http.StatusBadRequest, http.MethodPut, "/api/profile", token, gin.H{"phone": "nope"})
	s.expect(http.StatusUnauthorized, http.MethodPut, "/api/profile", "", gin.H{"name": "Nobody"})

	wrong := s.expect(http.StatusUnauthorized, http.MethodPut, "/api/profile/password", token, gin.H{
		"current_password": "not-it", "new_password": "brand-new",
	})
	if wrong["error"] != "Current password is incorrect" {
		t.Fatalf("wrong password error %v", wrong)
	}
	s.expect(http.StatusBadRequest, http.MethodPut, "/api/profile/password", token, gin.H{"current_password": "secret123"})
	s.expect(http.StatusOK, http.MethodPut, "/api/profile/password", token, gin.H{
		"current_password": "secret123", "new_password": "brand-new",
	})

	s.expect(http.StatusUnauthorized, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": "secret123"})
	s.expect(http.StatusOK, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": "brand-new"})
}
