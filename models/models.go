package models

// All lists every table AutoMigrate should create, parents first
func All() []any {
	return []any{
		&User{},
		&Restaurant{},
		&MenuItem{},
		&Coupon{},
		&Order{},
		&OrderItem{},
		&OrderStatusHistory{},
		&Rating{},
	}
}
