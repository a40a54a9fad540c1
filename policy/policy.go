// Package policy is the single place that decides whether an actor may act on an order or a restaurant.
//
// Ownership is always foreign-key equality between the actor and the resource. Admins bypass
// ownership for every action except cancellation, which belongs to the ordering customer alone.
// A mismatch is reported as a Forbidden error; callers report absent rows as NotFound before
// asking the policy, so existence is never hidden behind a 404.
package policy

import (
	"food-ordering-api/apperr"
	"food-ordering-api/models"
)

// Actor is the authenticated caller as supplied by the auth middleware
type Actor struct {
	ID   uint
	Role models.UserRole
}

type Action string

const (
	ActionViewOrder        Action = "view_order"
	ActionUpdateStatus     Action = "update_order_status"
	ActionCancelOrder      Action = "cancel_order"
	ActionPickupOrder      Action = "pickup_order"
	ActionDeliverOrder     Action = "deliver_order"
	ActionManageRestaurant Action = "manage_restaurant"
)

// Resource carries the owning identities of the thing being acted on.
// Zero values mean "no owner of that kind".
type Resource struct {
	CustomerID        uint
	RestaurantOwnerID uint
	DriverID          *uint
}

// OrderResource describes an order whose Restaurant has been loaded
func OrderResource(o *models.Order) Resource {
	r := Resource{CustomerID: o.CustomerID, DriverID: o.DriverID}
	if o.Restaurant != nil {
		r.RestaurantOwnerID = o.Restaurant.OwnerID
	}
	return r
}

func RestaurantResource(r *models.Restaurant) Resource {
	return Resource{RestaurantOwnerID: r.OwnerID}
}

// Allowed evaluates the capability matrix
func Allowed(actor Actor, action Action, res Resource) bool {
	if actor.ID == 0 {
		return false
	}
	isCustomer := actor.Role == models.RoleCustomer && res.CustomerID != 0 && res.CustomerID == actor.ID
	isRestaurant := actor.Role == models.RoleRestaurant && res.RestaurantOwnerID != 0 && res.RestaurantOwnerID == actor.ID
	isDriver := actor.Role == models.RoleDelivery && res.DriverID != nil && *res.DriverID == actor.ID
	isAdmin := actor.Role == models.RoleAdmin

	switch action {
	case ActionViewOrder:
		return isAdmin || isCustomer || isRestaurant || isDriver
	case ActionUpdateStatus:
		return isAdmin || isRestaurant
	case ActionCancelOrder:
		return isCustomer
	case ActionPickupOrder:
		return actor.Role == models.RoleDelivery
	case ActionDeliverOrder:
		return isDriver
	case ActionManageRestaurant:
		return isAdmin || isRestaurant
	}
	return false
}

// Authorize is Allowed returning a Forbidden error on denial
func Authorize(actor Actor, action Action, res Resource) error {
	if Allowed(actor, action, res) {
		return nil
	}
	return apperr.Forbidden("%s", denialMessage(action))
}

func denialMessage(action Action) string {
	switch action {
	case ActionViewOrder, ActionCancelOrder:
		return "This order does not belong to you"
	case ActionUpdateStatus:
		return "This order does not belong to your restaurant"
	case ActionPickupOrder:
		return "Only delivery agents can pick up orders"
	case ActionDeliverOrder:
		return "You are not the assigned driver for this order"
	case ActionManageRestaurant:
		return "You don't own this restaurant"
	}
	return "Access denied"
}
