package statemachine

import (
	"strings"

	"food-ordering-api/apperr"
	"food-ordering-api/models"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From  models.OrderStatus `json:"from"`
	To    models.OrderStatus `json:"to"`
	Actor models.UserRole    `json:"actor"`
}

// validTransitions is the authoritative state machine definition.
// Admins may drive every edge; they bypass ownership, not adjacency.
var validTransitions = []Transition{
	// Restaurant confirms the order
	{From: models.StatusPending, To: models.StatusConfirmed, Actor: models.RoleRestaurant},
	// Restaurant or customer can cancel before preparation starts
	{From: models.StatusPending, To: models.StatusCancelled, Actor: models.RoleRestaurant},
	{From: models.StatusPending, To: models.StatusCancelled, Actor: models.RoleCustomer},
	{From: models.StatusConfirmed, To: models.StatusPreparing, Actor: models.RoleRestaurant},
	{From: models.StatusConfirmed, To: models.StatusCancelled, Actor: models.RoleRestaurant},
	{From: models.StatusConfirmed, To: models.StatusCancelled, Actor: models.RoleCustomer},
	{From: models.StatusPreparing, To: models.StatusReady, Actor: models.RoleRestaurant},
	// Own-fleet restaurants hand off and complete themselves; otherwise a delivery agent does
	{From: models.StatusReady, To: models.StatusOutForDelivery, Actor: models.RoleRestaurant},
	{From: models.StatusReady, To: models.StatusOutForDelivery, Actor: models.RoleDelivery},
	{From: models.StatusOutForDelivery, To: models.StatusDelivered, Actor: models.RoleRestaurant},
	{From: models.StatusOutForDelivery, To: models.StatusDelivered, Actor: models.RoleDelivery},
}

type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Actor models.UserRole
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
		m[transitionKey{t.From, t.To, models.RoleAdmin}] = true
	}
	return m
}()

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	nexts := []models.OrderStatus{}
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// IsTerminal reports whether no transition leaves status
func IsTerminal(status models.OrderStatus) bool {
	return len(ValidTransitionsFrom(status)) == 0
}

// CanTransition checks if a given actor can move from one state to another
func CanTransition(from, to models.OrderStatus, actor models.UserRole) error {
	if !to.Valid() {
		return apperr.Validation("invalid status %q", to)
	}
	if transitionMap[transitionKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	return apperr.Conflict(
		"invalid transition: %s → %s is not allowed for actor '%s'. Valid transitions from %s are: %s",
		from, to, actor, from, describeValidFrom(from),
	)
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	parts := make([]string, len(nexts))
	for i, s := range nexts {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	out := make([]Transition, len(validTransitions))
	copy(out, validTransitions)
	return out
}
