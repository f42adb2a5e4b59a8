package models

// Role identifies which side of an order a tracking participant is on.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleRestaurant Role = "restaurant"
)

// Valid reports whether the role is one of the two known values.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleRestaurant
}

// Counterpart returns the opposite role on the same order.
func (r Role) Counterpart() Role {
	if r == RoleCustomer {
		return RoleRestaurant
	}
	return RoleCustomer
}

// OrderTrackingIdentity identifies the tracking channel to join. It is
// immutable for the lifetime of a session.
type OrderTrackingIdentity struct {
	OrderID       string `json:"order_id"`
	ParticipantID string `json:"user_id"`
	Role          Role   `json:"role"`
}

// RestaurantEndpoint is the fixed restaurant side of an order, supplied once
// per session from order metadata.
type RestaurantEndpoint struct {
	Location GeoPoint `json:"location"`
	Name     string   `json:"name,omitempty"`
	Address  string   `json:"address,omitempty"`
}

// Order statuses for which live tracking is available.
const (
	OrderStatusPending    = "pending"
	OrderStatusPreparing  = "preparing"
	OrderStatusDelivering = "delivering"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

// OrderTracking is the order metadata the tracking service needs: who may
// join the channel and where the restaurant is.
type OrderTracking struct {
	OrderID           string  `json:"order_id" db:"id"`
	Status            string  `json:"status" db:"status"`
	CustomerID        string  `json:"customer_id" db:"customer_id"`
	RestaurantID      string  `json:"restaurant_id" db:"restaurant_id"`
	RestaurantName    string  `json:"restaurant_name" db:"restaurant_name"`
	RestaurantAddress string  `json:"restaurant_address" db:"restaurant_address"`
	RestaurantLat     float64 `json:"restaurant_lat" db:"restaurant_lat"`
	RestaurantLng     float64 `json:"restaurant_lng" db:"restaurant_lng"`
}

// Active reports whether the order is in a state where live tracking applies.
func (o OrderTracking) Active() bool {
	switch o.Status {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusDelivering:
		return true
	}
	return false
}

// ParticipantRole returns the role of the given participant on this order, or
// false if the participant does not belong to the order.
func (o OrderTracking) ParticipantRole(participantID string) (Role, bool) {
	switch participantID {
	case o.CustomerID:
		return RoleCustomer, true
	case o.RestaurantID:
		return RoleRestaurant, true
	}
	return "", false
}

// Restaurant builds the RestaurantEndpoint from the order metadata.
func (o OrderTracking) Restaurant() RestaurantEndpoint {
	return RestaurantEndpoint{
		Location: GeoPoint{Latitude: o.RestaurantLat, Longitude: o.RestaurantLng},
		Name:     o.RestaurantName,
		Address:  o.RestaurantAddress,
	}
}
