package enums

import "fmt"

// OrderStatus tracks the lifecycle of a customer order.
//
// Paying -> Processing -> OnTheWay -> Delivered, with Processing -> Deleted
// as the cancellation path. No transition skips a state except cancellation.
type OrderStatus string

const (
	OrderStatusPaying     OrderStatus = "paying"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusOnTheWay   OrderStatus = "on_the_way"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusDeleted    OrderStatus = "deleted"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPaying,
	OrderStatusProcessing,
	OrderStatusOnTheWay,
	OrderStatusDelivered,
	OrderStatusDeleted,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsOpen reports whether an order in this status still blocks a new order for
// the same user.
func (o OrderStatus) IsOpen() bool {
	return o != OrderStatusDelivered && o != OrderStatusDeleted
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
