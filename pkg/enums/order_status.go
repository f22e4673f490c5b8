package enums

import "fmt"

// OrderStatus maps to the order_status column (small integer codes kept for
// wire/storage compatibility).
type OrderStatus int8

const (
	OrderStatusPendingPayment OrderStatus = 0
	OrderStatusPaid           OrderStatus = 1
	OrderStatusCompleted      OrderStatus = 2
	OrderStatusCancelled      OrderStatus = 3
)

var orderStatusNames = map[OrderStatus]string{
	OrderStatusPendingPayment: "pending_payment",
	OrderStatusPaid:           "paid",
	OrderStatusCompleted:      "completed",
	OrderStatusCancelled:      "cancelled",
}

// IsValid reports whether the value is a known order status code.
func (s OrderStatus) IsValid() bool {
	_, ok := orderStatusNames[s]
	return ok
}

// IsTerminal reports whether the order can no longer be mutated by the
// fulfillment pipeline or its compensation path.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

func (s OrderStatus) String() string {
	if name, ok := orderStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("order_status(%d)", int8(s))
}

// ParseOrderStatus converts a raw code into OrderStatus.
func ParseOrderStatus(code int8) (OrderStatus, error) {
	status := OrderStatus(code)
	if !status.IsValid() {
		return 0, fmt.Errorf("invalid order status code %d", code)
	}
	return status, nil
}
