package models

import (
	"time"

	"github.com/railtix/ticketing-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Order is the purchase record materialized by the fulfillment pipeline.
type Order struct {
	OrderID       int64             `gorm:"column:order_id;primaryKey;autoIncrement"`
	OrderNumber   string            `gorm:"column:order_number;size:64;not null;uniqueIndex"`
	UserID        int64             `gorm:"column:user_id;not null;index"`
	OrderTime     time.Time         `gorm:"column:order_time;not null"`
	TotalAmount   decimal.Decimal   `gorm:"column:total_amount;type:numeric(10,2);not null"`
	OrderStatus   enums.OrderStatus `gorm:"column:order_status;not null;default:0"`
	TicketCount   int               `gorm:"column:ticket_count;not null;default:0"`
	PaymentTime   *time.Time        `gorm:"column:payment_time"`
	PaymentMethod *string           `gorm:"column:payment_method;size:32"`
}

func (Order) TableName() string { return "orders" }
