package models

import (
	"time"

	"github.com/railtix/ticketing-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Ticket is one passenger's seat on one leg, owned by its order. Created and
// deleted only by the fulfillment pipeline (compensation included); status
// transitions afterwards come from refunds and changes.
type Ticket struct {
	TicketID        int64              `gorm:"column:ticket_id;primaryKey;autoIncrement"`
	TicketNumber    string             `gorm:"column:ticket_number;size:64;not null;uniqueIndex"`
	OrderID         int64              `gorm:"column:order_id;not null;index"`
	PassengerID     int64              `gorm:"column:passenger_id;not null;index"`
	TrainID         int                `gorm:"column:train_id;not null"`
	DepartureStopID int64              `gorm:"column:departure_stop_id;not null"`
	ArrivalStopID   int64              `gorm:"column:arrival_stop_id;not null"`
	TravelDate      time.Time          `gorm:"column:travel_date;type:date;not null;index"`
	CarriageTypeID  int                `gorm:"column:carriage_type_id;not null"`
	CarriageNumber  string             `gorm:"column:carriage_number;size:10"`
	SeatNumber      string             `gorm:"column:seat_number;size:10"`
	Price           decimal.Decimal    `gorm:"column:price;type:numeric(10,2);not null"`
	TicketStatus    enums.TicketStatus `gorm:"column:ticket_status;not null;default:0"`
	TicketType      enums.TicketType   `gorm:"column:ticket_type;not null;default:1"`
	CreatedTime     time.Time          `gorm:"column:created_time;not null"`
}

func (Ticket) TableName() string { return "tickets" }
