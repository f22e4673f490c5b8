package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryRecord is the durable ledger row for one sellable leg: available
// seats for a (train, departure stop, arrival stop, travel date, carriage
// class) key, guarded by two independent optimistic version stamps.
type InventoryRecord struct {
	InventoryID     int64           `gorm:"column:inventory_id;primaryKey;autoIncrement"`
	TrainID         int             `gorm:"column:train_id;not null;index:idx_inventory_key,unique"`
	DepartureStopID int64           `gorm:"column:departure_stop_id;not null;index:idx_inventory_key,unique"`
	ArrivalStopID   int64           `gorm:"column:arrival_stop_id;not null;index:idx_inventory_key,unique"`
	TravelDate      time.Time       `gorm:"column:travel_date;type:date;not null;index:idx_inventory_key,unique"`
	CarriageTypeID  int             `gorm:"column:carriage_type_id;not null;index:idx_inventory_key,unique"`
	TotalSeats      int             `gorm:"column:total_seats;not null"`
	AvailableSeats  int             `gorm:"column:available_seats;not null"`
	CacheVersion    int64           `gorm:"column:cache_version;not null;default:0"`
	DBVersion       int             `gorm:"column:db_version;not null;default:0"`
	Price           decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	LastUpdated     time.Time       `gorm:"column:last_updated;autoUpdateTime"`
}

func (InventoryRecord) TableName() string { return "inventory_records" }
