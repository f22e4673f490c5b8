package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/railtix/ticketing-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Key identifies one sellable leg in the ledger.
type Key struct {
	TrainID         int
	DepartureStopID int64
	ArrivalStopID   int64
	TravelDate      time.Time
	CarriageTypeID  int
}

// Day normalizes the travel date to UTC midnight so lookups and stock keys
// agree regardless of the caller's clock.
func (k Key) Day() time.Time {
	return time.Date(k.TravelDate.Year(), k.TravelDate.Month(), k.TravelDate.Day(), 0, 0, 0, 0, time.UTC)
}

// Repository persists inventory ledger rows. Counter writes go through
// CompareAndSwap only; both version stamps must match and both advance
// together.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Find loads the ledger row for a leg, or nil when none exists.
func (r *Repository) Find(ctx context.Context, key Key) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("train_id = ? AND departure_stop_id = ? AND arrival_stop_id = ? AND travel_date = ? AND carriage_type_id = ?",
			key.TrainID, key.DepartureStopID, key.ArrivalStopID, key.Day(), key.CarriageTypeID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// All streams every ledger row, used by the cache restore job.
func (r *Repository) All(ctx context.Context) ([]models.InventoryRecord, error) {
	var records []models.InventoryRecord
	if err := r.db.WithContext(ctx).Order("inventory_id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Create inserts a new ledger row.
func (r *Repository) Create(ctx context.Context, record *models.InventoryRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// CompareAndSwap writes a new available-seat count guarded by both version
// stamps. Returns false when either stamp moved since the caller read the
// row; the row is left untouched in that case.
func (r *Repository) CompareAndSwap(ctx context.Context, inventoryID int64, newAvailable int, cacheVersion int64, dbVersion int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where("inventory_id = ? AND cache_version = ? AND db_version = ?", inventoryID, cacheVersion, dbVersion).
		Updates(map[string]any{
			"available_seats": newAvailable,
			"cache_version":   cacheVersion + 1,
			"db_version":      dbVersion + 1,
			"last_updated":    time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
