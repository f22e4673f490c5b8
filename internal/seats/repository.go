package seats

import (
	"context"
	"errors"

	"github.com/railtix/ticketing-backend/pkg/db/models"
	pkgerrors "github.com/railtix/ticketing-backend/pkg/errors"
	"gorm.io/gorm"
)

// Repository persists seats and their occupancy words. Words are only
// written through CompareAndSetWord so concurrent bookings cannot clobber
// each other's bits.
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

// Seat loads one seat by id.
func (r *Repository) Seat(ctx context.Context, seatID int64) (*models.Seat, error) {
	var seat models.Seat
	err := r.db.WithContext(ctx).First(&seat, "seat_id = ?", seatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seat not found")
	}
	if err != nil {
		return nil, err
	}
	return &seat, nil
}

// SeatByNumber loads one seat by its carriage and printed number.
func (r *Repository) SeatByNumber(ctx context.Context, carriageID int64, seatNumber string) (*models.Seat, error) {
	var seat models.Seat
	err := r.db.WithContext(ctx).
		First(&seat, "carriage_id = ? AND seat_number = ?", carriageID, seatNumber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seat not found")
	}
	if err != nil {
		return nil, err
	}
	return &seat, nil
}

// SeatsForCarriages lists every seat belonging to the given carriages, in
// stable carriage/seat-number order so assignment scans are deterministic.
func (r *Repository) SeatsForCarriages(ctx context.Context, carriageIDs []int64) ([]models.Seat, error) {
	if len(carriageIDs) == 0 {
		return nil, nil
	}
	var seats []models.Seat
	err := r.db.WithContext(ctx).
		Where("carriage_id IN ?", carriageIDs).
		Order("carriage_id ASC, seat_number ASC").
		Find(&seats).Error
	if err != nil {
		return nil, err
	}
	return seats, nil
}

// CompareAndSetWord replaces one occupancy word only if it still holds the
// previously observed value. Returns false when another writer got there
// first; callers reload and retry.
func (r *Repository) CompareAndSetWord(ctx context.Context, seatID int64, dateIndex int, observed, next uint64) (bool, error) {
	col := models.WordColumn(dateIndex)
	if col == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "date index outside occupancy window").
			WithDetails(map[string]any{"date_index": dateIndex})
	}

	res := r.db.WithContext(ctx).
		Model(&models.Seat{}).
		Where("seat_id = ? AND "+col+" = ?", seatID, observed).
		Update(col, next)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
