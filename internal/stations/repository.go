// Package stations loads route metadata: the ordered stops of a train and
// the carriages attached to it. Stop sequence numbers feed the occupancy
// mask codec; stop times feed the journey conflict checker.
package stations

import (
	"context"
	"errors"

	"github.com/railtix/ticketing-backend/pkg/db/models"
	pkgerrors "github.com/railtix/ticketing-backend/pkg/errors"
	"gorm.io/gorm"
)

// Repository reads train route data.
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

// Stop loads one stop of a train's route by its stop id.
func (r *Repository) Stop(ctx context.Context, trainID int, stopID int64) (*models.TrainStop, error) {
	var stop models.TrainStop
	err := r.db.WithContext(ctx).
		First(&stop, "train_id = ? AND stop_id = ?", trainID, stopID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "train stop not found")
	}
	if err != nil {
		return nil, err
	}
	return &stop, nil
}

// StopsForTrain returns the full route in boarding order.
func (r *Repository) StopsForTrain(ctx context.Context, trainID int) ([]models.TrainStop, error) {
	var stops []models.TrainStop
	err := r.db.WithContext(ctx).
		Where("train_id = ?", trainID).
		Order("sequence_number ASC").
		Find(&stops).Error
	if err != nil {
		return nil, err
	}
	return stops, nil
}

// CarriagesForTrain returns the carriages of a train filtered by seating class.
func (r *Repository) CarriagesForTrain(ctx context.Context, trainID, typeID int) ([]models.TrainCarriage, error) {
	var carriages []models.TrainCarriage
	err := r.db.WithContext(ctx).
		Where("train_id = ? AND type_id = ?", trainID, typeID).
		Order("carriage_number ASC").
		Find(&carriages).Error
	if err != nil {
		return nil, err
	}
	return carriages, nil
}
